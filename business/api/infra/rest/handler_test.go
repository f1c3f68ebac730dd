package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/multiprice-oracle/business/api/infra/rest"
	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	watchdomain "github.com/fd1az/multiprice-oracle/business/watch/domain"
	watchinfra "github.com/fd1az/multiprice-oracle/business/watch/infra"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

var (
	sushiFactory = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	block        = oracledomain.Snapshot{Number: big.NewInt(19_000_000), Time: 1_700_000_000}
)

type fakeOracle struct {
	lastCombined oracledomain.CombinedRequest
	lastWindow   oracledomain.TwapWindow
	lastFactory  common.Address
	err          error
}

func (f *fakeOracle) quote(req oracledomain.QuoteRequest) (*oracledomain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &oracledomain.Quote{
		Amount:   new(big.Int).Mul(req.AmountIn, big.NewInt(3)),
		Route:    oracledomain.ViaBase(asset.AddrWETH),
		Snapshot: block,
	}, nil
}

func (f *fakeOracle) FeedQuote(_ context.Context, req oracledomain.QuoteRequest) (*oracledomain.Quote, error) {
	return f.quote(req)
}

func (f *fakeOracle) CLPoolSpotQuote(_ context.Context, req oracledomain.QuoteRequest) (*oracledomain.Quote, error) {
	return f.quote(req)
}

func (f *fakeOracle) CLPoolTwapQuote(_ context.Context, req oracledomain.QuoteRequest, window oracledomain.TwapWindow) (*oracledomain.Quote, error) {
	f.lastWindow = window
	if err := window.Validate(); err != nil {
		return nil, err
	}
	return f.quote(req)
}

func (f *fakeOracle) CPPoolSpotQuote(_ context.Context, factory common.Address, req oracledomain.QuoteRequest) (*oracledomain.Quote, error) {
	f.lastFactory = factory
	return f.quote(req)
}

func (f *fakeOracle) CombinedQuote(_ context.Context, req oracledomain.CombinedRequest) (*oracledomain.AggregateResult, error) {
	f.lastCombined = req
	if err := req.Mask.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	res := &oracledomain.AggregateResult{Value: big.NewInt(42), Selected: oracledomain.SourceCLSpot, Snapshot: block}
	res.Candidates[oracledomain.SourceCLSpot] = oracledomain.Candidate{
		Source: oracledomain.SourceCLSpot, Amount: big.NewInt(42), Present: true, Route: oracledomain.Direct(),
	}
	return res, nil
}

func (f *fakeOracle) Registry() common.Address  { return common.HexToAddress("0x47Fb2585D2C56Fe188D0E6ec628a38b74fCeeeDf") }
func (f *fakeOracle) CLFactory() common.Address { return common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984") }
func (f *fakeOracle) CLPoolFee() uint32         { return 3000 }
func (f *fakeOracle) CLOracle() common.Address  { return common.Address{} }
func (f *fakeOracle) CPFactories() []common.Address {
	return []common.Address{common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"), sushiFactory}
}
func (f *fakeOracle) WETH() common.Address { return asset.AddrWETH }
func (f *fakeOracle) USDEquivalents() []common.Address {
	return []common.Address{asset.AddrUSDC}
}
func (f *fakeOracle) IsUSDEquivalent(token common.Address) bool { return token == asset.AddrUSDC }

func newTestServer(t *testing.T, oracle rest.Oracle, stream rest.Stream) *httptest.Server {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	h := rest.NewHandler(oracle, asset.DefaultRegistry(), stream, log)
	srv, err := rest.NewServer(rest.ServerConfig{}, log, nil, h)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestSingleSourceRoutes(t *testing.T) {
	oracle := &fakeOracle{}
	ts := newTestServer(t, oracle, nil)

	for _, path := range []string{"/v1/quote/feed", "/v1/quote/cl/spot", "/v1/quote/cl/twap", "/v1/quote/cp/spot"} {
		t.Run(path, func(t *testing.T) {
			url := ts.URL + path + "?in=USDC&out=" + asset.AddrWETH.Hex() + "&amount=1000000&window=1800&factory=" + sushiFactory.Hex()
			var body map[string]string
			require.Equal(t, http.StatusOK, getJSON(t, url, &body))
			assert.Equal(t, asset.AddrUSDC.Hex(), body["in"])
			assert.Equal(t, asset.AddrWETH.Hex(), body["out"])
			assert.Equal(t, "1000000", body["amountIn"])
			assert.Equal(t, "3000000", body["amountOut"])
			assert.Equal(t, "via "+asset.AddrWETH.Hex(), body["route"])
			assert.Equal(t, "19000000", body["block"])
		})
	}
	assert.Equal(t, oracledomain.TwapWindow(1800), oracle.lastWindow)
	assert.Equal(t, sushiFactory, oracle.lastFactory)
}

func TestCombinedQuote(t *testing.T) {
	oracle := &fakeOracle{}
	ts := newTestServer(t, oracle, nil)

	var body struct {
		Value      string `json:"value"`
		Selected   string `json:"selected"`
		Candidates []struct {
			Source  string `json:"source"`
			Amount  string `json:"amount"`
			Present bool   `json:"present"`
		} `json:"candidates"`
	}
	status := getJSON(t, ts.URL+"/v1/quote?in=WETH&out=USDC&amount=10&buffer=10000000000000000&window=600&mask=31", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "42", body.Value)
	assert.Equal(t, "cl-spot", body.Selected)
	require.Len(t, body.Candidates, oracledomain.NumSources)
	for i, c := range body.Candidates {
		assert.Equal(t, oracledomain.SourceID(i).String(), c.Source)
		assert.Equal(t, i == int(oracledomain.SourceCLSpot), c.Present)
	}

	req := oracle.lastCombined
	assert.Equal(t, "10000000000000000", req.Buffer.String())
	assert.Equal(t, oracledomain.TwapWindow(600), req.Window)
	assert.Equal(t, oracledomain.InclusionMask(31), req.Mask)
	assert.Equal(t, asset.AddrWETH, req.In)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		query  string
		status int
		code   string
	}{
		{"missing amount", nil, "/v1/quote/feed?in=WETH&out=USDC", http.StatusBadRequest, "REQUIRED_FIELD"},
		{"bad token", nil, "/v1/quote/feed?in=NOPE&out=USDC&amount=1", http.StatusBadRequest, "INVALID_INPUT"},
		{"negative amount", nil, "/v1/quote/feed?in=WETH&out=USDC&amount=-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"mask out of range", nil, "/v1/quote?in=WETH&out=USDC&amount=1&mask=32", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"mask wider than 64 bits", nil, "/v1/quote?in=WETH&out=USDC&amount=1&mask=18446744073709551616", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"mask not a number", nil, "/v1/quote?in=WETH&out=USDC&amount=1&mask=all", http.StatusBadRequest, "INVALID_INPUT"},
		{"mask missing", nil, "/v1/quote?in=WETH&out=USDC&amount=1", http.StatusBadRequest, "REQUIRED_FIELD"},
		{"window zero", nil, "/v1/quote/cl/twap?in=WETH&out=USDC&amount=1&window=0", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"unavailable", oracledomain.SourceUnavailable("rate not available", "test"), "/v1/quote/feed?in=WETH&out=USDC&amount=1", http.StatusNotFound, "SOURCE_UNAVAILABLE"},
		{"history", oracledomain.InsufficientHistory("test"), "/v1/quote?in=WETH&out=USDC&amount=1&mask=2&window=60", http.StatusConflict, "INSUFFICIENT_HISTORY"},
		{"transport", apperror.New(apperror.CodeContractCallFailed), "/v1/quote/cl/spot?in=WETH&out=USDC&amount=1", http.StatusBadGateway, "CONTRACT_CALL_FAILED"},
		{"foreign", io.ErrUnexpectedEOF, "/v1/quote/cl/spot?in=WETH&out=USDC&amount=1", http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeOracle{err: tt.err}, nil)
			var body errorBody
			require.Equal(t, tt.status, getJSON(t, ts.URL+tt.query, &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestConfigRoutes(t *testing.T) {
	ts := newTestServer(t, &fakeOracle{}, nil)

	var cfg struct {
		CLPoolFee      uint32   `json:"clPoolFee"`
		CPFactories    []string `json:"cpFactories"`
		WETH           string   `json:"weth"`
		USDEquivalents []string `json:"usdEquivalents"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/config", &cfg))
	assert.Equal(t, uint32(3000), cfg.CLPoolFee)
	assert.Len(t, cfg.CPFactories, 2)
	assert.Equal(t, asset.AddrWETH.Hex(), cfg.WETH)
	assert.Equal(t, []string{asset.AddrUSDC.Hex()}, cfg.USDEquivalents)

	var eq struct {
		Address       string `json:"address"`
		USDEquivalent bool   `json:"usdEquivalent"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/config/usd-equivalent/"+strings.ToLower(asset.AddrUSDC.Hex()), &eq))
	assert.True(t, eq.USDEquivalent)
	assert.Equal(t, asset.AddrUSDC.Hex(), eq.Address)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/config/usd-equivalent/WETH", &eq))
	assert.False(t, eq.USDEquivalent)
}

func TestStream(t *testing.T) {
	b := watchinfra.NewBroadcaster()
	ts := newTestServer(t, &fakeOracle{}, b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/stream", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	pair := watchdomain.Pair{In: asset.WETH, Out: asset.USDC, AmountIn: asset.NewAmountFromUint64(asset.WETH, 1e18)}
	res := &oracledomain.AggregateResult{Value: big.NewInt(3_500_000_000), Selected: oracledomain.SourceCPA, Snapshot: block}
	res.Candidates[oracledomain.SourceCPA] = oracledomain.Candidate{Source: oracledomain.SourceCPA, Amount: big.NewInt(3_500_000_000), Present: true}

	b.Report(&chaindomain.Block{Number: 19_000_000, Timestamp: time.Unix(1_700_000_000, 0).UTC()}, []*watchdomain.Report{
		{Block: 19_000_000, Pair: pair, Result: res},
		{Block: 19_000_000, Pair: pair, Err: oracledomain.SourceUnavailable("rate not available", "test")},
	})

	var msg struct {
		Block   uint64 `json:"block"`
		Reports []struct {
			Pair   string `json:"pair"`
			Code   string `json:"code"`
			Result *struct {
				Value    string `json:"value"`
				Selected string `json:"selected"`
			} `json:"result"`
		} `json:"reports"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, uint64(19_000_000), msg.Block)
	require.Len(t, msg.Reports, 2)
	assert.Equal(t, "WETH/USDC", msg.Reports[0].Pair)
	require.NotNil(t, msg.Reports[0].Result)
	assert.Equal(t, "3500000000", msg.Reports[0].Result.Value)
	assert.Equal(t, "cp-a", msg.Reports[0].Result.Selected)
	assert.Nil(t, msg.Reports[1].Result)
	assert.Equal(t, "SOURCE_UNAVAILABLE", msg.Reports[1].Code)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCombinedQuote_WideMaskIsInvalidBitmap(t *testing.T) {
	oracle := &fakeOracle{}
	ts := newTestServer(t, oracle, nil)

	var body errorBody
	status := getJSON(t, ts.URL+"/v1/quote?in=WETH&out=USDC&amount=1&mask=340282366920938463463374607431768211456", &body)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_PARAMETER", body.Error.Code)
	assert.Equal(t, "inclusion bitmap invalid", body.Error.Message)
	assert.Nil(t, oracle.lastCombined.AmountIn)
}
