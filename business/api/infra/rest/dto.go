package rest

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	watchdomain "github.com/fd1az/multiprice-oracle/business/watch/domain"
)

// Amounts are base-10 integers in the token's smallest unit.

type quoteResponse struct {
	In        string `json:"in"`
	Out       string `json:"out"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	Route     string `json:"route"`
	Block     string `json:"block"`
}

type candidateResponse struct {
	Source  oracledomain.SourceID `json:"source"`
	Amount  string                `json:"amount"`
	Present bool                  `json:"present"`
	Route   string                `json:"route,omitempty"`
}

type combinedResponse struct {
	In         string              `json:"in"`
	Out        string              `json:"out"`
	AmountIn   string              `json:"amountIn"`
	Value      string              `json:"value"`
	Selected   string              `json:"selected"`
	Block      string              `json:"block"`
	Candidates []candidateResponse `json:"candidates"`
}

type configResponse struct {
	Registry       string   `json:"registry"`
	CLFactory      string   `json:"clFactory"`
	CLPoolFee      uint32   `json:"clPoolFee"`
	CLOracle       string   `json:"clOracle"`
	CPFactories    []string `json:"cpFactories"`
	WETH           string   `json:"weth"`
	USDEquivalents []string `json:"usdEquivalents"`
}

type usdEquivalentResponse struct {
	Address       string `json:"address"`
	USDEquivalent bool   `json:"usdEquivalent"`
}

type streamReport struct {
	Pair     string            `json:"pair"`
	AmountIn string            `json:"amountIn"`
	Result   *combinedResponse `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
	Code     string            `json:"code,omitempty"`
}

type streamUpdate struct {
	Block     uint64         `json:"block"`
	BlockTime time.Time      `json:"blockTime"`
	Reports   []streamReport `json:"reports"`
}

func snapshotString(s oracledomain.Snapshot) string {
	if s.Number == nil {
		return ""
	}
	return s.Number.String()
}

func toQuoteResponse(req oracledomain.QuoteRequest, q *oracledomain.Quote) quoteResponse {
	return quoteResponse{
		In:        req.In.Hex(),
		Out:       req.Out.Hex(),
		AmountIn:  req.AmountIn.String(),
		AmountOut: q.Amount.String(),
		Route:     q.Route.String(),
		Block:     snapshotString(q.Snapshot),
	}
}

func toCombinedResponse(req oracledomain.QuoteRequest, res *oracledomain.AggregateResult) *combinedResponse {
	out := &combinedResponse{
		In:         req.In.Hex(),
		Out:        req.Out.Hex(),
		AmountIn:   req.AmountIn.String(),
		Value:      res.Value.String(),
		Selected:   res.Selected.String(),
		Block:      snapshotString(res.Snapshot),
		Candidates: make([]candidateResponse, 0, len(res.Candidates)),
	}
	for i, c := range res.Candidates {
		cr := candidateResponse{Source: oracledomain.SourceID(i), Amount: "0", Present: c.Present}
		if c.Present {
			cr.Amount = c.Amount.String()
			cr.Route = c.Route.String()
		}
		out.Candidates = append(out.Candidates, cr)
	}
	return out
}

func toStreamUpdate(block uint64, at time.Time, reports []*watchdomain.Report) streamUpdate {
	u := streamUpdate{Block: block, BlockTime: at, Reports: make([]streamReport, 0, len(reports))}
	for _, r := range reports {
		sr := streamReport{Pair: r.Pair.Label(), AmountIn: r.Pair.AmountIn.Raw().String()}
		if r.OK() {
			sr.Result = toCombinedResponse(oracledomain.QuoteRequest{
				In:       r.Pair.In.Address(),
				AmountIn: r.Pair.AmountIn.Raw(),
				Out:      r.Pair.Out.Address(),
			}, r.Result)
		} else {
			sr.Error = r.Err.Error()
			sr.Code = r.ErrorCode()
		}
		u.Reports = append(u.Reports, sr)
	}
	return u
}

func hexes(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
