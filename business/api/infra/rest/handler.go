// Package rest exposes the oracle over HTTP and streams watch reports over
// a websocket.
package rest

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

// Oracle is the query surface served by the handlers.
type Oracle interface {
	FeedQuote(ctx context.Context, req oracledomain.QuoteRequest) (*oracledomain.Quote, error)
	CLPoolSpotQuote(ctx context.Context, req oracledomain.QuoteRequest) (*oracledomain.Quote, error)
	CLPoolTwapQuote(ctx context.Context, req oracledomain.QuoteRequest, window oracledomain.TwapWindow) (*oracledomain.Quote, error)
	CPPoolSpotQuote(ctx context.Context, factory common.Address, req oracledomain.QuoteRequest) (*oracledomain.Quote, error)
	CombinedQuote(ctx context.Context, req oracledomain.CombinedRequest) (*oracledomain.AggregateResult, error)

	Registry() common.Address
	CLFactory() common.Address
	CLPoolFee() uint32
	CLOracle() common.Address
	CPFactories() []common.Address
	WETH() common.Address
	USDEquivalents() []common.Address
	IsUSDEquivalent(token common.Address) bool
}

// Handler serves the /v1 query routes.
type Handler struct {
	oracle Oracle
	assets *asset.Registry
	stream Stream
	log    logger.LoggerInterface
}

// NewHandler creates a Handler. stream may be nil, in which case /v1/stream
// is not mounted.
func NewHandler(oracle Oracle, assets *asset.Registry, stream Stream, log logger.LoggerInterface) *Handler {
	return &Handler{oracle: oracle, assets: assets, stream: stream, log: log}
}

// Routes mounts the /v1 routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/quote", h.handleCombined)
		r.Get("/quote/feed", h.handleFeed)
		r.Get("/quote/cl/spot", h.handleCLSpot)
		r.Get("/quote/cl/twap", h.handleCLTwap)
		r.Get("/quote/cp/spot", h.handleCPSpot)

		r.Get("/config", h.handleConfig)
		r.Get("/config/usd-equivalent/{address}", h.handleUSDEquivalent)

		if h.stream != nil {
			r.Get("/stream", h.handleStream)
		}
	})
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	req, err := h.quoteRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.oracle.FeedQuote(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(req, q))
}

func (h *Handler) handleCLSpot(w http.ResponseWriter, r *http.Request) {
	req, err := h.quoteRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.oracle.CLPoolSpotQuote(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(req, q))
}

func (h *Handler) handleCLTwap(w http.ResponseWriter, r *http.Request) {
	req, err := h.quoteRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	window, err := parseUint(r, "window", 32, true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.oracle.CLPoolTwapQuote(r.Context(), req, oracledomain.TwapWindow(window))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(req, q))
}

func (h *Handler) handleCPSpot(w http.ResponseWriter, r *http.Request) {
	req, err := h.quoteRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	factory, err := h.address(r, "factory")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.oracle.CPPoolSpotQuote(r.Context(), factory, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(req, q))
}

func (h *Handler) handleCombined(w http.ResponseWriter, r *http.Request) {
	req, err := h.quoteRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	buffer, err := parseBigInt(r, "buffer", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	window, err := parseUint(r, "window", 32, false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	mask, err := parseMask(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.oracle.CombinedQuote(r.Context(), oracledomain.CombinedRequest{
		QuoteRequest: req,
		Buffer:       buffer,
		Window:       oracledomain.TwapWindow(window),
		Mask:         mask,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCombinedResponse(req, res))
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Registry:       h.oracle.Registry().Hex(),
		CLFactory:      h.oracle.CLFactory().Hex(),
		CLPoolFee:      h.oracle.CLPoolFee(),
		CLOracle:       h.oracle.CLOracle().Hex(),
		CPFactories:    hexes(h.oracle.CPFactories()),
		WETH:           h.oracle.WETH().Hex(),
		USDEquivalents: hexes(h.oracle.USDEquivalents()),
	})
}

func (h *Handler) handleUSDEquivalent(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "address")
	addr, err := h.assets.Resolve(ref)
	if err != nil {
		h.writeError(w, r, invalid("address", ref))
		return
	}
	writeJSON(w, http.StatusOK, usdEquivalentResponse{
		Address:       addr.Hex(),
		USDEquivalent: h.oracle.IsUSDEquivalent(addr),
	})
}

// quoteRequest reads in, out and amount. Tokens are addresses or known
// symbols; amount is in the smallest unit of in.
func (h *Handler) quoteRequest(r *http.Request) (oracledomain.QuoteRequest, error) {
	in, err := h.address(r, "in")
	if err != nil {
		return oracledomain.QuoteRequest{}, err
	}
	out, err := h.address(r, "out")
	if err != nil {
		return oracledomain.QuoteRequest{}, err
	}
	amount, err := parseBigInt(r, "amount", true)
	if err != nil {
		return oracledomain.QuoteRequest{}, err
	}
	return oracledomain.QuoteRequest{In: in, AmountIn: amount, Out: out}, nil
}

func (h *Handler) address(r *http.Request, name string) (common.Address, error) {
	ref := r.URL.Query().Get(name)
	if ref == "" {
		return common.Address{}, missing(name)
	}
	addr, err := h.assets.Resolve(ref)
	if err != nil {
		return common.Address{}, invalid(name, ref)
	}
	return addr, nil
}

func parseBigInt(r *http.Request, name string, required bool) (*big.Int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		if required {
			return nil, missing(name)
		}
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, invalid(name, s)
	}
	return v, nil
}

func parseUint(r *http.Request, name string, bits int, required bool) (uint64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		if required {
			return 0, missing(name)
		}
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, invalid(name, s)
	}
	return v, nil
}

// parseMask reads the required inclusion bitmap. Any integer too wide for
// the family bits fails as an invalid bitmap, however large.
func parseMask(r *http.Request) (oracledomain.InclusionMask, error) {
	v, err := parseBigInt(r, "mask", true)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > uint64(oracledomain.MaskAll) {
		return 0, oracledomain.InvalidParameter(apperror.MsgInclusionBitmapInvalid, "mask="+v.String())
	}
	m := oracledomain.InclusionMask(v.Uint64())
	return m, m.Validate()
}

func missing(name string) error {
	return apperror.New(apperror.CodeRequiredField,
		apperror.WithContext("missing query parameter "+name))
}

func invalid(name, value string) error {
	return apperror.New(apperror.CodeInvalidInput,
		apperror.WithContext("invalid "+name+": "+value))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.Wrap(err, apperror.CodeInternalError)
	if appErr.Status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "query failed", "path", r.URL.Path, "error", appErr)
	} else {
		h.log.Debug(r.Context(), "query rejected", "path", r.URL.Path, "code", appErr.Code)
	}

	var traceID string
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	writeJSON(w, appErr.Status, appErr.Response(traceID))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
