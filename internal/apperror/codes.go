package apperror

import "net/http"

// Code identifies a failure class. It is stable across releases and is what
// API clients match on.
type Code string

// Query kinds. Every failure of a quote entrypoint carries exactly one.
const (
	CodeInvalidParameter    Code = "INVALID_PARAMETER"
	CodeSourceUnavailable   Code = "SOURCE_UNAVAILABLE"
	CodeInsufficientHistory Code = "INSUFFICIENT_HISTORY"
)

// Request decoding.
const (
	CodeRequiredField Code = "REQUIRED_FIELD"
	CodeInvalidInput  Code = "INVALID_INPUT"
)

// Chain access.
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeBlockNotFound            Code = "BLOCK_NOT_FOUND"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeContractDecodeFailed     Code = "CONTRACT_DECODE_FAILED"

	CodeCircuitOpen       Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen   Code = "CIRCUIT_HALF_OPEN"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
)

// Fallbacks.
const (
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

type codeInfo struct {
	message string
	status  int
}

var catalog = map[Code]codeInfo{
	CodeInvalidParameter:    {"invalid parameter", http.StatusBadRequest},
	CodeSourceUnavailable:   {MsgRateNotAvailable, http.StatusNotFound},
	CodeInsufficientHistory: {MsgOldObservation, http.StatusConflict},

	CodeRequiredField: {"required field is missing", http.StatusBadRequest},
	CodeInvalidInput:  {"invalid input", http.StatusBadRequest},

	CodeEthereumConnectionFailed: {"failed to connect to ethereum node", http.StatusServiceUnavailable},
	CodeEthereumRPCError:         {"ethereum rpc call failed", http.StatusBadGateway},
	CodeBlockNotFound:            {"block not found", http.StatusBadGateway},
	CodeContractCallFailed:       {"contract call failed", http.StatusBadGateway},
	CodeContractDecodeFailed:     {"contract response could not be decoded", http.StatusBadGateway},

	CodeCircuitOpen:       {"circuit breaker is open", http.StatusServiceUnavailable},
	CodeCircuitHalfOpen:   {"circuit breaker is half-open", http.StatusServiceUnavailable},
	CodeRateLimitExceeded: {"rate limit exceeded", http.StatusTooManyRequests},

	CodeInternalError: {"internal error", http.StatusInternalServerError},
	CodeUnknownError:  {"unknown error", http.StatusInternalServerError},
}

// Message returns the default human-readable text for c.
func (c Code) Message() string {
	if info, ok := catalog[c]; ok {
		return info.message
	}
	return string(c)
}

// Status returns the HTTP status a failure with this code is served as.
func (c Code) Status() int {
	if info, ok := catalog[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
