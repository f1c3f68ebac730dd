package domain

import "github.com/fd1az/multiprice-oracle/internal/apperror"

// InvalidParameter reports a malformed query input.
func InvalidParameter(msg, context string) *apperror.AppError {
	return apperror.New(apperror.CodeInvalidParameter,
		apperror.WithMessage(msg),
		apperror.WithContext(context))
}

// SourceUnavailable reports a missing feed, pool or route.
func SourceUnavailable(msg, context string) *apperror.AppError {
	return apperror.New(apperror.CodeSourceUnavailable,
		apperror.WithMessage(msg),
		apperror.WithContext(context))
}

// InsufficientHistory reports a TWAP window longer than the pool's history.
func InsufficientHistory(context string) *apperror.AppError {
	return apperror.New(apperror.CodeInsufficientHistory,
		apperror.WithMessage(apperror.MsgOldObservation),
		apperror.WithContext(context))
}

// IsUnavailable reports whether err is a SourceUnavailable failure.
func IsUnavailable(err error) bool {
	return apperror.HasCode(err, apperror.CodeSourceUnavailable)
}

// IsDroppable reports whether a failing source may be left out of a
// combined quote when strict sourcing is off.
func IsDroppable(err error) bool {
	return apperror.HasCode(err, apperror.CodeSourceUnavailable) ||
		apperror.HasCode(err, apperror.CodeInsufficientHistory)
}
