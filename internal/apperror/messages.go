package apperror

// Messages attached to the query kinds when a more specific reason is known.
const (
	MsgBadPeriod              = "bad period"
	MsgInclusionBitmapInvalid = "inclusion bitmap invalid"
	MsgRateNotAvailable       = "rate not available"
	MsgOldObservation         = "old observation"
	MsgBufferOutOfRange       = "buffer out of range"
	MsgNegativeAmount         = "negative amount"
	MsgNoSourceEnabled        = "no price source enabled"
	MsgPoolNotFound           = "pool not found"
	MsgFeedStale              = "feed answer stale"
	MsgZeroFactory            = "factory address is zero"
	MsgDecimalsOutOfRange     = "decimals out of range"
)
