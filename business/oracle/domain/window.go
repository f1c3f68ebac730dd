package domain

import (
	"time"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// TwapWindow is the trailing averaging period in seconds.
type TwapWindow uint32

// Validate rejects a zero window.
func (w TwapWindow) Validate() error {
	if w == 0 {
		return InvalidParameter(apperror.MsgBadPeriod, "window=0")
	}
	return nil
}

func (w TwapWindow) Duration() time.Duration {
	return time.Duration(w) * time.Second
}
