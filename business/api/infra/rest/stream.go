package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	watchinfra "github.com/fd1az/multiprice-oracle/business/watch/infra"
)

const (
	streamBuffer       = 16
	streamWriteTimeout = 5 * time.Second
)

// Stream is a source of per-block watch updates.
type Stream interface {
	Subscribe(buffer int) (<-chan watchinfra.Update, func())
}

// handleStream pushes one JSON message per block until the client goes
// away or the stream closes.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "stream accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; reading is needed to notice their close frame.
	ctx := conn.CloseRead(r.Context())

	updates, cancel := h.stream.Subscribe(streamBuffer)
	defer cancel()

	h.log.Debug(ctx, "stream subscriber connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			var (
				block uint64
				at    time.Time
			)
			if u.Block != nil {
				block, at = u.Block.Number, u.Block.Timestamp
			}
			if err := writeTimeout(ctx, conn, toStreamUpdate(block, at, u.Reports)); err != nil {
				h.log.Debug(ctx, "stream write failed", "error", err)
				return
			}
		}
	}
}

func writeTimeout(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
