// Package progress consumes a live scan-progress stream over WebSocket. The
// hosted report page uses the same stream for its live updates; the demo
// server exposes it at /ws/scans/{id}. REST polling (internal/poller) remains
// the portable path; the watcher is the push-based alternative for servers
// that offer it.
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// Event is one live update pushed by the scan stream.
type Event struct {
	// ScanInfo is the scan's status and progress at the time of the update.
	ScanInfo model.ScanInfo `json:"scan_info"`

	// Findings is the number of findings detected so far.
	Findings int `json:"findings"`
}

// EventFunc receives each Event as it arrives.
type EventFunc func(Event)

// Watcher consumes scan-progress streams.
type Watcher struct {
	dialer *websocket.Dialer
	logger logging.Logger
}

// NewWatcher creates a Watcher. If dialer is nil the websocket default dialer
// is used.
func NewWatcher(dialer *websocket.Dialer, logger logging.Logger) *Watcher {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Watcher{
		dialer: dialer,
		logger: logger.With(logging.Field{Key: "component", Value: "progress"}),
	}
}

// Watch connects to the stream at wsURL and invokes fn for every update until
// the scan reaches a terminal status, the stream closes, or ctx is cancelled.
// It returns nil once a terminal update is seen.
func (w *Watcher) Watch(ctx context.Context, wsURL string, fn EventFunc) error {
	conn, resp, err := w.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial progress stream: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Unblock the read loop when the caller cancels.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	w.logger.Debug("progress stream connected", logging.Field{Key: "url", Value: wsURL})

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("progress stream closed before scan finished")
			}
			return fmt.Errorf("read progress stream: %w", err)
		}

		if fn != nil {
			fn(event)
		}
		if event.ScanInfo.Status.Terminal() {
			w.logger.Debug("progress stream finished",
				logging.Field{Key: "status", Value: string(event.ScanInfo.Status)})
			return nil
		}
	}
}
