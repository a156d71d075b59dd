// Package socket provides synchronous listeners over the portal's websocket
// channels. A Listener reads JSON messages into a Handler until the Handler
// reports completion, reconnecting on abnormal closure and resuming from the
// last seen message timestamp.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onscale/onscale-go/internal/constants"
	"github.com/onscale/onscale-go/internal/logging"
)

// ErrTimeout is returned by Listen when the wall-clock budget expires before
// the handler completes.
var ErrTimeout = errors.New("websocket listening timed out")

// Handler consumes messages from a socket. HandleMessage is called from the
// read goroutine; Complete is polled from Listen's loop, so implementations
// guard shared state.
type Handler interface {
	HandleMessage(data []byte)
	Complete() bool
}

// JobSocketURL returns the websocket URL carrying progress for one job.
func JobSocketURL(portal, jobID string) string {
	return fmt.Sprintf("wss://%s.portal.onscale.com/socket/job/%s", portal, jobID)
}

// UserSocketURL returns the user-wide websocket URL, which carries estimate
// messages among others.
func UserSocketURL(portal string) string {
	return fmt.Sprintf("wss://%s.portal.onscale.com/socket/user", portal)
}

// Listener drives a Handler from a websocket connection.
type Listener struct {
	url     string
	header  http.Header
	handler Handler
	dialer  *websocket.Dialer
	log     *logging.Logger

	pollInterval time.Duration
	retryDelay   time.Duration

	mu     sync.Mutex
	lastTS int64
	hasTS  bool
	killed bool
	conn   *websocket.Conn
}

// NewListener creates a listener for url authenticated with the bare token.
func NewListener(url, token string, handler Handler) *Listener {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", token)
	}
	return &Listener{
		url:          url,
		header:       header,
		handler:      handler,
		dialer:       websocket.DefaultDialer,
		log:          logging.Global(),
		pollInterval: constants.SocketPollInterval,
		retryDelay:   constants.SocketRetryDelay,
	}
}

// Listen reads messages until the handler completes, the context is
// cancelled, or timeout elapses (zero means no timeout). Abnormal
// closures reconnect after a short delay, resuming from the last message
// timestamp via the seekTimestamp query parameter. A normal closure from the
// server stops reading but Listen keeps polling the handler until it
// completes or times out.
func (l *Listener) Listen(ctx context.Context, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	readDone := make(chan error, 1)
	if err := l.connect(false); err != nil {
		return err
	}
	go l.readLoop(readDone)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	defer l.Kill()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrTimeout
		case <-ticker.C:
			if l.isKilled() || l.handler.Complete() {
				return nil
			}
		case err := <-readDone:
			if l.isKilled() {
				return nil
			}
			if err == nil {
				// Server closed the connection normally. Keep polling until
				// the handler settles.
				readDone = nil
				continue
			}
			l.log.Warn().Err(err).Msg("websocket connection lost, reconnecting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.retryDelay):
			}
			if err := l.connect(true); err != nil {
				return err
			}
			readDone = make(chan error, 1)
			go l.readLoop(readDone)
		}
	}
}

// Kill stops the listener. Safe to call from any goroutine and more than
// once.
func (l *Listener) Kill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.killed {
		return
	}
	l.killed = true
	if l.conn != nil {
		l.conn.Close()
	}
}

func (l *Listener) isKilled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.killed
}

// connect dials the socket. Reconnects resume from the last seen message
// timestamp so no messages are dropped across the gap.
func (l *Listener) connect(seek bool) error {
	url := l.url
	l.mu.Lock()
	if seek && l.hasTS {
		url = fmt.Sprintf("%s?seekTimestamp=%d", l.url, l.lastTS)
	}
	l.mu.Unlock()

	conn, resp, err := l.dialer.Dial(url, l.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to websocket %s: %w", l.url, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.killed {
		conn.Close()
		return errors.New("listener killed")
	}
	l.conn = conn
	return nil
}

// readLoop pumps messages into the handler until the connection drops. It
// reports nil for a normal closure and the read error otherwise.
func (l *Listener) readLoop(done chan<- error) {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				done <- nil
			} else {
				done <- err
			}
			return
		}
		l.recordTimestamp(data)
		l.handler.HandleMessage(data)
	}
}

// recordTimestamp tracks the portal's _ts field from every JSON message so a
// reconnect can seek past what was already delivered.
func (l *Listener) recordTimestamp(data []byte) {
	var stamp struct {
		TS *int64 `json:"_ts"`
	}
	if err := json.Unmarshal(data, &stamp); err != nil || stamp.TS == nil {
		return
	}
	l.mu.Lock()
	l.lastTS = *stamp.TS
	l.hasTS = true
	l.mu.Unlock()
}
