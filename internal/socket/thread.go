package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Thread owns a socket read loop in a background goroutine and surfaces
// every message on a channel. It shares the Listener's connection
// handling: abnormal closures reconnect after a short delay resuming
// from the last message timestamp, a normal closure from the server
// ends the thread, and Kill stops it from any goroutine. When
// synchronous monitoring of messages is all that is needed, Listener
// should be preferred.
type Thread struct {
	listener *Listener
	events   chan json.RawMessage

	startOnce sync.Once
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// threadHandler adapts the events channel to the Handler interface the
// read loop expects.
type threadHandler struct {
	t *Thread
}

func (h threadHandler) HandleMessage(data []byte) {
	select {
	case h.t.events <- json.RawMessage(data):
	case <-h.t.done:
	}
}

func (h threadHandler) Complete() bool { return false }

// NewThread creates a background socket for url authenticated with the
// bare token. Messages are delivered on Events; buffer sets the channel
// capacity, so a zero buffer makes delivery block until the consumer
// receives.
func NewThread(url, token string, buffer int) *Thread {
	t := &Thread{
		events: make(chan json.RawMessage, buffer),
		done:   make(chan struct{}),
	}
	t.listener = NewListener(url, token, threadHandler{t})
	return t
}

// Events is the message channel. It is never closed; select on Done to
// detect the end of the thread.
func (t *Thread) Events() <-chan json.RawMessage {
	return t.events
}

// Done is closed once the read loop has stopped for any reason.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Err reports why the thread stopped. Valid once Done is closed; nil
// after a normal server close or Kill.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Start launches the read loop. Subsequent calls are no-ops. A zero
// timeout means no timeout.
func (t *Thread) Start(ctx context.Context, timeout time.Duration) {
	t.startOnce.Do(func() {
		go func() {
			err := t.run(ctx, timeout)
			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
			close(t.done)
		}()
	})
}

// Wait blocks until the read loop has stopped and returns its error.
func (t *Thread) Wait() error {
	<-t.done
	return t.Err()
}

// Kill stops the thread. Safe to call from any goroutine and more than
// once.
func (t *Thread) Kill() {
	t.listener.Kill()
}

// run mirrors Listener.Listen except that completion is not polled: the
// thread runs until the server closes normally, the context is
// cancelled, the timeout elapses, or Kill is called.
func (t *Thread) run(ctx context.Context, timeout time.Duration) error {
	l := t.listener

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
			if l.isKilled() {
				return nil
			}
		case err := <-readDone:
			if l.isKilled() {
				return nil
			}
			if err == nil {
				// Server closed the connection normally.
				return nil
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
