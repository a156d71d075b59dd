package estimate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/onscale/onscale-go/internal/logging"
)

// Listener consumes estimate messages from the user socket until a results
// or error message arrives. It implements socket.Handler.
type Listener struct {
	estimateID string
	onProgress func(finished, total int)
	log        *logging.Logger

	mu       sync.Mutex
	complete bool
	results  *Results
	err      error
}

// NewListener creates a handler for one estimate. estimateID filters the
// user socket's traffic; messages for other estimates are ignored.
// onProgress may be nil.
func NewListener(estimateID string, onProgress func(finished, total int)) *Listener {
	return &Listener{
		estimateID: estimateID,
		onProgress: onProgress,
		log:        logging.Global(),
	}
}

// Complete reports whether a terminal message has arrived.
func (l *Listener) Complete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.complete
}

// Results returns the parsed candidates, or an error if the estimation
// failed or no results were received.
func (l *Listener) Results() (*Results, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.results == nil {
		return nil, fmt.Errorf("no estimate results received for %s", l.estimateID)
	}
	return l.results, nil
}

// HandleMessage implements socket.Handler.
func (l *Listener) HandleMessage(data []byte) {
	var msg struct {
		MessageType string `json:"messagetype"`
		EstimateID  string `json:"estimateId"`
		Status      string `json:"status"`
		Message     string `json:"message"`
		Finished    int    `json:"finished"`
		Total       int    `json:"total"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		l.log.Warn().Err(err).Msg("websocket message is not valid JSON")
		return
	}

	// The user socket carries traffic beyond this estimate.
	if l.estimateID != "" && msg.EstimateID != "" && msg.EstimateID != l.estimateID {
		return
	}

	switch msg.MessageType {
	case "status":
		if strings.EqualFold(msg.Status, "failed") {
			l.finish(nil, fmt.Errorf("estimation failed for %s", l.estimateID))
		}
	case "progress":
		if l.onProgress != nil && msg.Total > 0 {
			l.onProgress(msg.Finished, msg.Total)
		}
	case "results":
		results, err := ParseResults(data)
		l.finish(results, err)
	case "error":
		l.finish(nil, fmt.Errorf("estimation error: %s", msg.Message))
	}
}

func (l *Listener) finish(results *Results, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.complete {
		return
	}
	l.complete = true
	l.results = results
	l.err = err
}
