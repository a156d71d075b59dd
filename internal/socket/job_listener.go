package socket

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/onscale/onscale-go/internal/logging"
	"github.com/onscale/onscale-go/internal/models"
)

// JobMessage is one progress-channel message for a job. Fields are populated
// according to the message type; Raw always carries the full payload.
type JobMessage struct {
	MessageType  string `json:"messagetype"`
	JobID        string `json:"jobId"`
	SimulationID string `json:"simulationId"`
	Status       string `json:"status"`
	Progress     *int   `json:"progress"`
	FileName     string `json:"fileName"`

	Raw json.RawMessage `json:"-"`
}

// JobCallbacks are invoked from the socket read goroutine as messages
// arrive. Any callback may be nil.
type JobCallbacks struct {
	// OnProgress receives solve progress updates.
	OnProgress func(msg JobMessage)

	// OnStatus receives simulation status transitions before the job is
	// finished.
	OnStatus func(msg JobMessage)

	// OnFinished fires once, when every simulation has completed.
	OnFinished func(msg JobMessage)

	// OnUpload receives result-file upload notifications.
	OnUpload func(msg JobMessage)
}

// JobListener tracks per-simulation status from a job's progress channel.
// Listening is complete once at least one simulation has been seen and all
// of them report COMPLETE.
type JobListener struct {
	jobID     string
	callbacks JobCallbacks
	log       *logging.Logger

	mu        sync.Mutex
	simStatus map[string]models.SimulationStatus
	finished  bool
}

// NewJobListener creates the handler for one job's socket.
func NewJobListener(jobID string, callbacks JobCallbacks) *JobListener {
	return &JobListener{
		jobID:     jobID,
		callbacks: callbacks,
		log:       logging.Global(),
		simStatus: make(map[string]models.SimulationStatus),
	}
}

// Complete reports whether every observed simulation has completed.
func (j *JobListener) Complete() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedLocked()
}

func (j *JobListener) finishedLocked() bool {
	if j.finished {
		return true
	}
	if len(j.simStatus) == 0 {
		return false
	}
	for _, status := range j.simStatus {
		if status != models.SimStatusComplete {
			return false
		}
	}
	j.finished = true
	return true
}

// SimulationStatus returns a snapshot of the per-simulation status map.
func (j *JobListener) SimulationStatus() map[string]models.SimulationStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make(map[string]models.SimulationStatus, len(j.simStatus))
	for id, status := range j.simStatus {
		out[id] = status
	}
	return out
}

// HandleMessage implements Handler.
func (j *JobListener) HandleMessage(data []byte) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		j.log.Warn().Err(err).Msg("websocket message is not valid JSON")
		return
	}
	msg.Raw = data

	// A simulation is considered running from its first message of any kind.
	if msg.SimulationID != "" {
		j.mu.Lock()
		if _, ok := j.simStatus[msg.SimulationID]; !ok {
			j.simStatus[msg.SimulationID] = models.SimStatusRunning
		}
		j.mu.Unlock()
	}

	switch msg.MessageType {
	case "":
		if msg.Progress != nil && j.callbacks.OnProgress != nil {
			j.callbacks.OnProgress(msg)
		}
	case "status":
		j.handleStatus(msg)
	case "upload":
		if j.callbacks.OnUpload != nil {
			j.callbacks.OnUpload(msg)
		}
	default:
		j.log.Debug().
			Str("messagetype", msg.MessageType).
			Str("jobId", j.jobID).
			Msg("unhandled websocket message")
	}
}

func (j *JobListener) handleStatus(msg JobMessage) {
	j.mu.Lock()
	if msg.SimulationID != "" {
		j.simStatus[msg.SimulationID] = models.SimulationStatus(strings.ToUpper(msg.Status))
	}
	finished := strings.EqualFold(msg.Status, "complete") && j.finishedLocked()
	j.mu.Unlock()

	if finished {
		if j.callbacks.OnFinished != nil {
			j.callbacks.OnFinished(msg)
		}
		return
	}
	if j.callbacks.OnStatus != nil {
		j.callbacks.OnStatus(msg)
	}
}
