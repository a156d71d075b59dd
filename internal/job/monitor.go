package job

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/onscale/onscale-go/internal/socket"
)

// simBars renders one progress bar per simulation while a job runs. On a
// non-TTY it stays silent and the structured log carries the updates.
type simBars struct {
	progress   *mpb.Progress
	isTerminal bool

	mu   sync.Mutex
	bars map[string]*mpb.Bar
	last map[string]int
}

func newSimBars(quiet bool) *simBars {
	isTerminal := !quiet && term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(64),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}
	return &simBars{
		progress:   p,
		isTerminal: isTerminal,
		bars:       make(map[string]*mpb.Bar),
		last:       make(map[string]int),
	}
}

// update advances one simulation's bar to percent.
func (s *simBars) update(simulationID string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bar, ok := s.bars[simulationID]
	if !ok {
		bar = s.progress.New(100,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("%s ", simulationID), decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
		)
		s.bars[simulationID] = bar
	}
	if percent > s.last[simulationID] {
		bar.IncrBy(percent - s.last[simulationID])
		s.last[simulationID] = percent
	}
}

// complete fills every bar and stops rendering.
func (s *simBars) complete() {
	s.mu.Lock()
	for id, bar := range s.bars {
		if s.last[id] < 100 {
			bar.IncrBy(100 - s.last[id])
		}
	}
	s.mu.Unlock()
	s.progress.Wait()
}

// SubscribeToProgress follows the job's progress channel until every
// simulation completes, rendering per-simulation progress bars on a
// terminal. timeout bounds the wait; zero waits indefinitely.
func (j *Job) SubscribeToProgress(ctx context.Context, timeout time.Duration) error {
	bars := newSimBars(j.svc.settings.QuietMode)

	listener := socket.NewJobListener(j.data.JobID, socket.JobCallbacks{
		OnProgress: func(msg socket.JobMessage) {
			if msg.Progress != nil {
				bars.update(msg.SimulationID, *msg.Progress)
				j.svc.log.Debug().
					Str("simulationId", msg.SimulationID).
					Int("progress", *msg.Progress).
					Msg("simulation progress")
			}
		},
		OnStatus: func(msg socket.JobMessage) {
			j.svc.log.Debug().
				Str("simulationId", msg.SimulationID).
				Str("status", msg.Status).
				Msg("simulation status")
		},
		OnFinished: func(msg socket.JobMessage) {
			j.svc.log.Info().Str("jobId", j.data.JobID).Msg("job finished")
		},
	})

	sock := socket.NewListener(j.svc.socketURL(j.data.JobID), j.svc.token, listener)
	err := sock.Listen(ctx, timeout)
	bars.complete()
	if err != nil {
		return fmt.Errorf("failed while following job %s: %w", j.data.JobID, err)
	}
	return nil
}
