package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/onscale/onscale-go/internal/encryption"
	"github.com/onscale/onscale-go/internal/models"
)

// Job is a handle to one job on the portal. Status is never cached: every
// Status call is a fresh fetch.
type Job struct {
	svc  *Service
	data models.Job

	keyOnce sync.Once
	keyErr  error
	aesKey  []byte
}

// ID returns the server-assigned job id.
func (j *Job) ID() string { return j.data.JobID }

// Name returns the job's display name.
func (j *Job) Name() string { return j.data.JobName }

// Data returns a copy of the underlying job record.
func (j *Job) Data() models.Job { return j.data }

// Status fetches the job's current lifecycle state from the portal.
func (j *Job) Status(ctx context.Context) (models.JobStatus, error) {
	data, err := j.svc.api.JobLoad(ctx, j.data.JobID, true, false)
	if err != nil {
		return "", fmt.Errorf("failed to fetch status of job %s: %w", j.data.JobID, err)
	}
	j.data.JobStatus = data.JobStatus
	return data.JobStatus, nil
}

// Rename updates the job's display name.
func (j *Job) Rename(ctx context.Context, name string) error {
	data, err := j.svc.api.JobUpdateName(ctx, j.data.JobID, name)
	if err != nil {
		return fmt.Errorf("failed to rename job %s: %w", j.data.JobID, err)
	}
	j.data.JobName = data.JobName
	return nil
}

// AESKey fetches and caches the job's file encryption key. Keys are
// per-job; the first call hits the network, later calls reuse the result.
func (j *Job) AESKey(ctx context.Context) ([]byte, error) {
	j.keyOnce.Do(func() {
		encoded, err := j.svc.api.AESKey(ctx, j.data.JobID)
		if err != nil {
			j.keyErr = fmt.Errorf("failed to fetch key for job %s: %w", j.data.JobID, err)
			return
		}
		j.aesKey, j.keyErr = encryption.DecodeKey(encoded)
	})
	return j.aesKey, j.keyErr
}

// Progress aggregates per-simulation progress into one overall figure.
// A single cancelled, failed or delayed simulation dominates the result.
type Progress struct {
	// Percent is the mean progress across simulations, 0-100. Only valid
	// when State is "running".
	Percent int

	// State is "running", "cancelled", "failed", "delayed" or "unknown".
	State string

	Simulations []models.SimulationProgress
}

// Progress fetches and aggregates the job's simulation progress.
func (j *Job) Progress(ctx context.Context) (*Progress, error) {
	report, err := j.svc.api.JobProgress(ctx, j.data.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress of job %s: %w", j.data.JobID, err)
	}
	if len(report.SimulationProgressList) == 0 {
		return &Progress{State: "unknown"}, nil
	}

	total := 0
	for _, sim := range report.SimulationProgressList {
		switch sim.Progress {
		case -1:
			return &Progress{State: "cancelled", Simulations: report.SimulationProgressList}, nil
		case -2:
			return &Progress{State: "failed", Simulations: report.SimulationProgressList}, nil
		case -3:
			return &Progress{State: "delayed", Simulations: report.SimulationProgressList}, nil
		}
		total += sim.Progress
	}
	return &Progress{
		Percent:     total / len(report.SimulationProgressList),
		State:       "running",
		Simulations: report.SimulationProgressList,
	}, nil
}

// Stop requests cancellation of every simulation in the job. Simulations
// the server no longer knows about are reported but do not abort the rest;
// the returned error lists every simulation that did not stop.
func (j *Job) Stop(ctx context.Context) error {
	rows, err := j.svc.api.JobStop(ctx, j.data.JobID)
	if err != nil {
		return fmt.Errorf("failed to stop job %s: %w", j.data.JobID, err)
	}

	var errs []error
	for _, row := range rows {
		if row.Status != models.SimStatusStopped {
			errs = append(errs, fmt.Errorf("simulation %s did not stop: %s", row.SimulationID, row.Status))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	j.svc.log.Info().Str("jobId", j.data.JobID).Msg("job stopped")
	return nil
}

// StopSimulation requests cancellation of a single simulation.
func (j *Job) StopSimulation(ctx context.Context, simulationID string) error {
	row, err := j.svc.api.JobSimulationStop(ctx, j.data.JobID, simulationID)
	if err != nil {
		return fmt.Errorf("failed to stop simulation %s: %w", simulationID, err)
	}
	if row.Status != models.SimStatusStopped {
		return fmt.Errorf("simulation %s did not stop: %s", simulationID, row.Status)
	}
	return nil
}

// Tag attaches a tag to the job.
func (j *Job) Tag(ctx context.Context, tag string) error {
	tags, err := j.svc.api.TagJob(ctx, j.data.JobID, tag)
	if err != nil {
		return fmt.Errorf("failed to tag job %s: %w", j.data.JobID, err)
	}
	j.data.Tags = tags
	return nil
}

// Untag removes a tag from the job.
func (j *Job) Untag(ctx context.Context, tag string) error {
	tags, err := j.svc.api.UntagJob(ctx, j.data.JobID, tag)
	if err != nil {
		return fmt.Errorf("failed to untag job %s: %w", j.data.JobID, err)
	}
	j.data.Tags = tags
	return nil
}

// Tags fetches the job's current tags.
func (j *Job) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := j.svc.api.TagList(ctx, j.data.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of job %s: %w", j.data.JobID, err)
	}
	j.data.Tags = tags
	return tags, nil
}

// Simulations pages through the job's simulation list.
func (j *Job) Simulations(ctx context.Context) ([]models.Simulation, error) {
	var all []models.Simulation
	page := 0
	for {
		resp, err := j.svc.api.JobSimulationList(ctx, &models.SimulationListPageRequest{
			JobID:      j.data.JobID,
			PageNumber: page,
			PageSize:   100,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list simulations of job %s: %w", j.data.JobID, err)
		}
		all = append(all, resp.Simulations...)
		if len(all) >= resp.TotalCount || len(resp.Simulations) == 0 {
			return all, nil
		}
		page++
	}
}
