// Package job drives the lifecycle of a compute job: creation, file
// staging, submission, progress monitoring and result retrieval.
package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/onscale/onscale-go/internal/api"
	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/logging"
	"github.com/onscale/onscale-go/internal/models"
	"github.com/onscale/onscale-go/internal/socket"
	"github.com/onscale/onscale-go/internal/transfer"
)

// ErrAccountRequired is returned by Create when no account id is given.
var ErrAccountRequired = errors.New("an account id is required to create a job")

// Service creates and loads jobs against one authenticated portal session.
type Service struct {
	api      *api.Client
	portal   string
	token    string
	settings *config.Settings
	transfer *transfer.Engine
	log      *logging.Logger

	// socketURL maps a job id to its progress channel URL.
	socketURL func(jobID string) string
}

// NewService creates a job service. workers sets the transfer parallelism
// used by file staging and result downloads.
func NewService(client *api.Client, portal, token string, settings *config.Settings, workers int) (*Service, error) {
	if settings == nil {
		settings = &config.Settings{}
	}
	engine, err := transfer.NewEngine(settings, workers)
	if err != nil {
		return nil, err
	}
	return &Service{
		api:      client,
		portal:   portal,
		token:    token,
		settings: settings,
		transfer: engine,
		log:      logging.Global(),
		socketURL: func(jobID string) string {
			return socket.JobSocketURL(portal, jobID)
		},
	}, nil
}

// Create registers a new job on the portal. The server assigns the job id;
// the job starts in CREATED. hpcID may be empty to let the account default
// apply.
func (s *Service) Create(ctx context.Context, jobName, accountID, hpcID string) (*Job, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}

	jobID, err := s.api.JobInit(ctx, accountID, hpcID)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	job := &Job{
		svc: s,
		data: models.Job{
			JobID:     jobID,
			JobName:   jobName,
			AccountID: accountID,
			HpcID:     hpcID,
			JobStatus: models.JobStatusCreated,
		},
	}
	if jobName != "" {
		if _, err := s.api.JobUpdateName(ctx, jobID, jobName); err != nil {
			return nil, fmt.Errorf("failed to name job %s: %w", jobID, err)
		}
	}

	s.log.Info().Str("jobId", jobID).Str("jobName", jobName).Msg("job created")
	return job, nil
}

// Load fetches an existing job by id.
func (s *Service) Load(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.api.JobLoad(ctx, jobID, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	return &Job{svc: s, data: *data}, nil
}
