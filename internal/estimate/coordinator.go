package estimate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onscale/onscale-go/internal/api"
	"github.com/onscale/onscale-go/internal/constants"
	"github.com/onscale/onscale-go/internal/logging"
	"github.com/onscale/onscale-go/internal/models"
	"github.com/onscale/onscale-go/internal/socket"
)

// Coordinator issues an estimate request and waits on the user socket for
// its results.
type Coordinator struct {
	api       *api.Client
	socketURL string
	token     string
	timeout   time.Duration
	log       *logging.Logger

	// OnProgress, when set, receives estimation progress updates.
	OnProgress func(finished, total int)
}

// NewCoordinator creates a coordinator. The portal and token open the user
// socket; REST traffic goes through client.
func NewCoordinator(client *api.Client, portal, token string) *Coordinator {
	return &Coordinator{
		api:       client,
		socketURL: socket.UserSocketURL(portal),
		token:     token,
		timeout:   constants.EstimateTimeout,
		log:       logging.Global(),
	}
}

// Run requests an estimate for req and blocks until results arrive, the
// estimation fails, or the wait budget expires. A timeout means the outcome
// is unknown: the estimation may still complete server-side.
func (c *Coordinator) Run(ctx context.Context, req *models.JobEstimateRequest) (*Results, error) {
	ack, err := c.api.JobEstimate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("estimate request failed: %w", err)
	}
	c.log.Info().
		Str("jobId", req.JobID).
		Str("estimateId", ack.EstimateID).
		Msg("estimate requested, waiting for results")

	listener := NewListener(ack.EstimateID, c.OnProgress)
	sock := socket.NewListener(c.socketURL, c.token, listener)
	if err := sock.Listen(ctx, c.timeout); err != nil {
		if errors.Is(err, socket.ErrTimeout) {
			return nil, fmt.Errorf("timed out waiting for estimate %s: %w", ack.EstimateID, err)
		}
		return nil, err
	}
	return listener.Results()
}
