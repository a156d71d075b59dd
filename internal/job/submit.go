package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/onscale/onscale-go/internal/models"
)

// Validation failures raised by Submit before any network call.
var (
	ErrMissingMainFile      = errors.New("submit requires a main input file")
	ErrMissingRAMEstimate   = errors.New("submit requires a RAM estimate")
	ErrMissingCores         = errors.New("submit requires a core count")
	ErrMissingCoreHours     = errors.New("submit requires a core-hour estimate")
	ErrMissingNumberOfParts = errors.New("MPI operations require a part count")
)

// SubmitOptions carries the resources and metadata for a job submission.
// MainFile, RAMEstimate, CoresRequired and CoreHourEstimate are mandatory;
// they normally come from an estimate candidate.
type SubmitOptions struct {
	MainFile         string
	CoresRequired    int
	CoreHourEstimate float64

	// RAMEstimate is in megabytes.
	RAMEstimate int64

	// Precision defaults to SINGLE.
	Precision string

	// NumberOfParts is required for MPI and MNMPI operations.
	NumberOfParts int

	// Operation defaults to SIMULATION.
	Operation string

	DockerTagID     string
	JobType         string
	HpcID           string
	SimulationCount int
	RequiredBlobs   []string

	FileDependencies       []string
	FileAliases            []string
	FileDependentJobIDList []string
}

func (o *SubmitOptions) validate() error {
	if o.MainFile == "" {
		return ErrMissingMainFile
	}
	if o.RAMEstimate <= 0 {
		return ErrMissingRAMEstimate
	}
	if o.CoresRequired <= 0 {
		return ErrMissingCores
	}
	if o.CoreHourEstimate <= 0 {
		return ErrMissingCoreHours
	}
	if (o.Operation == "MPI" || o.Operation == "MNMPI") && o.NumberOfParts <= 0 {
		return ErrMissingNumberOfParts
	}
	return nil
}

// consoleParameters builds the solver launch arguments for one simulation.
// Solver-driven operations get memory and parallelism flags; anything else
// runs with IGNORE.
func consoleParameters(o *SubmitOptions) string {
	switch o.Operation {
	case "SIMULATION", "BUILD", "REVIEW":
		return fmt.Sprintf("-mem mb %d %g -noterm -mp %d stat",
			o.RAMEstimate, 0.1*float64(o.RAMEstimate), o.CoresRequired)
	case "MPI", "MNMPI":
		return fmt.Sprintf("-mem mb %d %g -noterm -nparts %d",
			o.RAMEstimate, 0.1*float64(o.RAMEstimate), o.NumberOfParts)
	default:
		return "IGNORE"
	}
}

// Submit sends the job to the compute queue. Resource requirements are
// validated locally first; nothing is sent when they are incomplete. On
// success the job transitions CREATED to QUEUED server-side and the local
// record is refreshed from the response.
func (j *Job) Submit(ctx context.Context, opts SubmitOptions) error {
	if opts.Operation == "" {
		opts.Operation = "SIMULATION"
	}
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.Precision == "" {
		opts.Precision = "SINGLE"
	}
	if opts.SimulationCount <= 0 {
		opts.SimulationCount = 1
	}

	j.data.MainFile = opts.MainFile
	j.data.CoresRequired = opts.CoresRequired
	j.data.CoreHourEstimate = opts.CoreHourEstimate
	j.data.RAMEstimate = opts.RAMEstimate
	j.data.Precision = opts.Precision
	j.data.NumberOfParts = opts.NumberOfParts
	j.data.Operation = opts.Operation
	j.data.DockerTagID = opts.DockerTagID
	j.data.DockerTag = "default"
	j.data.JobType = opts.JobType
	j.data.Application = "onscalego"
	j.data.SimulationCount = opts.SimulationCount
	j.data.FileDependencies = opts.FileDependencies
	j.data.FileAliases = opts.FileAliases
	j.data.FileDependentJobIDList = opts.FileDependentJobIDList
	if opts.HpcID != "" {
		j.data.HpcID = opts.HpcID
	}

	if len(j.data.Simulations) == 0 {
		params := consoleParameters(&opts)
		for i := 0; i < opts.SimulationCount; i++ {
			j.data.Simulations = append(j.data.Simulations, models.Simulation{
				JobID:             j.data.JobID,
				SimulationIndex:   i,
				ConsoleParameters: params,
			})
		}
	}

	submitted, err := j.svc.api.JobSubmit(ctx, &j.data)
	if err != nil {
		return fmt.Errorf("failed to submit job %s: %w", j.data.JobID, err)
	}
	j.data = *submitted

	j.svc.log.Info().
		Str("jobId", j.data.JobID).
		Str("jobName", j.data.JobName).
		Str("status", string(j.data.JobStatus)).
		Msg("job submitted")
	return nil
}
