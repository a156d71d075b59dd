package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/onscale/onscale-go/internal/api"
	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/estimate"
	"github.com/onscale/onscale-go/internal/job"
	"github.com/onscale/onscale-go/internal/models"
)

// newJobCmd creates the 'job' command group.
func newJobCmd() *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Job operations (create, submit, status, stop, tail, estimate)",
	}

	jobCmd.AddCommand(newJobCreateCmd())
	jobCmd.AddCommand(newJobSubmitCmd())
	jobCmd.AddCommand(newJobStatusCmd())
	jobCmd.AddCommand(newJobStopCmd())
	jobCmd.AddCommand(newJobTailCmd())
	jobCmd.AddCommand(newJobEstimateCmd())
	jobCmd.AddCommand(newJobTagCmd())
	jobCmd.AddCommand(newJobUntagCmd())

	return jobCmd
}

// newJobCreateCmd creates the 'job create' command.
func newJobCreateCmd() *cobra.Command {
	var name string
	var hpcID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty job",
		Long: `Create a job on the portal without submitting it. The returned job id
is used by the other job commands.

Example:
  onscale job create --name "wing flutter sweep"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, profile, err := getJobService()
			if err != nil {
				return err
			}

			created, err := svc.Create(GetContext(), name, profile.AccountID, hpcID)
			if err != nil {
				return err
			}
			fmt.Printf("Created job %s (%s)\n", created.ID(), statusColor(created.Data().JobStatus))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Job name")
	cmd.Flags().StringVar(&hpcID, "hpc-id", "", "Target HPC cluster")

	return cmd
}

// newJobSubmitCmd creates the 'job submit' command.
func newJobSubmitCmd() *cobra.Command {
	var (
		jobID     string
		name      string
		mainFile  string
		solver    string
		operation string
		precision string
		ram       int64
		cores     int
		coreHours float64
		parts     int
		simCount  int
		hpcID     string
		maxSpend  float64
		follow    bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Upload a model and submit it to the compute queue",
		Long: `Submit a job. The main model file is uploaded as a blob (content-addressed:
re-submitting unchanged input uploads nothing), then the job is queued with
the requested resources.

Resources come from one of two places:
  - explicit flags: --ram, --cores and --core-hours
  - --max-spend: run a cost estimate first and pick the cheapest
    configuration under the budget

Example:
  onscale job submit --main-file model.flex --ram 2048 --cores 8 --core-hours 4
  onscale job submit --main-file model.flex --solver flex --max-spend 10 --follow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mainFile == "" {
				return fmt.Errorf("--main-file is required")
			}

			svc, profile, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			var j *job.Job
			if jobID != "" {
				j, err = svc.Load(ctx, jobID)
			} else {
				j, err = svc.Create(ctx, name, profile.AccountID, hpcID)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Job %s\n", j.ID())

			blobType := models.BlobTypeForFile(mainFile)
			if blobType == "" {
				blobType = models.BlobTypeModelDB
			}
			blobID, err := j.UploadBlob(ctx, blobType, mainFile)
			if err != nil {
				return err
			}

			opts := job.SubmitOptions{
				MainFile:         mainFile,
				RAMEstimate:      ram,
				CoresRequired:    cores,
				CoreHourEstimate: coreHours,
				NumberOfParts:    parts,
				Operation:        operation,
				Precision:        precision,
				SimulationCount:  simCount,
				HpcID:            hpcID,
			}

			if maxSpend > 0 {
				candidate, err := runEstimate(profile, j.ID(), blobID, solver, precision, maxSpend, parts)
				if err != nil {
					return err
				}
				fmt.Printf("Estimate picked %d cores, %d MB, %.2f core-hours\n",
					candidate.Cores, candidate.Memory, candidate.Cost)
				opts.CoresRequired = candidate.Cores
				opts.RAMEstimate = int64(candidate.Memory)
				opts.CoreHourEstimate = candidate.Cost
				opts.NumberOfParts = candidate.Parts
			}

			if err := j.Submit(ctx, opts); err != nil {
				return err
			}
			fmt.Printf("Submitted job %s (%s)\n", j.ID(), statusColor(j.Data().JobStatus))

			if follow {
				return j.SubscribeToProgress(ctx, timeout)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Submit an existing job instead of creating one")
	cmd.Flags().StringVar(&name, "name", "", "Job name")
	cmd.Flags().StringVar(&mainFile, "main-file", "", "Main model file (required)")
	cmd.Flags().StringVar(&solver, "solver", "", "Solver for the cost estimate")
	cmd.Flags().StringVar(&operation, "operation", "", "Operation: SIMULATION, BUILD, REVIEW, MPI, MNMPI")
	cmd.Flags().StringVar(&precision, "precision", "", "Numeric precision: SINGLE or DOUBLE")
	cmd.Flags().Int64Var(&ram, "ram", 0, "RAM estimate in MB")
	cmd.Flags().IntVar(&cores, "cores", 0, "Core count")
	cmd.Flags().Float64Var(&coreHours, "core-hours", 0, "Core-hour estimate")
	cmd.Flags().IntVar(&parts, "parts", 0, "Part count (MPI/MNMPI)")
	cmd.Flags().IntVar(&simCount, "sim-count", 1, "Number of simulations")
	cmd.Flags().StringVar(&hpcID, "hpc-id", "", "Target HPC cluster")
	cmd.Flags().Float64Var(&maxSpend, "max-spend", 0, "Core-hour budget; estimates resources instead of --ram/--cores/--core-hours")
	cmd.Flags().BoolVar(&follow, "follow", false, "Stay attached and show per-simulation progress")
	cmd.Flags().DurationVar(&timeout, "timeout", 24*time.Hour, "Give up following after this long")

	return cmd
}

// newJobStatusCmd creates the 'job status' command.
func newJobStatusCmd() *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show job status and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}
			status, err := j.Status(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Job:    %s\n", j.ID())
			if j.Name() != "" {
				fmt.Printf("Name:   %s\n", j.Name())
			}
			fmt.Printf("Status: %s\n", statusColor(status))

			if status == models.JobStatusRunning {
				progress, err := j.Progress(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Progress: %d%% (%s)\n", progress.Percent, progress.State)
				for _, sim := range progress.Simulations {
					fmt.Printf("  %s: %d%%\n", sim.SimulationID, sim.Progress)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")

	return cmd
}

// newJobStopCmd creates the 'job stop' command.
func newJobStopCmd() *cobra.Command {
	var jobID string
	var simulationID string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a job or a single simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}
			if simulationID != "" {
				if err := j.StopSimulation(ctx, simulationID); err != nil {
					return err
				}
				fmt.Printf("Stopped simulation %s\n", simulationID)
				return nil
			}
			if err := j.Stop(ctx); err != nil {
				return err
			}
			fmt.Printf("Stopped job %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")
	cmd.Flags().StringVar(&simulationID, "simulation-id", "", "Stop only this simulation")

	return cmd
}

// newJobTailCmd creates the 'job tail' command.
func newJobTailCmd() *cobra.Command {
	var jobID string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow a running job's progress",
		Long: `Attach to a running job's progress channel and render one progress bar
per simulation until the job completes or the timeout expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}
			return j.SubscribeToProgress(ctx, timeout)
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", 24*time.Hour, "Give up after this long")

	return cmd
}

// requestEstimate posts an estimate request for a job's model blob and waits
// for the results on the user socket.
func requestEstimate(profile *config.Profile, jobID, blobID, solver, precision string) (*estimate.Results, error) {
	client, err := api.NewClient(profile.Portal, profile.Token, settingsFromFlags())
	if err != nil {
		return nil, err
	}
	coordinator := estimate.NewCoordinator(client, profile.Portal, profile.Token)
	if !quiet {
		coordinator.OnProgress = func(finished, total int) {
			fmt.Printf("\restimating... %d/%d", finished, total)
			if finished >= total {
				fmt.Println()
			}
		}
	}
	return coordinator.Run(GetContext(), &models.JobEstimateRequest{
		JobID:     jobID,
		BlobID:    blobID,
		Solver:    solver,
		Precision: precision,
	})
}

// runEstimate requests an estimate and picks the cheapest configuration
// under maxSpend.
func runEstimate(profile *config.Profile, jobID, blobID, solver, precision string, maxSpend float64, parts int) (*estimate.Candidate, error) {
	results, err := requestEstimate(profile, jobID, blobID, solver, precision)
	if err != nil {
		return nil, err
	}
	candidate := results.GetNearestEstimate(maxSpend, parts)
	if candidate == nil {
		return nil, fmt.Errorf("no estimate configuration fits a %.2f core-hour budget", maxSpend)
	}
	return candidate, nil
}

// newJobEstimateCmd creates the 'job estimate' command.
func newJobEstimateCmd() *cobra.Command {
	var (
		jobID     string
		blobID    string
		solver    string
		precision string
		maxSpend  float64
		parts     int
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the cost of running a job",
		Long: `Request a cost estimate for an uploaded model blob. The portal computes
candidate core/memory/runtime configurations; the results are listed, and
with --max-spend the cheapest configuration under the budget is marked.

Example:
  onscale job estimate --job-id j-123 --blob-id b-456 --solver flex --max-spend 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" || blobID == "" {
				return fmt.Errorf("--job-id and --blob-id are required")
			}
			svc, profile, err := getJobService()
			if err != nil {
				return err
			}
			j, err := svc.Load(GetContext(), jobID)
			if err != nil {
				return err
			}

			results, err := requestEstimate(profile, j.ID(), blobID, solver, precision)
			if err != nil {
				return err
			}

			fmt.Printf("Estimate %s: %d configurations\n\n", results.EstimateID, len(results.NumberOfCores))
			fmt.Printf("%8s %10s %12s %8s\n", "cores", "memory", "runtime", "parts")
			for i := range results.NumberOfCores {
				var p int
				if i < len(results.PartsCount) {
					p = results.PartsCount[i]
				}
				fmt.Printf("%8d %8d MB %10.0f s %8d\n",
					results.NumberOfCores[i], results.EstimatedMemory[i], results.EstimatedRunTimes[i], p)
			}

			if maxSpend > 0 {
				candidate := results.GetNearestEstimate(maxSpend, parts)
				if candidate == nil {
					fmt.Printf("\nNo configuration fits a %.2f core-hour budget\n", maxSpend)
					return nil
				}
				fmt.Printf("\nBest under %.2f core-hours: %d cores, %d MB, %.2f core-hours\n",
					maxSpend, candidate.Cores, candidate.Memory, candidate.Cost)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")
	cmd.Flags().StringVar(&blobID, "blob-id", "", "Model blob to estimate (required)")
	cmd.Flags().StringVar(&solver, "solver", "", "Solver name")
	cmd.Flags().StringVar(&precision, "precision", "SINGLE", "Numeric precision")
	cmd.Flags().Float64Var(&maxSpend, "max-spend", 0, "Core-hour budget to select against")
	cmd.Flags().IntVar(&parts, "parts", 0, "Requested part count")

	return cmd
}

// newJobTagCmd creates the 'job tag' command.
func newJobTagCmd() *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "tag <tag>",
		Short: "Tag a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()
			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}
			return j.Tag(ctx, args[0])
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")

	return cmd
}

// newJobUntagCmd creates the 'job untag' command.
func newJobUntagCmd() *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "untag <tag>",
		Short: "Remove a tag from a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()
			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}
			return j.Untag(ctx, args[0])
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")

	return cmd
}
