package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/onscale/onscale-go/internal/api"
	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/job"
	"github.com/onscale/onscale-go/internal/models"
)

// loadProfile resolves the active profile from the store and applies flag
// overrides. --portal plus --token is enough to run without any saved
// profile at all.
func loadProfile() (*config.Profile, error) {
	profile := &config.Profile{}

	store, err := config.LoadDefaultStore()
	if err == nil {
		if saved, err := store.Profile(profileAlias); err == nil {
			profile = saved
		} else if portalFlag == "" || tokenFlag == "" {
			return nil, err
		}
	}

	if portalFlag != "" {
		profile.Portal = portalFlag
	}
	if tokenFlag != "" {
		profile.Token = tokenFlag
	}
	if accountFlag != "" {
		profile.AccountID = accountFlag
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run \"onscale configure\" or pass --portal and --token)", err)
	}
	return profile, nil
}

func settingsFromFlags() *config.Settings {
	return &config.Settings{
		QuietMode:   quiet,
		DebugOutput: verbose,
	}
}

// getAPIClient builds an API client for the active profile.
func getAPIClient() (*api.Client, *config.Profile, error) {
	profile, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}
	client, err := api.NewClient(profile.Portal, profile.Token, settingsFromFlags())
	if err != nil {
		return nil, nil, err
	}
	return client, profile, nil
}

// getJobService builds the job service for the active profile.
func getJobService() (*job.Service, *config.Profile, error) {
	client, profile, err := getAPIClient()
	if err != nil {
		return nil, nil, err
	}
	svc, err := job.NewService(client, profile.Portal, profile.Token, settingsFromFlags(), workers)
	if err != nil {
		return nil, nil, err
	}
	return svc, profile, nil
}

// statusColor renders a job status with a lifecycle color: green for
// FINISHED, red for FAILED, yellow for in-flight states.
func statusColor(status models.JobStatus) string {
	switch status {
	case models.JobStatusFinished:
		return color.GreenString(string(status))
	case models.JobStatusFailed:
		return color.RedString(string(status))
	case models.JobStatusCancelled:
		return color.New(color.FgHiBlack).Sprint(string(status))
	case models.JobStatusQueued, models.JobStatusRunning:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}
