package api

import (
	"context"

	"github.com/onscale/onscale-go/internal/models"
)

// JobInit creates an empty job for the account on the given HPC and returns
// the new job id.
func (c *Client) JobInit(ctx context.Context, accountID, hpcID string) (string, error) {
	var resp models.JobCreateResponse
	payload := models.JobInitRequest{AccountID: accountID, HpcID: hpcID}
	if err := c.post(ctx, "/job/init", payload, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// JobLoad fetches the full job record.
func (c *Client) JobLoad(ctx context.Context, jobID string, excludeSims, excludeStatus bool) (*models.Job, error) {
	var job models.Job
	payload := models.JobLoadRequest{
		JobID:             jobID,
		ExcludeSimulation: excludeSims,
		ExcludeJobStatus:  excludeStatus,
	}
	if err := c.post(ctx, "/job/load", payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobSubmit submits a fully populated job for execution and returns the
// job record as accepted by the portal.
func (c *Client) JobSubmit(ctx context.Context, job *models.Job) (*models.Job, error) {
	var submitted models.Job
	if err := c.post(ctx, "/job/submit", job, &submitted); err != nil {
		return nil, err
	}
	return &submitted, nil
}

// JobUpdateName renames a job.
func (c *Client) JobUpdateName(ctx context.Context, jobID, jobName string) (*models.Job, error) {
	var job models.Job
	payload := models.JobUpdateRequest{JobID: jobID, JobName: jobName}
	if err := c.post(ctx, "/job/update/name", payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobProgress fetches the per-simulation progress report for a job.
func (c *Client) JobProgress(ctx context.Context, jobID string) (*models.JobProgress, error) {
	var progress models.JobProgress
	if err := c.post(ctx, "/job/progress", models.JobRequest{JobID: jobID}, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// JobEstimate submits a job for cost estimation. The acknowledgement is
// returned immediately; results arrive on the user socket.
func (c *Client) JobEstimate(ctx context.Context, req *models.JobEstimateRequest) (*models.Estimate, error) {
	var estimate models.Estimate
	if err := c.post(ctx, "/job/estimate", req, &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

// JobStop requests a stop of every simulation in a job. The response holds
// one row per simulation.
func (c *Client) JobStop(ctx context.Context, jobID string) ([]models.StopSimulationResponse, error) {
	var stopped []models.StopSimulationResponse
	if err := c.post(ctx, "/job/stop", models.JobRequest{JobID: jobID}, &stopped); err != nil {
		return nil, err
	}
	return stopped, nil
}

// JobSimulationStop requests a stop of one simulation in a job.
func (c *Client) JobSimulationStop(ctx context.Context, jobID, simulationID string) (*models.StopSimulationResponse, error) {
	var stopped models.StopSimulationResponse
	payload := models.JobSimulationRequest{JobID: jobID, SimulationID: simulationID}
	if err := c.post(ctx, "/job/simulation/stop", payload, &stopped); err != nil {
		return nil, err
	}
	return &stopped, nil
}

// JobSimulationList fetches one page of a job's simulations.
func (c *Client) JobSimulationList(ctx context.Context, req *models.SimulationListPageRequest) (*models.SimulationListPageResponse, error) {
	var page models.SimulationListPageResponse
	if err := c.post(ctx, "/job/simulation/list/page", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// JobFilesList lists every file in a job's working directory.
func (c *Client) JobFilesList(ctx context.Context, jobID string) ([]models.JobFile, error) {
	var files []models.JobFile
	if err := c.get(ctx, "/job/files/list/"+jobID, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// JobRootFilesList lists only the top-level files of a job.
func (c *Client) JobRootFilesList(ctx context.Context, jobID string) ([]models.JobFile, error) {
	var files []models.JobFile
	if err := c.get(ctx, "/job/files/list/root/"+jobID, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// SimFilesList lists the files belonging to one simulation of a job.
func (c *Client) SimFilesList(ctx context.Context, jobID, simID string) ([]models.JobFile, error) {
	var files []models.JobFile
	if err := c.get(ctx, "/job/files/list/"+jobID+"/"+simID, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// JobUploadURL fetches a presigned upload request for the job's working
// directory. The returned request may carry placeholder fields which the
// transfer layer substitutes per file.
func (c *Client) JobUploadURL(ctx context.Context, jobID string) (*models.HTTPRequest, error) {
	var req models.HTTPRequest
	if err := c.get(ctx, "/job/files/uploadUrl/"+jobID, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// AESKey fetches the job's base64-encoded file encryption key.
func (c *Client) AESKey(ctx context.Context, jobID string) (string, error) {
	var resp models.JobKeyResponse
	if err := c.post(ctx, "/job/key", models.JobRequest{JobID: jobID}, &resp); err != nil {
		return "", err
	}
	return resp.Key.PlaintextKey, nil
}
