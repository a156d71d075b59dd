// Package models defines the wire data structures exchanged with the
// OnScale portal REST API and websocket channels. JSON tags are camelCase
// to match the portal's serialization.
package models

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "CREATED"
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusFinished  JobStatus = "FINISHED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether no further transitions can occur from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusFinished, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is the full job record from /job/load and /job/submit.
type Job struct {
	JobID                  string       `json:"jobId,omitempty"`
	AccountID              string       `json:"accountId,omitempty"`
	ProjectID              string       `json:"projectId,omitempty"`
	DesignID               string       `json:"designId,omitempty"`
	DesignInstanceID       string       `json:"designInstanceId,omitempty"`
	JobName                string       `json:"jobName,omitempty"`
	JobStatus              JobStatus    `json:"jobStatus,omitempty"`
	JobType                string       `json:"jobType,omitempty"`
	HpcID                  string       `json:"hpcId,omitempty"`
	CoresRequired          int          `json:"coresRequired,omitempty"`
	CoreHourEstimate       float64      `json:"coreHourEstimate,omitempty"`
	RAMEstimate            int64        `json:"ramEstimate,omitempty"`
	MainFile               string       `json:"mainFile,omitempty"`
	Precision              string       `json:"precision,omitempty"`
	NumberOfParts          int          `json:"numberOfParts,omitempty"`
	DockerTag              string       `json:"dockerTag,omitempty"`
	DockerTagID            string       `json:"dockerTagId,omitempty"`
	FileDependencies       []string     `json:"fileDependencies,omitempty"`
	FileAliases            []string     `json:"fileAliases,omitempty"`
	FileDependentJobIDList []string     `json:"fileDependentJobIdList,omitempty"`
	Operation              string       `json:"operation,omitempty"`
	Preprocessor           string       `json:"preprocessor,omitempty"`
	Application            string       `json:"application,omitempty"`
	SimulationCount        int          `json:"simulationCount,omitempty"`
	Simulations            []Simulation `json:"simulations,omitempty"`
	JobCost                float64      `json:"jobCost,omitempty"`
	LastStatus             string       `json:"lastStatus,omitempty"`
	Tags                   []Tag        `json:"tags,omitempty"`
}

// SimulationStatus is the lifecycle state of a single simulation.
type SimulationStatus string

const (
	SimStatusRunning  SimulationStatus = "RUNNING"
	SimStatusComplete SimulationStatus = "COMPLETE"
	SimStatusStopped  SimulationStatus = "STOPPED"
	SimStatusNotFound SimulationStatus = "NOTFOUND"
)

// Simulation is a single simulation within a job.
type Simulation struct {
	SimulationID      string           `json:"simulationId,omitempty"`
	JobID             string           `json:"jobId,omitempty"`
	SimulationIndex   int              `json:"simulationIndex,omitempty"`
	Status            SimulationStatus `json:"status,omitempty"`
	ConsoleParameters string           `json:"consoleParameters,omitempty"`
	StartDate         int64            `json:"startDate,omitempty"`
	EndDate           int64            `json:"endDate,omitempty"`
}

// JobProgress is the per-simulation progress report from /job/progress.
type JobProgress struct {
	JobID                  string               `json:"jobId,omitempty"`
	SimulationProgressList []SimulationProgress `json:"simulationProgressList,omitempty"`
}

// SimulationProgress is one row of a JobProgress report.
type SimulationProgress struct {
	SimulationID string `json:"simulationId,omitempty"`
	Progress     int    `json:"progress,omitempty"`
	Status       string `json:"status,omitempty"`
}

// StopSimulationResponse is one row of a /job/stop or /job/simulation/stop
// response.
type StopSimulationResponse struct {
	SimulationID string           `json:"simulationId,omitempty"`
	Status       SimulationStatus `json:"status,omitempty"`
}

// Tag attaches a label to a portal item.
type Tag struct {
	ItemID string `json:"itemId,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Type   string `json:"type,omitempty"`
}

// JobInitRequest is the payload for /job/init.
type JobInitRequest struct {
	AccountID string `json:"accountId"`
	HpcID     string `json:"hpcId"`
}

// JobCreateResponse is the response from /job/init.
type JobCreateResponse struct {
	JobID string `json:"jobId"`
}

// JobLoadRequest is the payload for /job/load.
type JobLoadRequest struct {
	JobID             string `json:"jobId"`
	ExcludeSimulation bool   `json:"excludeSimulation"`
	ExcludeJobStatus  bool   `json:"excludeJobStatus"`
}

// JobRequest identifies a job for single-job endpoints.
type JobRequest struct {
	JobID string `json:"jobId"`
}

// JobSimulationRequest identifies one simulation of a job.
type JobSimulationRequest struct {
	JobID        string `json:"jobId"`
	SimulationID string `json:"simulationId"`
}

// JobUpdateRequest is the payload for /job/update/name.
type JobUpdateRequest struct {
	JobID   string `json:"jobId"`
	JobName string `json:"jobName"`
}

// ItemIDRequest identifies a tagged item for /tag/list.
type ItemIDRequest struct {
	ItemID string `json:"itemId"`
}

// SimulationListPageRequest is the payload for /job/simulation/list/page.
type SimulationListPageRequest struct {
	JobID          string `json:"jobId"`
	PageNumber     int    `json:"pageNumber"`
	PageSize       int    `json:"pageSize"`
	DescendingSort bool   `json:"descendingSort"`
	FilterByStatus string `json:"filterByStatus,omitempty"`
}

// SimulationListPageResponse is one page of a job's simulations.
type SimulationListPageResponse struct {
	Simulations []Simulation `json:"simulations,omitempty"`
	TotalCount  int          `json:"totalCount,omitempty"`
	PageNumber  int          `json:"pageNumber,omitempty"`
	PageSize    int          `json:"pageSize,omitempty"`
}

// JobEstimateRequest is the payload for /job/estimate.
type JobEstimateRequest struct {
	JobID         string   `json:"jobId"`
	BlobID        string   `json:"blobId"`
	Solver        string   `json:"solver"`
	Precision     string   `json:"precision"`
	DockerTag     string   `json:"dockerTag"`
	DockerTagID   string   `json:"dockerTagId,omitempty"`
	Application   string   `json:"application,omitempty"`
	RequiredBlobs []string `json:"requiredBlobs,omitempty"`
}

// Estimate is the acknowledgement from /job/estimate. Results arrive later
// on the user socket.
type Estimate struct {
	EstimateID string `json:"estimateId,omitempty"`
	JobID      string `json:"jobId,omitempty"`
	Status     string `json:"status,omitempty"`
}

// JobKeyResponse is the response from /job/key carrying the job's AES key.
type JobKeyResponse struct {
	Key struct {
		PlaintextKey string `json:"plaintextKey"`
	} `json:"key"`
}
