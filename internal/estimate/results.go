// Package estimate requests cost estimates for a job and selects a resource
// configuration from the returned candidates under a spend constraint.
package estimate

import (
	"encoding/json"
	"fmt"
)

// Results holds the candidate resource configurations returned by the
// estimation service. Candidates are parallel arrays: index i across
// NumberOfCores, EstimatedMemory, EstimatedRunTimes, PartsCount and
// EstimateHashes describes one configuration.
type Results struct {
	EstimateID string `json:"estimateId"`
	JobID      string `json:"jobId"`
	AccountID  string `json:"accountId"`
	UserID     string `json:"userId"`
	HpcID      string `json:"hpcId"`
	Stage      string `json:"stage"`
	Type       string `json:"type"`
	Parameters string `json:"parameters"`

	NumberOfCores     []int     `json:"numberOfCores"`
	EstimatedMemory   []int     `json:"estimatedMemory"`
	EstimatedRunTimes []float64 `json:"estimatedRunTimes"`
	PartsCount        []int     `json:"partsCount"`
	EstimateHashes    []string  `json:"estimateHashes"`
	Wallclock         []float64 `json:"wallclock"`
	CoreHours         []float64 `json:"ch"`
}

// ParseResults decodes a results payload and validates its shape.
func ParseResults(data []byte) (*Results, error) {
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode estimate results: %w", err)
	}
	if err := results.Validate(); err != nil {
		return nil, err
	}
	return &results, nil
}

// Validate checks that the candidate arrays line up.
func (r *Results) Validate() error {
	n := len(r.NumberOfCores)
	if n == 0 {
		return fmt.Errorf("estimate %s carries no candidates", r.EstimateID)
	}
	for name, length := range map[string]int{
		"estimatedMemory":   len(r.EstimatedMemory),
		"estimatedRunTimes": len(r.EstimatedRunTimes),
		"partsCount":        len(r.PartsCount),
		"estimateHashes":    len(r.EstimateHashes),
	} {
		if length != n {
			return fmt.Errorf("estimate %s: %s has %d entries, numberOfCores has %d",
				r.EstimateID, name, length, n)
		}
	}
	return nil
}

// Candidate is one selected resource configuration.
type Candidate struct {
	EstimateID string
	Cores      int
	Memory     int
	RunTime    float64
	Parts      int
	Type       string
	Hash       string
	Cost       float64
	Parameters string
}
