package estimate

import (
	"math"
	"strings"
	"testing"
)

// threeCandidates costs out to 3, 6 and 11 core hours at 4, 8 and 16 cores.
func threeCandidates() *Results {
	return &Results{
		EstimateID:        "est-1",
		Type:              "estimate",
		Parameters:        "{}",
		NumberOfCores:     []int{4, 8, 16},
		EstimatedMemory:   []int{4096, 8192, 16384},
		EstimatedRunTimes: []float64{2700, 2700, 2475},
		PartsCount:        []int{2, 4, 8},
		EstimateHashes:    []string{"h1", "h2", "h3"},
	}
}

func TestGetNearestEstimatePicksCheapestUnderBudget(t *testing.T) {
	results := threeCandidates()

	got := results.GetNearestEstimate(10, 0)
	if got == nil {
		t.Fatal("no candidate selected")
	}
	if got.Cores != 4 || math.Abs(got.Cost-3) > 1e-9 {
		t.Errorf("selected cores=%d cost=%v, want cores=4 cost=3", got.Cores, got.Cost)
	}
	if got.Hash != "h1" {
		t.Errorf("hash = %q, want h1", got.Hash)
	}
}

func TestGetNearestEstimateBudgetIsStrict(t *testing.T) {
	results := threeCandidates()

	// cost < maxSpend, so a budget equal to the cheapest cost admits nothing.
	if got := results.GetNearestEstimate(3, 0); got != nil {
		t.Errorf("selected cost=%v with budget 3, want nil", got.Cost)
	}
}

func TestGetNearestEstimatePartsLowerBound(t *testing.T) {
	results := threeCandidates()

	got := results.GetNearestEstimate(10, 4)
	if got == nil {
		t.Fatal("no candidate selected")
	}
	// The 4-core candidate is cheaper but only has 2 parts.
	if got.Cores != 8 || got.Parts != 4 {
		t.Errorf("selected cores=%d parts=%d, want cores=8 parts=4", got.Cores, got.Parts)
	}
}

func TestGetNearestEstimateFallbackFromBelow(t *testing.T) {
	results := threeCandidates()

	// No candidate under budget has >= 16 parts; the second pass accepts
	// the closest from below instead.
	got := results.GetNearestEstimate(10, 16)
	if got == nil {
		t.Fatal("fallback pass selected nothing")
	}
	if got.Parts > 16 {
		t.Errorf("parts = %d, want <= 16", got.Parts)
	}
	if math.Abs(got.Cost-3) > 1e-9 {
		t.Errorf("cost = %v, want cheapest fallback cost 3", got.Cost)
	}
}

func TestGetNearestEstimateNothingFits(t *testing.T) {
	results := threeCandidates()
	if got := results.GetNearestEstimate(1, 0); got != nil {
		t.Errorf("selected %+v with budget 1, want nil", got)
	}
}

func TestNormalizationMNMPI(t *testing.T) {
	// 40 parts crosses the MNMPI threshold: cores become 2*parts and parts
	// are re-derived from the (even) core count.
	results := &Results{
		EstimateID:        "est-2",
		NumberOfCores:     []int{64},
		EstimatedMemory:   []int{4096},
		EstimatedRunTimes: []float64{360},
		PartsCount:        []int{40},
		EstimateHashes:    []string{"h"},
	}

	got := results.GetNearestEstimate(100, 0)
	if got == nil {
		t.Fatal("no candidate selected")
	}
	if got.Cores != 80 || got.Parts != 40 {
		t.Errorf("cores=%d parts=%d, want cores=80 parts=40", got.Cores, got.Parts)
	}
	// Cost still bills the estimator's raw core count.
	if math.Abs(got.Cost-6.4) > 1e-9 {
		t.Errorf("cost = %v, want 6.4", got.Cost)
	}
}

func TestNormalizationRoundsOddCoresUp(t *testing.T) {
	results := &Results{
		EstimateID:        "est-3",
		NumberOfCores:     []int{5},
		EstimatedMemory:   []int{1024},
		EstimatedRunTimes: []float64{3600},
		PartsCount:        []int{3},
		EstimateHashes:    []string{"h"},
	}

	got := results.GetNearestEstimate(100, 0)
	if got == nil {
		t.Fatal("no candidate selected")
	}
	if got.Cores != 6 || got.Parts != 3 {
		t.Errorf("cores=%d parts=%d, want cores=6 parts=3", got.Cores, got.Parts)
	}
}

func TestGetLowestCoreHourSpend(t *testing.T) {
	results := threeCandidates()

	got := results.GetLowestCoreHourSpend(0)
	if got == nil || math.Abs(got.Cost-3) > 1e-9 {
		t.Fatalf("got %+v, want cost 3", got)
	}

	got = results.GetLowestCoreHourSpend(8)
	if got == nil || got.Parts != 8 {
		t.Fatalf("got %+v, want the 8-part candidate", got)
	}
}

func TestGetQuickestRunTime(t *testing.T) {
	results := threeCandidates()

	got := results.GetQuickestRunTime(0)
	if got == nil || got.RunTime != 2475 {
		t.Fatalf("got %+v, want runtime 2475", got)
	}
	// Cost of the quickest pick is computed from normalized cores.
	if math.Abs(got.Cost-16*(2475.0/3600)) > 1e-9 {
		t.Errorf("cost = %v", got.Cost)
	}
}

func TestValidateRejectsRaggedArrays(t *testing.T) {
	results := threeCandidates()
	results.EstimateHashes = results.EstimateHashes[:2]

	err := results.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "estimateHashes") {
		t.Errorf("err = %v, want mention of estimateHashes", err)
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	empty := &Results{EstimateID: "est-0"}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected an error for zero candidates")
	}
}
