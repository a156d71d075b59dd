package estimate

// normalized returns the effective core and part counts for candidate idx.
// MNMPI runs with more than 31 parts take two cores per part; core counts
// are rounded up to even and parts derived as cores/2 so the pair stays
// consistent.
func (r *Results) normalized(idx int) (cores, parts int) {
	parts = r.PartsCount[idx]
	if parts > 31 {
		cores = parts * 2
	} else {
		cores = r.NumberOfCores[idx]
	}
	if cores%2 > 0 {
		cores++
	}
	return cores, cores / 2
}

// cost returns the core-hour cost of candidate idx. Billing uses the raw
// core count reported by the estimator, not the normalized one.
func (r *Results) cost(idx int) float64 {
	return float64(r.NumberOfCores[idx]) * (r.EstimatedRunTimes[idx] / 3600)
}

func (r *Results) candidate(idx, cores, parts int, cost float64) *Candidate {
	return &Candidate{
		EstimateID: r.EstimateID,
		Cores:      cores,
		Memory:     r.EstimatedMemory[idx],
		RunTime:    r.EstimatedRunTimes[idx],
		Parts:      parts,
		Type:       r.Type,
		Hash:       r.EstimateHashes[idx],
		Cost:       cost,
		Parameters: r.Parameters,
	}
}

// GetNearestEstimate returns the cheapest candidate whose cost is strictly
// under maxSpend. When numberOfParts is positive, the first pass only admits
// candidates with at least that many parts; if none qualifies, a second pass
// walks the candidates in reverse accepting at most that many parts, closest
// from below. The two-pass order determines real monetary cost and matches
// the platform's other clients. Returns nil when no candidate fits the
// budget at all.
func (r *Results) GetNearestEstimate(maxSpend float64, numberOfParts int) *Candidate {
	var best *Candidate
	for idx := range r.NumberOfCores {
		cores, parts := r.normalized(idx)
		cost := r.cost(idx)
		if cost >= maxSpend {
			continue
		}
		if numberOfParts > 0 && parts < numberOfParts {
			continue
		}
		if best == nil || best.Cost > cost {
			best = r.candidate(idx, cores, parts, cost)
		}
	}
	if best != nil {
		return best
	}

	for idx := len(r.NumberOfCores) - 1; idx >= 0; idx-- {
		cores, parts := r.normalized(idx)
		cost := r.cost(idx)
		if cost >= maxSpend {
			continue
		}
		if numberOfParts > 0 && parts > numberOfParts {
			continue
		}
		if best == nil || best.Cost > cost {
			best = r.candidate(idx, cores, parts, cost)
		}
	}
	return best
}

// GetLowestCoreHourSpend returns the cheapest candidate with at least
// numberOfParts parts (zero means unconstrained). Returns nil when no
// candidate qualifies.
func (r *Results) GetLowestCoreHourSpend(numberOfParts int) *Candidate {
	var best *Candidate
	for idx := range r.NumberOfCores {
		cores, parts := r.normalized(idx)
		cost := r.cost(idx)
		if numberOfParts > 0 && parts < numberOfParts {
			continue
		}
		if best == nil || cost < best.Cost {
			best = r.candidate(idx, cores, parts, cost)
		}
	}
	return best
}

// GetQuickestRunTime returns the candidate with the shortest estimated run
// time among those with at least numberOfParts parts (zero means
// unconstrained). Its cost is computed from the normalized core count.
func (r *Results) GetQuickestRunTime(numberOfParts int) *Candidate {
	var best *Candidate
	for idx := range r.NumberOfCores {
		cores, parts := r.normalized(idx)
		if numberOfParts > 0 && parts < numberOfParts {
			continue
		}
		if best == nil || r.EstimatedRunTimes[idx] < best.RunTime {
			cost := float64(cores) * (r.EstimatedRunTimes[idx] / 3600)
			best = r.candidate(idx, cores, parts, cost)
		}
	}
	return best
}
