package main

import (
	"context"
	"fmt"
	"math"
	"time"
)

// SolverResult holds the outcome of a goal-seeking search
type SolverResult struct {
	TargetSuccessRate   float64 `json:"target_success_rate"`
	MonthlyContribution float64 `json:"monthly_contribution,omitempty"` // extra monthly savings needed
	TargetAge           int     `json:"target_age,omitempty"`           // earliest age reaching the target rate
	AchievedSuccessRate float64 `json:"achieved_success_rate"`
	Reachable           bool    `json:"reachable"`
	Iterations          int     `json:"iterations"`
	Seed                uint64  `json:"seed"`
}

const (
	solverMaxIterations = 30
	solverPrecision     = 10.0    // dollars per month
	solverMaxMonthly    = 50000.0 // upper bound of the contribution search
	solverMaxExtraYears = 30
)

// FindRequiredContribution uses binary search to find the smallest extra
// monthly contribution that reaches targetRate (percent). Every probe uses the
// same seed so the success rate is monotonic in the contribution.
func FindRequiredContribution(ctx context.Context, profile FinancialProfile, targetRate float64, opts SimulationOptions) (SolverResult, error) {
	if targetRate <= 0 || targetRate > 100 {
		return SolverResult{}, ValidationError{Field: "target_rate",
			Message: fmt.Sprintf("Target success rate must be between 0 and 100 (got %.1f)", targetRate)}
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano()) | 1
	}

	probe := func(extra float64) (float64, error) {
		p := profile
		p.MonthlyContribution += extra
		s, err := RunMonteCarlo(ctx, p, opts)
		if err != nil {
			return 0, err
		}
		return s.SuccessRate, nil
	}

	result := SolverResult{TargetSuccessRate: targetRate, Seed: opts.Seed}

	// Already there with no extra saving
	rate, err := probe(0)
	if err != nil {
		return result, err
	}
	if rate >= targetRate {
		result.AchievedSuccessRate = rate
		result.Reachable = true
		return result, nil
	}

	high := solverMaxMonthly
	highRate, err := probe(high)
	if err != nil {
		return result, err
	}
	if highRate < targetRate {
		result.MonthlyContribution = high
		result.AchievedSuccessRate = highRate
		return result, nil
	}

	low := 0.0
	for i := 0; i < solverMaxIterations && high-low > solverPrecision; i++ {
		result.Iterations++
		mid := (low + high) / 2
		midRate, err := probe(mid)
		if err != nil {
			return result, err
		}
		if midRate >= targetRate {
			// Enough - try saving less
			high, highRate = mid, midRate
		} else {
			// Not enough - need to save more
			low = mid
		}
	}

	// Round up to the next $10 and confirm so the reported rate matches the amount
	amount := math.Ceil(high/solverPrecision) * solverPrecision
	if amount != high {
		if highRate, err = probe(amount); err != nil {
			return result, err
		}
	}
	result.MonthlyContribution = amount
	result.AchievedSuccessRate = highRate
	result.Reachable = highRate >= targetRate
	return result, nil
}

// FindEarliestTargetAge scans forward one year at a time for the first target
// age at which the plan reaches targetRate, up to 30 years past the current target.
func FindEarliestTargetAge(ctx context.Context, profile FinancialProfile, targetRate float64, opts SimulationOptions) (SolverResult, error) {
	if targetRate <= 0 || targetRate > 100 {
		return SolverResult{}, ValidationError{Field: "target_rate",
			Message: fmt.Sprintf("Target success rate must be between 0 and 100 (got %.1f)", targetRate)}
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano()) | 1
	}
	result := SolverResult{TargetSuccessRate: targetRate, Seed: opts.Seed}

	first := profile.CurrentAge + 1
	last := min(profile.TargetAge+solverMaxExtraYears, maxAge)
	for age := first; age <= last; age++ {
		result.Iterations++
		p := profile
		p.TargetAge = age
		s, err := RunMonteCarlo(ctx, p, opts)
		if err != nil {
			return result, err
		}
		result.TargetAge = age
		result.AchievedSuccessRate = s.SuccessRate
		if s.SuccessRate >= targetRate {
			result.Reachable = true
			return result, nil
		}
	}
	return result, nil
}
