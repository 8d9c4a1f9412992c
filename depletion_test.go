package main

import (
	"context"
	"math"
	"testing"
)

// deterministicSuccess reports whether the mean path reaches the target
func deterministicSuccess(t *testing.T, p FinancialProfile) bool {
	t.Helper()
	r, _, err := ProjectDeterministic(p, DefaultMarketAssumptions())
	if err != nil {
		t.Fatalf("ProjectDeterministic: %v", err)
	}
	return r.GoalAchieved
}

// =============================================================================
// Contribution Solver Tests
// =============================================================================

func TestFindRequiredContribution_AlreadyReachable(t *testing.T) {
	p := testProfile()
	p.TargetNetWorth = 100000
	res, err := FindRequiredContribution(context.Background(), p, 80, flatOptions(10))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reachable || res.MonthlyContribution != 0 || res.Iterations != 0 {
		t.Errorf("expected reachable with no extra saving, got %+v", res)
	}
}

// On a flat market every run is identical, so the search boundary can be
// checked against the deterministic projection.
func TestFindRequiredContribution_FlatMarketBoundary(t *testing.T) {
	p := testProfile() // mean path ends near $1.64M against a $2M target
	res, err := FindRequiredContribution(context.Background(), p, 80, flatOptions(10))
	if err != nil {
		t.Fatalf("FindRequiredContribution: %v", err)
	}
	if !res.Reachable {
		t.Fatalf("expected a reachable plan, got %+v", res)
	}
	if math.Mod(res.MonthlyContribution, solverPrecision) != 0 {
		t.Errorf("amount %.2f is not a multiple of $10", res.MonthlyContribution)
	}
	if res.AchievedSuccessRate != 100 {
		t.Errorf("achieved rate: expected 100, got %.1f", res.AchievedSuccessRate)
	}

	enough := p
	enough.MonthlyContribution = res.MonthlyContribution
	if !deterministicSuccess(t, enough) {
		t.Errorf("%.0f/month should reach the target", res.MonthlyContribution)
	}
	// The search stops within $10 of a failing amount, and rounding adds up to $10 more
	short := p
	short.MonthlyContribution = res.MonthlyContribution - 2*solverPrecision
	if deterministicSuccess(t, short) {
		t.Errorf("%.0f/month already reaches the target, the answer is not minimal", short.MonthlyContribution)
	}
	if res.Iterations == 0 || res.Iterations > solverMaxIterations {
		t.Errorf("iterations: got %d", res.Iterations)
	}
}

func TestFindRequiredContribution_Unreachable(t *testing.T) {
	p := testProfile()
	p.TargetNetWorth = 1e12
	res, err := FindRequiredContribution(context.Background(), p, 80, flatOptions(10))
	if err != nil {
		t.Fatal(err)
	}
	if res.Reachable {
		t.Error("a trillion dollar target should be unreachable")
	}
	if res.MonthlyContribution != solverMaxMonthly {
		t.Errorf("expected the search ceiling, got %.0f", res.MonthlyContribution)
	}
}

func TestFindRequiredContribution_ReportsSeed(t *testing.T) {
	opts := flatOptions(10)
	opts.Seed = 77
	res, err := FindRequiredContribution(context.Background(), testProfile(), 80, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Seed != 77 {
		t.Errorf("seed: expected 77, got %d", res.Seed)
	}
}

// =============================================================================
// Target Age Solver Tests
// =============================================================================

func TestFindEarliestTargetAge_FlatMarket(t *testing.T) {
	p := testProfile()
	res, err := FindEarliestTargetAge(context.Background(), p, 80, flatOptions(10))
	if err != nil {
		t.Fatalf("FindEarliestTargetAge: %v", err)
	}
	if !res.Reachable {
		t.Fatalf("expected a reachable age, got %+v", res)
	}
	if res.TargetAge <= p.TargetAge {
		t.Errorf("the current plan misses, so the age should move past %d (got %d)", p.TargetAge, res.TargetAge)
	}

	at := p
	at.TargetAge = res.TargetAge
	if !deterministicSuccess(t, at) {
		t.Errorf("age %d should reach the target", res.TargetAge)
	}
	before := p
	before.TargetAge = res.TargetAge - 1
	if deterministicSuccess(t, before) {
		t.Errorf("age %d already reaches the target", before.TargetAge)
	}
}

func TestFindEarliestTargetAge_CappedSearch(t *testing.T) {
	p := testProfile()
	p.TargetNetWorth = 1e12
	res, err := FindEarliestTargetAge(context.Background(), p, 80, flatOptions(5))
	if err != nil {
		t.Fatal(err)
	}
	if res.Reachable {
		t.Fatal("expected an unreachable target")
	}
	if res.TargetAge != 95 {
		t.Errorf("search should stop 30 years past the target, got %d", res.TargetAge)
	}
}

func TestSolvers_RejectInvalidTargetRate(t *testing.T) {
	for _, rate := range []float64{0, -5, 101} {
		if _, err := FindRequiredContribution(context.Background(), testProfile(), rate, flatOptions(5)); err == nil {
			t.Errorf("contribution solver accepted rate %.0f", rate)
		}
		if _, err := FindEarliestTargetAge(context.Background(), testProfile(), rate, flatOptions(5)); err == nil {
			t.Errorf("age solver accepted rate %.0f", rate)
		}
	}
}
