package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clinicd/internal/domain"
)

func trialUser(id string, end time.Time) *domain.User {
	plan := domain.PlanBasicoTrial
	start := end.Add(-7 * 24 * time.Hour)
	return &domain.User{
		ID:             id,
		Plan:           &plan,
		IsInTrial:      true,
		TrialStartDate: &start,
		TrialEndDate:   &end,
	}
}

func newTestSweeper(repo *fakeUserRepo, batch int) *Sweeper {
	s := NewSweeper(repo, batch, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestSweepDemotesOnlyExpired(t *testing.T) {
	expired := trialUser("expired", fixedNow.Add(-24*time.Hour))
	active := trialUser("active", fixedNow.Add(24*time.Hour))
	repo := newFakeUserRepo(expired, active)

	res, err := newTestSweeper(repo, 10).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v, want Processed=1 Failed=0", res)
	}

	got := repo.get("expired")
	if got.Plan != nil || got.IsInTrial {
		t.Fatalf("expired user not demoted: %+v", got)
	}
	if got.TrialStartDate == nil || got.TrialEndDate == nil {
		t.Fatal("trial dates cleared, want preserved as audit trail")
	}

	untouched := repo.get("active")
	if untouched.Plan == nil || !untouched.IsInTrial {
		t.Fatalf("active trial user mutated: %+v", untouched)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo(trialUser("u1", fixedNow.Add(-time.Hour)))
	s := newTestSweeper(repo, 10)

	first, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("first Sweep returned error: %v", err)
	}
	if first.Processed != 1 {
		t.Fatalf("first Processed = %d, want 1", first.Processed)
	}

	second, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep returned error: %v", err)
	}
	if second.Processed != 0 || second.Failed != 0 {
		t.Fatalf("second result = %+v, want zero rows", second)
	}
}

func TestSweepIsolatesPerUserFailures(t *testing.T) {
	repo := newFakeUserRepo(
		trialUser("broken", fixedNow.Add(-48*time.Hour)),
		trialUser("ok", fixedNow.Add(-24*time.Hour)),
	)
	repo.demoteErr = map[string]error{"broken": errors.New("serialization failure")}

	res, err := newTestSweeper(repo, 10).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("Processed = %d, want 1 despite the failing row", res.Processed)
	}
	if res.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", res.Failed)
	}
	if got := repo.get("ok"); got.Plan != nil {
		t.Fatalf("healthy row not demoted: %+v", got)
	}
}

func TestSweepSurfacesScanFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.listErr = errors.New("relation users does not exist")

	_, err := newTestSweeper(repo, 10).Sweep(context.Background())
	if err == nil {
		t.Fatal("expected scan failure to surface")
	}
}

func TestSweepWalksBatches(t *testing.T) {
	repo := newFakeUserRepo(
		trialUser("a", fixedNow.Add(-3*time.Hour)),
		trialUser("b", fixedNow.Add(-2*time.Hour)),
		trialUser("c", fixedNow.Add(-time.Hour)),
	)

	res, err := newTestSweeper(repo, 2).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if res.Processed != 3 {
		t.Fatalf("Processed = %d, want 3 across batches", res.Processed)
	}
}

func TestSweepStopsWhenFullBatchStalls(t *testing.T) {
	repo := newFakeUserRepo(
		trialUser("x", fixedNow.Add(-2*time.Hour)),
		trialUser("y", fixedNow.Add(-time.Hour)),
	)
	repo.demoteErr = map[string]error{
		"x": errors.New("deadlock"),
		"y": errors.New("deadlock"),
	}

	res, err := newTestSweeper(repo, 2).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if res.Processed != 0 || res.Failed != 2 {
		t.Fatalf("result = %+v, want Processed=0 Failed=2 without looping forever", res)
	}
}
