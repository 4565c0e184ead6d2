package subscription

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clinicd/internal/domain"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeUserRepo mirrors the conditional-update semantics of the Postgres
// repository so the trial manager and sweeper can be exercised in isolation.
type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	assignErr error
	listErr   error
	demoteErr map[string]error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) AssignTrial(_ context.Context, userID string, plan domain.Plan, start, end time.Time) (bool, error) {
	if r.assignErr != nil {
		return false, r.assignErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.Plan != nil {
		return false, nil
	}
	u.Plan = &plan
	u.IsInTrial = true
	u.TrialStartDate = &start
	u.TrialEndDate = &end
	return true, nil
}

func (r *fakeUserRepo) ListExpiredTrials(_ context.Context, now time.Time, limit int) ([]domain.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.IsInTrial && u.TrialEndDate != nil && u.TrialEndDate.Before(now) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrialEndDate.Before(*out[j].TrialEndDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserRepo) DemoteExpired(_ context.Context, userID string, now time.Time) (bool, error) {
	if err := r.demoteErr[userID]; err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || !u.IsInTrial || u.TrialEndDate == nil || !u.TrialEndDate.Before(now) {
		return false, nil
	}
	u.Plan = nil
	u.IsInTrial = false
	return true, nil
}

func (r *fakeUserRepo) SetPlan(_ context.Context, userID string, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Plan = plan
	u.IsInTrial = false
	return nil
}

func (r *fakeUserRepo) SetStripeCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.StripeCustomerID = &customerID
	return nil
}

func (r *fakeUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func TestSetupTrialGrantsOnce(t *testing.T) {
	repo := newFakeUserRepo(&domain.User{ID: "u1", Email: "dr@clinic.example"})
	m := NewTrialManager(repo, 7, zerolog.Nop())
	m.now = func() time.Time { return fixedNow }

	granted, err := m.SetupTrial(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SetupTrial returned error: %v", err)
	}
	if !granted {
		t.Fatal("expected trial to be granted")
	}

	u := repo.get("u1")
	if u.Plan == nil || *u.Plan != domain.PlanBasicoTrial {
		t.Fatalf("plan = %v, want %q", u.Plan, domain.PlanBasicoTrial)
	}
	if !u.IsInTrial {
		t.Fatal("IsInTrial = false, want true")
	}
	if u.TrialStartDate == nil || u.TrialEndDate == nil {
		t.Fatal("trial dates not set")
	}
	if got := u.TrialEndDate.Sub(*u.TrialStartDate); got != 7*24*time.Hour {
		t.Fatalf("trial window = %v, want %v", got, 7*24*time.Hour)
	}
	if !u.TrialStartDate.Equal(fixedNow) {
		t.Fatalf("trial start = %v, want %v", u.TrialStartDate, fixedNow)
	}

	// Second call is a no-op, not an error.
	granted, err = m.SetupTrial(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second SetupTrial returned error: %v", err)
	}
	if granted {
		t.Fatal("second SetupTrial granted again, want no-op")
	}
}

func TestSetupTrialNeverOverwritesExistingPlan(t *testing.T) {
	paid := domain.PlanProfissional
	repo := newFakeUserRepo(&domain.User{ID: "u1", Plan: &paid})
	m := NewTrialManager(repo, 7, zerolog.Nop())

	granted, err := m.SetupTrial(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SetupTrial returned error: %v", err)
	}
	if granted {
		t.Fatal("SetupTrial overwrote an existing plan")
	}
	u := repo.get("u1")
	if *u.Plan != domain.PlanProfissional {
		t.Fatalf("plan = %q, want untouched %q", *u.Plan, domain.PlanProfissional)
	}
	if u.IsInTrial || u.TrialStartDate != nil {
		t.Fatal("trial fields set on a paid user")
	}
}

func TestSetupTrialDistinguishesFailureFromNoop(t *testing.T) {
	repo := newFakeUserRepo(&domain.User{ID: "u1"})
	repo.assignErr = errors.New("connection reset")
	m := NewTrialManager(repo, 7, zerolog.Nop())

	granted, err := m.SetupTrial(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected error from failed write")
	}
	if granted {
		t.Fatal("granted = true on failed write")
	}
}

func TestNewTrialManagerDefaultsWindow(t *testing.T) {
	m := NewTrialManager(newFakeUserRepo(), 0, zerolog.Nop())
	if m.Window() != DefaultTrialDays*24*time.Hour {
		t.Fatalf("window = %v, want %v", m.Window(), DefaultTrialDays*24*time.Hour)
	}
}
