package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"clinicd/internal/domain"
)

// fakeUsers is a map-backed domain.UserRepository covering the methods the
// handlers exercise.
type fakeUsers struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	getErr  error
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, domain.ErrEmailTaken
	}
	cp := *u
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byID[cp.ID] = &cp
	f.byEmail[cp.Email] = &cp
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) AssignTrial(_ context.Context, userID string, plan domain.Plan, start, end time.Time) (bool, error) {
	u, ok := f.byID[userID]
	if !ok || u.Plan != nil {
		return false, nil
	}
	u.Plan = &plan
	u.IsInTrial = true
	u.TrialStartDate = &start
	u.TrialEndDate = &end
	return true, nil
}

func (f *fakeUsers) ListExpiredTrials(context.Context, time.Time, int) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeUsers) DemoteExpired(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeUsers) SetPlan(_ context.Context, userID string, plan *domain.Plan) error {
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Plan = plan
	u.IsInTrial = false
	return nil
}

func (f *fakeUsers) SetStripeCustomerID(_ context.Context, userID, customerID string) error {
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.StripeCustomerID = &customerID
	return nil
}

// fakeClinics backs domain.ClinicRepository with a map keyed by owner.
type fakeClinics struct {
	byOwner map[string]*domain.Clinic
}

func newFakeClinics(clinics ...*domain.Clinic) *fakeClinics {
	f := &fakeClinics{byOwner: map[string]*domain.Clinic{}}
	for _, c := range clinics {
		f.byOwner[c.OwnerID] = c
	}
	return f
}

func (f *fakeClinics) Create(_ context.Context, c *domain.Clinic) (*domain.Clinic, error) {
	cp := *c
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byOwner[cp.OwnerID] = &cp
	return &cp, nil
}

func (f *fakeClinics) GetByID(_ context.Context, id string) (*domain.Clinic, error) {
	for _, c := range f.byOwner {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeClinics) GetByOwner(_ context.Context, ownerID string) (*domain.Clinic, error) {
	c, ok := f.byOwner[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeClinics) ListByOwner(_ context.Context, ownerID string) ([]domain.Clinic, error) {
	c, ok := f.byOwner[ownerID]
	if !ok {
		return nil, nil
	}
	return []domain.Clinic{*c}, nil
}

func (f *fakeClinics) Update(_ context.Context, c *domain.Clinic) (*domain.Clinic, error) {
	cp := *c
	f.byOwner[cp.OwnerID] = &cp
	return &cp, nil
}

// stubRow satisfies pgx.Row with a canned scan function.
type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

// stubRows satisfies pgx.Rows over a slice of scan functions. The methods the
// handlers never call return zero values.
type stubRows struct {
	scans []func(dest ...any) error
	idx   int
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.scans) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.scans) {
		return pgx.ErrNoRows
	}
	return r.scans[r.idx-1](dest...)
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

// scanInto assigns vals positionally into scan destinations, converting the
// handful of types the patient and role queries produce.
func scanInto(dest []any, vals ...any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan arity: got %d dest, want %d", len(dest), len(vals))
	}
	for i, val := range vals {
		switch d := dest[i].(type) {
		case *string:
			v, ok := val.(string)
			if !ok {
				return fmt.Errorf("dest[%d]: %T is not string", i, val)
			}
			*d = v
		case **time.Time:
			switch v := val.(type) {
			case nil:
				*d = nil
			case *time.Time:
				*d = v
			default:
				return fmt.Errorf("dest[%d]: %T is not *time.Time", i, val)
			}
		case *time.Time:
			v, ok := val.(time.Time)
			if !ok {
				return fmt.Errorf("dest[%d]: %T is not time.Time", i, val)
			}
			*d = v
		case *[]byte:
			v, ok := val.([]byte)
			if !ok {
				return fmt.Errorf("dest[%d]: %T is not []byte", i, val)
			}
			*d = append([]byte(nil), v...)
		default:
			return fmt.Errorf("dest[%d]: unsupported destination %T", i, dest[i])
		}
	}
	return nil
}
