package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinicd/internal/domain"
)

const clinicColumns = `id, owner_id, name, phone, address, timezone, created_at, updated_at`

// ClinicRepositoryPG implements domain.ClinicRepository backed by PostgreSQL.
type ClinicRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewClinicRepository creates a new ClinicRepositoryPG.
func NewClinicRepository(pool *pgxpool.Pool) *ClinicRepositoryPG {
	return &ClinicRepositoryPG{pool: pool}
}

func (r *ClinicRepositoryPG) Create(ctx context.Context, clinic *domain.Clinic) (*domain.Clinic, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO clinics (id, owner_id, name, phone, address, timezone)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+clinicColumns+`;
`, clinic.ID, clinic.OwnerID, clinic.Name, clinic.Phone, clinic.Address, clinic.Timezone)
	return scanClinic(row)
}

func (r *ClinicRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Clinic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id)
	return scanClinic(row)
}

// GetByOwner returns the owner's primary clinic. The route gate uses this as
// the tenant-resolution step; ErrNotFound means "send to onboarding".
func (r *ClinicRepositoryPG) GetByOwner(ctx context.Context, ownerID string) (*domain.Clinic, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+clinicColumns+`
FROM clinics
WHERE owner_id = $1
ORDER BY created_at
LIMIT 1;
`, ownerID)
	return scanClinic(row)
}

func (r *ClinicRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.Clinic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clinics []domain.Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		clinics = append(clinics, *c)
	}
	return clinics, rows.Err()
}

func (r *ClinicRepositoryPG) Update(ctx context.Context, clinic *domain.Clinic) (*domain.Clinic, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE clinics
SET name = $2,
    phone = $3,
    address = $4,
    timezone = $5,
    updated_at = NOW()
WHERE id = $1
RETURNING `+clinicColumns+`;
`, clinic.ID, clinic.Name, clinic.Phone, clinic.Address, clinic.Timezone)
	return scanClinic(row)
}

func scanClinic(row pgx.Row) (*domain.Clinic, error) {
	var c domain.Clinic
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.Address, &c.Timezone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

var _ domain.ClinicRepository = (*ClinicRepositoryPG)(nil)
