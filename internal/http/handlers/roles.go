package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"clinicd/internal/domain"
	"clinicd/internal/sqlinline"
)

type staffRoleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type staffRoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
}

func scanStaffRole(row pgx.Row) (*domain.StaffRole, error) {
	var (
		role domain.StaffRole
		raw  []byte
	)
	if err := row.Scan(&role.ID, &role.ClinicID, &role.Name, &raw, &role.CreatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &role.Permissions); err != nil {
			return nil, err
		}
	}
	return &role, nil
}

func toStaffRoleResponse(role *domain.StaffRole) staffRoleResponse {
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	return staffRoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Permissions: perms,
		CreatedAt:   role.CreatedAt,
	}
}

// CreateStaffRole adds a named permission set, bounded by the plan's staff
// role allowance the same way patient creation is bounded by its cap.
func (a *App) CreateStaffRole(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, ent, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	var req staffRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "missing_name", "role name is required")
		return
	}
	if req.Permissions == nil {
		req.Permissions = []string{}
	}
	perms, err := json.Marshal(req.Permissions)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid permissions list")
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QInsertStaffRole,
		clinicID, req.Name, perms, ent.MaxStaffRoles)
	role, err := scanStaffRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.error(w, http.StatusForbidden, "limit_reached", "staff role limit for the current plan reached")
			return
		}
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("roles: insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not create role")
		return
	}

	a.json(w, http.StatusCreated, toStaffRoleResponse(role))
}

// ListStaffRoles returns the clinic's roles, oldest first.
func (a *App) ListStaffRoles(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, _, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QListStaffRoles, clinicID)
	if err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("roles: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list roles")
		return
	}
	defer rows.Close()

	out := make([]staffRoleResponse, 0, 8)
	for rows.Next() {
		role, err := scanStaffRole(rows)
		if err != nil {
			a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("roles: scan failed")
			a.error(w, http.StatusInternalServerError, "internal", "could not list roles")
			return
		}
		out = append(out, toStaffRoleResponse(role))
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("roles: iterate failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list roles")
		return
	}

	a.json(w, http.StatusOK, map[string]any{"roles": out})
}

// DeleteStaffRole removes a role from the caller's clinic.
func (a *App) DeleteStaffRole(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, _, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	tag, err := a.SQL.Exec(r.Context(), sqlinline.QDeleteStaffRole, chi.URLParam(r, "id"), clinicID)
	if err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("roles: delete failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not delete role")
		return
	}
	if tag.RowsAffected() == 0 {
		a.error(w, http.StatusNotFound, "not_found", "role not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
