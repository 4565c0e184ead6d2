package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"clinicd/internal/domain"
	"clinicd/internal/sqlinline"
)

const patientListLimit = 500

type patientRequest struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	BirthDate *time.Time `json:"birthDate"`
	Notes     string     `json:"notes"`
}

type patientResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func scanPatient(row pgx.Row) (*domain.Patient, error) {
	var p domain.Patient
	err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Email, &p.Phone, &p.BirthDate, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func toPatientResponse(p *domain.Patient) patientResponse {
	return patientResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: p.BirthDate,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CreatePatient inserts a patient. The insert itself enforces the plan's
// patient cap inside one statement, so two concurrent creates cannot both
// squeeze past the limit; zero rows back means the cap was hit.
func (a *App) CreatePatient(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, ent, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	var req patientRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "missing_name", "patient name is required")
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QInsertPatient,
		clinicID, req.Name, req.Email, req.Phone, req.BirthDate, req.Notes, ent.MaxPatients)
	patient, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.error(w, http.StatusForbidden, "limit_reached", "patient limit for the current plan reached")
			return
		}
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not create patient")
		return
	}

	a.json(w, http.StatusCreated, toPatientResponse(patient))
}

// ListPatients returns the clinic's patients ordered by name.
func (a *App) ListPatients(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, _, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QListPatients, clinicID, patientListLimit)
	if err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list patients")
		return
	}
	defer rows.Close()

	out := make([]patientResponse, 0, 16)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: scan failed")
			a.error(w, http.StatusInternalServerError, "internal", "could not list patients")
			return
		}
		out = append(out, toPatientResponse(patient))
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: iterate failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list patients")
		return
	}

	a.json(w, http.StatusOK, map[string]any{"patients": out})
}

// GetPatient returns one patient scoped to the caller's clinic.
func (a *App) GetPatient(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, _, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectPatientByID, chi.URLParam(r, "id"), clinicID)
	patient, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.error(w, http.StatusNotFound, "not_found", "patient not found")
			return
		}
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load patient")
		return
	}
	a.json(w, http.StatusOK, toPatientResponse(patient))
}

// UpdatePatient rewrites a patient's fields.
func (a *App) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, _, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	var req patientRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "missing_name", "patient name is required")
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QUpdatePatient,
		chi.URLParam(r, "id"), clinicID, req.Name, req.Email, req.Phone, req.BirthDate, req.Notes)
	patient, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.error(w, http.StatusNotFound, "not_found", "patient not found")
			return
		}
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: update failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not update patient")
		return
	}
	a.json(w, http.StatusOK, toPatientResponse(patient))
}

// DeletePatient removes a patient from the caller's clinic.
func (a *App) DeletePatient(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	clinicID, _, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}

	tag, err := a.SQL.Exec(r.Context(), sqlinline.QDeletePatient, chi.URLParam(r, "id"), clinicID)
	if err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("patients: delete failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not delete patient")
		return
	}
	if tag.RowsAffected() == 0 {
		a.error(w, http.StatusNotFound, "not_found", "patient not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
