package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicd/internal/domain"
)

type clinicRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

type clinicResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toClinicResponse(c *domain.Clinic) clinicResponse {
	return clinicResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		Timezone:  c.Timezone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CreateClinic registers the caller's clinic, completing onboarding.
func (a *App) CreateClinic(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}

	var req clinicRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "missing_name", "clinic name is required")
		return
	}
	if err := domain.ValidateTimezone(req.Timezone); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_timezone", err.Error())
		return
	}

	clinic, err := a.Clinics.Create(r.Context(), &domain.Clinic{
		ID:       uuid.NewString(),
		OwnerID:  userID,
		Name:     req.Name,
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		Timezone: req.Timezone,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("clinics: create failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not create clinic")
		return
	}

	a.Logger.Info().Str("clinic_id", clinic.ID).Str("user_id", userID).Msg("clinics: created")
	a.json(w, http.StatusCreated, toClinicResponse(clinic))
}

// ListClinics returns the caller's clinics, oldest first.
func (a *App) ListClinics(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}

	clinics, err := a.Clinics.ListByOwner(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("clinics: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list clinics")
		return
	}

	out := make([]clinicResponse, 0, len(clinics))
	for i := range clinics {
		out = append(out, toClinicResponse(&clinics[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"clinics": out})
}

// GetClinic returns one clinic. Clinics owned by someone else read as absent.
func (a *App) GetClinic(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}

	clinic, ok := a.ownedClinic(w, r, userID)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toClinicResponse(clinic))
}

// UpdateClinic rewrites the clinic's profile fields.
func (a *App) UpdateClinic(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}

	clinic, ok := a.ownedClinic(w, r, userID)
	if !ok {
		return
	}

	var req clinicRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "missing_name", "clinic name is required")
		return
	}
	if err := domain.ValidateTimezone(req.Timezone); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_timezone", err.Error())
		return
	}

	clinic.Name = req.Name
	clinic.Phone = strings.TrimSpace(req.Phone)
	clinic.Address = strings.TrimSpace(req.Address)
	clinic.Timezone = req.Timezone

	updated, err := a.Clinics.Update(r.Context(), clinic)
	if err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinic.ID).Msg("clinics: update failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not update clinic")
		return
	}
	a.json(w, http.StatusOK, toClinicResponse(updated))
}

// ownedClinic loads the {id} clinic and enforces ownership. Both a missing row
// and a foreign row answer 404 so ids cannot be probed.
func (a *App) ownedClinic(w http.ResponseWriter, r *http.Request, userID string) (*domain.Clinic, bool) {
	clinicID := chi.URLParam(r, "id")
	clinic, err := a.Clinics.GetByID(r.Context(), clinicID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "clinic not found")
			return nil, false
		}
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("clinics: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load clinic")
		return nil, false
	}
	if clinic.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "clinic not found")
		return nil, false
	}
	return clinic, true
}
