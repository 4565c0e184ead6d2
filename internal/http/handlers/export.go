package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"time"

	"clinicd/internal/domain"
	"clinicd/internal/sqlinline"
	"clinicd/pkg/zip"
)

// ExportPatients downloads the clinic's patient records as a zip holding a
// CSV. LGPD data portability requests come through here, so the export always
// reflects live rows rather than a cached report.
func (a *App) ExportPatients(w http.ResponseWriter, r *http.Request) {
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
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("export: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not export patients")
		return
	}
	defer rows.Close()

	patients := make([]*domain.Patient, 0, 16)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("export: scan failed")
			a.error(w, http.StatusInternalServerError, "internal", "could not export patients")
			return
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("export: iterate failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not export patients")
		return
	}

	archive, err := zip.Archive([]zip.File{{Name: "patients.csv", Data: patientsCSV(patients)}})
	if err != nil {
		a.Logger.Error().Err(err).Str("clinic_id", clinicID).Msg("export: archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not export patients")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="patients-export.zip"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		a.Logger.Error().Err(err).Msg("export: write response")
	}
}

func patientsCSV(patients []*domain.Patient) []byte {
	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	_ = cw.Write([]string{"id", "name", "email", "phone", "birth_date", "notes", "created_at"})
	for _, p := range patients {
		birth := ""
		if p.BirthDate != nil {
			birth = p.BirthDate.Format("2006-01-02")
		}
		_ = cw.Write([]string{
			p.ID,
			p.Name,
			p.Email,
			p.Phone,
			birth,
			p.Notes,
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
	return buf.Bytes()
}
