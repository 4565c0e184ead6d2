package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"clinicd/internal/domain"
	"clinicd/internal/sqlinline"
)

func TestExportPatientsProducesZippedCSV(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	birth := time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC)
	sql := &scriptedSQL{
		queryFn: func(query string, args ...any) (pgx.Rows, error) {
			if query != sqlinline.QListPatients {
				t.Fatalf("unexpected query: %q", query)
			}
			return &stubRows{scans: []func(dest ...any) error{
				func(dest ...any) error {
					return scanInto(dest, "p1", "clinic-1", "Ana Souza", "ana@x.dev", "", &birth, "alergia a dipirona", created, created)
				},
			}}, nil
		},
	}
	app := patientApp(sql, domain.PlanProfissional)

	req := sessionRequest(http.MethodGet, "/v1/patients/export", "")
	rec := httptest.NewRecorder()
	app.ExportPatients(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("Content-Type = %q", got)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "patients.csv" {
		t.Fatalf("archive entries = %v", zr.File)
	}

	f, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("csv rows = %d, want header plus one", len(records))
	}
	if records[1][1] != "Ana Souza" || records[1][4] != "1990-05-20" {
		t.Fatalf("csv row = %v", records[1])
	}
}
