package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/euphdk/netbox-api-export-import/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestWriteCSVDeterministicLayout(t *testing.T) {
	store := newTestStore(t)
	rows := []models.ResolvedRecord{
		{"name": "AMS01", "slug": "ams01", "tenant": "acme"},
		{"slug": "fra02", "status": "active"},
	}

	rel, err := store.WriteCSV("dcim/sites", rows)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if rel != "dcim/sites.csv" {
		t.Errorf("rel = %q, want dcim/sites.csv", rel)
	}

	first, err := os.ReadFile(filepath.Join(store.Root(), "dcim", "sites.csv"))
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	// Same input must produce byte-equal output.
	if _, err := store.WriteCSV("dcim/sites", rows); err != nil {
		t.Fatalf("WriteCSV again: %v", err)
	}
	second, _ := os.ReadFile(filepath.Join(store.Root(), "dcim", "sites.csv"))
	if string(first) != string(second) {
		t.Error("re-writing identical rows changed the CSV bytes")
	}

	want := "name,slug,status,tenant\nAMS01,ams01,,acme\n,fra02,active,\n"
	if string(first) != want {
		t.Errorf("CSV = %q, want %q", first, want)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	store := newTestStore(t)
	rows := []models.ResolvedRecord{
		{"name": "acme", "slug": "acme", "group": ""},
		{"name": "initech", "slug": "initech"},
	}
	rel, err := store.WriteCSV("tenancy/tenants", rows)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := store.ReadCSV(rel)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0]["slug"] != "acme" || got[1]["slug"] != "initech" {
		t.Errorf("rows out of order: %v", got)
	}
	// Empty cells are dropped on read.
	if _, ok := got[0]["group"]; ok {
		t.Error("empty cell survived the round trip")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	m := &models.Manifest{
		RunID:        "run-1",
		ExportedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		SourceURL:    "https://netbox.example.com",
		TotalRecords: 8,
		Collections: []models.ManifestEntry{
			{Name: "tenants", Endpoint: "tenancy/tenants", Records: 3, CSVFile: "tenancy/tenants.csv"},
			{Name: "sites", Endpoint: "dcim/sites", Records: 5, CSVFile: "dcim/sites.csv"},
		},
	}
	if err := store.WriteManifest(m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := store.ReadManifest()
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.RunID != m.RunID || got.TotalRecords != m.TotalRecords {
		t.Errorf("manifest header mismatch: %+v", got)
	}
	if len(got.Collections) != 2 || got.Collections[0].Name != "tenants" || got.Collections[1].Name != "sites" {
		t.Errorf("collection order not preserved: %+v", got.Collections)
	}
}

func TestWriteErrorsNaming(t *testing.T) {
	store := newTestStore(t)
	rel, err := store.WriteErrors("dcim/devices.csv", []map[string]string{{"row": "1"}})
	if err != nil {
		t.Fatalf("WriteErrors: %v", err)
	}
	if rel != "dcim/devices_errors.json" {
		t.Errorf("rel = %q, want dcim/devices_errors.json", rel)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "dcim", "devices_errors.json")); err != nil {
		t.Errorf("errors file not written: %v", err)
	}
}

func TestWriteReport(t *testing.T) {
	store := newTestStore(t)
	rows := []models.ReportRow{
		{Collection: "tenants", Records: 3, Created: 3},
		{Collection: "sites", Records: 5, Created: 4, Failed: 1, Error: "one bad row"},
	}
	if err := store.WriteReport(rows); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(store.Root(), "report.csv"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if len(data) == 0 {
		t.Error("report is empty")
	}
}
