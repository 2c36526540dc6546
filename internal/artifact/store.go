package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/euphdk/netbox-api-export-import/internal/models"
)

const (
	manifestFile   = "manifest.json"
	fullExportFile = "full_export.json"
	reportFile     = "report.csv"
)

// Store handles the on-disk layout of one export run: one CSV per
// collection under its group directory, a full-fidelity JSON document with
// the raw records, and the manifest that drives import order.
type Store struct {
	root string
}

// NewStore creates (or reuses) the run directory.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Open wraps an existing run directory without creating anything.
func Open(root string) *Store {
	return &Store{root: root}
}

// Root returns the run directory.
func (s *Store) Root() string { return s.root }

// WriteCSV writes one collection's flattened records under the group
// subdirectory taken from its endpoint path, e.g. dcim/devices ->
// dcim/devices.csv. The header row is the sorted union of all field
// names, so re-running an unchanged export yields byte-equal files.
func (s *Store) WriteCSV(endpoint string, rows []models.ResolvedRecord) (string, error) {
	rel := filepath.FromSlash(strings.Trim(endpoint, "/")) + ".csv"
	full := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create group directory: %w", err)
	}

	headerSet := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			headerSet[k] = true
		}
	}
	headers := make([]string, 0, len(headerSet))
	for k := range headerSet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	file, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	line := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			line[i] = row[h]
		}
		if err := w.Write(line); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// ReadCSV loads a collection CSV back into resolved records. Empty cells
// are dropped so a replayed record only carries the fields it had.
func (s *Store) ReadCSV(rel string) ([]models.ResolvedRecord, error) {
	file, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	headers := lines[0]
	rows := make([]models.ResolvedRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		row := make(models.ResolvedRecord)
		for i, v := range line {
			if i < len(headers) && v != "" {
				row[headers[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// collectionDump is one collection's slot in the full JSON document.
type collectionDump struct {
	Endpoint string          `json:"endpoint"`
	Count    int             `json:"count"`
	Data     []models.Record `json:"data"`
}

// WriteFullJSON writes the raw, un-flattened records of all collections to
// a single document, keyed by collection name.
func (s *Store) WriteFullJSON(batches []models.ExportBatch) error {
	dump := make(map[string]collectionDump, len(batches))
	for _, b := range batches {
		dump[b.Collection] = collectionDump{
			Endpoint: b.Endpoint,
			Count:    len(b.Raw),
			Data:     b.Raw,
		}
	}
	return s.writeJSON(fullExportFile, dump)
}

// WriteManifest persists the manifest. It is written once, at the end of a
// run, and never modified afterwards.
func (s *Store) WriteManifest(m *models.Manifest) error {
	return s.writeJSON(manifestFile, m)
}

// ReadManifest loads the manifest of a previous export run.
func (s *Store) ReadManifest() (*models.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// WriteReport writes the end-of-run summary rows.
func (s *Store) WriteReport(rows []models.ReportRow) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.root, reportFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteErrors dumps failed import rows next to the collection's CSV so
// they can be replayed by hand, mirroring <collection>.csv ->
// <collection>_errors.json.
func (s *Store) WriteErrors(csvRel string, errs any) (string, error) {
	rel := strings.TrimSuffix(csvRel, ".csv") + "_errors.json"
	if err := s.writeJSON(rel, errs); err != nil {
		return "", err
	}
	return rel, nil
}

func (s *Store) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", rel, err)
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
