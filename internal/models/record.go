package models

import "time"

// Record is one object as returned by the NetBox API: a mapping from field
// name to value, where a value may be a scalar, a nested object, a list of
// nested objects, or nil. Records are never mutated after fetch.
type Record map[string]any

// ResolvedRecord is a Record after flattening: every value is a plain
// string suitable for a single CSV cell. No value is a nested object.
type ResolvedRecord map[string]string

// ExportBatch holds everything produced for one collection during export:
// the raw records as fetched (for the JSON artifact) and their flattened
// form (for the CSV artifact).
type ExportBatch struct {
	Collection string
	Endpoint   string
	Raw        []Record
	Resolved   []ResolvedRecord
	// Truncated is set when pagination was cut short after the retry
	// budget ran out. The records fetched up to that point are kept.
	Truncated bool
	Err       error
}

// Manifest records what an export run produced, in dependency order.
// Import replays collections in exactly this order.
type Manifest struct {
	RunID        string          `json:"run_id"`
	ExportedAt   time.Time       `json:"exported_at"`
	SourceURL    string          `json:"source_url"`
	TotalRecords int             `json:"total_records"`
	Collections  []ManifestEntry `json:"collections"`
}

// ManifestEntry describes one exported collection.
type ManifestEntry struct {
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint"`
	Records   int    `json:"records"`
	CSVFile   string `json:"csv_file"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ReportRow is one line of the end-of-run summary CSV.
type ReportRow struct {
	Collection string `csv:"collection"`
	Records    int    `csv:"records"`
	Created    int    `csv:"created"`
	Updated    int    `csv:"updated"`
	Skipped    int    `csv:"skipped"`
	Failed     int    `csv:"failed"`
	Error      string `csv:"error"`
}
