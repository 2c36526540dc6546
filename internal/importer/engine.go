package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/models"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
	"github.com/euphdk/netbox-api-export-import/internal/registry"
)

// Options control one import run.
type Options struct {
	// Only restricts the run to a single collection by semantic name.
	Only string
	// ListSep splits delimited identifier lists; must match the export.
	ListSep string
	// Progress, when set, is called after each collection finishes.
	Progress func(collection string, index, total, records int)
}

// RecordError captures one failed record with enough context for a manual
// replay.
type RecordError struct {
	Collection string `json:"collection"`
	Row        int    `json:"row"`
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

// Summary is the user-facing result of a run.
type Summary struct {
	Created int
	Updated int
	Failed  int
	Rows    []models.ReportRow
}

// patchJob is a deferred second-pass update: the target id of a created
// record plus the soft-reference fields that were held back so both sides
// of a circular pair exist before they are linked.
type patchJob struct {
	spec    registry.Spec
	id      int
	ident   string
	payload map[string]string
}

// Engine replays an export against a target instance. Collections are
// processed strictly in manifest order, so by the time a record is
// created, everything it hard-references already exists on the target.
// Identifiers are re-resolved against the target's own objects through an
// accumulating source-identifier to target-id map, written once per key.
type Engine struct {
	client *netbox.Client
	store  *artifact.Store
	opts   Options

	ids map[string]map[string]int
}

func New(client *netbox.Client, store *artifact.Store, opts Options) *Engine {
	if opts.ListSep == "" {
		opts.ListSep = ","
	}
	return &Engine{
		client: client,
		store:  store,
		opts:   opts,
		ids:    make(map[string]map[string]int),
	}
}

// Run reads the manifest and replays every listed collection in its
// recorded order, then patches circular references in a second pass.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	manifest, err := e.store.ReadManifest()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var patches []patchJob

	for i, entry := range manifest.Collections {
		if e.opts.Only != "" && entry.Name != e.opts.Only {
			continue
		}
		sp, ok := registry.ByName(entry.Name)
		if !ok {
			log.Printf("Skipping %s: not in the collection table", entry.Name)
			continue
		}

		log.Printf("Importing %s (%d records)...", entry.Name, entry.Records)
		row, jobs := e.importCollection(ctx, sp, entry, summary)
		patches = append(patches, jobs...)
		summary.Rows = append(summary.Rows, row)

		if e.opts.Progress != nil {
			e.opts.Progress(entry.Name, i+1, len(manifest.Collections), row.Records)
		}
	}

	if len(patches) > 0 {
		log.Printf("Patching %d circular references...", len(patches))
		e.applyPatches(ctx, patches, summary)
	}

	if err := e.store.WriteReport(summary.Rows); err != nil {
		log.Printf("Warning: failed to write report: %v", err)
	}
	log.Printf("Import complete: %d created, %d updated, %d failed",
		summary.Created, summary.Updated, summary.Failed)
	return summary, nil
}

// importCollection replays one collection's CSV. A failed record is
// recorded and skipped; it never stops the rest of the collection.
func (e *Engine) importCollection(ctx context.Context, sp registry.Spec, entry models.ManifestEntry, summary *Summary) (models.ReportRow, []patchJob) {
	row := models.ReportRow{Collection: sp.Name}

	rows, err := e.store.ReadCSV(entry.CSVFile)
	if err != nil {
		log.Printf("  Skipping %s: %v", sp.Name, err)
		row.Error = err.Error()
		return row, nil
	}
	row.Records = len(rows)

	var recordErrs []RecordError
	var jobs []patchJob

	for i, rec := range rows {
		ident := identifierOf(rec)
		payload, deferred := e.buildPayload(ctx, sp, rec)

		id, updated, err := e.createOrUpdate(ctx, sp, ident, payload)
		if err != nil {
			log.Printf("  Failed %s row %d (%s): %v", sp.Name, i+1, ident, err)
			recordErrs = append(recordErrs, RecordError{
				Collection: sp.Name,
				Row:        i + 1,
				Identifier: ident,
				Error:      err.Error(),
			})
			row.Failed++
			summary.Failed++
			continue
		}
		if updated {
			row.Updated++
			summary.Updated++
		} else {
			row.Created++
			summary.Created++
		}
		if ident != "" {
			e.remember(sp.Name, ident, id)
		}
		if len(deferred) > 0 {
			jobs = append(jobs, patchJob{spec: sp, id: id, ident: ident, payload: deferred})
		}
		if (row.Created+row.Updated)%100 == 0 {
			log.Printf("  Imported %d records...", row.Created+row.Updated)
		}
	}

	if len(recordErrs) > 0 {
		if rel, err := e.store.WriteErrors(entry.CSVFile, recordErrs); err == nil {
			log.Printf("  %d failed records saved to %s", len(recordErrs), rel)
		} else {
			log.Printf("  Warning: failed to save error file: %v", err)
		}
	}
	return row, jobs
}

// buildPayload turns one flattened row back into a request body:
// dot-notation keys are rebuilt into nested objects, JSON-looking cells
// are decoded, hard references are rehydrated into target ids, and soft
// references are held back for the second pass.
func (e *Engine) buildPayload(ctx context.Context, sp registry.Spec, rec models.ResolvedRecord) (map[string]any, map[string]string) {
	payload := make(map[string]any)
	deferred := make(map[string]string)

	for field, value := range rec {
		if value == "" {
			continue
		}
		if _, soft := sp.SoftRefs[field]; soft {
			deferred[field] = value
			continue
		}
		if target, ok := sp.Refs[field]; ok {
			payload[field] = e.rehydrate(ctx, target, value)
			continue
		}
		if field == "tags" {
			payload[field] = splitList(value, e.opts.ListSep)
			continue
		}
		if dot := strings.Index(field, "."); dot > 0 {
			parent, child := field[:dot], field[dot+1:]
			nested, ok := payload[parent].(map[string]any)
			if !ok {
				nested = make(map[string]any)
				payload[parent] = nested
			}
			nested[child] = value
			continue
		}
		if strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
			var decoded any
			if err := json.Unmarshal([]byte(value), &decoded); err == nil {
				payload[field] = decoded
				continue
			}
		}
		payload[field] = value
	}
	return payload, deferred
}

// rehydrate maps a flattened identifier to the target instance's own
// object. Earlier collections in the order have already been imported, so
// the identifier is expected to exist; when it does not, the raw
// identifier is passed through and the target gets the final say.
// Delimited lists are rehydrated element-wise.
func (e *Engine) rehydrate(ctx context.Context, collection, ident string) any {
	if strings.Contains(ident, e.opts.ListSep) {
		parts := splitList(ident, e.opts.ListSep)
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, e.rehydrate(ctx, collection, p))
		}
		return out
	}
	if id, ok := e.ids[collection][ident]; ok {
		return id
	}
	sp, ok := registry.ByName(collection)
	if !ok {
		return ident
	}
	id, found, err := e.client.Lookup(ctx, sp.Path, ident)
	if err != nil || !found {
		log.Printf("  Warning: %s %q not found on target; passing identifier through", collection, ident)
		return ident
	}
	e.remember(collection, ident, id)
	return id
}

// createOrUpdate creates the record, falling back to an update of the
// matching existing record when the target reports a conflict.
func (e *Engine) createOrUpdate(ctx context.Context, sp registry.Spec, ident string, payload map[string]any) (int, bool, error) {
	id, err := e.client.Create(ctx, sp.Path, payload)
	if err == nil {
		return id, false, nil
	}
	if !netbox.IsConflict(err) || ident == "" {
		return 0, false, err
	}

	existing, found, lookupErr := e.client.Lookup(ctx, sp.Path, ident)
	if lookupErr != nil || !found {
		return 0, false, fmt.Errorf("conflict on create and no existing record matched %q: %w", ident, err)
	}
	if updateErr := e.client.Update(ctx, sp.Path, existing, payload); updateErr != nil {
		return 0, false, fmt.Errorf("conflict on create, update fallback failed: %w", updateErr)
	}
	return existing, true, nil
}

// applyPatches runs the second pass: now that every collection exists on
// the target, the held-back circular fields are patched in.
func (e *Engine) applyPatches(ctx context.Context, patches []patchJob, summary *Summary) {
	for _, job := range patches {
		payload := make(map[string]any, len(job.payload))
		for field, value := range job.payload {
			target := job.spec.SoftRefs[field]
			payload[field] = e.rehydrate(ctx, target, value)
		}
		if err := e.client.Update(ctx, job.spec.Path, job.id, payload); err != nil {
			log.Printf("  Failed to patch %s %s: %v", job.spec.Name, job.ident, err)
			summary.Failed++
		}
	}
}

func (e *Engine) remember(collection, ident string, id int) {
	m, ok := e.ids[collection]
	if !ok {
		m = make(map[string]int)
		e.ids[collection] = m
	}
	if _, exists := m[ident]; !exists {
		m[ident] = id
	}
}

// identifierOf picks the source-side identity of a flattened row, the same
// preference order the resolver used.
func identifierOf(rec models.ResolvedRecord) string {
	if slug := rec["slug"]; slug != "" {
		return slug
	}
	return rec["name"]
}

func splitList(value, sep string) []string {
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
