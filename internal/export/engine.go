package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/models"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
	"github.com/euphdk/netbox-api-export-import/internal/registry"
	"github.com/euphdk/netbox-api-export-import/internal/resolve"
)

// Options control one export run.
type Options struct {
	// Only restricts the run to a single collection by semantic name.
	Only string
	// DropLists is passed through to the resolver.
	DropLists bool
	// Progress, when set, is called after each collection finishes.
	Progress func(collection string, index, total, records int)
}

// Engine drives one export run: plan the collection order once, then fetch
// and flatten each collection, writing its artifacts and the manifest.
type Engine struct {
	client *netbox.Client
	store  *artifact.Store
	opts   Options
}

func New(client *netbox.Client, store *artifact.Store, opts Options) *Engine {
	return &Engine{client: client, store: store, opts: opts}
}

// Run executes the export. Per-record and per-collection failures are
// logged and skipped; only planning and manifest writing can fail the run.
func (e *Engine) Run(ctx context.Context) (*models.Manifest, error) {
	plan, err := registry.PlanAll()
	if err != nil {
		return nil, err
	}
	if e.opts.Only != "" {
		if _, ok := registry.ByName(e.opts.Only); !ok {
			return nil, fmt.Errorf("export: unknown collection %q", e.opts.Only)
		}
		var filtered []registry.Spec
		for _, sp := range plan {
			if sp.Name == e.opts.Only {
				filtered = append(filtered, sp)
			}
		}
		plan = filtered
	}

	manifest := &models.Manifest{
		RunID:      uuid.NewString(),
		ExportedAt: time.Now().UTC(),
		SourceURL:  e.client.URL(),
	}

	resolver := resolve.New(resolve.Options{DropLists: e.opts.DropLists})
	var batches []models.ExportBatch
	var report []models.ReportRow

	for i, sp := range plan {
		log.Printf("Exporting %s (%s)...", sp.Name, sp.Path)
		batch := e.exportCollection(ctx, resolver, sp)

		row := models.ReportRow{Collection: sp.Name, Records: len(batch.Resolved)}
		if batch.Err != nil {
			row.Error = batch.Err.Error()
		}

		if batch.Err != nil && !batch.Truncated {
			log.Printf("  Skipping %s: %v", sp.Name, batch.Err)
			report = append(report, row)
			continue
		}
		if batch.Truncated {
			log.Printf("  WARNING: %s is incomplete, kept %d records fetched before the gap: %v",
				sp.Name, len(batch.Resolved), batch.Err)
		}

		csvFile, err := e.store.WriteCSV(sp.Path, batch.Resolved)
		if err != nil {
			log.Printf("  Failed to write %s artifact: %v", sp.Name, err)
			row.Error = err.Error()
			report = append(report, row)
			continue
		}

		batches = append(batches, batch)
		manifest.Collections = append(manifest.Collections, models.ManifestEntry{
			Name:      sp.Name,
			Endpoint:  sp.Path,
			Records:   len(batch.Resolved),
			CSVFile:   csvFile,
			Truncated: batch.Truncated,
		})
		manifest.TotalRecords += len(batch.Resolved)
		report = append(report, row)
		log.Printf("  Saved %d records to %s", len(batch.Resolved), csvFile)

		if e.opts.Progress != nil {
			e.opts.Progress(sp.Name, i+1, len(plan), len(batch.Resolved))
		}
	}

	if err := e.store.WriteFullJSON(batches); err != nil {
		return nil, err
	}
	if err := e.store.WriteManifest(manifest); err != nil {
		return nil, err
	}
	if err := e.store.WriteReport(report); err != nil {
		log.Printf("Warning: failed to write report: %v", err)
	}

	log.Printf("Export complete: %d records across %d collections in %s",
		manifest.TotalRecords, len(manifest.Collections), e.store.Root())
	if n := resolver.Anomalies(); n > 0 {
		log.Printf("  %d reference anomalies logged for manual review", n)
	}
	return manifest, nil
}

// exportCollection fetches and flattens one collection. It never fails the
// run: fetch errors end up on the batch for the caller to log.
func (e *Engine) exportCollection(ctx context.Context, resolver *resolve.Resolver, sp registry.Spec) models.ExportBatch {
	batch := models.ExportBatch{Collection: sp.Name, Endpoint: sp.Path}

	records, err := e.client.FetchAll(ctx, sp.Path)
	if err != nil {
		batch.Err = err
		batch.Truncated = errors.Is(err, netbox.ErrTruncated)
	}

	batch.Raw = records
	batch.Resolved = make([]models.ResolvedRecord, 0, len(records))
	for _, rec := range records {
		batch.Resolved = append(batch.Resolved, resolver.Flatten(sp.Name, rec))
	}
	return batch
}
