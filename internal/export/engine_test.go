package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
)

// fakeSource serves a handful of collections with NetBox list envelopes;
// every other endpoint is an empty collection.
type fakeSource struct {
	data map[string][]map[string]any // endpoint path -> records
	// failAt breaks a specific endpoint at a given offset with a 500.
	failPath   string
	failOffset int
	pageSize   int
}

func (f *fakeSource) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if path == f.failPath && offset >= f.failOffset {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		records := f.data[path]
		end := offset + f.pageSize
		if end > len(records) {
			end = len(records)
		}
		resp := map[string]any{"count": len(records), "results": records[offset:end]}
		if end < len(records) {
			resp["next"] = fmt.Sprintf("?offset=%d", end)
		}
		json.NewEncoder(w).Encode(resp)
	})
}

func newTestEngine(t *testing.T, src *fakeSource, opts Options) (*Engine, *artifact.Store) {
	t.Helper()
	if src.pageSize == 0 {
		src.pageSize = 2
	}
	srv := httptest.NewServer(src.handler(t))
	t.Cleanup(srv.Close)
	client, err := netbox.NewClient(netbox.Config{
		URL:           srv.URL,
		Token:         "x",
		PageSize:      src.pageSize,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(client, store, opts), store
}

func entryPosition(t *testing.T, names []string, name string) int {
	t.Helper()
	for i, n := range names {
		if n == name {
			return i
		}
	}
	t.Fatalf("collection %s missing from manifest", name)
	return -1
}

func TestRunWritesManifestInDependencyOrder(t *testing.T) {
	src := &fakeSource{data: map[string][]map[string]any{
		"tenancy/tenants": {
			{"id": 1, "name": "Acme", "slug": "acme"},
			{"id": 2, "name": "Initech", "slug": "initech"},
		},
		"dcim/sites": {
			{"id": 1, "name": "AMS01", "slug": "ams01", "tenant": map[string]any{"slug": "acme", "id": 1}},
		},
	}}
	engine, store := newTestEngine(t, src, Options{})

	manifest, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var names []string
	for _, e := range manifest.Collections {
		names = append(names, e.Name)
	}
	if entryPosition(t, names, "tenants") >= entryPosition(t, names, "sites") {
		t.Error("tenants must be exported before sites")
	}
	if manifest.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", manifest.TotalRecords)
	}
	if manifest.RunID == "" {
		t.Error("manifest has no run id")
	}

	// The sites CSV carries the flattened tenant slug.
	var sitesEntry string
	for _, e := range manifest.Collections {
		if e.Name == "sites" {
			sitesEntry = e.CSVFile
		}
	}
	rows, err := store.ReadCSV(sitesEntry)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 1 || rows[0]["tenant"] != "acme" {
		t.Errorf("sites rows = %v, want flattened tenant slug", rows)
	}
}

func TestRunKeepsPartialResultOnTruncatedFetch(t *testing.T) {
	src := &fakeSource{
		data: map[string][]map[string]any{
			"tenancy/tenants": {
				{"id": 1, "slug": "t1"}, {"id": 2, "slug": "t2"},
				{"id": 3, "slug": "t3"}, {"id": 4, "slug": "t4"},
				{"id": 5, "slug": "t5"}, {"id": 6, "slug": "t6"},
			},
		},
		failPath:   "tenancy/tenants",
		failOffset: 2,
	}
	engine, store := newTestEngine(t, src, Options{Only: "tenants"})

	manifest, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(manifest.Collections) != 1 {
		t.Fatalf("manifest has %d collections, want 1", len(manifest.Collections))
	}
	entry := manifest.Collections[0]
	if !entry.Truncated {
		t.Error("entry should be marked truncated")
	}
	if entry.Records != 2 {
		t.Errorf("kept %d records, want the 2 fetched before the gap", entry.Records)
	}
	rows, err := store.ReadCSV(entry.CSVFile)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("CSV has %d rows, want 2", len(rows))
	}
}

func TestRunOnlyUnknownCollection(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeSource{}, Options{Only: "no-such"})
	if _, err := engine.Run(context.Background()); err == nil {
		t.Fatal("Run with an unknown --only collection should fail before fetching")
	}
}

func TestRunProgressCallback(t *testing.T) {
	src := &fakeSource{data: map[string][]map[string]any{
		"tenancy/tenants": {{"id": 1, "slug": "t1"}},
	}}
	var seen []string
	engine, _ := newTestEngine(t, src, Options{
		Only: "tenants",
		Progress: func(collection string, index, total, records int) {
			seen = append(seen, fmt.Sprintf("%s:%d/%d:%d", collection, index, total, records))
		},
	})
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 1 || seen[0] != "tenants:1/1:1" {
		t.Errorf("progress calls = %v", seen)
	}
}
