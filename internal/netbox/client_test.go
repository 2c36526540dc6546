package netbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient points a client with a tiny retry budget at the given
// handler.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		URL:           srv.URL,
		Token:         "test-token",
		PageSize:      2,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

// pagedHandler serves names as a paginated collection with the NetBox
// list envelope.
func pagedHandler(t *testing.T, pageSize int, names []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		if got := r.Header.Get("Authorization"); got != "Token test-token" {
			t.Errorf("Authorization = %q, want token header", got)
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := offset + pageSize
		if end > len(names) {
			end = len(names)
		}
		results := make([]map[string]any, 0, pageSize)
		for _, n := range names[offset:end] {
			results = append(results, map[string]any{"id": offset + 1, "name": n})
		}
		resp := map[string]any{"count": len(names), "results": results}
		if end < len(names) {
			resp["next"] = fmt.Sprintf("?offset=%d", end)
		}
		json.NewEncoder(w).Encode(resp)
	})
}

func TestFetchAllFollowsPagination(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	client, _ := newTestClient(t, pagedHandler(t, 2, names))

	records, err := client.FetchAll(context.Background(), "tenancy/tenants")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != len(names) {
		t.Fatalf("got %d records, want %d", len(records), len(names))
	}
	for i, rec := range records {
		if rec["name"] != names[i] {
			t.Errorf("record %d name = %v, want %q (server order must hold)", i, rec["name"], names[i])
		}
	}
}

func TestFetchAllRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	inner := pagedHandler(t, 2, []string{"a"})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "worker restarting", http.StatusServiceUnavailable)
			return
		}
		inner.ServeHTTP(w, r)
	}))

	records, err := client.FetchAll(context.Background(), "dcim/sites")
	if err != nil {
		t.Fatalf("FetchAll after one transient failure: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2 (one failure, one retry)", calls.Load())
	}
}

func TestFetchAllTruncatesAfterRetryBudget(t *testing.T) {
	var page2Calls atomic.Int32
	inner := pagedHandler(t, 2, []string{"a", "b", "c", "d", "e", "f"})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "2" {
			page2Calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		inner.ServeHTTP(w, r)
	}))

	records, err := client.FetchAll(context.Background(), "dcim/devices")
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want the 2 from page 1", len(records))
	}
	if page2Calls.Load() != 3 {
		t.Errorf("page 2 tried %d times, want the configured 3 attempts", page2Calls.Load())
	}
}

func TestFetchAllMissingEndpointFailsFast(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))

	records, err := client.FetchAll(context.Background(), "nope/nothing")
	if err == nil {
		t.Fatal("FetchAll on a missing endpoint should fail")
	}
	if errors.Is(err, ErrTruncated) {
		t.Error("a collection that never produced records is not truncated")
	}
	if records != nil {
		t.Errorf("got %d records, want none", len(records))
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1 (404 is not retried)", calls.Load())
	}
}

func TestCreateReturnsAssignedID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["name"] != "acme" {
			t.Errorf("payload name = %v, want acme", payload["name"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 42, "name": "acme"})
	}))

	id, err := client.Create(context.Background(), "tenancy/tenants", map[string]any{"name": "acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"409", &statusError{code: 409, body: "conflict"}, true},
		{"400 unique", &statusError{code: 400, body: `{"name": ["tenant with this name already exists."]}`}, true},
		{"400 unique set", &statusError{code: 400, body: `{"non_field_errors": ["The fields site, name must make a unique set."]}`}, true},
		{"400 validation", &statusError{code: 400, body: `{"status": ["invalid choice"]}`}, false},
		{"500", &statusError{code: 500, body: "boom"}, false},
		{"plain error", errors.New("dial tcp"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConflict(tt.err); got != tt.want {
				t.Errorf("IsConflict = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupTriesSlugThenName(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("slug") == "ams01":
			json.NewEncoder(w).Encode(map[string]any{"count": 1, "results": []map[string]any{{"id": 7, "slug": "ams01"}}})
		case q.Get("name") != "":
			json.NewEncoder(w).Encode(map[string]any{"count": 0, "results": []map[string]any{}})
		default:
			json.NewEncoder(w).Encode(map[string]any{"count": 0, "results": []map[string]any{}})
		}
	}))

	id, found, err := client.Lookup(context.Background(), "dcim/sites", "ams01")
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}

	// Nothing matches and the identifier is not numeric.
	_, found, err = client.Lookup(context.Background(), "dcim/sites", "missing")
	if err != nil {
		t.Fatalf("Lookup miss: %v", err)
	}
	if found {
		t.Error("Lookup found a record that does not exist")
	}

	// A numeric identifier falls through to a literal id.
	id, found, _ = client.Lookup(context.Background(), "dcim/sites", "31")
	if !found || id != 31 {
		t.Errorf("numeric lookup = (%d, %v), want (31, true)", id, found)
	}
}
