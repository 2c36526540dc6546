package resolve

import (
	"testing"

	"github.com/euphdk/netbox-api-export-import/internal/models"
)

func TestFlattenSlugWinsOverNameAndID(t *testing.T) {
	r := New(Options{})
	rec := models.Record{
		"name": "core-sw-01",
		"site": map[string]any{"slug": "x", "name": "y", "id": float64(5)},
	}
	got := r.Flatten("devices", rec)
	if got["site"] != "x" {
		t.Errorf("site = %q, want slug %q", got["site"], "x")
	}
}

func TestFlattenIdentifierPriority(t *testing.T) {
	r := New(Options{})
	tests := []struct {
		name string
		obj  map[string]any
		want string
	}{
		{"name over id", map[string]any{"name": "y", "id": float64(5)}, "y"},
		{"id alone", map[string]any{"id": float64(5), "url": "/api/dcim/sites/5/"}, "5"},
		{"empty slug falls through", map[string]any{"slug": "", "name": "y"}, "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Flatten("devices", models.Record{"site": tt.obj})
			if got["site"] != tt.want {
				t.Errorf("site = %q, want %q", got["site"], tt.want)
			}
		})
	}
}

func TestFlattenIdempotentOnFlatInput(t *testing.T) {
	r := New(Options{})
	rec := models.Record{
		"name":   "ams01",
		"slug":   "ams01",
		"status": "active",
		"asns":   "65000,65001",
	}
	got := r.Flatten("sites", rec)
	if len(got) != len(rec) {
		t.Fatalf("flat record changed size: got %d fields, want %d", len(got), len(rec))
	}
	for k, v := range rec {
		if got[k] != v {
			t.Errorf("field %q = %q, want %q unchanged", k, got[k], v)
		}
	}
}

func TestFlattenCircularReferenceTerminates(t *testing.T) {
	// A cable whose endpoint device references the cable back. The
	// resolver must emit identifier-only fields on both sides and never
	// follow the loop.
	cable := models.Record{
		"label": "c1",
		"a_terminations": []any{
			map[string]any{"id": float64(7), "name": "core-sw-01", "url": "/api/dcim/devices/7/"},
		},
	}
	device := models.Record{
		"name":  "core-sw-01",
		"cable": map[string]any{"id": float64(12), "url": "/api/dcim/cables/12/"},
	}

	r := New(Options{})
	flatCable := r.Flatten("cables", cable)
	flatDevice := r.Flatten("devices", device)

	if flatCable["a_terminations"] != "core-sw-01" {
		t.Errorf("cable termination = %q, want device name", flatCable["a_terminations"])
	}
	if flatDevice["cable"] != "12" {
		t.Errorf("device cable = %q, want id-only reference %q", flatDevice["cable"], "12")
	}
}

func TestFlattenNoIdentifierResolvesEmpty(t *testing.T) {
	r := New(Options{})
	got := r.Flatten("devices", models.Record{
		"config_context": map[string]any{"inner": map[string]any{"a": float64(1)}},
	})
	if v, ok := got["config_context"]; !ok || v != "" {
		t.Errorf("config_context = %q (present=%v), want empty value", v, ok)
	}
	if r.Anomalies() != 1 {
		t.Errorf("anomalies = %d, want 1", r.Anomalies())
	}
}

func TestFlattenDotNotationSpread(t *testing.T) {
	r := New(Options{})
	got := r.Flatten("circuits", models.Record{
		"termination_a": map[string]any{"port_speed": float64(1000), "xconnect_id": "XC-9"},
	})
	if got["termination_a.port_speed"] != "1000" {
		t.Errorf("termination_a.port_speed = %q, want %q", got["termination_a.port_speed"], "1000")
	}
	if got["termination_a.xconnect_id"] != "XC-9" {
		t.Errorf("termination_a.xconnect_id = %q, want %q", got["termination_a.xconnect_id"], "XC-9")
	}
}

func TestFlattenTagsJoined(t *testing.T) {
	r := New(Options{DropLists: true})
	got := r.Flatten("sites", models.Record{
		"tags": []any{
			map[string]any{"slug": "prod", "name": "Production"},
			map[string]any{"slug": "dc", "name": "Datacenter"},
		},
	})
	if got["tags"] != "prod,dc" {
		t.Errorf("tags = %q, want %q", got["tags"], "prod,dc")
	}
}

func TestFlattenDropLists(t *testing.T) {
	r := New(Options{DropLists: true})
	got := r.Flatten("devices", models.Record{
		"modules": []any{map[string]any{"name": "m1"}},
	})
	if _, ok := got["modules"]; ok {
		t.Error("object list should be dropped when DropLists is set")
	}
}

func TestFlattenStripsReadOnlyFields(t *testing.T) {
	r := New(Options{})
	got := r.Flatten("sites", models.Record{
		"id":           float64(3),
		"url":          "/api/dcim/sites/3/",
		"display":      "AMS01",
		"created":      "2024-01-01",
		"last_updated": "2024-02-01",
		"name":         "AMS01",
	})
	if len(got) != 1 || got["name"] != "AMS01" {
		t.Errorf("got %v, want only the name field", got)
	}
}

func TestFlattenNullAndScalars(t *testing.T) {
	r := New(Options{})
	got := r.Flatten("racks", models.Record{
		"comments": nil,
		"u_height": float64(42),
		"wide":     true,
	})
	if got["comments"] != "" {
		t.Errorf("comments = %q, want empty", got["comments"])
	}
	if got["u_height"] != "42" {
		t.Errorf("u_height = %q, want 42", got["u_height"])
	}
	if got["wide"] != "true" {
		t.Errorf("wide = %q, want true", got["wide"])
	}
}
