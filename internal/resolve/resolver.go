package resolve

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/euphdk/netbox-api-export-import/internal/models"
)

// Options control flattening.
type Options struct {
	// ListSep joins identifier lists into one cell. Defaults to ",".
	ListSep string
	// DropLists discards lists of nested objects instead of joining
	// their identifiers.
	DropLists bool
}

// readOnlyFields are auto-generated by NetBox and rejected on import, so
// they are stripped before flattening.
var readOnlyFields = map[string]bool{
	"id":           true,
	"url":          true,
	"display":      true,
	"display_url":  true,
	"created":      true,
	"last_updated": true,
}

// Resolver flattens raw records into tabular form. Resolution is bounded
// to exactly one level: a nested object contributes its identifier and is
// never dereferenced or descended into, which is what keeps circular
// object graphs (device <-> cable) from recursing.
type Resolver struct {
	opts      Options
	anomalies int
}

func New(opts Options) *Resolver {
	if opts.ListSep == "" {
		opts.ListSep = ","
	}
	return &Resolver{opts: opts}
}

// Anomalies returns how many nested objects carried none of slug, name or
// id and were resolved to an empty value.
func (r *Resolver) Anomalies() int { return r.anomalies }

// Flatten produces the ResolvedRecord for one raw record. Scalars are
// copied verbatim, so running Flatten over an already-flat record returns
// it unchanged.
func (r *Resolver) Flatten(collection string, rec models.Record) models.ResolvedRecord {
	out := make(models.ResolvedRecord, len(rec))
	for field, value := range rec {
		if readOnlyFields[field] {
			continue
		}
		switch v := value.(type) {
		case nil:
			out[field] = ""
		case map[string]any:
			r.flattenObject(collection, field, v, out)
		case []any:
			if r.opts.DropLists && isObjectList(v) && field != "tags" {
				continue
			}
			out[field] = r.joinList(collection, field, v)
		default:
			out[field] = scalarString(v)
		}
	}
	return out
}

// flattenObject resolves one nested object. An identifier-bearing object
// collapses to a single field; one without an identifier spreads its own
// scalar members under dot-notation keys (site -> site.address, ...),
// still without descending further.
func (r *Resolver) flattenObject(collection, field string, obj map[string]any, out models.ResolvedRecord) {
	if ident, ok := identifier(obj); ok {
		out[field] = ident
		return
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	spread := false
	for _, k := range keys {
		if readOnlyFields[k] {
			continue
		}
		switch vv := obj[k].(type) {
		case nil, map[string]any, []any:
			// One level only.
		default:
			out[field+"."+k] = scalarString(vv)
			spread = true
		}
	}
	if !spread {
		out[field] = ""
		r.anomalies++
		log.Printf("Warning: %s field %q has a nested object with no slug, name or id; resolved to empty", collection, field)
	}
}

// joinList turns a list into one delimited cell. Nested objects contribute
// their identifiers, scalars their string form.
func (r *Resolver) joinList(collection, field string, list []any) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case map[string]any:
			ident, ok := identifier(v)
			if !ok {
				r.anomalies++
				log.Printf("Warning: %s field %q has a list element with no slug, name or id; skipped", collection, field)
				continue
			}
			parts = append(parts, ident)
		case nil:
			// Skip.
		default:
			parts = append(parts, scalarString(v))
		}
	}
	return strings.Join(parts, r.opts.ListSep)
}

// isObjectList reports whether a list's first non-nil element is a nested
// object. Mixed lists do not occur in API responses.
func isObjectList(list []any) bool {
	for _, item := range list {
		if item == nil {
			continue
		}
		_, ok := item.(map[string]any)
		return ok
	}
	return false
}

// identifier picks the reference value for a nested object: slug wins over
// name, name over numeric id. A reference stub carrying only an id (and
// url) resolves to that id directly; it is never fetched.
func identifier(obj map[string]any) (string, bool) {
	if slug, ok := obj["slug"].(string); ok && slug != "" {
		return slug, true
	}
	if name, ok := obj["name"].(string); ok && name != "" {
		return name, true
	}
	if id, ok := obj["id"]; ok && id != nil {
		return scalarString(id), true
	}
	return "", false
}

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
