// Package doc loads the document template and materializes per-write copies
// with fresh identity and partition key values.
package doc

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Template is an opaque field mapping read once at startup. Each materialized
// document overwrites two fields: "id" and the collection's partition key
// field, both with freshly generated 128-bit random identifiers.
type Template struct {
	fields  map[string]any
	pkField string
}

// Load reads a JSON object from path.
func Load(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return &Template{fields: fields}, nil
}

// New wraps an in-memory field mapping.
func New(fields map[string]any) *Template {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Template{fields: fields}
}

// BindPartitionKey derives the partition key field name from the collection's
// declared key path (e.g. "/partitionKey"). The binding happens once and is
// stable for the whole run.
func (t *Template) BindPartitionKey(path string) error {
	field := strings.TrimPrefix(strings.TrimSpace(path), "/")
	if field == "" {
		return fmt.Errorf("partition key path %q is empty", path)
	}
	if strings.Contains(field, "/") {
		return fmt.Errorf("nested partition key path %q is not supported", path)
	}
	t.pkField = field
	return nil
}

// PartitionKeyField returns the bound partition key field name.
func (t *Template) PartitionKeyField() string { return t.pkField }

// Materialize returns a fresh copy of the template fields with new id and
// partition key values, along with the two generated values. The copy is
// owned by the caller; templates themselves are never mutated.
func (t *Template) Materialize() (map[string]any, string, string) {
	fields := maps.Clone(t.fields)
	id := uuid.NewString()
	pk := uuid.NewString()
	fields["id"] = id
	if t.pkField != "" {
		fields[t.pkField] = pk
	}
	return fields, id, pk
}
