// Package schema maps logical data files to the JSON Schema documents they
// must validate against. The mapping is declared once in schema-map.json and
// loaded at startup; a data file with no matching mapping is a configuration
// defect, not a runtime condition.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MapFileName is the name of the mapping document inside the schema root.
const MapFileName = "schema-map.json"

// mapping pairs a path.Match glob (relative to the data root, e.g.
// "movements/stock_movements_*.json") with a schema document path relative
// to the schema root.
type mapping struct {
	Pattern string `json:"pattern"`
	Schema  string `json:"schema"`
}

type schemaMap struct {
	Mappings []mapping `json:"mappings"`
}

// Registry resolves logical data-file paths to compiled schemas.
// Compiled schemas are cached; the registry is safe for concurrent use.
type Registry struct {
	root     string
	mappings []mapping

	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewRegistry loads schema-map.json from the schema root directory and
// returns a registry over it. The schema documents themselves are compiled
// lazily on first lookup.
func NewRegistry(schemaRoot string) (*Registry, error) {
	mapPath := filepath.Join(schemaRoot, MapFileName)
	data, err := os.ReadFile(mapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema map %s: %w", mapPath, err)
	}

	var sm schemaMap
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("failed to parse schema map %s: %w", mapPath, err)
	}
	if len(sm.Mappings) == 0 {
		return nil, fmt.Errorf("schema map %s declares no mappings", mapPath)
	}
	for i, m := range sm.Mappings {
		if m.Pattern == "" || m.Schema == "" {
			return nil, fmt.Errorf("schema map %s: mapping %d is incomplete", mapPath, i)
		}
		// Reject malformed globs up front rather than on first lookup
		if _, err := path.Match(m.Pattern, ""); err != nil {
			return nil, fmt.Errorf("schema map %s: invalid pattern %q: %w", mapPath, m.Pattern, err)
		}
	}

	return &Registry{
		root:     schemaRoot,
		mappings: sm.Mappings,
		compiled: make(map[string]*jsonschema.Schema),
	}, nil
}

// Lookup returns the compiled schema for a logical data-file path such as
// "master/parts.json" or "movements/adjustments_202608.json".
// Returns *NotFoundError if no mapping pattern matches.
func (r *Registry) Lookup(logicalPath string) (*jsonschema.Schema, error) {
	logicalPath = path.Clean(filepath.ToSlash(logicalPath))
	for _, m := range r.mappings {
		matched, err := path.Match(m.Pattern, logicalPath)
		if err != nil {
			return nil, fmt.Errorf("invalid schema pattern %q: %w", m.Pattern, err)
		}
		if matched {
			return r.compile(m.Schema)
		}
	}
	return nil, &NotFoundError{LogicalPath: logicalPath}
}

// compile loads and compiles a schema document, caching the result.
func (r *Registry) compile(schemaRel string) (*jsonschema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sch, ok := r.compiled[schemaRel]; ok {
		return sch, nil
	}

	schemaPath := filepath.Join(r.root, schemaRel)
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema document %s: %w", schemaPath, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaRel, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to load schema document %s: %w", schemaPath, err)
	}
	sch, err := compiler.Compile(schemaRel)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema document %s: %w", schemaPath, err)
	}

	r.compiled[schemaRel] = sch
	return sch, nil
}

// NotFoundError reports a data file that no schema mapping covers.
// This is a configuration defect: every stored file must be declared in
// schema-map.json.
type NotFoundError struct {
	LogicalPath string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no schema mapping matches data file '%s'", e.LogicalPath)
}

// IsNotFound returns true if the error is a schema NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}
