package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fixtureRegistry(t *testing.T) *Registry {
	t.Helper()
	root := t.TempDir()
	writeFixture(t, root, "schema-map.json", `{
		"mappings": [
			{ "pattern": "master/widgets.json", "schema": "widgets.json" },
			{ "pattern": "logs/widgets_*.json", "schema": "widgets.json" }
		]
	}`)
	writeFixture(t, root, "widgets.json", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["id"],
			"properties": { "id": { "type": "string", "minLength": 1 } }
		}
	}`)

	reg, err := NewRegistry(root)
	require.NoError(t, err)
	return reg
}

// TestLookupExactPattern tests resolution of a literal file mapping
func TestLookupExactPattern(t *testing.T) {
	reg := fixtureRegistry(t)

	sch, err := reg.Lookup("master/widgets.json")
	require.NoError(t, err)
	require.NotNil(t, sch)

	var valid any
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"w1"}]`), &valid))
	assert.NoError(t, sch.Validate(valid))

	var invalid any
	require.NoError(t, json.Unmarshal([]byte(`[{"id":""}]`), &invalid))
	assert.Error(t, sch.Validate(invalid), "schema must reject empty id")
}

// TestLookupGlobPattern tests that monthly partition names match their glob
func TestLookupGlobPattern(t *testing.T) {
	reg := fixtureRegistry(t)

	_, err := reg.Lookup("logs/widgets_202608.json")
	assert.NoError(t, err)

	_, err = reg.Lookup("logs/other_202608.json")
	assert.True(t, IsNotFound(err), "expected NotFoundError for unmapped partition")
}

// TestLookupUnmappedFile tests that missing mappings are a NotFoundError
func TestLookupUnmappedFile(t *testing.T) {
	reg := fixtureRegistry(t)

	_, err := reg.Lookup("master/gadgets.json")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "master/gadgets.json")
}

// TestNewRegistryRejectsEmptyMap tests that a map with no mappings fails fast
func TestNewRegistryRejectsEmptyMap(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "schema-map.json", `{ "mappings": [] }`)

	_, err := NewRegistry(root)
	assert.Error(t, err)
}

// TestNewRegistryMissingMap tests the missing schema-map case
func TestNewRegistryMissingMap(t *testing.T) {
	_, err := NewRegistry(t.TempDir())
	assert.Error(t, err)
}

// TestLookupCachesCompiledSchema tests that repeat lookups return the same schema
func TestLookupCachesCompiledSchema(t *testing.T) {
	reg := fixtureRegistry(t)

	first, err := reg.Lookup("master/widgets.json")
	require.NoError(t, err)
	second, err := reg.Lookup("logs/widgets_202601.json")
	require.NoError(t, err)
	assert.Same(t, first, second, "both patterns share one compiled schema document")
}
