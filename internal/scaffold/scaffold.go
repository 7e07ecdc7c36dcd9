// Package scaffold creates the on-disk data directory layout: schema
// documents, the schema map, and empty master/movement collections.
// It is used by `picklight init` and by tests building fixtures in
// temporary directories.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates/*
var templatesFS embed.FS

// emptyCollections are the data files initialized to an empty JSON list.
// Monthly movement partitions are created on first append, not here.
var emptyCollections = []string{
	"master/racks.json",
	"master/drawers.json",
	"master/parts.json",
	"master/categories.json",
	"master/manufacturers.json",
	"master/tags.json",
	"master/locations.json",
	"movements/reservations.json",
}

// Initialize creates the data directory tree under root:
//
//	data/master/*.json       empty collections
//	data/movements/          reservations.json plus future monthly partitions
//	data/indexes/            empty, filled by reindexing
//	data/schema/             schema documents + schema-map.json
//
// Existing data files are never overwritten. Schema documents are only
// overwritten when force is true, so a schema update can be rolled out
// without touching stored records.
func Initialize(root string, force bool) error {
	dataRoot := filepath.Join(root, "data")

	for _, dir := range []string{"master", "movements", "indexes", "schema"} {
		if err := os.MkdirAll(filepath.Join(dataRoot, dir), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := writeSchemas(dataRoot, force); err != nil {
		return err
	}

	for _, rel := range emptyCollections {
		path := filepath.Join(dataRoot, filepath.FromSlash(rel))
		if _, err := os.Stat(path); err == nil {
			continue // never clobber existing data
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(path, []byte("[]\n"), 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", rel, err)
		}
	}

	return nil
}

// writeSchemas copies the embedded schema documents into data/schema.
func writeSchemas(dataRoot string, force bool) error {
	return fs.WalkDir(templatesFS, "templates/schema", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("templates/schema", p)
		if err != nil {
			return err
		}
		target := filepath.Join(dataRoot, "schema", rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templatesFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read embedded schema %s: %w", p, err)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return fmt.Errorf("failed to write schema %s: %w", target, err)
		}
		return nil
	})
}
