// Package search finds parts by criteria, optionally accelerated by the
// derived index documents under data/indexes. Indexes are regenerable
// caches: a lookup falls back to a full scan whenever the index is absent
// or was built against an older parts file, so search results never depend
// on reindexing having run.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/store"
	"github.com/picklight/picklight/pkg/catalog"
)

// Index document logical paths. Each maps one key kind to part ids.
const (
	indexByTag      = "indexes/parts_by_tag.json"
	indexByCategory = "indexes/parts_by_category.json"
	indexByDrawer   = "indexes/parts_by_drawer.json"
)

// Criteria narrows a part search. Zero-valued fields are ignored; all set
// fields must match (AND semantics). Query is a case-insensitive substring
// match over id, name, notes and tag ids.
type Criteria struct {
	Query          string
	CategoryID     string
	ManufacturerID string
	DrawerID       string
	TagsAny        []string // at least one must be present
	TagsAll        []string // every one must be present
	MinQuantity    *int
	MaxQuantity    *int
}

// Matches reports whether the part satisfies every set criterion.
func (c *Criteria) Matches(p *catalog.Part) bool {
	if c.CategoryID != "" && p.CategoryID != c.CategoryID {
		return false
	}
	if c.ManufacturerID != "" && p.ManufacturerID != c.ManufacturerID {
		return false
	}
	if c.DrawerID != "" && p.DrawerID != c.DrawerID {
		return false
	}
	if len(c.TagsAny) > 0 {
		any := false
		for _, tag := range c.TagsAny {
			if p.HasTag(tag) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, tag := range c.TagsAll {
		if !p.HasTag(tag) {
			return false
		}
	}
	if c.MinQuantity != nil && p.Quantity < *c.MinQuantity {
		return false
	}
	if c.MaxQuantity != nil && p.Quantity > *c.MaxQuantity {
		return false
	}
	if c.Query != "" && !matchesQuery(p, c.Query) {
		return false
	}
	return true
}

func matchesQuery(p *catalog.Part, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.ID), q) ||
		strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Notes), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Searcher runs part searches against a master repository.
type Searcher struct {
	repo    *master.Repository
	dataDir string
	reg     *schema.Registry
}

// New builds a Searcher. The index documents live under dataDir/indexes.
func New(repo *master.Repository, dataDir string, reg *schema.Registry) *Searcher {
	return &Searcher{repo: repo, dataDir: dataDir, reg: reg}
}

func (s *Searcher) indexDoc(logical string) (*store.Document[catalog.Index], error) {
	return store.NewDocument[catalog.Index](s.dataDir, logical, s.reg, store.WithEmptyDefault())
}

// Find returns the parts matching the criteria, sorted by id. When exactly
// one of tag, category or drawer is constrained and a fresh index exists,
// the candidate set is narrowed through the index before filtering; the
// result is identical either way.
func (s *Searcher) Find(ctx context.Context, c Criteria) ([]catalog.Part, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	candidates := snap.Parts
	if ids := s.candidateIDs(ctx, &c, snap.PartsVersion); ids != nil {
		candidates = make([]catalog.Part, 0, len(ids))
		for _, id := range ids {
			if p, ok := snap.PartByID(id); ok {
				candidates = append(candidates, p)
			}
		}
	}

	var out []catalog.Part
	for i := range candidates {
		if c.Matches(&candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// candidateIDs consults an index when one applies. nil means no usable
// index, scan everything.
func (s *Searcher) candidateIDs(ctx context.Context, c *Criteria, partsVersion store.Version) []string {
	var logical, key string
	switch {
	case len(c.TagsAll) == 1 && len(c.TagsAny) == 0:
		logical, key = indexByTag, c.TagsAll[0]
	case c.CategoryID != "":
		logical, key = indexByCategory, c.CategoryID
	case c.DrawerID != "":
		logical, key = indexByDrawer, c.DrawerID
	default:
		return nil
	}

	doc, err := s.indexDoc(logical)
	if err != nil {
		return nil
	}
	idx, _, err := doc.Load(ctx)
	if err != nil || idx.MasterVersion != string(partsVersion) {
		// Missing or stale: the caller scans instead. Stale indexes are
		// deliberately ignored, never half-trusted.
		return nil
	}
	ids := idx.Lookup(key)
	if ids == nil {
		// Fresh index with no entry: the key genuinely has no parts.
		return []string{}
	}
	return ids
}

// Rebuild regenerates all index documents from the current parts file and
// stamps them with its version token.
func (s *Searcher) Rebuild(ctx context.Context) error {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return err
	}

	byTag := map[string][]string{}
	byCategory := map[string][]string{}
	byDrawer := map[string][]string{}
	for _, p := range snap.Parts {
		for _, tag := range p.Tags {
			byTag[tag] = append(byTag[tag], p.ID)
		}
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p.ID)
		if p.DrawerID != "" {
			byDrawer[p.DrawerID] = append(byDrawer[p.DrawerID], p.ID)
		}
	}

	for logical, entries := range map[string]map[string][]string{
		indexByTag:      byTag,
		indexByCategory: byCategory,
		indexByDrawer:   byDrawer,
	} {
		if err := s.writeIndex(ctx, logical, entries, snap.PartsVersion); err != nil {
			return err
		}
	}
	return nil
}

func (s *Searcher) writeIndex(ctx context.Context, logical string, entries map[string][]string, version store.Version) error {
	doc, err := s.indexDoc(logical)
	if err != nil {
		return err
	}
	_, current, err := doc.Load(ctx)
	if store.IsValidation(err) {
		// A corrupt index is a discarded cache, not an error.
		if rmErr := os.Remove(filepath.Join(s.dataDir, filepath.FromSlash(logical))); rmErr != nil {
			return fmt.Errorf("failed to discard corrupt index %s: %w", logical, rmErr)
		}
		current = store.NoVersion
	} else if err != nil {
		return err
	}

	idx := catalog.Index{MasterVersion: string(version), Entries: make([]catalog.IndexEntry, 0, len(entries))}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ids := entries[key]
		sort.Strings(ids)
		idx.Entries = append(idx.Entries, catalog.IndexEntry{Key: key, PartIDs: ids})
	}

	if _, err := doc.Save(ctx, idx, current); err != nil {
		return fmt.Errorf("failed to write %s: %w", logical, err)
	}
	return nil
}

// Stale reports whether any index document exists but was built against an
// older parts file.
func (s *Searcher) Stale(ctx context.Context) (bool, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	for _, logical := range []string{indexByTag, indexByCategory, indexByDrawer} {
		doc, err := s.indexDoc(logical)
		if err != nil {
			return false, err
		}
		idx, version, err := doc.Load(ctx)
		if err != nil {
			return false, err
		}
		if version == store.NoVersion {
			continue
		}
		if idx.MasterVersion != string(snap.PartsVersion) {
			return true, nil
		}
	}
	return false, nil
}
