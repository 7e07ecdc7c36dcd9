package catalog

import "fmt"

// IndexEntry maps one key (tag, category or drawer id) to the ids of
// the parts referencing it. Which id kind the key holds depends on the
// index document the entry lives in.
type IndexEntry struct {
	Key     string   `json:"key"`
	PartIDs []string `json:"partIds"`
}

// Validate checks if the IndexEntry has valid field values.
func (e *IndexEntry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("index entry key cannot be empty")
	}
	for i, id := range e.PartIDs {
		if id == "" {
			return fmt.Errorf("index entry %q: part id at index %d cannot be empty", e.Key, i)
		}
	}
	return nil
}

// Index is a derived, regenerable lookup document. MasterVersion is the
// version token of parts.json at the time the index was built; when it no
// longer matches the live parts file the index is stale and must not be
// used.
type Index struct {
	MasterVersion string       `json:"masterVersion"`
	Entries       []IndexEntry `json:"entries"`
}

// Validate checks if the Index has valid field values.
func (x *Index) Validate() error {
	if x.MasterVersion == "" {
		return fmt.Errorf("index masterVersion cannot be empty")
	}
	seen := make(map[string]bool, len(x.Entries))
	for _, e := range x.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if seen[e.Key] {
			return fmt.Errorf("duplicate index entry key: %q", e.Key)
		}
		seen[e.Key] = true
	}
	return nil
}

// Lookup returns the part ids recorded for key, or nil if absent.
func (x *Index) Lookup(key string) []string {
	for i := range x.Entries {
		if x.Entries[i].Key == key {
			return x.Entries[i].PartIDs
		}
	}
	return nil
}
