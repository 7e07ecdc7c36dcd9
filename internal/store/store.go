// Package store implements the file-backed JSON document store: every
// logical document is one JSON file, validated against its registered
// schema on both read and write, persisted via atomic replace, and guarded
// by an optimistic version token captured at read time.
//
// The store assumes a single logical writer per file at any moment but must
// still detect stale-read-then-write races (two UI tabs, overlapping CLI
// invocations). The version check under a per-file mutex is the sole
// serialization mechanism; readers never block on writers because they only
// ever observe complete files thanks to the atomic rename.
package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zeebo/blake3"

	"github.com/picklight/picklight/internal/schema"
)

// Version is an opaque content token captured at read time and checked at
// write time to detect intervening modifications without holding a lock.
type Version string

// NoVersion is the version of a document that does not exist on disk yet.
const NoVersion Version = ""

func (v Version) short() string {
	if v == NoVersion {
		return "<none>"
	}
	if len(v) > 12 {
		return string(v[:12])
	}
	return string(v)
}

// versionOf derives the version token from raw file bytes.
func versionOf(data []byte) Version {
	sum := blake3.Sum256(data)
	return Version(hex.EncodeToString(sum[:]))
}

// fileLocks serializes the read-validate-write sequence per file path so two
// in-process writers cannot interleave between the version check and the
// rename. Cross-process races are still caught by the version comparison.
var fileLocks sync.Map // map[string]*sync.Mutex

func lockFor(path string) *sync.Mutex {
	mu, _ := fileLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Document is a generic store over a single logical JSON document whose
// payload unmarshals to D (a record list for collections, an object for
// index documents).
type Document[D any] struct {
	path         string // absolute path of the backing file
	logical      string // logical path relative to the data root
	schema       *jsonschema.Schema
	allowMissing bool // missing file loads as the zero payload instead of failing
}

// Option configures a Document.
type Option func(*docConfig)

type docConfig struct {
	allowMissing bool
}

// WithEmptyDefault makes a missing backing file load as an empty document
// with NoVersion instead of returning a NotFoundError. Used for monthly
// movement partitions, which come into existence on first append.
func WithEmptyDefault() Option {
	return func(c *docConfig) {
		c.allowMissing = true
	}
}

// NewDocument binds a document to its backing file under dataDir and its
// schema from the registry. A missing schema mapping is a configuration
// defect and fails construction.
func NewDocument[D any](dataDir, logical string, reg *schema.Registry, opts ...Option) (*Document[D], error) {
	sch, err := reg.Lookup(logical)
	if err != nil {
		return nil, err
	}

	var cfg docConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Document[D]{
		path:         filepath.Join(dataDir, filepath.FromSlash(logical)),
		logical:      logical,
		schema:       sch,
		allowMissing: cfg.allowMissing,
	}, nil
}

// NewCollection binds a record-list document ([]T payload).
func NewCollection[T any](dataDir, logical string, reg *schema.Registry, opts ...Option) (*Document[[]T], error) {
	return NewDocument[[]T](dataDir, logical, reg, opts...)
}

// Logical returns the document's logical path relative to the data root.
func (d *Document[D]) Logical() string {
	return d.logical
}

// Load reads the backing file, validates its full contents against the
// registered schema, and returns the payload plus the version token
// captured at read time.
func (d *Document[D]) Load(ctx context.Context) (D, Version, error) {
	var payload D
	if err := ctx.Err(); err != nil {
		return payload, NoVersion, err
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			if d.allowMissing {
				return payload, NoVersion, nil
			}
			return payload, NoVersion, &NotFoundError{File: d.logical}
		}
		return payload, NoVersion, fmt.Errorf("failed to read %s: %w", d.logical, err)
	}

	if err := d.validate(data); err != nil {
		return payload, NoVersion, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		// Schema passed but the payload shape disagrees with the Go type —
		// surfaced as a validation problem, not swallowed.
		return payload, NoVersion, &ValidationError{File: d.logical, Rule: "document does not match expected record shape", Err: err}
	}

	readsTotal.WithLabelValues(d.logical).Inc()
	return payload, versionOf(data), nil
}

// Save validates the proposed full content against the schema, then
// persists it via atomic replace if and only if the on-disk version still
// matches expectedVersion. Returns the new version token.
//
// A version mismatch returns *ConflictError and leaves the file untouched;
// recovery (reload-and-reapply) is the caller's responsibility.
func (d *Document[D]) Save(ctx context.Context, payload D, expectedVersion Version) (Version, error) {
	if err := ctx.Err(); err != nil {
		return NoVersion, err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return NoVersion, fmt.Errorf("failed to serialize %s: %w", d.logical, err)
	}
	data = append(data, '\n')

	// Validate before touching storage.
	if err := d.validate(data); err != nil {
		return NoVersion, err
	}

	mu := lockFor(d.path)
	mu.Lock()
	defer mu.Unlock()

	current := NoVersion
	if existing, err := os.ReadFile(d.path); err == nil {
		current = versionOf(existing)
	} else if !os.IsNotExist(err) {
		return NoVersion, fmt.Errorf("failed to read current state of %s: %w", d.logical, err)
	}
	if current != expectedVersion {
		conflictsTotal.WithLabelValues(d.logical).Inc()
		return NoVersion, &ConflictError{File: d.logical, Expected: expectedVersion, Actual: current}
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return NoVersion, fmt.Errorf("failed to create directory for %s: %w", d.logical, err)
	}
	// Write to a temporary file in the same directory, then rename into
	// place: a crash mid-write never leaves a truncated file visible.
	if err := renameio.WriteFile(d.path, data, 0644); err != nil {
		return NoVersion, fmt.Errorf("failed to write %s: %w", d.logical, err)
	}

	writesTotal.WithLabelValues(d.logical).Inc()
	return versionOf(data), nil
}

// validate checks raw document bytes against the registered schema.
func (d *Document[D]) validate(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return &ValidationError{File: d.logical, Rule: "malformed JSON", Err: err}
	}
	if err := d.schema.Validate(instance); err != nil {
		path, rule := describeSchemaError(err)
		return &ValidationError{File: d.logical, Path: path, Rule: rule, Err: err}
	}
	return nil
}

// describeSchemaError digs the most specific cause out of a jsonschema
// validation error so the message names the offending field, not just the
// document root.
func describeSchemaError(err error) (path, rule string) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return "", err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.InstanceLocation, ve.Message
}

// Append loads a record-list document, appends the record and saves under
// the loaded version token. A concurrent append to the same file surfaces
// as *ConflictError for the caller to retry.
func Append[T any](ctx context.Context, d *Document[[]T], record T) error {
	records, version, err := d.Load(ctx)
	if err != nil {
		return err
	}
	records = append(records, record)
	if _, err := d.Save(ctx, records, version); err != nil {
		return err
	}
	return nil
}
