// Package collection maps uploaded files to named collections and
// manages the lifecycle of the storage partitions behind them.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/docqhq/docq-go/internal/store"
)

var (
	// ErrDuplicate is returned when creating a collection whose name
	// already exists, including names that collide after normalization.
	ErrDuplicate = errors.New("collection: already exists")

	// ErrProtected is returned when deleting one of the default collections.
	ErrProtected = errors.New("collection: default collections cannot be deleted")

	// ErrNotFound is returned when an operation names an unknown collection.
	ErrNotFound = errors.New("collection: not found")
)

// partitionPrefix namespaces the storage partitions owned by this
// service, so a shared backend can host unrelated data alongside ours.
const partitionPrefix = "documents_"

// DefaultNames is the set of collections that always exist and route
// files by type. They cannot be deleted, only cleared.
var DefaultNames = []string{"pdf", "text", "code", "office", "other"}

// extCollections maps lowercase file extensions to default collection names.
var extCollections = map[string]string{
	".pdf": "pdf",

	".txt":      "text",
	".md":       "text",
	".markdown": "text",

	".py":   "code",
	".js":   "code",
	".jsx":  "code",
	".ts":   "code",
	".tsx":  "code",
	".java": "code",
	".cpp":  "code",
	".c":    "code",
	".h":    "code",
	".cs":   "code",
	".go":   "code",
	".rs":   "code",
	".rb":   "code",
	".php":  "code",
	".json": "code",
	".xml":  "code",
	".yaml": "code",
	".yml":  "code",
	".html": "code",
	".css":  "code",

	".docx": "office",
	".doc":  "office",
	".xlsx": "office",
	".xls":  "office",
}

// Classify returns the default collection a filename routes to by its
// extension. Unknown and missing extensions route to "other".
func Classify(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if name, ok := extCollections[ext]; ok {
		return name
	}
	return "other"
}

// Normalize lowercases a collection name and replaces every character
// outside [a-z0-9_] with an underscore, yielding a storage-safe name.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Partition returns the storage partition backing a collection name.
func Partition(name string) string {
	return partitionPrefix + Normalize(name)
}

// IsDefault reports whether name is one of the built-in collections.
func IsDefault(name string) bool {
	for _, d := range DefaultNames {
		if name == d {
			return true
		}
	}
	return false
}

// Info describes one live collection.
type Info struct {
	// Name is the normalized collection name.
	Name string `json:"name"`

	// Count is the number of stored chunks, computed at call time.
	Count int64 `json:"count"`

	// IsDefault marks the built-in collections.
	IsDefault bool `json:"is_default"`
}

// Router owns the collection namespace: it classifies uploads, creates
// and deletes custom collections, and resolves query filters.
type Router struct {
	store store.Store
	log   *slog.Logger
}

// NewRouter returns a Router over the given store.
func NewRouter(s store.Store, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{store: s, log: log}
}

// EnsureDefaults creates the partitions for all default collections.
// Safe to call on every startup.
func (r *Router) EnsureDefaults(ctx context.Context) error {
	for _, name := range DefaultNames {
		if err := r.store.CreatePartition(ctx, Partition(name)); err != nil {
			return fmt.Errorf("collection: ensure default %q: %w", name, err)
		}
	}
	return nil
}

// Route picks the collection an upload lands in. An explicit target
// wins when it names a live collection; an unknown explicit target
// falls back to extension-based classification rather than failing,
// so a typo never loses an upload.
func (r *Router) Route(ctx context.Context, filename, explicit string) (string, error) {
	if explicit != "" {
		name := Normalize(explicit)
		live, err := r.exists(ctx, name)
		if err != nil {
			return "", err
		}
		if live {
			return name, nil
		}
		r.log.WarnContext(ctx, "unknown target collection, routing by file type",
			"requested", explicit, "filename", filename)
	}
	return Classify(filename), nil
}

// Create adds a custom collection. The name is normalized first;
// normalization collisions with existing collections are duplicates.
func (r *Router) Create(ctx context.Context, name string) (string, error) {
	normalized := Normalize(name)
	if normalized == "" || strings.Trim(normalized, "_") == "" {
		return "", fmt.Errorf("collection: invalid name %q", name)
	}

	live, err := r.exists(ctx, normalized)
	if err != nil {
		return "", err
	}
	if live {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, normalized)
	}

	if err := r.store.CreatePartition(ctx, Partition(normalized)); err != nil {
		return "", fmt.Errorf("collection: create %q: %w", normalized, err)
	}
	r.log.InfoContext(ctx, "collection created", "name", normalized)
	return normalized, nil
}

// Delete removes a custom collection and all its content. Default
// collections are protected.
func (r *Router) Delete(ctx context.Context, name string) error {
	normalized := Normalize(name)
	if IsDefault(normalized) {
		return fmt.Errorf("%w: %s", ErrProtected, normalized)
	}

	live, err := r.exists(ctx, normalized)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}

	if err := r.store.DropPartition(ctx, Partition(normalized)); err != nil {
		return fmt.Errorf("collection: delete %q: %w", normalized, err)
	}
	r.log.InfoContext(ctx, "collection deleted", "name", normalized)
	return nil
}

// Clear removes all chunks from one collection, keeping the
// collection itself. Returns the number of chunks removed.
func (r *Router) Clear(ctx context.Context, name string) (int64, error) {
	normalized := Normalize(name)
	live, err := r.exists(ctx, normalized)
	if err != nil {
		return 0, err
	}
	if !live {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}

	n, err := r.store.DeleteAll(ctx, Partition(normalized))
	if err != nil {
		return 0, fmt.Errorf("collection: clear %q: %w", normalized, err)
	}
	r.log.InfoContext(ctx, "collection cleared", "name", normalized, "chunks_removed", n)
	return n, nil
}

// ClearAll empties every live collection. Returns total chunks removed.
func (r *Router) ClearAll(ctx context.Context) (int64, error) {
	names, err := r.names(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, name := range names {
		n, err := r.store.DeleteAll(ctx, Partition(name))
		if err != nil {
			return total, fmt.Errorf("collection: clear all at %q: %w", name, err)
		}
		total += n
	}
	r.log.InfoContext(ctx, "all collections cleared", "chunks_removed", total)
	return total, nil
}

// List returns every live collection with its current chunk count.
// Counts are computed on demand, never cached.
func (r *Router) List(ctx context.Context) ([]Info, error) {
	names, err := r.names(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		count, err := r.store.Count(ctx, Partition(name))
		if err != nil {
			return nil, fmt.Errorf("collection: count %q: %w", name, err)
		}
		infos = append(infos, Info{Name: name, Count: count, IsDefault: IsDefault(name)})
	}
	return infos, nil
}

// Stats returns the Info for a single collection.
func (r *Router) Stats(ctx context.Context, name string) (*Info, error) {
	normalized := Normalize(name)
	live, err := r.exists(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}

	count, err := r.store.Count(ctx, Partition(normalized))
	if err != nil {
		return nil, fmt.Errorf("collection: count %q: %w", normalized, err)
	}
	return &Info{Name: normalized, Count: count, IsDefault: IsDefault(normalized)}, nil
}

// ResolveFilter maps a query's collection filter to the partitions to
// search. A nil or empty filter means every live collection. Filter
// entries that name no live collection are skipped, not rejected, so a
// stale client filter degrades to a narrower search instead of an error.
func (r *Router) ResolveFilter(ctx context.Context, filter []string) ([]string, error) {
	names, err := r.names(ctx)
	if err != nil {
		return nil, err
	}

	if len(filter) == 0 {
		partitions := make([]string, 0, len(names))
		for _, name := range names {
			partitions = append(partitions, Partition(name))
		}
		return partitions, nil
	}

	live := make(map[string]bool, len(names))
	for _, name := range names {
		live[name] = true
	}

	var partitions []string
	seen := make(map[string]bool, len(filter))
	for _, f := range filter {
		name := Normalize(f)
		if !live[name] || seen[name] {
			continue
		}
		seen[name] = true
		partitions = append(partitions, Partition(name))
	}
	return partitions, nil
}

// names lists the live collection names, derived from the store's
// partitions so the router never drifts from actual storage state.
func (r *Router) names(ctx context.Context) ([]string, error) {
	partitions, err := r.store.ListPartitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection: list partitions: %w", err)
	}

	var names []string
	for _, p := range partitions {
		if strings.HasPrefix(p, partitionPrefix) {
			names = append(names, strings.TrimPrefix(p, partitionPrefix))
		}
	}
	return names, nil
}

func (r *Router) exists(ctx context.Context, normalized string) (bool, error) {
	names, err := r.names(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == normalized {
			return true, nil
		}
	}
	return false, nil
}
