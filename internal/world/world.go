// Package world exposes a Java Edition save directory as an ordered sequence
// of chunk and entity records.
//
// Records are enumerated per dimension in a fixed order (overworld, nether,
// end, then custom dimensions by name) and, within a dimension, by ascending
// chunk position with the terrain chunk before the entity chunk of the same
// position. Decoded region files are kept in a bounded LRU cache; a region
// evicted while dirty is written back before it is dropped.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/worldtext/internal/anvil"
	"github.com/roach88/worldtext/internal/fsutil"
	"github.com/roach88/worldtext/internal/nbt"
)

// DefaultCacheSize is the number of region files kept decoded at once.
const DefaultCacheSize = 64

// ErrNotAWorld is returned when a directory has no level.dat.
var ErrNotAWorld = errors.New("not a world save: level.dat missing")

// Kind distinguishes terrain chunks from entity chunks.
type Kind string

const (
	KindChunk    Kind = "chunk"
	KindEntities Kind = "entities"
)

// subdir returns the region directory holding records of this kind.
func (k Kind) subdir() string {
	if k == KindEntities {
		return "entities"
	}
	return "region"
}

// Handle identifies one record.
type Handle struct {
	Dim  string
	Kind Kind
	Pos  anvil.Pos
}

func (h Handle) String() string {
	return fmt.Sprintf("%s/%s[%d,%d]", h.Dim, h.Kind, h.Pos.X, h.Pos.Z)
}

// Dimension is one dimension folder of the save.
type Dimension struct {
	Name string // e.g. "minecraft:overworld"
	Dir  string // relative to the save root; "" for the overworld
}

// Options configures Open.
type Options struct {
	CacheSize int
	Logger    *slog.Logger
}

// World is an opened save directory. It is not safe for concurrent use.
type World struct {
	root  string
	dims  []Dimension
	byDim map[string]Dimension
	cache *lru.Cache[string, *anvil.Region]
	log   *slog.Logger

	// evictErr keeps the first write-back failure of an evicted region until
	// the next Flush reports it.
	evictErr error
}

// Open opens the save at root.
func Open(root string, opts Options) (*World, error) {
	if _, err := os.Stat(filepath.Join(root, "level.dat")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotAWorld)
		}
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	w := &World{root: root, log: log, byDim: map[string]Dimension{}}
	cache, err := lru.NewWithEvict[string, *anvil.Region](size, w.onEvict)
	if err != nil {
		return nil, err
	}
	w.cache = cache

	dims, err := discover(root)
	if err != nil {
		return nil, err
	}
	w.dims = dims
	for _, d := range dims {
		w.byDim[d.Name] = d
	}
	return w, nil
}

func (w *World) onEvict(path string, r *anvil.Region) {
	if !r.Dirty() {
		return
	}
	if err := r.Save(); err != nil {
		w.log.Error("failed to save evicted region", "path", path, "error", err)
		if w.evictErr == nil {
			w.evictErr = fmt.Errorf("save %s: %w", path, err)
		}
		return
	}
	w.log.Debug("saved evicted region", "path", path)
}

// discover lists the dimensions present under root.
func discover(root string) ([]Dimension, error) {
	candidates := []Dimension{
		{Name: "minecraft:overworld", Dir: ""},
		{Name: "minecraft:the_nether", Dir: "DIM-1"},
		{Name: "minecraft:the_end", Dir: "DIM1"},
	}

	var custom []Dimension
	nsDirs, err := os.ReadDir(filepath.Join(root, "dimensions"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for _, ns := range nsDirs {
		if !ns.IsDir() {
			continue
		}
		names, err := os.ReadDir(filepath.Join(root, "dimensions", ns.Name()))
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if n.IsDir() {
				custom = append(custom, Dimension{
					Name: ns.Name() + ":" + n.Name(),
					Dir:  filepath.Join("dimensions", ns.Name(), n.Name()),
				})
			}
		}
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })

	var out []Dimension
	for _, d := range append(candidates, custom...) {
		if isDir(filepath.Join(root, d.Dir, "region")) || isDir(filepath.Join(root, d.Dir, "entities")) {
			out = append(out, d)
		}
	}
	return out, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Root returns the save directory.
func (w *World) Root() string {
	return w.root
}

// Dimensions returns the dimension names in traversal order.
func (w *World) Dimensions() []string {
	out := make([]string, len(w.dims))
	for i, d := range w.dims {
		out[i] = d.Name
	}
	return out
}

// Records returns the handles of every chunk and entity chunk stored in dim,
// in traversal order.
func (w *World) Records(dim string) ([]Handle, error) {
	d, ok := w.byDim[dim]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	var out []Handle
	for _, kind := range []Kind{KindChunk, KindEntities} {
		dir := filepath.Join(w.root, d.Dir, kind.subdir())
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if _, ok := anvil.ParseFileName(e.Name()); !ok || e.IsDir() {
				continue
			}
			r, err := w.region(filepath.Join(dir, e.Name()))
			if err != nil {
				w.log.Error("skipping unreadable region", "path", filepath.Join(dir, e.Name()), "error", err)
				continue
			}
			for _, p := range r.Chunks() {
				out = append(out, Handle{Dim: dim, Kind: kind, Pos: p})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos.Less(out[j].Pos)
		}
		return out[i].Kind == KindChunk && out[j].Kind == KindEntities
	})
	return out, nil
}

func (w *World) regionPath(h Handle) (string, error) {
	d, ok := w.byDim[h.Dim]
	if !ok {
		return "", fmt.Errorf("unknown dimension %q", h.Dim)
	}
	return filepath.Join(w.root, d.Dir, h.Kind.subdir(), anvil.FileName(anvil.RegionOf(h.Pos))), nil
}

func (w *World) region(path string) (*anvil.Region, error) {
	if r, ok := w.cache.Get(path); ok {
		return r, nil
	}
	r, err := anvil.Open(path)
	if err != nil {
		return nil, err
	}
	w.cache.Add(path, r)
	return r, nil
}

// Read decodes the record behind h.
func (w *World) Read(h Handle) (*nbt.Compound, error) {
	path, err := w.regionPath(h)
	if err != nil {
		return nil, err
	}
	r, err := w.region(path)
	if err != nil {
		return nil, err
	}
	root, err := r.ReadChunk(h.Pos)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h, err)
	}
	return root, nil
}

// Write replaces the record behind h. The region is saved on the next
// Flush, or earlier if it is evicted from the cache.
func (w *World) Write(h Handle, root *nbt.Compound) error {
	path, err := w.regionPath(h)
	if err != nil {
		return err
	}
	r, err := w.region(path)
	if err != nil {
		return err
	}
	if err := r.WriteChunk(h.Pos, root); err != nil {
		return fmt.Errorf("%s: %w", h, err)
	}
	return nil
}

// Flush saves every cached region that has changed.
func (w *World) Flush() error {
	var errs []error
	if w.evictErr != nil {
		errs = append(errs, w.evictErr)
		w.evictErr = nil
	}
	for _, r := range w.cache.Values() {
		if err := r.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", r.Path(), err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and drops the cache.
func (w *World) Close() error {
	err := w.Flush()
	w.cache.Purge()
	return err
}

// Backup copies the save at root into dst, which must not exist yet.
func Backup(root, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup destination %s already exists", dst)
	}
	if err := fsutil.CopyTree(root, dst); err != nil {
		return fmt.Errorf("backup %s: %w", root, err)
	}
	return nil
}
