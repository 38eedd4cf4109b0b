package extract

import (
	"log/slog"
)

// Options configures an extraction context. All values are read once at
// construction.
type Options struct {
	// Policy holds the per-category dedup flags.
	Policy Policy

	// DefaultKeys maps literal text to a fixed key.
	DefaultKeys map[string]string

	// ComponentsMax bounds non-progressing matcher iterations
	// (0 = DefaultLoopLimit, Unlimited = off).
	ComponentsMax int

	// MacrosMax bounds non-progressing macro extractor iterations.
	MacrosMax int

	// EmptyTextKey, when set, is the key every empty text maps to.
	EmptyTextKey string

	// NormalizeText applies Unicode NFC to text before keying.
	NormalizeText bool

	// LegacySpawners selects the pre-1.18 spawner layout.
	LegacySpawners bool

	// OnMint receives every newly minted key in order.
	OnMint func(Entry)

	Logger *slog.Logger
}

// Stats summarises what a context has done so far.
type Stats struct {
	Rewrites int64 // fragments replaced by a translate reference
	Reused   int64 // rewrites that reused an existing key
	Defaults int64 // rewrites that used a default key
	Runaways int   // loop guard trips
	Records  int64 // top-level records handed to the dispatcher
	Changed  int64 // top-level records that were modified
}

// Context is the per-run extraction state: key allocator, registry,
// occurrence counters, matcher and macro extractor. It replaces the
// process-wide tables of a script with one value owned by the caller.
//
// A Context is not safe for concurrent use; records are processed strictly
// in order so that key assignment is reproducible.
type Context struct {
	policy         Policy
	legacySpawners bool
	log            *slog.Logger

	keys     *KeyAllocator
	reg      *Registry
	counters *Counters
	matcher  *Matcher
	macros   *MacroExtractor

	stats    Stats
	runaways []*RunawayError
}

// New creates an extraction context.
func New(opts Options) *Context {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = Policy{}
	}

	c := &Context{
		policy:         policy,
		legacySpawners: opts.LegacySpawners,
		log:            log,
		keys:           NewKeyAllocator(log),
		counters:       NewCounters(),
		matcher:        NewMatcher(opts.ComponentsMax, RunawayComponents, log),
		macros:         NewMacroExtractor(opts.MacrosMax, log),
	}
	c.reg = NewRegistry(c.keys, RegistryOptions{
		Defaults:  opts.DefaultKeys,
		EmptyKey:  opts.EmptyTextKey,
		Normalize: opts.NormalizeText,
		OnMint:    opts.OnMint,
		Logger:    log,
	})
	c.matcher.onLimit = c.onRunaway
	c.macros.matcher.onLimit = c.onRunaway
	return c
}

func (c *Context) onRunaway(err *RunawayError) {
	c.stats.Runaways++
	c.runaways = append(c.runaways, err)
}

// Runaways returns every loop guard trip so far.
func (c *Context) Runaways() []*RunawayError {
	return c.runaways
}

// Registry returns the key registry.
func (c *Context) Registry() *Registry {
	return c.reg
}

// Stats returns a snapshot of the counters.
func (c *Context) Stats() Stats {
	return c.stats
}

// SetLegacySpawners switches the spawner layout, typically after reading the
// world's data version.
func (c *Context) SetLegacySpawners(legacy bool) {
	c.legacySpawners = legacy
}

// LegacySpawners reports the active spawner layout.
func (c *Context) LegacySpawners() bool {
	return c.legacySpawners
}

// enter starts a new key scope.
func (c *Context) enter(prefix string) {
	c.keys.Enter(prefix)
}

// record counts one top-level record and whether it changed.
func (c *Context) record(changed bool) bool {
	c.stats.Records++
	if changed {
		c.stats.Changed++
	}
	return changed
}
