package extract

import (
	"log/slog"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Entry is one key-table row.
type Entry struct {
	Seq      int64    // mint order, starting at 1; 0 for seeded rows
	Key      string   // translation key
	Text     string   // plain text
	Category Category // category of the first occurrence; empty for seeded rows
	First    bool     // whether Key is the first key of Text
}

// Source tells how Resolve arrived at a key.
type Source string

const (
	SourceDefault Source = "default"
	SourceEmpty   Source = "empty"
	SourceReused  Source = "reused"
	SourceMinted  Source = "minted"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Defaults maps literal text to a fixed key. Matching text never mints.
	Defaults map[string]string

	// EmptyKey, when set, is the key every empty text resolves to.
	EmptyKey string

	// Normalize applies Unicode NFC to text before lookup and storage.
	Normalize bool

	// OnMint is called for every newly minted key, in mint order.
	OnMint func(Entry)

	Logger *slog.Logger
}

// Registry maps text to keys and keys to text.
//
// INVARIANTS:
//   - every key appears at most once in the key table
//   - firstKey holds at most one key per distinct text: the earliest key ever
//     registered for it, regardless of later dedup decisions
//   - a key, once registered, is never removed or re-pointed
type Registry struct {
	alloc    *KeyAllocator
	defaults map[string]string
	emptyKey string
	norm     bool
	onMint   func(Entry)
	log      *slog.Logger

	firstKey map[string]string
	keyText  map[string]string
	keyCat   map[string]Category
	order    []string
	seq      int64
}

// NewRegistry creates a registry minting keys from alloc. Default keys are
// seeded in text order, followed by the empty-text sentinel.
func NewRegistry(alloc *KeyAllocator, opts RegistryOptions) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		alloc:    alloc,
		defaults: make(map[string]string, len(opts.Defaults)),
		emptyKey: opts.EmptyKey,
		norm:     opts.Normalize,
		onMint:   opts.OnMint,
		log:      log,
		firstKey: make(map[string]string),
		keyText:  make(map[string]string),
		keyCat:   make(map[string]Category),
	}

	texts := make([]string, 0, len(opts.Defaults))
	for text := range opts.Defaults {
		texts = append(texts, text)
	}
	sort.Strings(texts)
	for _, text := range texts {
		key := opts.Defaults[text]
		text = r.normalize(text)
		r.defaults[text] = key
		r.seed(text, key)
	}
	if r.emptyKey != "" {
		r.seed("", r.emptyKey)
	}
	return r
}

func (r *Registry) seed(text, key string) {
	if _, taken := r.keyText[key]; !taken {
		r.keyText[key] = text
		r.order = append(r.order, key)
	}
	if _, seen := r.firstKey[text]; !seen {
		r.firstKey[text] = key
	}
}

func (r *Registry) normalize(text string) string {
	if r.norm {
		return norm.NFC.String(text)
	}
	return text
}

// Resolve returns the key for one occurrence of plain in category cat.
//
//  1. text in the default table: the fixed key, not new
//  2. empty text with an empty-key sentinel: the sentinel, not new
//  3. text seen before and dedup allowed: the first key, not new
//  4. otherwise: mint the next key of the active scope (extended with the
//     macro tokens, if any), register it, new
func (r *Registry) Resolve(plain string, cat Category, dedup bool, tokens []string) (string, Source) {
	plain = r.normalize(plain)

	if key, ok := r.defaults[plain]; ok {
		return key, SourceDefault
	}
	if plain == "" && r.emptyKey != "" {
		return r.emptyKey, SourceEmpty
	}
	if first, ok := r.firstKey[plain]; ok && dedup {
		return first, SourceReused
	}

	key := r.mint(tokens)
	first := false
	if _, ok := r.firstKey[plain]; !ok {
		r.firstKey[plain] = key
		first = true
	}
	r.keyText[key] = plain
	r.keyCat[key] = cat
	r.order = append(r.order, key)
	r.seq++

	if r.onMint != nil {
		r.onMint(Entry{Seq: r.seq, Key: key, Text: plain, Category: cat, First: first})
	}
	return key, SourceMinted
}

// mint draws keys until one is unused. Collisions only happen when two
// scopes share a prefix, which is a naming bug worth a warning.
func (r *Registry) mint(tokens []string) string {
	for {
		key := MacroKey(r.alloc.Next(), tokens)
		if _, taken := r.keyText[key]; !taken {
			return key
		}
		r.log.Warn("key already registered, skipping", "key", key)
	}
}

// Lookup returns the text registered under key.
func (r *Registry) Lookup(key string) (string, bool) {
	text, ok := r.keyText[key]
	return text, ok
}

// FirstKey returns the earliest key registered for text.
func (r *Registry) FirstKey(text string) (string, bool) {
	key, ok := r.firstKey[r.normalize(text)]
	return key, ok
}

// Len returns the number of keys in the raw table.
func (r *Registry) Len() int {
	return len(r.order)
}

// Minted returns how many keys were minted (seeded rows excluded).
func (r *Registry) Minted() int64 {
	return r.seq
}

// Raw returns every key in registration order.
func (r *Registry) Raw() []Entry {
	out := make([]Entry, 0, len(r.order))
	var seq int64
	for _, key := range r.order {
		text := r.keyText[key]
		cat, minted := r.keyCat[key]
		e := Entry{Key: key, Text: text, Category: cat, First: r.firstKey[text] == key}
		if minted {
			seq++
			e.Seq = seq
		}
		out = append(out, e)
	}
	return out
}

// Merged returns the raw table reduced to first keys: every key whose text
// was registered earlier under another key is dropped.
func (r *Registry) Merged() []Entry {
	raw := r.Raw()
	out := raw[:0]
	for _, e := range raw {
		if e.First {
			out = append(out, e)
		}
	}
	return out
}
