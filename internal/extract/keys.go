package extract

import (
	"log/slog"
	"strconv"
)

// NoScope is the prefix used when a key is requested before any scope was
// entered. It only shows up as a result of a dispatcher bug.
const NoScope = "no_key"

// KeyAllocator mints hierarchical keys within the current scope.
//
// Enter sets the active prefix and resets the per-scope counter; Next
// increments the counter and returns "prefix.N". Keys minted within one
// scope are therefore suffixed .1, .2, ... in match order.
//
// KeyAllocator is owned by a single Context and is not safe for concurrent
// use; the extraction loop is single-threaded by construction.
type KeyAllocator struct {
	prefix  string
	counter int
	log     *slog.Logger
}

// NewKeyAllocator creates an allocator with no active scope.
func NewKeyAllocator(log *slog.Logger) *KeyAllocator {
	if log == nil {
		log = slog.Default()
	}
	return &KeyAllocator{prefix: NoScope, log: log}
}

// Enter makes prefix the active scope and resets the counter to zero.
func (a *KeyAllocator) Enter(prefix string) {
	a.prefix = prefix
	a.counter = 0
}

// Next increments the counter and returns the next key in the active scope.
func (a *KeyAllocator) Next() string {
	a.counter++
	if a.prefix == NoScope {
		a.log.Error("key requested outside of any scope", "key", NoScope+"."+strconv.Itoa(a.counter))
	}
	return a.prefix + "." + strconv.Itoa(a.counter)
}

// Prefix returns the active scope.
func (a *KeyAllocator) Prefix() string {
	return a.prefix
}

// Count returns how many keys were minted in the active scope.
func (a *KeyAllocator) Count() int {
	return a.counter
}
