// Package extract implements the key-assignment and text-rewriting engine.
//
// The engine walks decoded world records (chunks, entity chunks, scoreboard,
// level data, structure templates, data-pack text files), finds text
// components in the fields that can hold them, and replaces each fragment
// with a translate reference to a key. The key and its text are recorded in
// a Registry that is later exported as a language table.
//
// ARCHITECTURE:
//
// Single-Writer Walk:
// One Context owns every piece of mutable state: the KeyAllocator, the
// Registry, the occurrence Counters, the Matcher and the MacroExtractor.
// Records are handed to it one at a time, in the order the caller reads
// them. This ensures:
// - Keys are assigned in discovery order
// - Re-running over an unmodified world reproduces the same keys
// - No locking anywhere
//
// Record Processing Flow:
// 1. The caller passes a record to Chunk, EntityChunk, Scoreboard, Level,
//    Structure or DataFile
// 2. The record is dispatched by type (item, entity, block entity kind)
// 3. Each text field enters a key scope such as item.stick.1.name
// 4. The field's rules run in order; every match resolves to a key
// 5. The rewritten string is written back into the record in place
// 6. The record's occurrence counter advances iff a field was rewritten
//
// KEY RULES:
//
// Dedup: a category whose dedup flag is set reuses the first key ever seen
// for identical text. Otherwise every occurrence mints a new key and the
// merged table later collapses keys sharing one text.
//
// Defaults: text listed in the default key table always resolves to its
// fixed key and never mints.
//
// Uniqueness: a key, once minted, is never reassigned to other text.
package extract
