// Package nbt reads and writes Minecraft Java Edition Named Binary Tag data.
//
// Trees are fully typed: every value keeps its on-disk tag type and compound
// entries keep their on-disk order, so a document that is read, partially
// rewritten and written back differs only in the rewritten fields.
//
// Lookups never fail on missing fields. TryGet and the typed accessors on
// Compound return ok=false when any step of a path is absent or has an
// unexpected type, which lets callers probe several schema revisions of the
// same structure without error handling.
package nbt
