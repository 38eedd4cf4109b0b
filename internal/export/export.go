// Package export writes key tables as JSON language files.
//
// The output follows the layout of Python's json.dumps so that tables
// produced by this tool diff cleanly against tables produced by older
// tooling: ", " and ": " separators on one line, "," and ": " when
// indented, lowercase \uXXXX escapes when ASCII output is requested.
package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/roach88/worldtext/internal/extract"
	"github.com/roach88/worldtext/internal/fsutil"
)

// Suffixes appended to the output base path.
const (
	RawSuffix    = "_original.json"
	MergedSuffix = "_cleared.json"
)

// Pair is one row of a key table.
type Pair struct {
	Key  string
	Text string
}

// Pairs converts registry entries to table rows, keeping their order.
func Pairs(entries []extract.Entry) []Pair {
	out := make([]Pair, len(entries))
	for i, e := range entries {
		out[i] = Pair{Key: e.Key, Text: e.Text}
	}
	return out
}

// Writer formats key tables.
type Writer struct {
	// Indent is the number of spaces per level. Negative writes a single
	// line; zero writes one row per line without indentation.
	Indent int

	// EnsureASCII escapes every non-ASCII character as \uXXXX.
	EnsureASCII bool

	// SortKeys orders rows by key instead of insertion order.
	SortKeys bool
}

// Encode renders rows as a JSON object.
func (w Writer) Encode(rows []Pair) []byte {
	if w.SortKeys {
		rows = append([]Pair(nil), rows...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	}

	var buf bytes.Buffer
	if len(rows) == 0 {
		buf.WriteString("{}")
		return buf.Bytes()
	}

	sep, nl := ", ", ""
	if w.Indent >= 0 {
		sep, nl = ",", "\n"+strings.Repeat(" ", w.Indent)
	}
	buf.WriteByte('{')
	for i, r := range rows {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(nl)
		w.quote(&buf, r.Key)
		buf.WriteString(": ")
		w.quote(&buf, r.Text)
	}
	if w.Indent >= 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Render writes the encoded rows to out.
func (w Writer) Render(out io.Writer, rows []Pair) error {
	_, err := out.Write(w.Encode(rows))
	return err
}

// WriteFile atomically replaces path with the encoded rows.
func (w Writer) WriteFile(path string, rows []Pair) error {
	if err := fsutil.WriteFileAtomic(path, w.Encode(rows)); err != nil {
		return fmt.Errorf("write key table %s: %w", path, err)
	}
	return nil
}

// Paths returns the raw and merged table paths for an output base.
func Paths(base string) (raw, merged string) {
	return base + RawSuffix, base + MergedSuffix
}

// WriteTables writes the raw table (every entry) and the merged table (first
// key per text) next to base. entries is a registry's Raw table, either live
// or rebuilt from a run journal.
func (w Writer) WriteTables(base string, entries []extract.Entry) error {
	raw, merged := Paths(base)
	if err := w.WriteFile(raw, Pairs(entries)); err != nil {
		return err
	}
	return w.WriteFile(merged, Pairs(Merged(entries)))
}

// Merged keeps the entries that hold the first key of their text.
func Merged(entries []extract.Entry) []extract.Entry {
	var out []extract.Entry
	for _, e := range entries {
		if e.First {
			out = append(out, e)
		}
	}
	return out
}

const hexDigits = "0123456789abcdef"

func (w Writer) quote(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			default:
				if c < 0x20 || (w.EnsureASCII && c == 0x7f) {
					writeU(buf, rune(c))
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if !w.EnsureASCII {
			buf.WriteRune(r)
			continue
		}
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			writeU(buf, hi)
			writeU(buf, lo)
			continue
		}
		writeU(buf, r)
	}
	buf.WriteByte('"')
}

func writeU(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[r>>12&0xf])
	buf.WriteByte(hexDigits[r>>8&0xf])
	buf.WriteByte(hexDigits[r>>4&0xf])
	buf.WriteByte(hexDigits[r&0xf])
}
