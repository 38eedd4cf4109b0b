package extract

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Escape is how many layers of string escaping surround a matched component.
type Escape int

const (
	// EscapeNone: the component appears directly, "text":"...".
	EscapeNone Escape = iota
	// EscapeSingle: the component is inside one string literal, \"text\":\"...\".
	EscapeSingle
	// EscapeDouble: the component is written with doubled backslashes,
	// \\"text\\":\\"...\\".
	EscapeDouble
)

func (e Escape) String() string {
	switch e {
	case EscapeNone:
		return "none"
	case EscapeSingle:
		return "single"
	case EscapeDouble:
		return "double"
	}
	return "escape(" + strconv.Itoa(int(e)) + ")"
}

// quote returns the quote character as it appears at this escape level.
func (e Escape) quote() string {
	switch e {
	case EscapeSingle:
		return `\"`
	case EscapeDouble:
		return `\\"`
	}
	return `"`
}

// Occurrence is one matched text fragment.
type Occurrence struct {
	Plain  string // decoded text, the value stored in the key table
	Raw    string // matched substring as it appeared in the source
	Escape Escape
	Start  int
	End    int
}

// NewOccurrence decodes raw at the given escape level.
func NewOccurrence(raw string, esc Escape, start, end int) Occurrence {
	return Occurrence{Plain: Decode(raw, esc), Raw: raw, Escape: esc, Start: start, End: end}
}

// Decode turns the captured body of a string literal into plain text. The
// body of a literal at escape level L is escaped L+1 times, so one unescape
// pass is applied per layer, outermost first. A string without backslashes
// decodes to itself.
func Decode(raw string, esc Escape) string {
	s := raw
	for i := 0; i <= int(esc); i++ {
		s = unescape(s)
	}
	return s
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			r, n := unicodeEscape(s[i-1:])
			if n == 0 {
				b.WriteString(`\u`)
				continue
			}
			b.WriteRune(r)
			i += n - 2
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// unicodeEscape decodes \uXXXX (and a following low surrogate) at the start
// of s. It returns the rune and the number of bytes consumed, 0 if invalid.
func unicodeEscape(s string) (rune, int) {
	hi, ok := hex4(s)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(rune(hi)) {
		if lo, ok := hex4(s[6:]); ok {
			if r := utf16.DecodeRune(rune(hi), rune(lo)); r != unicode.ReplacementChar {
				return r, 12
			}
		}
	}
	return rune(hi), 6
}

func hex4(s string) (uint16, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[2:6], 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// translateField renders "translate":"key" at the given escape level.
func translateField(key string, esc Escape) string {
	q := esc.quote()
	return q + "translate" + q + ":" + q + key + q
}

// translateObject renders {"translate":"key"} for contexts that expect a
// whole component.
func translateObject(key string) string {
	return `{"translate":"` + key + `"}`
}
