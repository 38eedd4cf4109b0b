package extract

import (
	"log/slog"
	"regexp"
	"unicode/utf8"
)

// DefaultLoopLimit bounds consecutive non-progressing iterations of the
// matcher and the macro extractor when no limit is configured.
const DefaultLoopLimit = 200

// Unlimited disables the loop guard.
const Unlimited = -1

// Match is one regular expression match within the text being rewritten.
// Groups holds the full match followed by the capture groups, as in
// regexp.FindStringSubmatch; Index holds their byte offsets.
type Match struct {
	Groups []string
	Index  []int
}

// Span returns the byte offsets of group i, or -1, -1 if it did not take part.
func (m Match) Span(i int) (int, int) {
	return m.Index[2*i], m.Index[2*i+1]
}

// ReplaceFunc returns the replacement for one match.
type ReplaceFunc func(m Match) string

// Matcher performs forward-only substitution with a loop guard.
//
// The zero value is not usable; create one with NewMatcher.
type Matcher struct {
	limit   int
	kind    RunawayKind
	log     *slog.Logger
	onLimit func(*RunawayError)
}

// NewMatcher creates a matcher whose guard trips after limit consecutive
// iterations that leave the string unchanged. limit 0 selects
// DefaultLoopLimit, Unlimited disables the guard.
func NewMatcher(limit int, kind RunawayKind, log *slog.Logger) *Matcher {
	if limit == 0 {
		limit = DefaultLoopLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Matcher{limit: limit, kind: kind, log: log}
}

// Substitute replaces every non-overlapping match of re in text.
//
// Each search resumes at the end of the previously inserted replacement, so
// replacement text is never matched again. After a zero-width match the
// search also skips one rune of the original text. Returns the rewritten
// text and the number of matches whose replacement differed from the
// matched text. Without a match the input is returned unchanged.
func (m *Matcher) Substitute(re *regexp.Regexp, text string, repl ReplaceFunc) (string, int) {
	out := text
	pos := 0
	changed := 0
	stalls := 0

	for pos <= len(out) {
		loc := re.FindStringSubmatchIndex(out[pos:])
		if loc == nil {
			break
		}
		start, end := loc[0]+pos, loc[1]+pos
		hit := newMatch(out, loc, pos)
		rep := repl(hit)

		out = out[:start] + rep + out[end:]
		next := start + len(rep)

		if rep == hit.Groups[0] {
			stalls++
			if m.limit != Unlimited && stalls >= m.limit {
				m.trip(text)
				break
			}
		} else {
			changed++
			stalls = 0
		}

		if end == start {
			if next >= len(out) {
				break
			}
			_, size := utf8.DecodeRuneInString(out[next:])
			next += size
		}
		pos = next
	}
	return out, changed
}

// SubstituteOnce replaces a single match that must begin at the start of
// text. Used for values that are entirely one literal.
func (m *Matcher) SubstituteOnce(re *regexp.Regexp, text string, repl ReplaceFunc) (string, int) {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil || loc[0] != 0 {
		return text, 0
	}
	hit := newMatch(text, loc, 0)
	rep := repl(hit)
	if rep == hit.Groups[0] {
		return text, 0
	}
	return rep + text[loc[1]:], 1
}

func (m *Matcher) trip(text string) {
	err := &RunawayError{Kind: m.kind, Text: text, Limit: m.limit}
	m.log.Warn("substitution stopped making progress", "kind", string(m.kind), "limit", m.limit, "text", text)
	if m.onLimit != nil {
		m.onLimit(err)
	}
}

func newMatch(s string, loc []int, offset int) Match {
	m := Match{Groups: make([]string, len(loc)/2), Index: make([]int, len(loc))}
	for i := range m.Groups {
		a, b := loc[2*i], loc[2*i+1]
		if a < 0 {
			m.Index[2*i], m.Index[2*i+1] = -1, -1
			continue
		}
		m.Index[2*i], m.Index[2*i+1] = a+offset, b+offset
		m.Groups[i] = s[a+offset : b+offset]
	}
	return m
}
