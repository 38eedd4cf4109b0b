package extract

import (
	"log/slog"
	"regexp"
	"strings"
)

// MacroPlaceholder replaces each extracted macro token, so the remaining text
// stays a syntactically valid component for later matching.
const MacroPlaceholder = "[extracted]"

var macroToken = regexp.MustCompile(`\$\([^()]+\)`)

// MacroExtractor isolates function-macro substitutions such as $(name).
type MacroExtractor struct {
	matcher *Matcher
}

// NewMacroExtractor creates an extractor whose loop guard trips after limit
// non-progressing iterations (0 = DefaultLoopLimit, Unlimited = off).
func NewMacroExtractor(limit int, log *slog.Logger) *MacroExtractor {
	return &MacroExtractor{matcher: NewMatcher(limit, RunawayMacros, log)}
}

// Extract returns the macro tokens of text in left-to-right order and the
// text with every token replaced by MacroPlaceholder.
func (x *MacroExtractor) Extract(text string) ([]string, string) {
	var tokens []string
	out, _ := x.matcher.Substitute(macroToken, text, func(m Match) string {
		tokens = append(tokens, m.Groups[0])
		return MacroPlaceholder
	})
	return tokens, out
}

// MacroKey joins base with the literal macro tokens using ".". Two lines
// that differ only in the macros they reference get distinct keys.
func MacroKey(base string, tokens []string) string {
	if len(tokens) == 0 {
		return base
	}
	return base + "." + strings.Join(tokens, ".")
}
