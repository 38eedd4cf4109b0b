package extract

import (
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKeyAllocator_ScopesAndCounter(t *testing.T) {
	a := NewKeyAllocator(quietLogger())
	assert.Equal(t, NoScope, a.Prefix())

	a.Enter("item.stick.1.name")
	assert.Equal(t, "item.stick.1.name.1", a.Next())
	assert.Equal(t, "item.stick.1.name.2", a.Next())
	assert.Equal(t, 2, a.Count())

	a.Enter("item.stick.1.lore.0")
	assert.Equal(t, 0, a.Count())
	assert.Equal(t, "item.stick.1.lore.0.1", a.Next())
}

func TestKeyAllocator_NoScopeStillMints(t *testing.T) {
	a := NewKeyAllocator(quietLogger())
	assert.Equal(t, "no_key.1", a.Next())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		esc  Escape
		want string
	}{
		{"plain", "Hello", EscapeNone, "Hello"},
		{"quote", `a\"b`, EscapeNone, `a"b`},
		{"backslash", `a\\b`, EscapeNone, `a\b`},
		{"newline", `a\nb`, EscapeNone, "a\nb"},
		{"unicode", `caf\u00e9`, EscapeNone, "caf\u00e9"},
		{"surrogate pair", `\ud83d\ude00`, EscapeNone, "\U0001F600"},
		{"single escaped quote", `a\\\"b`, EscapeSingle, `a"b`},
		{"single escaped plain", "Hi", EscapeSingle, "Hi"},
		{"double escaped", `a\\\\\\\"b`, EscapeDouble, `a"b`},
		{"invalid unicode kept", `\uZZ`, EscapeNone, `\uZZ`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decode(tc.raw, tc.esc))
		})
	}
}

func TestDecode_IdempotentOnPlainText(t *testing.T) {
	for _, s := range []string{"", "Hello", "Grüße, Welt", "a b c 1 2 3"} {
		once := Decode(s, EscapeNone)
		assert.Equal(t, s, once)
		assert.Equal(t, once, Decode(once, EscapeNone))
	}
}

func TestEscape_Quote(t *testing.T) {
	assert.Equal(t, `"translate":"k.1"`, translateField("k.1", EscapeNone))
	assert.Equal(t, `\"translate\":\"k.1\"`, translateField("k.1", EscapeSingle))
	assert.Equal(t, `\\"translate\\":\\"k.1\\"`, translateField("k.1", EscapeDouble))
}

func TestSubstitute_NoMatchReturnsInput(t *testing.T) {
	m := NewMatcher(0, RunawayComponents, quietLogger())
	called := false
	out, n := m.Substitute(reComponent, `{"translate":"x"}`, func(Match) string {
		called = true
		return ""
	})
	assert.Equal(t, `{"translate":"x"}`, out)
	assert.Zero(t, n)
	assert.False(t, called)
}

func TestSubstitute_DoesNotRescanReplacement(t *testing.T) {
	m := NewMatcher(0, RunawayComponents, quietLogger())
	out, n := m.Substitute(regexp.MustCompile(`a`), "aa", func(Match) string { return "aa" })
	assert.Equal(t, "aaaa", out)
	assert.Equal(t, 2, n)
}

func TestSubstitute_ZeroWidthAdvances(t *testing.T) {
	m := NewMatcher(0, RunawayComponents, quietLogger())
	out, n := m.Substitute(regexp.MustCompile(`x*`), "ab", func(Match) string { return "-" })
	assert.Equal(t, "-a-b-", out)
	assert.Equal(t, 3, n)
}

func TestSubstitute_LoopGuardTrips(t *testing.T) {
	m := NewMatcher(3, RunawayComponents, quietLogger())
	var tripped *RunawayError
	m.onLimit = func(err *RunawayError) { tripped = err }

	out, n := m.Substitute(regexp.MustCompile(`a`), "aaaaa", func(hit Match) string { return hit.Groups[0] })
	assert.Equal(t, "aaaaa", out)
	assert.Zero(t, n)
	require.NotNil(t, tripped)
	assert.Equal(t, RunawayComponents, tripped.Kind)
	assert.Equal(t, 3, tripped.Limit)
	assert.True(t, IsRunaway(tripped))
}

func TestSubstitute_UnlimitedNeverTrips(t *testing.T) {
	m := NewMatcher(Unlimited, RunawayComponents, quietLogger())
	m.onLimit = func(*RunawayError) { t.Fatal("guard must be disabled") }
	out, _ := m.Substitute(regexp.MustCompile(`a`), "aaaaa", func(hit Match) string { return hit.Groups[0] })
	assert.Equal(t, "aaaaa", out)
}

func TestSubstituteOnce_AnchoredAtStart(t *testing.T) {
	m := NewMatcher(0, RunawayComponents, quietLogger())
	repl := func(Match) string { return "X" }

	out, n := m.SubstituteOnce(regexp.MustCompile(`b`), "ab", repl)
	assert.Equal(t, "ab", out)
	assert.Zero(t, n)

	out, n = m.SubstituteOnce(regexp.MustCompile(`a`), "aab", repl)
	assert.Equal(t, "Xab", out)
	assert.Equal(t, 1, n)
}

func TestMatch_Span(t *testing.T) {
	m := NewMatcher(0, RunawayComponents, quietLogger())
	var start, end int
	m.Substitute(reComponent, `x{"text":"Hi"}`, func(hit Match) string {
		start, end = hit.Span(1)
		return "y"
	})
	assert.Equal(t, 10, start)
	assert.Equal(t, 12, end)
}

func TestMacroExtractor(t *testing.T) {
	x := NewMacroExtractor(0, quietLogger())
	tokens, rest := x.Extract("say $(name) and $(count)")
	assert.Equal(t, []string{"$(name)", "$(count)"}, tokens)
	assert.Equal(t, "say [extracted] and [extracted]", rest)

	tokens, rest = x.Extract("no macros")
	assert.Empty(t, tokens)
	assert.Equal(t, "no macros", rest)
}

func TestMacroKey(t *testing.T) {
	assert.Equal(t, "f.1", MacroKey("f.1", nil))
	assert.Equal(t, "f.1.$(a).$(b)", MacroKey("f.1", []string{"$(a)", "$(b)"}))
}

func TestIDSegment(t *testing.T) {
	assert.Equal(t, "stick", idSegment("minecraft:stick"))
	assert.Equal(t, "mod.thing.sub", idSegment("mod:thing/sub"))
	assert.Equal(t, "", idSegment(""))
}

func TestBlockKind(t *testing.T) {
	assert.Equal(t, "sign", blockKind("minecraft:oak_sign"))
	assert.Equal(t, "sign", blockKind("minecraft:sign"))
	assert.Equal(t, "hanging_sign", blockKind("minecraft:cherry_hanging_sign"))
	assert.Equal(t, "shulker_box", blockKind("minecraft:red_shulker_box"))
	assert.Equal(t, "command_block", blockKind("minecraft:chain_command_block"))
	assert.Equal(t, "chest", blockKind("minecraft:chest"))
}
