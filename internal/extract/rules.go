package extract

import (
	"regexp"
	"strings"
)

// Text fragments are located with regular expressions rather than a JSON
// parser. Nested components whose text contains unbalanced quotes or braces
// can defeat the patterns; such fragments are left untouched.
var (
	reComponent      = regexp.MustCompile(`"text" *: *"((?:[^"\\]|\\\\"|\\.)*)"`)
	reComponentPlain = regexp.MustCompile(`^"((?:[^"\\]|\\\\"|\\.)*)"$`)
	reComponentEsc   = regexp.MustCompile(`\\"text\\" *: *\\"((?:[^"\\]|\\\\.)*)\\"`)
	reComponentEsc2  = regexp.MustCompile(`\\\\"text\\\\" *: *\\\\"((?:[^"\\]|\\\\.)*)\\\\"`)
	reContents       = regexp.MustCompile(`"contents":"((?:[^"\\]|\\\\"|\\.)*)"`)
	reBossbarSet     = regexp.MustCompile(`bossbar set ([^ ]+) name "(.*)"`)
	reBossbarAdd     = regexp.MustCompile(`bossbar add ([^ ]+) "(.*)"`)
	reAdvTitle       = regexp.MustCompile(`"title" *: *"((?:[^"\\]|\\\\"|\\.)*)"`)
	reAdvDescription = regexp.MustCompile(`"description" *: *"((?:[^"\\]|\\\\"|\\.)*)"`)
	reSelectorName   = regexp.MustCompile(`name=`)
)

// rule is one pattern and how to render its replacement.
type rule struct {
	name   string
	re     *regexp.Regexp
	once   bool   // anchored single match instead of a global scan
	group  int    // capture group holding the text
	escape Escape // escaping level of the captured text
	macros bool   // fold macro tokens into the key on macro lines

	// category overrides the caller's category, e.g. advancement fields
	// found while scanning a data-pack file.
	category Category

	render func(m Match, key string) string
}

func renderField(esc Escape) func(Match, string) string {
	return func(_ Match, key string) string { return translateField(key, esc) }
}

var (
	rulePlain = rule{
		name: "plain", re: reComponentPlain, once: true, group: 1,
		render: func(_ Match, key string) string { return translateObject(key) },
	}
	ruleComponent = rule{
		name: "text", re: reComponent, group: 1, macros: true,
		render: renderField(EscapeNone),
	}
	ruleComponentEsc = rule{
		name: "text_escaped", re: reComponentEsc, group: 1, escape: EscapeSingle, macros: true,
		render: renderField(EscapeSingle),
	}
	ruleComponentEsc2 = rule{
		name: "text_double_escaped", re: reComponentEsc2, group: 1, escape: EscapeDouble, macros: true,
		render: renderField(EscapeDouble),
	}
	ruleContents = rule{
		name: "contents", re: reContents, group: 1,
		render: func(_ Match, key string) string { return `"contents":` + translateObject(key) },
	}
	ruleBossbarSet = rule{
		name: "bossbar_set", re: reBossbarSet, group: 2, macros: true,
		render: func(m Match, key string) string {
			return "bossbar set " + m.Groups[1] + " name " + translateObject(key)
		},
	}
	ruleBossbarAdd = rule{
		name: "bossbar_add", re: reBossbarAdd, group: 2, macros: true,
		render: func(m Match, key string) string {
			return "bossbar add " + m.Groups[1] + " " + translateObject(key)
		},
	}
	ruleAdvTitle = rule{
		name: "advancement_title", re: reAdvTitle, group: 1, category: CatAdvancement,
		render: func(_ Match, key string) string { return `"title":` + translateObject(key) },
	}
	ruleAdvDescription = rule{
		name: "advancement_description", re: reAdvDescription, group: 1, category: CatAdvancement,
		render: func(_ Match, key string) string { return `"description":` + translateObject(key) },
	}
)

// componentRules rewrite a stored text component: a bare JSON string first,
// then inline, double escaped and escaped "text" fields. Double escaped runs
// before escaped because the escaped pattern would otherwise match inside it.
var componentRules = []rule{rulePlain, ruleComponent, ruleComponentEsc2, ruleComponentEsc}

// commandRules rewrite a command block's command.
var commandRules = []rule{ruleComponent, ruleComponentEsc2, ruleComponentEsc, ruleContents, ruleBossbarSet, ruleBossbarAdd}

// dataFileRules rewrite one line of a function or JSON file in a data pack.
var dataFileRules = []rule{
	ruleAdvTitle, ruleAdvDescription,
	ruleComponent, ruleComponentEsc2, ruleComponentEsc,
	ruleContents, ruleBossbarSet, ruleBossbarAdd,
}

// rewrite applies rules in order to text within the active key scope. dedup
// is the policy decision for cat; macroLine folds macro tokens into keys.
// Returns the new text and the number of fragments replaced.
func (c *Context) rewrite(text string, rules []rule, cat Category, dedup, macroLine bool) (string, int) {
	total := 0
	for _, r := range rules {
		rcat, rdedup := cat, dedup
		if r.category != "" {
			rcat, rdedup = r.category, c.policy.Allows(r.category)
		}
		repl := func(m Match) string {
			start, end := m.Span(r.group)
			occ := NewOccurrence(m.Groups[r.group], r.escape, start, end)

			var tokens []string
			if macroLine && r.macros {
				tokens, _ = c.macros.Extract(occ.Plain)
			}
			key, src := c.reg.Resolve(occ.Plain, rcat, rdedup, tokens)
			c.count(src)
			c.log.Debug("text replaced",
				"rule", r.name, "key", key, "text", occ.Plain, "source", string(src),
				"escape", occ.Escape.String(), "start", occ.Start, "end", occ.End)
			return r.render(m, key)
		}

		var n int
		if r.once {
			text, n = c.matcher.SubstituteOnce(r.re, text, repl)
		} else {
			text, n = c.matcher.Substitute(r.re, text, repl)
		}
		total += n
	}
	return text, total
}

func (c *Context) count(src Source) {
	c.stats.Rewrites++
	switch src {
	case SourceReused:
		c.stats.Reused++
	case SourceDefault:
		c.stats.Defaults++
	}
}

// idSegment turns a namespaced identifier into a key segment:
// "minecraft:oak_sign" becomes "oak_sign", "mod:thing/sub" becomes
// "mod.thing.sub".
func idSegment(id string) string {
	id = strings.TrimPrefix(id, "minecraft:")
	return strings.NewReplacer(":", ".", "/", ".").Replace(id)
}
