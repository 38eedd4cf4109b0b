package extract

import (
	"path"
	"strings"
)

// DataFileScope derives the key prefix of a data-pack text file from its
// slash-separated path: the part below the "data" directory, without
// extension, with "/" turned into ".". For example
// "pack/data/ns/function/a/b.mcfunction" becomes "ns.function.a.b".
func DataFileScope(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if i := strings.LastIndex(rel, "/data/"); i >= 0 {
		rel = rel[i+len("/data/"):]
	} else {
		rel = strings.TrimPrefix(rel, "data/")
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return strings.ReplaceAll(rel, "/", ".")
}

// IsDataFile reports whether name is a text file the data-pack rules apply
// to.
func IsDataFile(name string) bool {
	switch path.Ext(name) {
	case ".mcfunction", ".json":
		return true
	}
	return false
}

// DataFile rewrites a function or JSON file from a data pack line by line.
// One scope is entered for the whole file so keys are numbered across lines.
// Lines starting with "#" are comments and stay untouched; lines starting
// with "$" are macro lines whose keys carry the referenced macro tokens.
// Returns the new content and the number of fragments replaced.
func (c *Context) DataFile(scope, content string) (string, int) {
	c.enter(scope)
	dedup := c.policy.Allows(CatDatapack)

	lines := strings.SplitAfter(content, "\n")
	total := 0
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		macro := strings.HasPrefix(trimmed, "$")
		out, n := c.rewrite(line, dataFileRules, CatDatapack, dedup, macro)
		if reSelectorName.MatchString(out) {
			c.log.Info("target selector name needs manual review", "scope", scope, "line", i+1)
		}
		lines[i] = out
		total += n
	}
	c.record(total > 0)
	return strings.Join(lines, ""), total
}
