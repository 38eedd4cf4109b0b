package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_DefaultRecordNames(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: n
description: d
records:
  - kind: text
    scope: s
    category: signs
    text: x
  - kind: item
    value: {id: "minecraft:stick"}
assertions:
  - type: key_count
    count: 1
`))
	require.NoError(t, err)
	assert.Equal(t, "text0", s.Records[0].Name)
	assert.Equal(t, "item1", s.Records[1].Name)
	assert.Equal(t, "minecraft:stick", s.Records[1].Value["id"])
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: n\ndescription: d\nrecord: []\n", "field record not found"},
		{"missing name", "description: d\n", "name is required"},
		{"no records", "name: n\ndescription: d\nassertions: [{type: key_count}]\n", "records list is required"},
		{"no assertions", "name: n\ndescription: d\nrecords: [{kind: text, scope: s, category: signs}]\n", "assertions list is required"},
		{"unknown kind", "name: n\ndescription: d\nrecords: [{kind: nope}]\nassertions: [{type: key_count}]\n", `unknown kind "nope"`},
		{"nbt without value", "name: n\ndescription: d\nrecords: [{kind: entity}]\nassertions: [{type: key_count}]\n", "value is required"},
		{"datafile without path", "name: n\ndescription: d\nrecords: [{kind: datafile}]\nassertions: [{type: key_count}]\n", "path is required"},
		{"duplicate record", "name: n\ndescription: d\nrecords: [{name: a, kind: text, scope: s, category: signs}, {name: a, kind: text, scope: s, category: signs}]\nassertions: [{type: key_count}]\n", `duplicate name "a"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadScenarios_SortedAndReportsFile(t *testing.T) {
	dir := t.TempDir()
	ok := "description: d\nrecords: [{kind: text, scope: s, category: signs}]\nassertions: [{type: key_count}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: b\n"+ok), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: a\n"+ok), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("name: c\n"), 0o644))
	_, err = LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.yaml")
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
