package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines an extraction scenario: a configuration, a sequence of
// records fed to one extraction context, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides configuration fields, in the config file layout.
	Config map[string]any `yaml:"config,omitempty"`

	// Records are processed in order by a single extraction context.
	Records []Record `yaml:"records"`

	// Assertions validate the rewritten records and key tables.
	Assertions []Assertion `yaml:"assertions"`
}

// Record is one input record.
type Record struct {
	// Name labels the record for assertions. Defaults to "<kind><index>".
	Name string `yaml:"name,omitempty"`

	// Kind selects the dispatcher entry point (see Record kind constants).
	Kind string `yaml:"kind"`

	// Value is the NBT record as plain values (NBT kinds).
	Value map[string]any `yaml:"value,omitempty"`

	// Text is the input text (datafile and text kinds).
	Text string `yaml:"text,omitempty"`

	// Path is the data-pack path of a datafile record, e.g.
	// data/ns/function/a.mcfunction.
	Path string `yaml:"path,omitempty"`

	// Scope and Category apply to text records.
	Scope    string `yaml:"scope,omitempty"`
	Category string `yaml:"category,omitempty"`

	// InContainer marks an item record as reached through a container.
	InContainer bool `yaml:"in_container,omitempty"`
}

// Record kinds.
const (
	KindItem        = "item"
	KindEntity      = "entity"
	KindBlockEntity = "block_entity"
	KindChunk       = "chunk"
	KindEntityChunk = "entity_chunk"
	KindScoreboard  = "scoreboard"
	KindLevel       = "level"
	KindStructure   = "structure"
	KindDataFile    = "datafile"
	KindText        = "text"
)

var nbtKinds = map[string]bool{
	KindItem: true, KindEntity: true, KindBlockEntity: true, KindChunk: true,
	KindEntityChunk: true, KindScoreboard: true, KindLevel: true, KindStructure: true,
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "key_text": Key maps to Text in the raw table
	// - "key_count": Raw table has Count rows
	// - "merged_count": Merged table has Count rows
	// - "field_equals": Record's NBT field at Path equals Value
	// - "line_equals": Line Line (1-based) of Record's text equals Value
	Type string `yaml:"type"`

	Key    string `yaml:"key,omitempty"`
	Text   string `yaml:"text,omitempty"`
	Count  int    `yaml:"count,omitempty"`
	Record string `yaml:"record,omitempty"`

	// Path is a dotted NBT path; list elements are addressed by index.
	Path  string `yaml:"path,omitempty"`
	Line  int    `yaml:"line,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertKeyText     = "key_text"
	AssertKeyCount    = "key_count"
	AssertMergedCount = "merged_count"
	AssertFieldEquals = "field_equals"
	AssertLineEquals  = "line_equals"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range scenario.Records {
		if scenario.Records[i].Name == "" {
			scenario.Records[i].Name = fmt.Sprintf("%s%d", scenario.Records[i].Kind, i)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Records))
	for i, r := range s.Records {
		if names[r.Name] {
			return fmt.Errorf("records[%d]: duplicate name %q", i, r.Name)
		}
		names[r.Name] = true

		switch {
		case nbtKinds[r.Kind]:
			if r.Value == nil {
				return fmt.Errorf("records[%d]: value is required for kind %s", i, r.Kind)
			}
		case r.Kind == KindDataFile:
			if r.Path == "" {
				return fmt.Errorf("records[%d]: path is required for datafile", i)
			}
		case r.Kind == KindText:
			if r.Scope == "" || r.Category == "" {
				return fmt.Errorf("records[%d]: scope and category are required for text", i)
			}
		default:
			return fmt.Errorf("records[%d]: unknown kind %q", i, r.Kind)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, records map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertKeyText:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for key_text", index)
		}
	case AssertKeyCount, AssertMergedCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertFieldEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for field_equals", index)
		}
	case AssertLineEquals:
		if a.Line < 1 {
			return fmt.Errorf("assertions[%d]: line must be 1 or more for line_equals", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Type == AssertFieldEquals || a.Type == AssertLineEquals {
		if !records[a.Record] {
			return fmt.Errorf("assertions[%d]: unknown record %q", index, a.Record)
		}
	}
	return nil
}
