package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures everything a scenario produced.
type Snapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Records      []RecordOutput `json:"records"`
	Raw          []Row          `json:"raw"`
	Merged       []Row          `json:"merged"`
}

// toCanonicalMap converts a Snapshot to plain values for MarshalCanonical.
func (s *Snapshot) toCanonicalMap() map[string]any {
	records := make([]any, len(s.Records))
	for i, r := range s.Records {
		m := map[string]any{
			"name":    r.Name,
			"kind":    r.Kind,
			"changed": r.Changed,
		}
		if r.Value != nil {
			m["value"] = r.Value
		} else {
			m["text"] = r.Text
		}
		records[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"records":       records,
		"raw":           rowList(s.Raw),
		"merged":        rowList(s.Merged),
	}
}

func rowList(rows []Row) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any{"key": r.Key, "text": r.Text}
	}
	return out
}

// SnapshotJSON renders the golden snapshot of a result as canonical JSON.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Records:      result.Records,
		Raw:          result.Raw,
		Merged:       result.Merged,
	}
	return MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
