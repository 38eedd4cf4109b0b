package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/worldtext/internal/config"
	"github.com/roach88/worldtext/internal/export"
	"github.com/roach88/worldtext/internal/extract"
	"github.com/roach88/worldtext/internal/nbt"
)

// Options configures Run.
type Options struct {
	// Logger receives the extraction log. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh extraction context, so scenarios are
// independent and may run in parallel.
//
// Execution flow:
// 1. Validate the scenario's config overrides against the schema
// 2. Feed the records, in order, to one extraction context
// 3. Collect the rewritten records and both key tables
// 4. Evaluate the assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, Options{})
}

// RunWithOptions is Run with explicit options.
func RunWithOptions(scenario *Scenario, opts Options) (*Result, error) {
	cfg, err := config.FromMap(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	eo := cfg.ExtractOptions(false)
	eo.Logger = log
	ec := extract.New(eo)

	result := NewResult()
	for _, rec := range scenario.Records {
		out, err := process(ec, rec)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.Name, err)
		}
		result.Records = append(result.Records, out)
	}

	raw := ec.Registry().Raw()
	result.Raw = rows(raw)
	result.Merged = rows(export.Merged(raw))

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// process hands one record to the extraction context.
func process(ec *extract.Context, rec Record) (RecordOutput, error) {
	out := RecordOutput{Name: rec.Name, Kind: rec.Kind}

	switch rec.Kind {
	case KindDataFile:
		text, n := ec.DataFile(extract.DataFileScope(rec.Path), rec.Text)
		out.Text, out.Changed = text, n > 0
		return out, nil
	case KindText:
		text, n := ec.Text(rec.Scope, rec.Text, extract.Category(rec.Category))
		out.Text, out.Changed = text, n > 0
		return out, nil
	}

	root, err := nbt.CompoundFromValue(rec.Value)
	if err != nil {
		return out, err
	}
	switch rec.Kind {
	case KindItem:
		out.Changed = ec.Item(root, rec.InContainer)
	case KindEntity:
		out.Changed = ec.Entity(root)
	case KindBlockEntity:
		out.Changed = ec.BlockEntity(root)
	case KindChunk:
		out.Changed = ec.Chunk(root)
	case KindEntityChunk:
		out.Changed = ec.EntityChunk(root)
	case KindScoreboard:
		out.Changed = ec.Scoreboard(root)
	case KindLevel:
		out.Changed = ec.Level(root)
	case KindStructure:
		out.Changed = ec.Structure(root)
	default:
		return out, fmt.Errorf("unknown kind %q", rec.Kind)
	}
	out.Value = nbt.ToValue(root).(map[string]any)
	return out, nil
}

func rows(entries []extract.Entry) []Row {
	out := make([]Row, len(entries))
	for i, e := range entries {
		out[i] = Row{Key: e.Key, Text: e.Text}
	}
	return out
}

// lookupPath resolves a dotted path ("block_entities.0.Text1") in a plain
// value tree.
func lookupPath(v any, path string) (any, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
