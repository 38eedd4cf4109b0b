package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Raw      []Row  // Raw key table for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Raw) > 0 {
		fmt.Fprintf(&buf, "\nKey table:\n")
		for i, row := range e.Raw {
			fmt.Fprintf(&buf, "  [%d] %s = %q\n", i+1, row.Key, row.Text)
		}
	}
	return buf.String()
}

// assertKeyText checks that key maps to the expected text in the raw table.
func assertKeyText(result *Result, a Assertion) error {
	for _, row := range result.Raw {
		if row.Key != a.Key {
			continue
		}
		if row.Text == a.Text {
			return nil
		}
		return &AssertionError{
			Type:     AssertKeyText,
			Expected: fmt.Sprintf("%s = %q", a.Key, a.Text),
			Actual:   fmt.Sprintf("%s = %q", row.Key, row.Text),
			Raw:      result.Raw,
		}
	}
	return &AssertionError{
		Type:     AssertKeyText,
		Expected: fmt.Sprintf("%s = %q", a.Key, a.Text),
		Actual:   "key not found",
		Raw:      result.Raw,
	}
}

// assertCount checks the number of rows of a table.
func assertCount(typ string, table []Row, want int) error {
	if len(table) == want {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%d rows", want),
		Actual:   fmt.Sprintf("%d rows", len(table)),
		Raw:      table,
	}
}

// assertFieldEquals checks a string field of a rewritten NBT record.
func assertFieldEquals(result *Result, a Assertion) error {
	rec, ok := result.record(a.Record)
	if !ok {
		return fmt.Errorf("field_equals: unknown record %q", a.Record)
	}
	got, ok := lookupPath(rec.Value, a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("%s.%s = %q", a.Record, a.Path, a.Value),
			Actual:   "field not found",
		}
	}
	if s, isStr := got.(string); isStr && s == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertFieldEquals,
		Expected: fmt.Sprintf("%s.%s = %q", a.Record, a.Path, a.Value),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertLineEquals checks one line (1-based, without its newline) of a
// rewritten text record.
func assertLineEquals(result *Result, a Assertion) error {
	rec, ok := result.record(a.Record)
	if !ok {
		return fmt.Errorf("line_equals: unknown record %q", a.Record)
	}
	lines := strings.Split(rec.Text, "\n")
	if a.Line > len(lines) {
		return &AssertionError{
			Type:     AssertLineEquals,
			Expected: fmt.Sprintf("%s line %d = %q", a.Record, a.Line, a.Value),
			Actual:   fmt.Sprintf("only %d lines", len(lines)),
		}
	}
	if got := lines[a.Line-1]; got != a.Value {
		return &AssertionError{
			Type:     AssertLineEquals,
			Expected: fmt.Sprintf("%s line %d = %q", a.Record, a.Line, a.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertKeyText:
			err = assertKeyText(result, a)
		case AssertKeyCount:
			err = assertCount(AssertKeyCount, result.Raw, a.Count)
		case AssertMergedCount:
			err = assertCount(AssertMergedCount, result.Merged, a.Count)
		case AssertFieldEquals:
			err = assertFieldEquals(result, a)
		case AssertLineEquals:
			err = assertLineEquals(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
