package harness

// RecordOutput is one scenario record after extraction.
type RecordOutput struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Changed bool   `json:"changed"`

	// Value is the rewritten NBT record as plain values (NBT kinds).
	Value map[string]any `json:"value,omitempty"`

	// Text is the rewritten text (datafile and text kinds).
	Text string `json:"text,omitempty"`
}

// Row is one key-table row.
type Row struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Records holds the rewritten records in scenario order.
	Records []RecordOutput `json:"records"`

	// Raw is the raw key table in registration order.
	Raw []Row `json:"raw"`

	// Merged is the merged key table.
	Merged []Row `json:"merged"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Records: []RecordOutput{},
		Raw:     []Row{},
		Merged:  []Row{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// record returns the output named name.
func (r *Result) record(name string) (RecordOutput, bool) {
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return RecordOutput{}, false
}
