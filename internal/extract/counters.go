package extract

// Kind groups occurrence counters by the family of record they number.
type Kind string

const (
	KindItem   Kind = "item"
	KindBlock  Kind = "block"
	KindEntity Kind = "entity"
)

type counterKey struct {
	kind Kind
	id   string
}

type counter struct {
	next  int
	dirty bool
}

// Counters numbers record instances per (kind, id). An index only advances
// when the record that used it had at least one field rewritten, so the
// numbering has no gaps for untouched records.
type Counters struct {
	m map[counterKey]*counter
}

// NewCounters creates an empty counter set.
func NewCounters() *Counters {
	return &Counters{m: make(map[counterKey]*counter)}
}

func (c *Counters) get(kind Kind, id string) *counter {
	k := counterKey{kind, id}
	ct, ok := c.m[k]
	if !ok {
		ct = &counter{next: 1}
		c.m[k] = ct
	}
	return ct
}

// Index returns the instance number the current record of (kind, id) uses.
func (c *Counters) Index(kind Kind, id string) int {
	return c.get(kind, id).next
}

// Mark records that the current record of (kind, id) was rewritten.
func (c *Counters) Mark(kind Kind, id string) {
	c.get(kind, id).dirty = true
}

// Commit closes the current record of (kind, id). The index advances iff the
// record was marked. Reports whether it advanced.
func (c *Counters) Commit(kind Kind, id string) bool {
	ct := c.get(kind, id)
	if !ct.dirty {
		return false
	}
	ct.next++
	ct.dirty = false
	return true
}
