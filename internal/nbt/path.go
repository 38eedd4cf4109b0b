package nbt

import "strconv"

// TryGet walks a path of compound names and list indices starting at tag.
// A path element addresses a list when the current node is a list and the
// element parses as an index. Absent fields yield ok=false, never an error;
// record handlers rely on this to support several schema revisions of the
// same structure.
func TryGet(tag Tag, path ...string) (Tag, bool) {
	cur := tag
	for _, p := range path {
		switch node := cur.(type) {
		case *Compound:
			next, ok := node.Get(p)
			if !ok {
				return nil, false
			}
			cur = next
		case *List:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= node.Len() {
				return nil, false
			}
			cur = node.Items[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// Compound returns the named child compound.
func (c *Compound) Compound(name string) (*Compound, bool) {
	t, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	child, ok := t.(*Compound)
	return child, ok
}

// List returns the named child list.
func (c *Compound) List(name string) (*List, bool) {
	t, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	l, ok := t.(*List)
	return l, ok
}

// String returns the named string value.
func (c *Compound) String(name string) (string, bool) {
	t, ok := c.Get(name)
	if !ok {
		return "", false
	}
	s, ok := t.(String)
	return string(s), ok
}

// Int returns the named value widened to int64 for any integral tag type.
func (c *Compound) Int(name string) (int64, bool) {
	t, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	switch v := t.(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Long:
		return int64(v), true
	}
	return 0, false
}

// Compounds returns the compound items of a list, skipping anything else.
func (l *List) Compounds() []*Compound {
	if l == nil {
		return nil
	}
	out := make([]*Compound, 0, len(l.Items))
	for _, it := range l.Items {
		if c, ok := it.(*Compound); ok {
			out = append(out, c)
		}
	}
	return out
}
