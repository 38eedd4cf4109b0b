package nbt

import (
	"fmt"
	"sort"
)

// FromValue builds a tag tree from plain Go values as produced by YAML or
// JSON decoders: maps become compounds (keys sorted, since Go maps are
// unordered), slices become lists, strings become String, integers Int and
// floats Double. Booleans map to Byte, the way the game stores them.
func FromValue(v any) (Tag, error) {
	switch val := v.(type) {
	case Tag:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		if val {
			return Byte(1), nil
		}
		return Byte(0), nil
	case int:
		return Int(int32(val)), nil
	case int64:
		return Long(val), nil
	case float64:
		if val == float64(int32(val)) {
			return Int(int32(val)), nil
		}
		return Double(val), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		c := NewCompound()
		for _, k := range keys {
			child, err := FromValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			c.Set(k, child)
		}
		return c, nil
	case []any:
		items := make([]Tag, 0, len(val))
		for i, it := range val {
			child, err := FromValue(it)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			if len(items) > 0 && child.Type() != items[0].Type() {
				return nil, fmt.Errorf("[%d]: mixed list of %s and %s", i, items[0].Type(), child.Type())
			}
			items = append(items, child)
		}
		return NewList(items...), nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

// CompoundFromValue is FromValue restricted to a map at the top level.
func CompoundFromValue(v map[string]any) (*Compound, error) {
	t, err := FromValue(v)
	if err != nil {
		return nil, err
	}
	return t.(*Compound), nil
}

// ToValue converts a tag tree back to plain Go values. Compounds become
// map[string]any, lists []any, numbers their widest Go type.
func ToValue(t Tag) any {
	switch v := t.(type) {
	case Byte:
		return int64(v)
	case Short:
		return int64(v)
	case Int:
		return int64(v)
	case Long:
		return int64(v)
	case Float:
		return float64(v)
	case Double:
		return float64(v)
	case String:
		return string(v)
	case ByteArray:
		out := make([]any, len(v))
		for i, b := range v {
			out[i] = int64(int8(b))
		}
		return out
	case IntArray:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out
	case LongArray:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = x
		}
		return out
	case *List:
		out := make([]any, len(v.Items))
		for i, it := range v.Items {
			out[i] = ToValue(it)
		}
		return out
	case *Compound:
		out := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			out[k] = ToValue(child)
		}
		return out
	default:
		return nil
	}
}
