package nbt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
)

// maxDepth matches the nesting limit the game enforces when reading NBT.
const maxDepth = 512

// maxPrealloc caps the capacity reserved from a declared length; anything
// longer grows as bytes actually arrive.
const maxPrealloc = 1 << 12

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed nbt")

// Read decodes one named root compound.
func Read(r io.Reader) (string, *Compound, error) {
	d := &decoder{r: bufio.NewReader(r)}

	typ, err := d.u8()
	if err != nil {
		return "", nil, d.fail(err)
	}
	if TagType(typ) != TagCompound {
		return "", nil, fmt.Errorf("%w: root is %s, want %s", ErrMalformed, TagType(typ), TagCompound)
	}
	name, err := d.str()
	if err != nil {
		return "", nil, d.fail(err)
	}
	root, err := d.compound(0)
	if err != nil {
		return "", nil, d.fail(err)
	}
	return name, root, nil
}

// Decode is Read over a byte slice.
func Decode(data []byte) (string, *Compound, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes root as a named root compound.
func Write(w io.Writer, name string, root *Compound) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.u8(byte(TagCompound))
	e.str(name)
	e.compound(root)
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// Encode is Write into a new byte slice.
func Encode(name string, root *Compound) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, name, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type decoder struct {
	r   *bufio.Reader
	buf [8]byte
}

func (d *decoder) fail(err error) error {
	if errors.Is(err, ErrMalformed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

func (d *decoder) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		return nil, err
	}
	return d.buf[:n], nil
}

func (d *decoder) u8() (byte, error) {
	return d.r.ReadByte()
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) length() (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if int32(n) < 0 {
		return 0, fmt.Errorf("%w: negative length %d", ErrMalformed, int32(n))
	}
	return int(n), nil
}

// readN reads n bytes in bounded steps so a corrupt length fails on EOF
// instead of reserving the whole amount up front.
func (d *decoder) readN(n int) ([]byte, error) {
	b := make([]byte, 0, min(n, maxPrealloc))
	for len(b) < n {
		start := len(b)
		step := min(n-start, 64<<10)
		b = slices.Grow(b, step)[:start+step]
		if _, err := io.ReadFull(d.r, b[start:]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", err
	}
	return decodeMUTF8(b), nil
}

func (d *decoder) compound(depth int) (*Compound, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}
	c := NewCompound()
	for {
		typ, err := d.u8()
		if err != nil {
			return nil, err
		}
		if TagType(typ) == TagEnd {
			return c, nil
		}
		name, err := d.str()
		if err != nil {
			return nil, err
		}
		val, err := d.payload(TagType(typ), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		c.Set(name, val)
	}
}

func (d *decoder) payload(typ TagType, depth int) (Tag, error) {
	switch typ {
	case TagByte:
		b, err := d.u8()
		return Byte(int8(b)), err
	case TagShort:
		v, err := d.u16()
		return Short(int16(v)), err
	case TagInt:
		v, err := d.u32()
		return Int(int32(v)), err
	case TagLong:
		v, err := d.u64()
		return Long(int64(v)), err
	case TagFloat:
		v, err := d.u32()
		return Float(math.Float32frombits(v)), err
	case TagDouble:
		v, err := d.u64()
		return Double(math.Float64frombits(v)), err
	case TagByteArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		b, err := d.readN(n)
		return ByteArray(b), err
	case TagString:
		s, err := d.str()
		return String(s), err
	case TagList:
		return d.list(depth)
	case TagCompound:
		return d.compound(depth)
	case TagIntArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		arr := make(IntArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			arr = append(arr, int32(v))
		}
		return arr, nil
	case TagLongArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		arr := make(LongArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			arr = append(arr, int64(v))
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag type %d", ErrMalformed, byte(typ))
	}
}

func (d *decoder) list(depth int) (*List, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}
	elem, err := d.u8()
	if err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	if TagType(elem) == TagEnd && n > 0 {
		return nil, fmt.Errorf("%w: list of %s with %d items", ErrMalformed, TagEnd, n)
	}
	l := &List{Elem: TagType(elem), Items: make([]Tag, 0, min(n, maxPrealloc))}
	for i := 0; i < n; i++ {
		v, err := d.payload(TagType(elem), depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		l.Items = append(l.Items, v)
	}
	return l, nil
}

type encoder struct {
	w   *bufio.Writer
	err error
	buf [8]byte
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) u8(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *encoder) u16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *encoder) u32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) u64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *encoder) str(s string) {
	b := encodeMUTF8(s)
	if len(b) > math.MaxUint16 {
		if e.err == nil {
			e.err = fmt.Errorf("string of %d bytes exceeds the nbt limit", len(b))
		}
		return
	}
	e.u16(uint16(len(b)))
	e.write(b)
}

func (e *encoder) compound(c *Compound) {
	for _, name := range c.Keys() {
		val, _ := c.Get(name)
		e.u8(byte(val.Type()))
		e.str(name)
		e.payload(val)
	}
	e.u8(byte(TagEnd))
}

func (e *encoder) payload(t Tag) {
	switch v := t.(type) {
	case Byte:
		e.u8(byte(v))
	case Short:
		e.u16(uint16(v))
	case Int:
		e.u32(uint32(v))
	case Long:
		e.u64(uint64(v))
	case Float:
		e.u32(math.Float32bits(float32(v)))
	case Double:
		e.u64(math.Float64bits(float64(v)))
	case ByteArray:
		e.u32(uint32(len(v)))
		e.write(v)
	case String:
		e.str(string(v))
	case *List:
		elem := v.Elem
		if len(v.Items) > 0 {
			elem = v.Items[0].Type()
		}
		e.u8(byte(elem))
		e.u32(uint32(len(v.Items)))
		for i, it := range v.Items {
			if it.Type() != elem && e.err == nil {
				e.err = fmt.Errorf("list item %d is %s, list holds %s", i, it.Type(), elem)
				return
			}
			e.payload(it)
		}
	case *Compound:
		e.compound(v)
	case IntArray:
		e.u32(uint32(len(v)))
		for _, x := range v {
			e.u32(uint32(x))
		}
	case LongArray:
		e.u32(uint32(len(v)))
		for _, x := range v {
			e.u64(uint64(x))
		}
	default:
		if e.err == nil {
			e.err = fmt.Errorf("cannot encode %T", t)
		}
	}
}
