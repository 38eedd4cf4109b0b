package nbt

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/roach88/worldtext/internal/fsutil"
)

// File is a standalone NBT file such as level.dat, scoreboard.dat or a
// structure template. Compression is remembered so Save writes the file back
// in the form it was read.
type File struct {
	Name       string
	Root       *Compound
	Compressed bool
}

// ReadFile loads path, transparently handling gzip compression.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Unmarshal decodes a gzip-compressed or raw NBT document.
func Unmarshal(data []byte) (*File, error) {
	var r io.Reader = bytes.NewReader(data)
	compressed := len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
	if compressed {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		defer zr.Close()
		r = zr
	}
	name, root, err := Read(r)
	if err != nil {
		return nil, err
	}
	return &File{Name: name, Root: root, Compressed: compressed}, nil
}

// Marshal encodes the file, compressing it when the source was compressed.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the file to path atomically.
func (f *File) Save(path string) error {
	return fsutil.WriteAtomic(path, f.writeTo)
}

func (f *File) writeTo(w io.Writer) error {
	if !f.Compressed {
		return Write(w, f.Name, f.Root)
	}
	zw := gzip.NewWriter(w)
	if err := Write(zw, f.Name, f.Root); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
