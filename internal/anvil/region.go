// Package anvil reads and rewrites Anvil region files (r.X.Z.mca).
//
// A region holds up to 32x32 chunks. The first 4 KiB sector is the location
// table (3-byte sector offset + 1-byte sector count per chunk), the second the
// timestamp table. Each chunk payload starts with a 4-byte length and a
// compression byte.
//
// Rewriting lays every chunk out again from sector 2 in index order. Chunks
// that are never decoded keep their original compressed bytes, so a region
// with a single rewritten chunk changes only that chunk's payload and the
// offsets that follow it.
package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/roach88/worldtext/internal/fsutil"
	"github.com/roach88/worldtext/internal/nbt"
)

const (
	sectorSize   = 4096
	regionWidth  = 32
	chunkSlots   = regionWidth * regionWidth
	headerLength = 2 * sectorSize
)

// Compression schemes stored in the chunk header.
const (
	CompressionGzip     byte = 1
	CompressionZlib     byte = 2
	CompressionNone     byte = 3
	CompressionLZ4      byte = 4
	compressionExternal byte = 128
)

// ErrUnsupported is returned for chunks this package can carry but not decode:
// oversized chunks stored in external .mcc files and LZ4-compressed chunks.
var ErrUnsupported = errors.New("unsupported chunk encoding")

// ErrNoChunk is returned when a slot is empty.
var ErrNoChunk = errors.New("chunk not present")

var regionName = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

// Pos is a chunk position in chunk coordinates.
type Pos struct {
	X, Z int
}

// Less orders positions by X, then Z.
func (p Pos) Less(o Pos) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Z < o.Z
}

// RegionOf returns the region coordinates holding chunk p.
func RegionOf(p Pos) Pos {
	return Pos{X: p.X >> 5, Z: p.Z >> 5}
}

// FileName returns the canonical region file name for region coordinates.
func FileName(region Pos) string {
	return fmt.Sprintf("r.%d.%d.mca", region.X, region.Z)
}

// ParseFileName extracts region coordinates from a file name.
func ParseFileName(name string) (Pos, bool) {
	m := regionName.FindStringSubmatch(name)
	if m == nil {
		return Pos{}, false
	}
	x, errX := strconv.Atoi(m[1])
	z, errZ := strconv.Atoi(m[2])
	if errX != nil || errZ != nil {
		return Pos{}, false
	}
	return Pos{X: x, Z: z}, true
}

type slot struct {
	compression byte
	payload     []byte // compressed bytes, exactly as stored
	timestamp   uint32
}

// Region is an in-memory copy of one region file.
type Region struct {
	path  string
	at    Pos
	slots [chunkSlots]*slot
	dirty bool
}

func index(p Pos) int {
	return (p.X & (regionWidth - 1)) + (p.Z&(regionWidth-1))*regionWidth
}

// Open reads the region file at path. A missing file yields an empty region
// that will be created on Save.
func Open(path string) (*Region, error) {
	at, ok := ParseFileName(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("not a region file name: %s", filepath.Base(path))
	}
	r := &Region{path: path, at: at}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Region) parse(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) < headerLength {
		return fmt.Errorf("%w: header truncated (%d bytes)", nbt.ErrMalformed, len(data))
	}
	for i := 0; i < chunkSlots; i++ {
		loc := binary.BigEndian.Uint32(data[i*4:])
		offset := int(loc>>8) * sectorSize
		count := int(loc&0xFF) * sectorSize
		if offset == 0 && count == 0 {
			continue
		}
		if offset < headerLength || offset+5 > len(data) {
			return fmt.Errorf("%w: chunk %d points outside the file", nbt.ErrMalformed, i)
		}
		length := int(binary.BigEndian.Uint32(data[offset:]))
		if length < 1 || offset+4+length > len(data) {
			return fmt.Errorf("%w: chunk %d has bad length %d", nbt.ErrMalformed, i, length)
		}
		payload := make([]byte, length-1)
		copy(payload, data[offset+5:offset+4+length])
		r.slots[i] = &slot{
			compression: data[offset+4],
			payload:     payload,
			timestamp:   binary.BigEndian.Uint32(data[sectorSize+i*4:]),
		}
	}
	return nil
}

// Path returns the file the region was loaded from.
func (r *Region) Path() string {
	return r.path
}

// Coords returns the region coordinates.
func (r *Region) Coords() Pos {
	return r.at
}

// Dirty reports whether any chunk was replaced since the last Save.
func (r *Region) Dirty() bool {
	return r.dirty
}

// Chunks returns the positions of all present chunks in ascending order.
func (r *Region) Chunks() []Pos {
	var out []Pos
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		out = append(out, Pos{
			X: r.at.X*regionWidth + i%regionWidth,
			Z: r.at.Z*regionWidth + i/regionWidth,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Less(out[b]) })
	return out
}

// Has reports whether chunk p is stored in this region.
func (r *Region) Has(p Pos) bool {
	return r.slots[index(p)] != nil
}

// ReadChunk decodes the NBT of chunk p.
func (r *Region) ReadChunk(p Pos) (*nbt.Compound, error) {
	s := r.slots[index(p)]
	if s == nil {
		return nil, ErrNoChunk
	}
	if s.compression&compressionExternal != 0 || s.compression == CompressionLZ4 {
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, s.compression)
	}

	var src io.Reader = bytes.NewReader(s.payload)
	switch s.compression {
	case CompressionGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", nbt.ErrMalformed, err)
		}
		defer zr.Close()
		src = zr
	case CompressionZlib:
		zr, err := zlib.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", nbt.ErrMalformed, err)
		}
		defer zr.Close()
		src = zr
	case CompressionNone:
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, s.compression)
	}

	_, root, err := nbt.Read(src)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// WriteChunk replaces chunk p with root, zlib-compressed. The timestamp of an
// existing chunk is kept.
func (r *Region) WriteChunk(p Pos, root *nbt.Compound) error {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if err := nbt.Write(zw, "", root); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	i := index(p)
	var ts uint32
	if old := r.slots[i]; old != nil {
		ts = old.timestamp
	}
	r.slots[i] = &slot{compression: CompressionZlib, payload: buf.Bytes(), timestamp: ts}
	r.dirty = true
	return nil
}

// Save writes the region back to its path if it has changed.
func (r *Region) Save() error {
	if !r.dirty {
		return nil
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(r.path, data); err != nil {
		return err
	}
	r.dirty = false
	return nil
}

// Marshal lays out the region file.
func (r *Region) Marshal() ([]byte, error) {
	header := make([]byte, headerLength)
	var body bytes.Buffer
	sector := 2

	for i, s := range r.slots {
		if s == nil {
			continue
		}
		length := len(s.payload) + 1
		sectors := (length + 4 + sectorSize - 1) / sectorSize
		if sectors > 0xFF {
			return nil, fmt.Errorf("chunk %d needs %d sectors, more than a region entry can address", i, sectors)
		}

		binary.BigEndian.PutUint32(header[i*4:], uint32(sector)<<8|uint32(sectors))
		binary.BigEndian.PutUint32(header[sectorSize+i*4:], s.timestamp)

		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(length))
		body.Write(lenBuf[:])
		body.WriteByte(s.compression)
		body.Write(s.payload)
		if pad := sectors*sectorSize - (length + 4); pad > 0 {
			body.Write(make([]byte, pad))
		}
		sector += sectors
	}

	return append(header, body.Bytes()...), nil
}
