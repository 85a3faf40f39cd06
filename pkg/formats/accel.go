// Package formats reads and writes the baker's binary dump files.
//
// LMAS (lightmap acceleration structure) holds one build of pkg/accel.
package formats

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/Faultbox/lightbake/pkg/accel"
	"github.com/Faultbox/lightbake/pkg/geom"
)

// LMAS format errors.
var (
	ErrInvalidAccelMagic       = errors.New("invalid LMAS magic: expected 'LMAS'")
	ErrUnsupportedAccelVersion = errors.New("unsupported LMAS version")
	ErrTruncatedAccelData      = errors.New("truncated LMAS data")
	ErrCorruptAccelData        = errors.New("corrupt LMAS data")
)

const (
	accelMagic = "LMAS"
	// AccelVersion is the version written by WriteAccel.
	AccelVersion = 1
	// maxAccelElements caps array lengths read from a header.
	maxAccelElements = 1 << 28
	// accelReadChunk is the number of elements read per step, so a header
	// promising more data than the stream holds fails before large
	// allocations happen.
	accelReadChunk = 1 << 14
)

// AccelFlags are header option bits.
type AccelFlags uint16

const (
	// AccelGridCompressed marks a zlib-compressed grid index table.
	AccelGridCompressed AccelFlags = 1 << 0
)

// AccelHeader is the fixed-size LMAS file header.
type AccelHeader struct {
	Magic              [4]byte
	Version            uint16
	Flags              AccelFlags
	BuildID            uuid.UUID
	GridSize           uint32
	BoundsMin          [3]float32
	BoundsMax          [3]float32
	VertexCount        uint32
	TriangleCount      uint32
	SeamCount          uint32
	TriangleIndexCount uint32
}

// AccelWriteOptions controls WriteAccel.
type AccelWriteOptions struct {
	// Compress zlib-compresses the grid index table, which is mostly zeros.
	Compress bool
	// BuildID tags the dump; a random one is generated when nil.
	BuildID uuid.UUID
}

// WriteAccel writes s in LMAS format and returns the header it wrote.
func WriteAccel(w io.Writer, s *accel.Structures, opts AccelWriteOptions) (*AccelHeader, error) {
	if len(s.GridIndices) != 2*s.GridSize*s.GridSize*s.GridSize {
		return nil, fmt.Errorf("%w: %d grid words for grid size %d", ErrCorruptAccelData, len(s.GridIndices), s.GridSize)
	}

	hdr := &AccelHeader{
		Version:            AccelVersion,
		BuildID:            opts.BuildID,
		GridSize:           uint32(s.GridSize),
		BoundsMin:          s.Bounds.Min,
		BoundsMax:          s.Bounds.Max,
		VertexCount:        uint32(len(s.Vertices)),
		TriangleCount:      uint32(len(s.Triangles)),
		SeamCount:          uint32(len(s.Seams)),
		TriangleIndexCount: uint32(len(s.TriangleIndices)),
	}
	copy(hdr.Magic[:], accelMagic)
	if hdr.BuildID == uuid.Nil {
		hdr.BuildID = uuid.New()
	}
	if opts.Compress {
		hdr.Flags |= AccelGridCompressed
	}

	for _, data := range []any{hdr, s.Vertices, s.Triangles, s.Seams, s.TriangleIndices} {
		if err := binary.Write(w, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("writing LMAS: %w", err)
		}
	}

	if !opts.Compress {
		if err := binary.Write(w, binary.LittleEndian, s.GridIndices); err != nil {
			return nil, fmt.Errorf("writing grid indices: %w", err)
		}
		return hdr, nil
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if err := binary.Write(zw, binary.LittleEndian, s.GridIndices); err != nil {
		return nil, fmt.Errorf("compressing grid indices: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing grid indices: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(compressed.Len())); err != nil {
		return nil, fmt.Errorf("writing grid indices: %w", err)
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return nil, fmt.Errorf("writing grid indices: %w", err)
	}
	return hdr, nil
}

// AccelReadOptions controls ReadAccelWithOptions.
type AccelReadOptions struct {
	// MaxGridSize rejects files declaring a larger grid. Zero means
	// accel.MaxGridSize.
	MaxGridSize int
}

// ReadAccel reads an LMAS stream with default limits.
func ReadAccel(r io.Reader) (*accel.Structures, *AccelHeader, error) {
	return ReadAccelWithOptions(r, AccelReadOptions{})
}

// ReadAccelWithOptions reads an LMAS stream and checks that every index it
// holds is in range.
func ReadAccelWithOptions(r io.Reader, opts AccelReadOptions) (*accel.Structures, *AccelHeader, error) {
	maxGrid := opts.MaxGridSize
	if maxGrid <= 0 {
		maxGrid = accel.MaxGridSize
	}

	var hdr AccelHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, nil, truncated(err)
	}
	if string(hdr.Magic[:]) != accelMagic {
		return nil, nil, ErrInvalidAccelMagic
	}
	if hdr.Version != AccelVersion {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedAccelVersion, hdr.Version)
	}
	if err := accel.ValidateGridSize(int(hdr.GridSize)); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptAccelData, err)
	}
	if int(hdr.GridSize) > maxGrid {
		return nil, nil, fmt.Errorf("%w: grid size %d exceeds limit %d", ErrCorruptAccelData, hdr.GridSize, maxGrid)
	}
	for _, n := range []uint32{hdr.VertexCount, hdr.TriangleCount, hdr.SeamCount, hdr.TriangleIndexCount} {
		if n > maxAccelElements {
			return nil, nil, fmt.Errorf("%w: element count %d", ErrCorruptAccelData, n)
		}
	}

	g := int(hdr.GridSize)
	s := &accel.Structures{
		GridSize: g,
		Bounds:   geom.AABB{Min: hdr.BoundsMin, Max: hdr.BoundsMax},
	}

	var err error
	if s.Vertices, err = readChunked[accel.Vertex](r, int(hdr.VertexCount)); err != nil {
		return nil, nil, truncated(err)
	}
	if s.Triangles, err = readChunked[accel.Triangle](r, int(hdr.TriangleCount)); err != nil {
		return nil, nil, truncated(err)
	}
	if s.Seams, err = readChunked[accel.Seam](r, int(hdr.SeamCount)); err != nil {
		return nil, nil, truncated(err)
	}
	if s.TriangleIndices, err = readChunked[uint32](r, int(hdr.TriangleIndexCount)); err != nil {
		return nil, nil, truncated(err)
	}

	gridWords := 2 * g * g * g
	if hdr.Flags&AccelGridCompressed == 0 {
		if s.GridIndices, err = readChunked[uint32](r, gridWords); err != nil {
			return nil, nil, truncated(err)
		}
	} else {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, nil, truncated(err)
		}
		zr, err := zlib.NewReader(io.LimitReader(r, int64(size)))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorruptAccelData, err)
		}
		defer zr.Close()
		if s.GridIndices, err = readChunked[uint32](zr, gridWords); err != nil {
			return nil, nil, fmt.Errorf("%w: grid indices: %v", ErrCorruptAccelData, err)
		}
	}

	if err := checkAccelRanges(s); err != nil {
		return nil, nil, err
	}
	return s, &hdr, nil
}

// ParseAccel parses LMAS data from a byte slice.
func ParseAccel(data []byte) (*accel.Structures, *AccelHeader, error) {
	return ReadAccel(bytes.NewReader(data))
}

// LoadAccel reads an LMAS file.
func LoadAccel(path string) (*accel.Structures, *AccelHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return ReadAccel(bufio.NewReader(f))
}

// SaveAccel writes s to path, replacing any existing file.
func SaveAccel(path string, s *accel.Structures, opts AccelWriteOptions) (*AccelHeader, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	bw := bufio.NewWriter(f)
	hdr, err := WriteAccel(bw, s, opts)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return hdr, nil
}

func checkAccelRanges(s *accel.Structures) error {
	vertices := uint32(len(s.Vertices))
	for i, t := range s.Triangles {
		for k := 0; k < 3; k++ {
			if t.Indices[k] >= vertices {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrCorruptAccelData, i, t.Indices[k], vertices)
			}
		}
	}
	for i, sm := range s.Seams {
		for _, idx := range [4]uint32{sm.A[0], sm.A[1], sm.B[0], sm.B[1]} {
			if idx >= vertices {
				return fmt.Errorf("%w: seam %d references vertex %d of %d", ErrCorruptAccelData, i, idx, vertices)
			}
		}
	}

	triangles := uint32(len(s.Triangles))
	for i, id := range s.TriangleIndices {
		if id >= triangles {
			return fmt.Errorf("%w: triangle index %d is %d of %d", ErrCorruptAccelData, i, id, triangles)
		}
	}

	entries := uint64(len(s.TriangleIndices))
	for cell := 0; cell < len(s.GridIndices)/2; cell++ {
		count, offset := uint64(s.GridIndices[2*cell]), uint64(s.GridIndices[2*cell+1])
		if count > 0 && offset+count > entries {
			return fmt.Errorf("%w: cell %d run [%d, %d) exceeds %d entries", ErrCorruptAccelData, cell, offset, offset+count, entries)
		}
	}
	return nil
}

// readChunked reads n fixed-size elements, growing the slice as data
// arrives. The result is never nil.
func readChunked[T any](r io.Reader, n int) ([]T, error) {
	out := make([]T, 0, min(n, accelReadChunk))
	buf := make([]T, min(n, accelReadChunk))
	for len(out) < n {
		step := buf[:min(n-len(out), len(buf))]
		if err := binary.Read(r, binary.LittleEndian, step); err != nil {
			return nil, err
		}
		out = append(out, step...)
	}
	return out, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedAccelData
	}
	return err
}
