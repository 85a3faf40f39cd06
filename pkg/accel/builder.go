package accel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Build configuration errors.
var (
	ErrGridSize        = errors.New("grid size must be a power of two")
	ErrBoundsMargin    = errors.New("bounds margin must be a non-negative number")
	ErrTooManyVertices = errors.New("vertex pool exceeds 32-bit indexing")
)

const (
	// DefaultGridSize is the grid resolution the bake shaders are compiled for.
	DefaultGridSize = 128
	// MaxGridSize bounds the G³ table allocation.
	MaxGridSize = 1024
	// DefaultBoundsMargin keeps geometry on the scene faces inside the grid.
	DefaultBoundsMargin = 0.1
)

// Options controls a build.
type Options struct {
	GridSize     int
	BoundsMargin float32
	// Verbose logs per-mesh seam statistics and the first plotted triangle.
	Verbose bool
	// Logger receives build diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the settings used by the baker.
func DefaultOptions() Options {
	return Options{
		GridSize:     DefaultGridSize,
		BoundsMargin: DefaultBoundsMargin,
	}
}

// ValidateGridSize checks that n is a power of two in [2, MaxGridSize].
func ValidateGridSize(n int) error {
	if n < 2 || n > MaxGridSize || n&(n-1) != 0 {
		return fmt.Errorf("%w in [2, %d], got %d", ErrGridSize, MaxGridSize, n)
	}
	return nil
}

// Build validates the meshes and produces the acceleration structures.
// Meshes are read only. Any error aborts the build.
func Build(meshes []Mesh, opts Options) (*Structures, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := ValidateGridSize(opts.GridSize); err != nil {
		return nil, err
	}
	margin := float64(opts.BoundsMargin)
	if margin < 0 || math.IsNaN(margin) || math.IsInf(margin, 0) {
		return nil, fmt.Errorf("%w, got %v", ErrBoundsMargin, opts.BoundsMargin)
	}

	var errs error
	var totalVertices uint64
	for i := range meshes {
		if err := meshes[i].Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mesh %d (%q): %w", i, meshes[i].Name, err))
		}
		totalVertices += uint64(meshes[i].VertexCount())
	}
	if totalVertices > math.MaxUint32 {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d vertices", ErrTooManyVertices, totalVertices))
	}
	if errs != nil {
		return nil, errs
	}

	start := time.Now()
	asm := newAssembler(meshes, log, opts.Verbose)
	for i := range meshes {
		asm.addMesh(i, &meshes[i])
	}
	s := asm.finish(opts.BoundsMargin)
	s.GridSize = opts.GridSize

	log.Info("geometry assembled",
		zap.Int("meshes", len(meshes)),
		zap.Int("vertices", len(s.Vertices)),
		zap.Int("triangles", len(s.Triangles)),
		zap.Int("seams", len(s.Seams)),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	grid := s.Grid()
	entries := make([]CellEntry, 0, len(s.Triangles))
	for i := range s.Triangles {
		tri := s.TrianglePositions(i)
		if opts.Verbose && i == 0 {
			log.Info("first triangle",
				zap.Float32s("v0", tri[0][:]),
				zap.Float32s("v1", tri[1][:]),
				zap.Float32s("v2", tri[2][:]),
				zap.Float32s("bounds_min", s.Bounds.Min[:]),
				zap.Float32s("bounds_max", s.Bounds.Max[:]))
		}
		entries = grid.Voxelize(tri, uint32(i), entries)
	}

	log.Info("triangles voxelized",
		zap.Int("grid_size", s.GridSize),
		zap.Int("entries", len(entries)),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	s.GridIndices, s.TriangleIndices = Flatten(s.GridSize, entries)

	log.Info("grid flattened",
		zap.Int("occupied_cells", s.Stats().OccupiedCells),
		zap.Duration("elapsed", time.Since(start)))

	return s, nil
}
