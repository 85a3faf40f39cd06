package accel

import (
	"errors"
	"math"
	"math/rand"
	"slices"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/lightbake/pkg/geom"
)

func TestBuildCube(t *testing.T) {
	for _, width := range []IndexWidth{IndexWidth16, IndexWidth32} {
		t.Run(width.String(), func(t *testing.T) {
			s, err := Build([]Mesh{cubeMesh(width)}, Options{GridSize: 2, BoundsMargin: 0.1})
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			if len(s.Vertices) != 24 || len(s.Triangles) != 12 {
				t.Fatalf("expected 24 vertices and 12 triangles, got %d and %d", len(s.Vertices), len(s.Triangles))
			}
			if len(s.Seams) != 0 {
				t.Errorf("cube with per-face normals should have no seams, got %v", s.Seams)
			}

			var total uint32
			seen := make([]bool, len(s.Triangles))
			g := s.Grid()
			for z := 0; z < 2; z++ {
				for y := 0; y < 2; y++ {
					for x := 0; x < 2; x++ {
						cell := s.CellTriangles(x, y, z)
						// Every octant holds one corner of the cube and thus
						// parts of three faces.
						if len(cell) < 3 {
							t.Errorf("cell (%d,%d,%d) has %d triangles, want >= 3", x, y, z, len(cell))
						}
						for _, id := range cell {
							seen[id] = true
							if !geom.TriangleAABBOverlap(g.CellBounds(x, y, z), s.TrianglePositions(int(id))) {
								t.Errorf("triangle %d listed in cell (%d,%d,%d) it does not overlap", id, x, y, z)
							}
						}
						total += s.GridIndices[2*g.CellIndex(x, y, z)]
					}
				}
			}

			if int(total) != len(s.TriangleIndices) {
				t.Errorf("cell counts sum to %d, triangle index list has %d", total, len(s.TriangleIndices))
			}
			if total < 12 {
				t.Errorf("cell counts sum to %d, want >= 12", total)
			}
			for id, ok := range seen {
				if !ok {
					t.Errorf("triangle %d not recorded in any cell", id)
				}
			}
		})
	}
}

func TestBuildRunsMatchVoxelization(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	meshes := []Mesh{randomMesh(rng, 150, -5, 5), randomMesh(rng, 150, 0, 12)}

	s, err := Build(meshes, Options{GridSize: 8, BoundsMargin: 0.1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	g := s.Grid()
	want := make(map[uint32][]uint32)
	for i := range s.Triangles {
		for _, e := range g.Voxelize(s.TrianglePositions(i), uint32(i), nil) {
			want[e.Cell] = append(want[e.Cell], e.Triangle)
		}
	}

	type run struct{ offset, count uint32 }
	var runs []run
	for cell := 0; cell < g.CellCount(); cell++ {
		count, offset := s.GridIndices[2*cell], s.GridIndices[2*cell+1]
		if count == 0 {
			if offset != 0 {
				t.Errorf("empty cell %d has offset %d", cell, offset)
			}
			if len(want[uint32(cell)]) != 0 {
				t.Errorf("cell %d empty, voxelizer recorded %v", cell, want[uint32(cell)])
			}
			continue
		}
		got := s.TriangleIndices[offset : offset+count]
		if !slices.Equal(got, want[uint32(cell)]) {
			t.Errorf("cell %d: run %v, voxelized %v", cell, got, want[uint32(cell)])
		}
		runs = append(runs, run{offset, count})
	}

	// Runs tile the triangle index list without overlap.
	sort.Slice(runs, func(i, j int) bool { return runs[i].offset < runs[j].offset })
	var next uint32
	for _, r := range runs {
		if r.offset != next {
			t.Fatalf("run at %d, expected %d", r.offset, next)
		}
		next += r.count
	}
	if int(next) != len(s.TriangleIndices) {
		t.Errorf("runs cover %d ids, list has %d", next, len(s.TriangleIndices))
	}
}

func TestBuildDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	meshes := []Mesh{randomMesh(rng, 200, -3, 3), cubeMesh(IndexWidth16)}

	a, err := Build(meshes, Options{GridSize: 16, BoundsMargin: 0.1})
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	b, err := Build(meshes, Options{GridSize: 16, BoundsMargin: 0.1})
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}

	if !slices.Equal(a.GridIndices, b.GridIndices) {
		t.Error("grid indices differ between runs")
	}
	if !slices.Equal(a.TriangleIndices, b.TriangleIndices) {
		t.Error("triangle indices differ between runs")
	}
	if !slices.Equal(a.Seams, b.Seams) {
		t.Error("seams differ between runs")
	}
}

func TestBuildBoundsMargin(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := randomMesh(rng, 50, -2, 7)
	const eps = 0.25

	s, err := Build([]Mesh{m}, Options{GridSize: 4, BoundsMargin: eps})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, p := range m.Positions {
		for i := 0; i < 3; i++ {
			if p[i]-eps < s.Bounds.Min[i] || p[i]+eps > s.Bounds.Max[i] {
				t.Fatalf("vertex %v closer than %v to bounds %v", p, eps, s.Bounds)
			}
		}
	}
}

func TestBuildVertexOffsets(t *testing.T) {
	a := cubeMesh(IndexWidth16)
	b := cubeMesh(IndexWidth32)
	for i := range b.Positions {
		b.Positions[i] = b.Positions[i].Add(mgl32.Vec3{5, 0, 0})
	}

	s, err := Build([]Mesh{a, b}, Options{GridSize: 4, BoundsMargin: 0.1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(s.Vertices) != 48 || len(s.Triangles) != 24 {
		t.Fatalf("expected 48 vertices and 24 triangles, got %d and %d", len(s.Vertices), len(s.Triangles))
	}
	for i := 12; i < 24; i++ {
		tri := s.Triangles[i]
		for k := 0; k < 3; k++ {
			if tri.Indices[k] < 24 {
				t.Fatalf("triangle %d of second mesh references vertex %d of first mesh", i, tri.Indices[k])
			}
			v := s.Vertices[tri.Indices[k]]
			if v.Position[0] < 4 {
				t.Fatalf("triangle %d vertex %v not from second mesh", i, v.Position)
			}
		}
	}

	// Each attribute comes from its own source array.
	v := s.Vertices[30]
	if v.Position != b.Positions[6] || v.Normal != b.Normals[6] || v.UV0 != b.UV0[6] || v.UV1 != b.UV1[6] {
		t.Errorf("vertex 30 = %+v, want attributes of second mesh vertex 6", v)
	}
}

func TestBuildEmpty(t *testing.T) {
	s, err := Build(nil, Options{GridSize: 2, BoundsMargin: 0.5})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Seams == nil || len(s.Seams) != 0 {
		t.Errorf("expected empty non-nil seams, got %#v", s.Seams)
	}
	if len(s.GridIndices) != 16 || len(s.TriangleIndices) != 0 {
		t.Errorf("unexpected grid sizes: %d grid words, %d ids", len(s.GridIndices), len(s.TriangleIndices))
	}
	want := geom.AABB{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}}
	if s.Bounds != want {
		t.Errorf("bounds = %v, want %v", s.Bounds, want)
	}
}

func TestBuildOptionErrors(t *testing.T) {
	mesh := []Mesh{cubeMesh(IndexWidth32)}

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"zero grid", Options{GridSize: 0, BoundsMargin: 0.1}, ErrGridSize},
		{"grid of one", Options{GridSize: 1, BoundsMargin: 0.1}, ErrGridSize},
		{"not power of two", Options{GridSize: 100, BoundsMargin: 0.1}, ErrGridSize},
		{"too large", Options{GridSize: 2 * MaxGridSize, BoundsMargin: 0.1}, ErrGridSize},
		{"negative margin", Options{GridSize: 4, BoundsMargin: -1}, ErrBoundsMargin},
		{"nan margin", Options{GridSize: 4, BoundsMargin: float32(math.NaN())}, ErrBoundsMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(mesh, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if s != nil {
				t.Error("expected no result on error")
			}
		})
	}
}

func TestBuildAggregatesMeshErrors(t *testing.T) {
	good := cubeMesh(IndexWidth32)
	badIndex := cubeMesh(IndexWidth32)
	badIndex.Indices32[5] = 1000
	badAttr := cubeMesh(IndexWidth16)
	badAttr.UV0 = badAttr.UV0[:10]

	s, err := Build([]Mesh{good, badIndex, badAttr}, DefaultOptions())
	if err == nil {
		t.Fatal("expected error for malformed meshes")
	}
	if s != nil {
		t.Error("expected no result on error")
	}
	if !errors.Is(err, ErrIndexOutOfRange) || !errors.Is(err, ErrAttributeMismatch) {
		t.Errorf("expected both validation errors, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 aggregated errors, got %d", n)
	}
}

func TestBuildVerboseLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts := Options{GridSize: 4, BoundsMargin: 0.1, Verbose: true, Logger: zap.New(core)}

	if _, err := Build([]Mesh{cubeMesh(IndexWidth32)}, opts); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, msg := range []string{"geometry assembled", "triangles voxelized", "grid flattened", "first triangle", "mesh seams", "mesh assembled"} {
		if logs.FilterMessage(msg).Len() != 1 {
			t.Errorf("expected one %q entry, got %d", msg, logs.FilterMessage(msg).Len())
		}
	}

	core, logs = observer.New(zapcore.DebugLevel)
	opts.Verbose = false
	opts.Logger = zap.New(core)
	if _, err := Build([]Mesh{cubeMesh(IndexWidth32)}, opts); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if logs.FilterMessage("first triangle").Len() != 0 {
		t.Error("first triangle logged without verbose")
	}
}

func TestStructuresStats(t *testing.T) {
	s, err := Build([]Mesh{cubeMesh(IndexWidth32)}, Options{GridSize: 2, BoundsMargin: 0.1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	st := s.Stats()
	if st.Vertices != 24 || st.Triangles != 12 || st.Seams != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.OccupiedCells != 8 {
		t.Errorf("expected 8 occupied cells, got %d", st.OccupiedCells)
	}
	if st.Entries != len(s.TriangleIndices) {
		t.Errorf("entries %d != %d", st.Entries, len(s.TriangleIndices))
	}
	if st.MaxCellTriangles < 3 {
		t.Errorf("expected at least 3 triangles in the fullest cell, got %d", st.MaxCellTriangles)
	}

	size := s.CellSize()
	if size[0] != s.Bounds.Size()[0]/2 {
		t.Errorf("cell size %v does not match bounds %v", size, s.Bounds)
	}
}

func TestCellTrianglesOutsideGrid(t *testing.T) {
	s, err := Build([]Mesh{cubeMesh(IndexWidth32)}, Options{GridSize: 2, BoundsMargin: 0.1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := s.CellTriangles(0, 1, 0); len(got) == 0 {
		t.Fatal("cube corner cell should hold triangles")
	}

	// x == G would alias the next row without the range check; y and z past
	// the end would index beyond GridIndices.
	coords := [][3]int{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}, {-1, 0, 0}, {0, 0, 5}}
	for _, c := range coords {
		if got := s.CellTriangles(c[0], c[1], c[2]); got != nil {
			t.Errorf("CellTriangles(%v) = %v, want nil", c, got)
		}
	}
}
