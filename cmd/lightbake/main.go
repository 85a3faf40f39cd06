// lightbake builds the lightmap baker's triangle acceleration structures
// from a glTF scene and inspects the resulting dumps.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/config"
	"github.com/Faultbox/lightbake/internal/importer"
	"github.com/Faultbox/lightbake/internal/logger"
	"github.com/Faultbox/lightbake/pkg/accel"
	"github.com/Faultbox/lightbake/pkg/formats"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	defer logger.Sync()

	command, rest := args[0], args[1:]
	switch command {
	case "build":
		err = cmdBuild(cfg, rest)
	case "info":
		err = cmdInfo(rest)
	case "cell":
		err = cmdCell(rest)
	case "config":
		err = cmdConfig(cfg, rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`lightbake - lightmap acceleration structure builder

Usage:
  lightbake [flags] <command> [arguments]

Commands:
  build <scene.gltf>              Import a scene and write the structures
  info <file.lmas>                Show dump header and statistics
  cell <file.lmas> <x> <y> <z>    List the triangles of one grid cell
  config [path]                   Write the effective config (default: user config dir)

Flags:
  -config <path>   Config file (default ./lightbake.yaml or user config dir)
  -grid <n>        Grid cells per axis, power of two (default 128)
  -margin <f>      Bounds margin in world units (default 0.1)
  -o <path>        Output file (default scene.lmas)
  -no-compress     Store the grid table uncompressed
  -verbose         Log first triangle and per-mesh seam counts
  -debug           Enable debug logging

Examples:
  lightbake build level.glb
  lightbake -grid 256 -o level.lmas build level.gltf
  lightbake info level.lmas
  lightbake cell level.lmas 10 4 7
  lightbake -grid 256 config ./lightbake.yaml`)
}

func cmdBuild(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lightbake build <scene.gltf>")
	}
	start := time.Now()

	meshes, err := importer.Load(args[0], cfg.ImportOptions(logger.Named("importer")))
	if err != nil {
		return err
	}
	logger.Debug("scene loaded", zap.String("path", args[0]), zap.Int("meshes", len(meshes)))

	s, err := accel.Build(meshes, cfg.BuildOptions(logger.Named("accel")))
	if err != nil {
		return err
	}

	hdr, err := formats.SaveAccel(cfg.Output.Path, s, cfg.WriteOptions())
	if err != nil {
		return err
	}

	st := s.Stats()
	logger.Info("structures written",
		zap.String("path", cfg.Output.Path),
		zap.Stringer("build_id", hdr.BuildID),
		zap.Int("meshes", len(meshes)),
		zap.Int("triangles", st.Triangles),
		zap.Int("seams", st.Seams),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lightbake info <file.lmas>")
	}

	s, hdr, err := formats.LoadAccel(args[0])
	if err != nil {
		return err
	}
	st := s.Stats()
	cells := s.GridSize * s.GridSize * s.GridSize
	if st.Triangles == 0 {
		logger.Warn("dump holds no triangles", zap.String("path", args[0]))
	}

	fmt.Printf("File:        %s\n", args[0])
	fmt.Printf("Version:     %d\n", hdr.Version)
	fmt.Printf("Build ID:    %s\n", hdr.BuildID)
	fmt.Printf("Compressed:  %v\n", hdr.Flags&formats.AccelGridCompressed != 0)
	fmt.Println()
	fmt.Printf("Grid:        %d^3 (%d cells)\n", s.GridSize, cells)
	fmt.Printf("Bounds:      %v .. %v\n", s.Bounds.Min, s.Bounds.Max)
	fmt.Printf("Cell size:   %v\n", s.CellSize())
	fmt.Println()
	fmt.Printf("Vertices:    %d\n", st.Vertices)
	fmt.Printf("Triangles:   %d\n", st.Triangles)
	fmt.Printf("Seams:       %d\n", st.Seams)
	fmt.Printf("Entries:     %d\n", st.Entries)
	fmt.Printf("Occupied:    %d (%.2f%%)\n", st.OccupiedCells, 100*float64(st.OccupiedCells)/float64(cells))
	fmt.Printf("Max/cell:    %d\n", st.MaxCellTriangles)
	if st.OccupiedCells > 0 {
		fmt.Printf("Avg/cell:    %.2f\n", float64(st.Entries)/float64(st.OccupiedCells))
	}
	return nil
}

func cmdCell(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: lightbake cell <file.lmas> <x> <y> <z>")
	}

	var coord [3]int
	for i, a := range args[1:4] {
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("cell coordinate %q: %w", a, err)
		}
		coord[i] = v
	}

	s, _, err := formats.LoadAccel(args[0])
	if err != nil {
		return err
	}
	for _, v := range coord {
		if v < 0 || v >= s.GridSize {
			return fmt.Errorf("cell %v outside grid of size %d", coord, s.GridSize)
		}
	}

	box := s.Grid().CellBounds(coord[0], coord[1], coord[2])
	tris := s.CellTriangles(coord[0], coord[1], coord[2])

	fmt.Printf("Cell %v: %v .. %v\n", coord, box.Min, box.Max)
	fmt.Printf("Triangles: %d\n", len(tris))
	for _, id := range tris {
		p := s.TrianglePositions(int(id))
		fmt.Printf("  %6d  %v %v %v\n", id, p[0], p[1], p[2])
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logger.Info("config written", zap.String("path", args[0]))
		return nil
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	logger.Info("config written", zap.String("dir", config.ConfigDir()))
	return nil
}
