package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagVerbose    = flag.Bool("verbose", false, "Log first triangle and per-mesh seam counts")
	flagGrid       = flag.Int("grid", 0, "Grid cells per axis (power of two)")
	flagMargin     = flag.Float64("margin", -1, "Bounds margin in world units")
	flagOutput     = flag.String("o", "", "Output file for the acceleration structures")
	flagNoCompress = flag.Bool("no-compress", false, "Store the grid table uncompressed")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments: the command and its operands.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagVerbose {
		cfg.Build.Verbose = true
	}
	if *flagGrid > 0 {
		cfg.Build.GridSize = *flagGrid
	}
	if *flagMargin >= 0 {
		cfg.Build.BoundsMargin = float32(*flagMargin)
	}
	if *flagOutput != "" {
		cfg.Output.Path = *flagOutput
	}
	if *flagNoCompress {
		cfg.Output.Compress = false
	}
}
