package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/buffham/internal/config"
	"github.com/rs/zerolog/log"
)

const defaultConfigName = "buffham.toml"

// genFlags holds command-line overrides. Only flags the user set replace
// values from the config file.
type genFlags struct {
	dir        string
	configPath string
	pattern    string
	outDir     string
	targets    string
	ids        string
	startID    int
	workers    int
	failFast   bool
	goPackage  string
	metrics    string
	set        map[string]bool
}

func (f *genFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.dir, "d", ".", "directory searched recursively for schema files")
	fs.StringVar(&f.configPath, "config", "", "config file (defaults to buffham.toml in -d when present)")
	fs.StringVar(&f.pattern, "pattern", "", "schema file pattern")
	fs.StringVar(&f.outDir, "out", "", "output directory mirroring the schema tree")
	fs.StringVar(&f.targets, "targets", "", "comma-separated backends")
	fs.StringVar(&f.ids, "ids", "", "id mode: per-file|shared")
	fs.IntVar(&f.startID, "start-id", 0, "first message id")
	fs.IntVar(&f.workers, "workers", 0, "generation workers")
	fs.BoolVar(&f.failFast, "fail-fast", false, "stop at the first failing schema")
	fs.StringVar(&f.goPackage, "go-package", "", "package name for generated Go")
	fs.StringVar(&f.metrics, "metrics", "", "write Prometheus textfile metrics to this path")
}

func (f *genFlags) markSet(fs *flag.FlagSet) {
	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
}

func resolveConfig(f genFlags) (config.Config, error) {
	cfg := config.Default()

	path := f.configPath
	if path == "" {
		candidate := filepath.Join(f.dir, defaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		log.Debug().Msgf("buffham.config loaded=%s", path)
		// A relative dir in the file is relative to the file itself.
		if !filepath.IsAbs(cfg.Dir) {
			cfg.Dir = filepath.Join(filepath.Dir(path), cfg.Dir)
		}
		if cfg.OutDir != "" && !filepath.IsAbs(cfg.OutDir) {
			cfg.OutDir = filepath.Join(filepath.Dir(path), cfg.OutDir)
		}
	}

	if f.set["d"] || path == "" {
		cfg.Dir = f.dir
	}
	if f.set["pattern"] {
		cfg.Pattern = strings.TrimSpace(f.pattern)
	}
	if f.set["out"] {
		cfg.OutDir = strings.TrimSpace(f.outDir)
	}
	if f.set["targets"] {
		cfg.Targets = config.NormalizeTargets([]string{f.targets})
	}
	if f.set["ids"] {
		cfg.IDs = config.IDMode(strings.ToLower(strings.TrimSpace(f.ids)))
	}
	if f.set["start-id"] {
		cfg.StartID = f.startID
	}
	if f.set["workers"] {
		cfg.Workers = f.workers
	}
	if f.set["fail-fast"] {
		cfg.FailFast = f.failFast
	}
	if f.set["go-package"] {
		cfg.GoPackage = strings.TrimSpace(f.goPackage)
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
