package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// IDMode selects how message ids are assigned across a batch.
type IDMode string

const (
	// IDsPerFile restarts ids at StartID for every schema file.
	IDsPerFile IDMode = "per-file"
	// IDsShared draws ids from one counter across the whole batch, in
	// sorted path order.
	IDsShared IDMode = "shared"
)

// Config is the compiler's runtime configuration.
type Config struct {
	Dir       string
	Pattern   string
	OutDir    string
	Targets   []string
	IDs       IDMode
	StartID   int
	Workers   int
	FailFast  bool
	GoPackage string
}

// fileConfig is buffham.toml's key mapping.
type fileConfig struct {
	Dir       string   `toml:"dir"`
	Pattern   string   `toml:"pattern"`
	OutDir    string   `toml:"out_dir"`
	Targets   []string `toml:"targets"`
	IDs       string   `toml:"ids"`
	StartID   int      `toml:"start_id"`
	Workers   int      `toml:"workers"`
	FailFast  bool     `toml:"fail_fast"`
	GoPackage string   `toml:"go_package"`
}

func Default() Config {
	return Config{
		Dir:       ".",
		Pattern:   "*.bh",
		Targets:   []string{"c", "cxx", "python", "go"},
		IDs:       IDsPerFile,
		StartID:   0,
		Workers:   runtime.GOMAXPROCS(0),
		GoPackage: "messages",
	}
}

// Load overlays keys present in path onto Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("dir") {
		cfg.Dir = strings.TrimSpace(raw.Dir)
	}
	if meta.IsDefined("pattern") {
		cfg.Pattern = strings.TrimSpace(raw.Pattern)
	}
	if meta.IsDefined("out_dir") {
		cfg.OutDir = strings.TrimSpace(raw.OutDir)
	}
	if meta.IsDefined("targets") {
		cfg.Targets = NormalizeTargets(raw.Targets)
	}
	if meta.IsDefined("ids") {
		cfg.IDs = IDMode(strings.ToLower(strings.TrimSpace(raw.IDs)))
	}
	if meta.IsDefined("start_id") {
		cfg.StartID = raw.StartID
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("fail_fast") {
		cfg.FailFast = raw.FailFast
	}
	if meta.IsDefined("go_package") {
		cfg.GoPackage = strings.TrimSpace(raw.GoPackage)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("dir is required")
	}
	if strings.TrimSpace(cfg.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	switch cfg.IDs {
	case IDsPerFile, IDsShared:
	default:
		return fmt.Errorf("ids must be %q or %q, got %q", IDsPerFile, IDsShared, cfg.IDs)
	}
	if cfg.StartID < 0 || cfg.StartID > 255 {
		return fmt.Errorf("start_id must be within 0..255, got %d", cfg.StartID)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return nil
}

// NormalizeTargets lowercases, trims and de-duplicates target names,
// splitting comma lists.
func NormalizeTargets(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			v := strings.ToLower(strings.TrimSpace(part))
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
