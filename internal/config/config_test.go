package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/buffham/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buffham.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTemplateMatchesDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, Template()))
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Default()
	if cfg.Dir != def.Dir || cfg.Pattern != def.Pattern || cfg.IDs != def.IDs || cfg.GoPackage != def.GoPackage {
		t.Fatalf("template drifted from defaults: %+v", cfg)
	}
	if strings.Join(cfg.Targets, ",") != strings.Join(def.Targets, ",") {
		t.Fatalf("targets: %v", cfg.Targets)
	}
	if cfg.Workers != 4 {
		t.Fatalf("workers: %d", cfg.Workers)
	}
}

func TestLoadOverlaysOnlyDefinedKeys(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, `
targets = [" Go ", "python,c", "go"]
ids = "SHARED"
start_id = 10
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(cfg.Targets, ",") != "go,python,c" {
		t.Fatalf("targets: %v", cfg.Targets)
	}
	if cfg.IDs != IDsShared || cfg.StartID != 10 {
		t.Fatalf("ids: %s start=%d", cfg.IDs, cfg.StartID)
	}
	if cfg.Pattern != "*.bh" || cfg.Workers != Default().Workers {
		t.Fatalf("undefined keys should keep defaults: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad ids":      `ids = "global"`,
		"bad start":    `start_id = 300`,
		"no targets":   `targets = []`,
		"zero workers": `workers = 0`,
		"unknown key":  `colour = "blue"`,
		"syntax":       `dir = `,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWriteTemplateRespectsOverwrite(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "buffham.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}
