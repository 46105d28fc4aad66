package config

import (
	"fmt"
	"os"
)

func Template() string {
	return configTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o644)
}

const configTemplate = `# buffham compiler configuration

# Root directory searched recursively for schema files.
dir = "."
# Base-name pattern for schema files (* and ? wildcards).
pattern = "*.bh"
# Write generated files here, mirroring the schema tree. Empty writes next
# to each schema.
out_dir = ""
# Backends: c, cxx, python, go, manifest.
targets = ["c", "cxx", "python", "go"]
# "per-file" restarts ids at start_id for each schema; "shared" numbers
# messages across the whole batch in sorted path order.
ids = "per-file"
start_id = 0
workers = 4
fail_fast = false
go_package = "messages"
`
