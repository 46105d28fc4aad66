package compiler

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/match"
)

// Discover walks root and returns schema files matching pattern, sorted.
// Patterns without a '/' match the base name; others match the
// slash-separated path relative to root. Hidden directories are skipped.
func Discover(root, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("compiler: empty discovery pattern")
	}
	byPath := strings.Contains(pattern, "/")
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		subject := d.Name()
		if byPath {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			subject = filepath.ToSlash(rel)
		}
		if match.Match(subject, pattern) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compiler: discover %s: %w", root, err)
	}
	sort.Strings(out)
	log.Debug().Msgf("compiler.Discover root=%s pattern=%s files=%d", root, pattern, len(out))
	return out, nil
}
