package gen

import (
	"path/filepath"
	"strings"

	"github.com/danmuck/buffham/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// Generate renders messages parsed from source with backend b.
func Generate(source string, messages []*schema.Message, b Backend) ([]byte, error) {
	u, err := Build(source, messages, b)
	if err != nil {
		log.Error().Msgf("gen.Generate build failed backend=%s source=%s err=%v", b.Name(), source, err)
		return nil, err
	}
	out, err := b.Render(u)
	if err != nil {
		log.Error().Msgf("gen.Generate render failed backend=%s source=%s err=%v", b.Name(), source, err)
		return nil, err
	}
	log.Debug().Msgf("gen.Generate ok backend=%s source=%s types=%d bytes=%d", b.Name(), u.Source, len(u.Types), len(out))
	return out, nil
}

// GenerateTarget looks up target in r and renders with it.
func (r *Registry) GenerateTarget(source string, messages []*schema.Message, target string) ([]byte, error) {
	b, err := r.Lookup(target)
	if err != nil {
		return nil, err
	}
	return Generate(source, messages, b)
}

// OutputName is the generated file name for schemaPath: the schema's stem
// plus the backend suffix, in the same directory.
func OutputName(schemaPath string, b Backend) string {
	dir := filepath.Dir(schemaPath)
	base := filepath.Base(schemaPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+b.Suffix())
}
