package gen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/buffham/internal/protocol"
)

var (
	ErrUnmappedType   = errors.New("gen: field type has no backend mapping")
	ErrUnknownBackend = errors.New("gen: unknown backend")
	ErrBackendExists  = errors.New("gen: backend already registered")
	ErrReservedName   = errors.New("gen: name is reserved by backend")
	ErrNameCollision  = errors.New("gen: generated names collide")
)

// GenerateError is a generation failure for one backend.
type GenerateError struct {
	Backend string
	Message string
	Err     error
}

func (e *GenerateError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gen: backend=%s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("gen: backend=%s message=%s: %v", e.Backend, e.Message, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Scalar is a backend's spelling of one catalog type.
type Scalar struct {
	// Native is the target scalar type name.
	Native string
	// Codec is the target's pack/put token for the type.
	Codec string
}

// TypeMap must cover every protocol.Catalog entry.
type TypeMap map[protocol.FieldType]Scalar

// Backend renders a Unit in one target language.
type Backend interface {
	Name() string
	// Suffix is appended to the schema stem to name the output file.
	Suffix() string
	Types() TypeMap
	Reserved(name string) bool
	Render(u *Unit) ([]byte, error)
}

// Registry stores backends by name.
type Registry struct {
	items map[string]Backend
}

// NewRegistry registers every backend, failing on duplicates or type maps
// that miss a catalog entry.
func NewRegistry(backends ...Backend) (*Registry, error) {
	r := &Registry{items: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds one backend.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return fmt.Errorf("%w: nil", ErrUnknownBackend)
	}
	name := b.Name()
	if _, ok := r.items[name]; ok {
		return fmt.Errorf("%w: %s", ErrBackendExists, name)
	}
	if err := CheckTypeMap(b); err != nil {
		return err
	}
	r.items[name] = b
	return nil
}

// CheckTypeMap verifies b maps every catalog type.
func CheckTypeMap(b Backend) error {
	types := b.Types()
	for _, t := range protocol.Catalog() {
		s, ok := types[t]
		if !ok || s.Native == "" || s.Codec == "" {
			return &GenerateError{Backend: b.Name(), Err: fmt.Errorf("%w: %s", ErrUnmappedType, t)}
		}
	}
	return nil
}

// Lookup returns a backend by name.
func (r *Registry) Lookup(name string) (Backend, error) {
	b, ok := r.items[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownBackend, name, strings.Join(r.Names(), ","))
	}
	return b, nil
}

// Names returns backend names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.items))
	for name := range r.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Options tunes backends that need per-project settings.
type Options struct {
	GoPackage string
}

// DefaultRegistry returns every built-in backend.
func DefaultRegistry(opts Options) *Registry {
	r, err := NewRegistry(
		NewC(),
		NewCxx(),
		NewPython(),
		NewGo(opts.GoPackage),
		NewManifest(),
	)
	if err != nil {
		// Built-in type maps are fixed; a failure here is a programming error.
		panic(err)
	}
	return r
}

func wordSet(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}
