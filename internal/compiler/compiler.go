package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/buffham/internal/config"
	"github.com/danmuck/buffham/internal/gen"
	"github.com/danmuck/buffham/internal/observability"
	"github.com/danmuck/buffham/internal/protocol/schema"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrSkipped     = errors.New("compiler: skipped after earlier failure")
	ErrWorkerPanic = errors.New("compiler: worker panicked")
)

// FileResult is the outcome for one schema file.
type FileResult struct {
	Path     string
	Messages []*schema.Message
	Outputs  []string
	Err      error
}

// Report collects per-file results in input order.
type Report struct {
	Files []FileResult
	// NextID is the first id left unassigned by a shared-id batch, or -1
	// in per-file mode.
	NextID int
}

// Failed counts files that produced no output.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Err joins every per-file error, or nil.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}
	return errors.Join(errs...)
}

// Compiler turns schema files into generated sources.
type Compiler struct {
	cfg      config.Config
	backends []gen.Backend
}

// New resolves cfg.Targets against registry.
func New(cfg config.Config, registry *gen.Registry) (*Compiler, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	backends := make([]gen.Backend, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		b, err := registry.Lookup(target)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return &Compiler{cfg: cfg, backends: backends}, nil
}

// Run discovers schemas under root and compiles them.
func (c *Compiler) Run(ctx context.Context, root string) (*Report, error) {
	paths, err := Discover(root, c.cfg.Pattern)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("compiler.Run root=%s files=%d targets=%s ids=%s workers=%d",
		root, len(paths), strings.Join(c.cfg.Targets, ","), c.cfg.IDs, c.cfg.Workers)
	return c.Compile(ctx, root, paths)
}

// Compile processes paths, which are expected under root when OutDir is set.
// In shared id mode all files are parsed first, sequentially, so ids follow
// the order of paths; generation then fans out. In per-file mode each file
// is parsed and generated independently on the pool.
func (c *Compiler) Compile(ctx context.Context, root string, paths []string) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &Report{Files: make([]FileResult, len(paths)), NextID: -1}
	for i, p := range paths {
		report.Files[i].Path = p
	}

	pool, err := ants.NewPool(c.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("compiler: worker pool: %w", err)
	}
	defer pool.Release()

	fail := func(res *FileResult, err error) {
		res.Err = err
		log.Error().Msgf("compiler.Compile failed file=%s err=%v", res.Path, err)
		if c.cfg.FailFast {
			cancel()
		}
	}

	if c.cfg.IDs == config.IDsShared {
		counter := schema.NewCounter(c.cfg.StartID)
		for i := range report.Files {
			res := &report.Files[i]
			if ctx.Err() != nil {
				res.Err = ErrSkipped
				continue
			}
			msgs, err := schema.ParseFile(res.Path, schema.ParseOptions{Counter: counter})
			if err != nil {
				fail(res, err)
				continue
			}
			res.Messages = msgs
		}
		report.NextID = counter.Peek()
		log.Debug().Msgf("compiler.Compile shared ids start=%d next=%d", c.cfg.StartID, report.NextID)
		warnDuplicateNames(report)
	}

	var wg sync.WaitGroup
	for i := range report.Files {
		res := &report.Files[i]
		if res.Err != nil {
			continue
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					fail(res, fmt.Errorf("%w: %v", ErrWorkerPanic, p))
				}
			}()
			if ctx.Err() != nil {
				res.Err = ErrSkipped
				return
			}
			if res.Messages == nil {
				msgs, err := schema.ParseFile(res.Path, schema.ParseOptions{Counter: schema.NewCounter(c.cfg.StartID)})
				if err != nil {
					fail(res, err)
					return
				}
				res.Messages = msgs
			}
			outputs, err := c.emit(root, res.Path, res.Messages)
			if err != nil {
				fail(res, err)
				return
			}
			res.Outputs = outputs
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			fail(res, fmt.Errorf("compiler: submit: %w", err))
		}
	}
	wg.Wait()

	for _, f := range report.Files {
		switch {
		case f.Err == nil:
			observability.RecordFile(observability.ResultOK, len(f.Messages))
		case errors.Is(f.Err, ErrSkipped):
			observability.RecordFile(observability.ResultSkipped, 0)
		default:
			observability.RecordFile(observability.ResultFailed, 0)
		}
	}
	log.Info().Msgf("compiler.Compile done files=%d failed=%d", len(report.Files), report.Failed())
	if c.cfg.FailFast {
		if err := report.Err(); err != nil {
			return report, err
		}
	}
	return report, nil
}

// emit renders every backend, stages every output next to its destination,
// then renames them into place. A failure at any step removes what was
// staged or renamed, so a file never leaves partial outputs behind.
func (c *Compiler) emit(root, path string, msgs []*schema.Message) ([]string, error) {
	type rendered struct {
		path string
		data []byte
		tmp  string
	}
	outs := make([]rendered, 0, len(c.backends))
	for _, b := range c.backends {
		start := time.Now()
		data, err := gen.Generate(path, msgs, b)
		observability.RecordOutput(b.Name(), len(data), time.Since(start), err == nil)
		if err != nil {
			return nil, err
		}
		dest, err := c.outputPath(root, path, b)
		if err != nil {
			return nil, err
		}
		outs = append(outs, rendered{path: dest, data: data})
	}

	renamed := 0
	undo := func() {
		for i, o := range outs {
			if i < renamed {
				os.Remove(o.path)
			} else if o.tmp != "" {
				os.Remove(o.tmp)
			}
		}
	}
	for i := range outs {
		tmp, err := stageFile(outs[i].path, outs[i].data)
		if err != nil {
			undo()
			return nil, err
		}
		outs[i].tmp = tmp
	}
	written := make([]string, 0, len(outs))
	for _, o := range outs {
		if err := os.Rename(o.tmp, o.path); err != nil {
			undo()
			return nil, fmt.Errorf("compiler: write %s: %w", o.path, err)
		}
		renamed++
		written = append(written, o.path)
		log.Debug().Msgf("compiler.emit wrote=%s bytes=%d", o.path, len(o.data))
	}
	return written, nil
}

func (c *Compiler) outputPath(root, path string, b gen.Backend) (string, error) {
	out := gen.OutputName(path, b)
	if c.cfg.OutDir == "" {
		return out, nil
	}
	rel, err := filepath.Rel(root, out)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("compiler: %s is outside %s", path, root)
	}
	return filepath.Join(c.cfg.OutDir, rel), nil
}

// stageFile writes data to a temp file beside path and returns its name.
func stageFile(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".buffham-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func warnDuplicateNames(report *Report) {
	owner := make(map[string]string)
	for _, f := range report.Files {
		for _, m := range f.Messages {
			if prev, ok := owner[m.Name()]; ok {
				log.Warn().Msgf("compiler.Compile duplicate message name=%s files=%s,%s", m.Name(), prev, f.Path)
				continue
			}
			owner[m.Name()] = f.Path
		}
	}
}
