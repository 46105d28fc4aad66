package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/danmuck/buffham/internal/compiler"
	"github.com/danmuck/buffham/internal/config"
	"github.com/danmuck/buffham/internal/gen"
	"github.com/danmuck/buffham/internal/logging"
	"github.com/danmuck/buffham/internal/observability"
	"github.com/danmuck/buffham/internal/protocol/codec"
	"github.com/danmuck/buffham/internal/protocol/frame"
	"github.com/danmuck/buffham/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

const usage = `usage: buffham [command] [flags]

commands:
  gen      compile schema files (default)
  init     write a buffham.toml template
  inspect  decode a stream of frames against a schema
  targets  list available backends
`

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "gen"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "gen":
		err = runGen(ctx, args, stdout, stderr)
	case "init":
		err = runInit(args, stdout, stderr)
	case "inspect":
		err = runInspect(args, stdout, stderr)
	case "targets":
		for _, name := range gen.DefaultRegistry(gen.Options{}).Names() {
			fmt.Fprintln(stdout, name)
		}
	case "help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprint(stderr, usage)
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "buffham: %v\n", err)
		return 1
	}
	return 0
}

func runGen(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f genFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	f.markSet(fs)

	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}
	c, err := compiler.New(cfg, gen.DefaultRegistry(gen.Options{GoPackage: cfg.GoPackage}))
	if err != nil {
		return err
	}
	report, err := c.Run(ctx, cfg.Dir)
	if f.metrics != "" {
		if merr := observability.WriteTextfile(f.metrics); merr != nil {
			log.Warn().Msgf("buffham.gen metrics write failed path=%s err=%v", f.metrics, merr)
		}
	}
	if err != nil {
		return err
	}

	outputs := 0
	for _, file := range report.Files {
		outputs += len(file.Outputs)
	}
	fmt.Fprintf(stdout, "compiled %d schema files, wrote %d outputs\n", len(report.Files)-report.Failed(), outputs)
	if report.NextID >= 0 {
		fmt.Fprintf(stdout, "shared ids assigned %d..%d\n", cfg.StartID, report.NextID-1)
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d schema files failed:\n%w", report.Failed(), len(report.Files), report.Err())
	}
	return nil
}

func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("output", defaultConfigName, "output path for config template")
	validate := fs.Bool("validate", false, "validate an existing config file instead of writing one")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *validate {
		if _, err := config.Load(*output); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated config at %s\n", *output)
		return nil
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	log.Info().Msgf("buffham.init wrote=%s", *output)
	fmt.Fprintf(stdout, "wrote config template to %s\n", *output)
	return nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	schemaPath := fs.String("schema", "", "schema file (.bh) or generated manifest (_bh.json)")
	input := fs.String("in", "-", "frame stream to decode, - for stdin")
	startID := fs.Int("start-id", 0, "first message id when reading a .bh schema")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *schemaPath == "" {
		return fmt.Errorf("inspect: -schema is required")
	}

	messages, err := loadMessages(*schemaPath, *startID)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if *input != "-" {
		file, err := os.Open(*input)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}

	limits := frame.DefaultLimits()
	for n := 0; ; n++ {
		f, err := frame.ReadFrame(in, limits)
		if errors.Is(err, io.EOF) {
			log.Debug().Msgf("buffham.inspect frames=%d", n)
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect: frame %d: %w", n, err)
		}
		inst, err := codec.Dispatch(messages, f.Bytes())
		if err != nil {
			return fmt.Errorf("inspect: frame %d: %w", n, err)
		}
		fmt.Fprintf(stdout, "%d id=%d %s\n", n, inst.Message.ID(), inst)
	}
}

func loadMessages(path string, startID int) ([]*schema.Message, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return gen.LoadManifest(data)
	}
	return schema.ParseFile(path, schema.ParseOptions{Counter: schema.NewCounter(startID)})
}
