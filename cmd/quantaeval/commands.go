package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/dshills/QuantaEval/internal/codec"
	"github.com/dshills/QuantaEval/internal/config"
	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/source"
	"github.com/dshills/QuantaEval/internal/sql/evaluator"
	"github.com/dshills/QuantaEval/internal/sql/executor"
	"github.com/dshills/QuantaEval/internal/sql/frontend"
	"github.com/dshills/QuantaEval/internal/sql/function"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.LoadFromFlags(c.GlobalString("log-level"), c.Int("workers"), c.Int("batch-size"), c.String("compression"))
	if d := c.String("driver"); d != "" {
		cfg.Source.Driver = d
	}
	if dsn := c.String("dsn"); dsn != "" {
		cfg.Source.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and builds a logger writing to the app's
// error stream.
func setup(c *cli.Context) (*config.Config, log.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	logger := log.Build(cfg.LogConfig(), c.App.ErrWriter)
	log.SetDefault(logger)
	return cfg, logger, nil
}

func openSource(ctx context.Context, c *cli.Context, cfg *config.Config, logger log.Logger) (source.Source, error) {
	input, query := c.String("input"), c.String("query")
	switch {
	case input != "" && query != "":
		return nil, fmt.Errorf("--input and --query are mutually exclusive")
	case query != "":
		if cfg.Source.DSN == "" {
			return nil, fmt.Errorf("--query needs --dsn")
		}
		return source.OpenSQL(ctx, cfg.Source.Driver, cfg.Source.DSN, query, cfg.Engine.BatchSize, logger)
	case strings.EqualFold(filepath.Ext(input), ".qeb"):
		return source.OpenFrames(input)
	case input != "":
		return source.OpenParquet(input, cfg.ToParquetOptions(logger))
	default:
		return nil, fmt.Errorf("no input: use --input or --query")
	}
}

// compile parses every --expr against schema and binds the results.
func compile(c *cli.Context, cfg *config.Config, schema *vector.Schema, logger log.Logger) (*executor.Projection, error) {
	texts := c.StringSlice("expr")
	if len(texts) == 0 {
		return nil, fmt.Errorf("no expressions: use --expr")
	}

	parser := frontend.NewParser(function.Builtins(), cfg.Engine.ParseCacheEntries)
	var exprs []executor.Expr
	for _, text := range texts {
		targets, err := parser.ParseTargets(text, schema)
		if err != nil {
			return nil, &exprError{text: text, err: err}
		}
		for _, t := range targets {
			exprs = append(exprs, executor.Expr{Name: t.Name, Node: t.Node})
		}
	}

	binder := evaluator.NewBinder(evaluator.WithLogger(logger))
	cache, err := evaluator.NewCache(binder, cfg.Engine.EvaluatorCacheEntries)
	if err != nil {
		return nil, err
	}
	return executor.Compile(cache, evaluator.LayoutOf(schema), exprs...)
}

func evalCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithRunID(ctx, uuid.New().String())
	runLogger := logger.WithContext(ctx)

	src, err := openSource(ctx, c, cfg, runLogger)
	if err != nil {
		return err
	}
	defer src.Close()

	projection, err := compile(c, cfg, src.Schema(), runLogger)
	if err != nil {
		return err
	}
	runLogger.Info("evaluation started",
		log.String("input", src.Schema().String()),
		log.String("output", projection.Schema().String()),
		log.Int("workers", cfg.Engine.MaxParallelWorkers))

	var (
		sink   func(*vector.Batch) error
		finish = func() error { return nil }
	)
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		frames, err := newFrameSink(f, path, projection.Schema(), cfg.CompressionType(), runLogger)
		if err != nil {
			f.Close()
			return err
		}
		sink, finish = frames.write, frames.close
	} else {
		p := newTablePrinter(c.App.Writer, projection.Schema())
		p.header()
		sink = p.batch
	}

	runner := executor.NewRunner(projection, cfg.ToRunnerConfig(logger))
	stats, err := runner.Run(ctx, src, sink)
	if ferr := finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.ErrWriter, Green(fmt.Sprintf("(%d rows in %d batches, %s)", stats.Rows, stats.Batches, stats.Elapsed)))
	return nil
}

// frameSink encodes result batches to a frame file.
type frameSink struct {
	w      io.WriteCloser
	path   string
	schema *vector.Schema
	enc    *codec.Encoder
	logger log.Logger
}

func newFrameSink(w io.WriteCloser, path string, schema *vector.Schema, c codec.CompressionType, logger log.Logger) (*frameSink, error) {
	enc, err := codec.NewEncoder(w, c)
	if err != nil {
		return nil, err
	}
	return &frameSink{w: w, path: path, schema: schema, enc: enc, logger: logger}, nil
}

func (s *frameSink) write(b *vector.Batch) error {
	return s.enc.Encode(s.schema, b)
}

// close closes the file. A failed close means the frames may not be on disk.
func (s *frameSink) close() error {
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.path, err)
	}
	stats := s.enc.Stats()
	s.logger.Info("frames written",
		log.String("path", s.path),
		log.Int64("frames", stats.Frames.Load()),
		log.Int64("bytes", stats.BytesCompressed.Load()),
		log.Any("ratio", stats.Ratio()))
	return nil
}

func explainCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	src, err := openSource(ctx, c, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	projection, err := compile(c, cfg, src.Schema(), logger)
	if err != nil {
		return err
	}
	for i, ev := range projection.Evaluators() {
		f := projection.Schema().Fields[i]
		fmt.Fprintf(c.App.Writer, "%s %s = %s\n", Cyan(f.Name), Yellow(f.Type.Name()), ev.String())
	}
	return nil
}

func schemaCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	src, err := openSource(context.Background(), c, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	for i, f := range src.Schema().Fields {
		fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\n", i, Cyan(f.Name), Yellow(f.Type.Name()))
	}
	return nil
}

func functionsCommand(c *cli.Context) error {
	registry := function.Builtins()
	for _, name := range registry.Names() {
		desc, _ := registry.Lookup(name)
		line := desc.Signature()
		if len(desc.Aliases) > 0 {
			line += Magenta(" (aliases: " + strings.Join(desc.Aliases, ", ") + ")")
		}
		fmt.Fprintln(c.App.Writer, line)
	}
	return nil
}
