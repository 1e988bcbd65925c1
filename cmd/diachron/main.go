// Package main is the diachron CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/diachron/internal/align"
	"github.com/hyperjump/diachron/internal/cli"
	"github.com/hyperjump/diachron/internal/comparison"
	"github.com/hyperjump/diachron/internal/config"
	"github.com/hyperjump/diachron/internal/export"
	"github.com/hyperjump/diachron/internal/models"
	"github.com/hyperjump/diachron/internal/render"
	"github.com/hyperjump/diachron/internal/server"
	"github.com/hyperjump/diachron/internal/storage"
	"github.com/hyperjump/diachron/internal/watcher"
	"github.com/hyperjump/diachron/pkg/utils"
	urfave "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/diachron/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory takes precedence, and a missing default file falls back to built-in
// defaults. Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// splitPeriods accepts repeated flags as well as comma-separated lists.
func splitPeriods(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// components holds everything a command needs.
type components struct {
	cfg     *config.Config
	logger  *zap.Logger
	loader  *storage.Loader
	store   storage.Store
	engine  *comparison.Engine
	metrics *server.Metrics
}

func (c *components) Close() {
	if c.engine != nil {
		_ = c.engine.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
	_ = c.logger.Sync()
}

func initializeComponents(ctx *urfave.Context) (*components, error) {
	cfg, resolved, err := loadConfig(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || ctx.Bool("debug")
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	c := &components{cfg: cfg, logger: logger, metrics: server.NewMetrics()}
	c.loader = storage.NewLoader(cfg.Models.RootDir,
		storage.WithCacheSize(cfg.Models.CacheSize),
		storage.WithLoadWorkers(cfg.Models.LoadWorkers),
		storage.WithLoaderLogger(logger))

	solve := []align.Option{align.WithMinShared(cfg.Analysis.MinShared)}
	if cfg.Analysis.UnitNormalize {
		solve = append(solve, align.WithUnitNormalization())
	}
	alignOpts := []align.AlignerOption{
		align.WithSolveOptions(solve...),
		align.WithWorkers(cfg.Analysis.AlignWorkers),
		align.WithLogger(logger),
		align.WithObserver(c.metrics.ObserveAlignment),
	}

	engineOpts := []comparison.Option{comparison.WithLogger(logger)}
	if cfg.Storage.DatabasePath != "" {
		store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		c.store = store
		engineOpts = append(engineOpts, comparison.WithStore(store))
		if cfg.Storage.CacheTransformsOrDefault() {
			alignOpts = append(alignOpts, align.WithCache(store))
		}
	}
	renderer := render.NewPlotRenderer(render.WithSize(cfg.Render.WidthCm, cfg.Render.HeightCm), render.WithLogger(logger))
	engineOpts = append(engineOpts,
		comparison.WithAligner(align.NewAligner(alignOpts...)),
		comparison.WithRenderer(renderer, cfg.Render.OutputDir, cfg.Render.Format))
	c.engine = comparison.NewEngine(c.loader, engineOpts...)
	return c, nil
}

func (c *components) limits() models.Limits {
	return models.Limits{DefaultNeighbors: c.cfg.Analysis.DefaultNeighbors, MaxNeighbors: c.cfg.Analysis.MaxNeighbors}
}

func newApp(stdout io.Writer) *urfave.App {
	periodsFlag := &urfave.StringSliceFlag{
		Name:     "periods",
		Aliases:  []string{"p"},
		Usage:    "period labels, oldest first (repeat or comma-separate)",
		Required: true,
	}
	outputFlag := &urfave.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format: text or json",
		Value:   "text",
	}
	neighborsFlag := &urfave.IntFlag{
		Name:  "n",
		Usage: "number of neighbors per period (0 = configured default)",
	}
	exportFlag := &urfave.StringFlag{
		Name:  "export",
		Usage: "also write the results to this .xlsx workbook",
	}

	return &urfave.App{
		Name:    "diachron",
		Usage:   "Semantic drift of words across period embedding models",
		Version: version,
		Writer:  stdout,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Value:   defaultConfigPath,
			},
			&urfave.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*urfave.Command{
			{
				Name:   "server",
				Usage:  "Start the HTTP API",
				Action: runServer,
			},
			{
				Name:      "synonyms",
				Usage:     "Nearest neighbors of a word in each period",
				ArgsUsage: "<word>",
				Flags:     []urfave.Flag{periodsFlag, neighborsFlag, outputFlag, exportFlag},
				Action:    runSynonyms,
			},
			{
				Name:      "similarity",
				Usage:     "Similarity of two words in each period",
				ArgsUsage: "<word-a> <word-b>",
				Flags:     []urfave.Flag{periodsFlag, outputFlag, exportFlag},
				Action:    runSimilarity,
			},
			{
				Name:      "drift",
				Usage:     "Project a word and its neighbors across periods into 2D",
				ArgsUsage: "<word>",
				Flags: []urfave.Flag{periodsFlag, neighborsFlag, outputFlag,
					&urfave.BoolFlag{Name: "render", Usage: "write a plot to the configured output directory"},
					&urfave.BoolFlag{Name: "save", Usage: "store the frame in the database"},
				},
				Action: runDrift,
			},
			{
				Name:      "align",
				Usage:     "Align a period onto a reference period and write the result",
				ArgsUsage: "<source-period> <reference-period>",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "out", Usage: "output file (.mod, .mod.gz, .mod.zst, .mod.lz4) or - for stdout", Value: "-"},
				},
				Action: runAlign,
			},
			{
				Name:   "periods",
				Usage:  "List available period models",
				Flags:  []urfave.Flag{outputFlag},
				Action: runPeriods,
			},
			{
				Name:   "status",
				Usage:  "Show models, cache and store status",
				Flags:  []urfave.Flag{outputFlag},
				Action: runStatus,
			},
			{
				Name:  "version",
				Usage: "Show version",
				Action: func(c *urfave.Context) error {
					_, err := fmt.Fprintf(c.App.Writer, "diachron version %s\n", version)
					return err
				},
			},
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(ctx *urfave.Context) error {
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if c.cfg.Watch.Enabled {
		w := watcher.NewWatcher(c.cfg.Models.RootDir, c.engine.Invalidate,
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(c.cfg.Watch.DebounceMs)*time.Millisecond))
		if err := w.Start(watchCtx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
	}

	srv := server.NewServer(c.engine, &c.cfg.Server, c.limits(), logger, server.WithMetrics(c.metrics))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runSynonyms(ctx *urfave.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("usage: diachron synonyms --periods <p1,p2,...> <word>")
	}
	format, err := cli.ParseFormat(ctx.String("output"))
	if err != nil {
		return err
	}
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	req := models.SynonymsRequest{Word: ctx.Args().First(), Periods: splitPeriods(ctx.StringSlice("periods")), Neighbors: ctx.Int("n")}
	if err := req.Validate(c.limits()); err != nil {
		return err
	}
	start := time.Now()
	results, err := c.engine.Synonyms(ctx.Context, req.Word, req.Periods, req.Neighbors)
	if err != nil {
		return err
	}
	resp := &models.SynonymsResponse{Word: req.Word, Results: results, QueryTime: time.Since(start).Milliseconds()}
	if path := ctx.String("export"); path != "" {
		if err := export.WriteWorkbook(path, results, nil); err != nil {
			return err
		}
	}
	return cli.WriteSynonyms(ctx.App.Writer, resp, format)
}

func runSimilarity(ctx *urfave.Context) error {
	if ctx.NArg() != 2 {
		return errors.New("usage: diachron similarity --periods <p1,p2,...> <word-a> <word-b>")
	}
	format, err := cli.ParseFormat(ctx.String("output"))
	if err != nil {
		return err
	}
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	req := models.SimilarityRequest{WordA: ctx.Args().Get(0), WordB: ctx.Args().Get(1), Periods: splitPeriods(ctx.StringSlice("periods"))}
	if err := req.Validate(); err != nil {
		return err
	}
	start := time.Now()
	results, err := c.engine.SimilarityOverTime(ctx.Context, req.WordA, req.WordB, req.Periods)
	if err != nil {
		return err
	}
	resp := &models.SimilarityResponse{WordA: req.WordA, WordB: req.WordB, Results: results, QueryTime: time.Since(start).Milliseconds()}
	if path := ctx.String("export"); path != "" {
		if err := export.WriteWorkbook(path, nil, results); err != nil {
			return err
		}
	}
	return cli.WriteSimilarities(ctx.App.Writer, resp, format)
}

func runDrift(ctx *urfave.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("usage: diachron drift --periods <p1,p2,...> <word>")
	}
	format, err := cli.ParseFormat(ctx.String("output"))
	if err != nil {
		return err
	}
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	req := models.DriftRequest{Word: ctx.Args().First(), Periods: splitPeriods(ctx.StringSlice("periods")), Neighbors: ctx.Int("n")}
	if err := req.Validate(c.limits()); err != nil {
		return err
	}

	if ctx.Bool("render") {
		path, frame, err := c.engine.RenderContextShift(ctx.Context, req.Word, req.Periods, req.Neighbors)
		if err != nil {
			return err
		}
		c.logger.Info("plot written", zap.String("path", path))
		return cli.WriteFrame(ctx.App.Writer, frame, format)
	}
	if ctx.Bool("save") {
		stored, err := c.engine.RecordContextShift(ctx.Context, req.Word, req.Periods, req.Neighbors)
		if err != nil {
			return err
		}
		c.logger.Info("frame stored", zap.String("id", stored.ID))
		return cli.WriteFrame(ctx.App.Writer, stored.Frame, format)
	}
	frame, err := c.engine.ContextShift(ctx.Context, req.Word, req.Periods, req.Neighbors)
	if err != nil {
		return err
	}
	return cli.WriteFrame(ctx.App.Writer, frame, format)
}

func runAlign(ctx *urfave.Context) error {
	if ctx.NArg() != 2 {
		return errors.New("usage: diachron align [--out file] <source-period> <reference-period>")
	}
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	source, reference := ctx.Args().Get(0), ctx.Args().Get(1)
	out := ctx.String("out")
	if out == "-" || out == "" {
		_, err := c.engine.AlignPeriod(ctx.Context, source, reference, ctx.App.Writer)
		return err
	}

	w, err := storage.Create(out)
	if err != nil {
		return err
	}
	tr, err := c.engine.AlignPeriod(ctx.Context, source, reference, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return err
	}
	c.logger.Info("aligned period written",
		zap.String("source", source),
		zap.String("reference", reference),
		zap.Int("shared_words", tr.SharedWords),
		zap.Float64("residual", tr.Residual),
		zap.String("path", out))
	return nil
}

func runPeriods(ctx *urfave.Context) error {
	format, err := cli.ParseFormat(ctx.String("output"))
	if err != nil {
		return err
	}
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	periods, err := c.engine.Periods()
	if err != nil {
		return err
	}
	return cli.WritePeriods(ctx.App.Writer, periods, format)
}

func runStatus(ctx *urfave.Context) error {
	format, err := cli.ParseFormat(ctx.String("output"))
	if err != nil {
		return err
	}
	c, err := initializeComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	st, err := c.engine.Status(ctx.Context)
	if err != nil {
		return err
	}
	return cli.WriteStatus(ctx.App.Writer, st, format)
}
