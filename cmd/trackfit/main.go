// Command trackfit fits track candidates to the roads of each event with a
// retina-style voting grid in the R-Z and conformal views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/trackfit/internal/config"
	"github.com/banshee-data/trackfit/internal/db"
	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
	"github.com/banshee-data/trackfit/internal/fit/monitor"
	"github.com/banshee-data/trackfit/internal/fit/pipeline"
	"github.com/banshee-data/trackfit/internal/monitoring"
	"github.com/banshee-data/trackfit/internal/roadio"
	"github.com/banshee-data/trackfit/internal/version"
)

var (
	input      = flag.String("input", "", "Input events (.json, .jsonl or .db)")
	output     = flag.String("output", "", "Output tracks (.jsonl or .db); empty fits without writing")
	configPath = flag.String("config", "", "Tuning config (.json, .yaml or .yml); empty uses built-in defaults")
	maxEvents  = flag.Int("n", -1, "Maximum number of events to process (-1 for all)")
	workers    = flag.Int("workers", 0, "Concurrent event workers (0 uses the config value, then one per CPU)")
	verbosity  = flag.Int("v", 1, "Verbosity: 0 quiet, 1 summary, 2 progress, 3 per-road debug")
	plotDir    = flag.String("plot-dir", "", "Write PNG heat maps of the voting grids to this directory")
	plotLimit  = flag.Int("plot-limit", 20, "Maximum number of roads to plot")
	listen     = flag.String("listen", "", "Serve the monitor on this address after the run (e.g. :8082)")
	showVer    = flag.Bool("version", false, "Print version information and exit")
)

// options mirrors the command-line flags.
type options struct {
	Input      string
	Output     string
	ConfigPath string
	MaxEvents  int
	Workers    int
	Verbosity  int
	PlotDir    string
	PlotLimit  int
	Listen     string
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			log.Fatalf("trackfit migrate: %v", err)
		}
		return
	}
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		Input:      *input,
		Output:     *output,
		ConfigPath: *configPath,
		MaxEvents:  *maxEvents,
		Workers:    *workers,
		Verbosity:  *verbosity,
		PlotDir:    *plotDir,
		PlotLimit:  *plotLimit,
		Listen:     *listen,
	}
	if err := run(ctx, opts); err != nil {
		log.Fatalf("trackfit: %v", err)
	}
}

// runMigrate handles "trackfit migrate [-db path] <action>".
func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "trackfit.db", "SQLite database to migrate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(os.Stdout, fs.Args(), *dbPath)
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		cfg := config.EmptyTuningConfig()
		return cfg, cfg.Validate()
	}
	return config.LoadTuningConfig(path)
}

func loadEvents(ctx context.Context, path string, limit int) ([]l1hits.Event, error) {
	switch filepath.Ext(path) {
	case ".db":
		if limit == 0 {
			return nil, nil
		}
		store, err := db.NewDB(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadEvents(ctx, limit)
	default:
		return roadio.ReadEventsFile(path, limit)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.Verbosity <= 0 {
		monitoring.SetLogger(nil)
	}
	if opts.Input == "" {
		return errors.New("-input is required")
	}
	switch ext := filepath.Ext(opts.Output); ext {
	case "", ".db", ".jsonl", ".json":
	default:
		return fmt.Errorf("output must have .db, .jsonl or .json extension, got %q", ext)
	}

	tuning, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fitter, err := l4tracks.NewFitter(tuning.FitConfig())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	events, err := loadEvents(ctx, opts.Input, opts.MaxEvents)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Input, err)
	}
	monitoring.Verbosef(opts.Verbosity >= pipeline.VerbositySummary, "Read %d events from %s", len(events), opts.Input)

	runner := pipeline.NewRunner(fitter)
	runner.Workers = tuning.GetWorkers()
	if opts.Workers > 0 {
		runner.Workers = opts.Workers
	}
	runner.MaxTracksPerEvent = tuning.GetMaxTracksPerEvent()
	runner.ProgressEvery = tuning.GetProgressEvery()
	runner.Verbosity = opts.Verbosity

	results, _, err := runner.Run(ctx, events)
	if err != nil {
		return err
	}

	if opts.PlotDir != "" {
		if err := plotRoads(fitter, events, opts.PlotDir, opts.PlotLimit); err != nil {
			return err
		}
	}

	var store *db.DB
	switch filepath.Ext(opts.Output) {
	case ".db":
		store, err = writeDB(ctx, opts, fitter.Config(), events, results)
		if err != nil {
			return err
		}
		defer store.Close()
	case ".jsonl", ".json":
		if err := writeJSONL(opts.Output, results); err != nil {
			return err
		}
	}
	if opts.Output != "" {
		monitoring.Verbosef(opts.Verbosity >= pipeline.VerbositySummary, "Wrote %d events to %s", len(results), opts.Output)
	}

	if opts.Listen == "" {
		return nil
	}
	ws, err := monitor.NewWebServer(monitor.WebServerConfig{Address: opts.Listen, DB: store, Fitter: fitter})
	if err != nil {
		return err
	}
	return ws.Start(ctx)
}

func plotRoads(fitter *l4tracks.Fitter, events []l1hits.Event, dir string, limit int) error {
	gp, err := monitor.NewGridPlotter(dir, limit)
	if err != nil {
		return err
	}
	for _, ev := range events {
		for i, road := range ev.Roads {
			if limit > 0 && gp.Written() >= limit {
				return nil
			}
			res, zr, uv := fitter.FitRoadWithGrids(i, road)
			if _, err := gp.PlotRoad(ev.ID, i, zr, uv, res.ParamsZR, res.ParamsUV); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDB(ctx context.Context, opts options, cfg l4tracks.Config, events []l1hits.Event, results []pipeline.EventResult) (*db.DB, error) {
	store, err := db.NewDB(opts.Output)
	if err != nil {
		return nil, err
	}
	if filepath.Clean(opts.Output) != filepath.Clean(opts.Input) {
		if err := store.InsertEvents(ctx, events); err != nil {
			store.Close()
			return nil, fmt.Errorf("storing input: %w", err)
		}
	}
	run, err := store.CreateRun(ctx, opts.Input, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := store.WriteEventResults(ctx, run.RunID, results); err != nil {
		store.Close()
		return nil, err
	}
	monitoring.Verbosef(opts.Verbosity >= pipeline.VerbositySummary, "Stored run %s", run.RunID)
	return store, nil
}

func writeJSONL(path string, results []pipeline.EventResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := roadio.NewResultWriter(f)
	if err := w.WriteAll(results); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if w.Count() != len(results) {
		f.Close()
		return fmt.Errorf("wrote %d of %d events", w.Count(), len(results))
	}
	return f.Close()
}
