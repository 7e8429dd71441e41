// Command msdls evaluates a multispeckle dynamic light scattering
// acquisition: a directory of numbered detector frames is divided into
// blocks, every block becomes one speckle and the brightness weighted
// ensemble autocorrelation is written out and fitted.
//
// Usage:
//
//	msdls [flags] [frame-dir]
//
// Settings come from an optional YAML file given with -config; flags that
// are set explicitly override it.
//
// Examples:
//
//	msdls frames1
//	msdls -block 8 -skip-top 1 -skip-bottom 1 -db speckle.db frames1
//	msdls -config run.yaml -extremes 0.1 -side worst -rank fakf
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/sgostarter/i/l"

	"github.com/cwbudde/algo-speckle/dls/model"
	"github.com/cwbudde/algo-speckle/dls/pipeline"
	"github.com/cwbudde/algo-speckle/internal/config"
)

func main() {
	configPath := flag.String("config", "", "YAML run file")
	block := flag.Int("block", 10, "block edge length in pixels")
	skipTop := flag.Int("skip-top", 0, "block rows skipped at the top")
	skipBottom := flag.Int("skip-bottom", 0, "block rows skipped at the bottom")
	skipLeft := flag.Int("skip-left", 0, "block columns skipped at the left")
	skipRight := flag.Int("skip-right", 0, "block columns skipped at the right")
	workers := flag.Int("workers", 0, "goroutines building speckles (0 = one per CPU)")
	dropDark := flag.Bool("drop-dark", false, "leave blocks without intensity out instead of failing")
	fraction := flag.Float64("extremes", 0, "fraction of speckles kept in the extremal sub-ensemble (0 = off)")
	lag := flag.Int("lag", 1, "lag used to rank speckles")
	side := flag.String("side", "both", "extremes to keep: best, worst or both")
	rank := flag.String("rank", "iakf", "speckle ranking: iakf, fakf, intensity or time_average")
	table := flag.String("table", "", "intensity table path (default <frame-dir>.asc)")
	enslog := flag.String("enslog", "", "ensemble table path (default enslog.asc)")
	dbPath := flag.String("db", "", "SQLite result database")
	quiet := flag.Bool("quiet", false, "suppress progress logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: msdls [flags] [frame-dir]\n\n")
		fmt.Fprintf(os.Stderr, "Computes the ensemble intensity and field autocorrelation of a frame sequence.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  msdls frames1\n")
		fmt.Fprintf(os.Stderr, "  msdls -block 8 -db speckle.db frames1\n")
		fmt.Fprintf(os.Stderr, "  msdls -config run.yaml -extremes 0.1 -side worst\n")
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fail(err)
		}
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, apply func()) {
		if set[name] {
			apply()
		}
	}
	override("block", func() { cfg.BlockSize = *block })
	override("skip-top", func() { cfg.Skip.Top = *skipTop })
	override("skip-bottom", func() { cfg.Skip.Bottom = *skipBottom })
	override("skip-left", func() { cfg.Skip.Left = *skipLeft })
	override("skip-right", func() { cfg.Skip.Right = *skipRight })
	override("workers", func() { cfg.Workers = *workers })
	override("drop-dark", func() { cfg.DropDegenerate = *dropDark })
	override("extremes", func() { cfg.Extremes.Fraction = *fraction })
	override("lag", func() { cfg.Extremes.Lag = *lag })
	override("side", func() { cfg.Extremes.Side = *side })
	override("rank", func() { cfg.Extremes.Rank = *rank })
	override("table", func() { cfg.Output.IntensityTable = *table })
	override("enslog", func() { cfg.Output.EnsembleTable = *enslog })
	override("db", func() { cfg.Output.SQLite = *dbPath })

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}
	if flag.NArg() == 1 {
		cfg.Frames = flag.Arg(0)
	}
	if cfg.Frames == "" {
		fmt.Fprintf(os.Stderr, "error: no frame directory given\n")
		flag.Usage()
		os.Exit(2)
	}

	abs, err := filepath.Abs(cfg.Frames)
	if err != nil {
		fail(err)
	}
	if cfg.Output.IntensityTable == "" {
		cfg.Output.IntensityTable = abs + ".asc"
	}
	if cfg.Output.EnsembleTable == "" {
		cfg.Output.EnsembleTable = "enslog.asc"
	}
	cfg.Frames = filepath.Base(abs)

	var logger l.Wrapper = l.NewConsoleLoggerWrapper()
	if *quiet {
		logger = l.NewNopLoggerWrapper()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &pipeline.Runner{FS: os.DirFS(filepath.Dir(abs)), Logger: logger}
	res, err := r.Run(ctx, cfg)
	if err != nil {
		fail(err)
	}
	printSummary(res)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func printSummary(res *pipeline.Result) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	row := func(k, format string, args ...any) {
		if _, err := fmt.Fprintf(tw, "%s\t"+format+"\n", append([]any{k}, args...)...); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to write summary: %v\n", err)
		}
	}

	if res.RunID != "" {
		row("Run", "%s", res.RunID)
	}
	row("Frames", "%d", res.Frames)
	row("Speckles", "%d", res.Stats.Speckles)
	if len(res.Skipped) > 0 {
		row("Dark blocks dropped", "%d", len(res.Skipped))
	}
	row("Average intensity", "%.6g", res.Stats.Average)
	row("IAKF[0], IAKF[1]", "%.6g, %.6g", res.Stats.IAKF0, res.Stats.IAKF1)
	row("Temporal contrast", "%.4g", res.TemporalContrast.Mean)
	row("Spatial contrast", "%.4g", res.SpatialContrast.Mean)
	if res.Extremes != nil {
		row("Extremal speckles", "%d", res.Extremes.Len())
	}

	switch {
	case res.FitErr != nil:
		row("Fit", "failed: %v", res.FitErr)
	case res.Fit != nil:
		row("Fit points", "%d", res.Fit.Points)
		row("Fit", "%s", model.String(res.Fit.Single))
		if c := res.Fit.Cumulant; c != nil {
			row("Cumulant fit", "%s", model.String(*c))
		}
		if res.Fit.Radius > 0 {
			row("Diffusion coefficient [m^2/s]", "%.4g", res.Fit.Diffusion)
			row("Hydrodynamic radius [m]", "%.4g", res.Fit.Radius)
		}
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
