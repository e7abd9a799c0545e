package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/morphcloud/internal/analysis"
	"github.com/san-kum/morphcloud/internal/automation"
	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/experiment"
	"github.com/san-kum/morphcloud/internal/export"
	"github.com/san-kum/morphcloud/internal/optim"
	"github.com/san-kum/morphcloud/internal/storage"
)

var (
	tolerance float64

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	grid       []string
	metricName string
	trials     int
)

func storedRunCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "column to plot (default: all)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and frames to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render a recorded column as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  svgRun,
	}
	svgCmd.Flags().StringVar(&column, "column", "convergence", "column to render")
	svgCmd.Flags().IntVar(&width, "width", 800, "image width")
	svgCmd.Flags().IntVar(&height, "height", 300, "image height")
	svgCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "settle time and frequency analysis of a recorded column",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "convergence", "column to analyze")
	analyzeCmd.Flags().Float64Var(&tolerance, "tolerance", 0.5, "settle band around the final value")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "run headless and write the final frame as SVG",
		Args:  cobra.NoArgs,
		RunE:  snapshot,
	}
	addEngineFlags(snapshotCmd)
	addFrameFlags(snapshotCmd)
	snapshotCmd.Flags().IntVar(&width, "width", 800, "image width")
	snapshotCmd.Flags().IntVar(&height, "height", 800, "image height")
	snapshotCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return []*cobra.Command{listCmd, plotCmd, exportCmd, exportJSONCmd, svgCmd, analyzeCmd, snapshotCmd}
}

func automationCommands() []*cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addEngineFlags(scenarioCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one morph parameter",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addEngineFlags(sweepCmd)
	addFrameFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "alpha", fmt.Sprintf("parameter %v", config.MorphParams))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.01, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.2, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search morph parameters minimising a metric",
		Example: "  morphcloud tune --grid alpha=0.02,0.05,0.1 --grid drift=0,0.5 --metric convergence",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addEngineFlags(tuneCmd)
	addFrameFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "convergence", "metric to minimise")

	trialsCmd := &cobra.Command{
		Use:   "trials",
		Short: "repeat a run over consecutive seeds",
		Args:  cobra.NoArgs,
		RunE:  runTrials,
	}
	addEngineFlags(trialsCmd)
	addFrameFlags(trialsCmd)
	trialsCmd.Flags().IntVar(&trials, "n", 10, "number of trials")

	return []*cobra.Command{scenarioCmd, sweepCmd, tuneCmd, trialsCmd}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSHAPE\tFINAL\tMODE\tPARTICLES\tFRAMES\tCONVERGENCE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%.3f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Shape,
			run.FinalShape,
			run.Mode,
			run.Particles,
			run.Frames,
			run.Metrics["convergence"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []storage.FrameRecord, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	records, err := st.LoadFrames(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no data to plot")
	}
	return meta, records, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("shape: %s -> %s\n", meta.Shape, meta.FinalShape)
	fmt.Printf("samples: %d\n\n", len(records))

	columns := storage.Columns
	if name := stringFlag(cmd, "column"); name != "" {
		columns = []string{name}
	}

	for _, name := range columns {
		values, _, err := storage.Column(records, name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeOutput(body string) error {
	if output == "" {
		_, err := fmt.Println(body)
		return err
	}
	if err := os.WriteFile(output, []byte(body), 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", output)
	return nil
}

func svgRun(cmd *cobra.Command, args []string) error {
	_, records, err := loadRun(args[0])
	if err != nil {
		return err
	}
	values, times, err := storage.Column(records, stringFlag(cmd, "column"))
	if err != nil {
		return err
	}
	svg := export.SeriesToSVG(values, times, intFlag(cmd, "width"), intFlag(cmd, "height"), "#00ffcc")
	return writeOutput(svg)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}
	column := stringFlag(cmd, "column")
	values, times, err := storage.Column(records, column)
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s (%s)\n\n", meta.ID, column)

	s := analysis.Summarize(values)
	fmt.Printf("samples: %d\n", s.Samples)
	fmt.Printf("mean: %.4f  std: %.4f\n", s.Mean, s.StdDev)
	fmt.Printf("range: %.4f .. %.4f\n", s.Min, s.Max)

	if t, ok := analysis.SettleTime(values, times, tolerance); ok {
		fmt.Printf("settled within %.3f after %.2fs\n", tolerance, t)
	} else {
		fmt.Printf("did not settle within %.3f\n", tolerance)
	}

	if len(times) < 2 {
		return nil
	}
	step := times[1] - times[0]
	ps, err := analysis.PowerSpectrum(values)
	if err != nil {
		return nil
	}
	freq, _, _ := analysis.DominantFrequency(values, step)

	fmt.Println()
	fmt.Println(asciigraph.Plot(ps[:max(len(ps)/4, 1)],
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum ("+column+")"),
	))
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func snapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	be, ok := compute.ByName(cfg.Particles.Backend, cfg.Particles.Workers)
	if !ok {
		return fmt.Errorf("unknown backend: %s", cfg.Particles.Backend)
	}
	eng, err := engine.New(cfg, be)
	if err != nil {
		return err
	}
	w, h := intFlag(cmd, "width"), intFlag(cmd, "height")
	eng.Resize(w, h)

	var last *engine.Frame
	eng.AddRenderer(frameKeeper(func(f *engine.Frame) { last = f }))
	if _, err := eng.RunFrames(context.Background(), frames, dt); err != nil {
		return err
	}

	var sb strings.Builder
	if err := export.FrameToSVG(&sb, last, eng.Camera(), last.Colors, last.Sizes, w, h); err != nil {
		return err
	}
	return writeOutput(sb.String())
}

type frameKeeper func(*engine.Frame)

func (k frameKeeper) PositionsChanged(f *engine.Frame) { k(f) }

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
	if scenario.Description != "" {
		fmt.Println(scenario.Description)
	}
	results, err := automation.RunScenario(ctx, scenario, base, st, slog.Default())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTEP\tFRAMES\tFINAL\tCHANGES\tCONVERGENCE\tRUN")
	for _, r := range results {
		res := r.Outcome.Result
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%.3f\t%s\n",
			r.Name, res.Frames, res.FinalShape, res.ShapeChanges, res.Metrics["convergence"], r.RunID)
	}
	w.Flush()
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(context.Background(), &automation.ParameterSweep{
		Base:      base,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
		Frames:    frames,
		Dt:        dt,
	}, slog.Default())
	if err != nil {
		return err
	}

	names := sortedKeys(results[0].Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(sweepParam), strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range results {
		fmt.Fprintf(w, "%.4f", r.ParamValue)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[n])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// parseGrid turns "alpha=0.02,0.05" flags into parallel name and value lists.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, nil, fmt.Errorf("grid %q: expected name=v1,v2", entry)
		}
		var values []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %q: %w", entry, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(grid) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := *base
		for k, v := range params {
			if err := cfg.Morph.SetParam(k, v); err != nil {
				return nil, err
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		exp := experiment.New(experiment.Config{Engine: &cfg, Frames: frames, Dt: dt})
		return exp, exp.Setup(nil, slog.Default())
	}

	fmt.Printf("searching %d candidates for lowest %s...\n", search.Size(), metricName)
	best, val, err := search.Search(context.Background(), build, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.6f\n", metricName, val)
	for _, k := range sortedKeys(best) {
		fmt.Printf("  %s: %g\n", k, best[k])
	}
	return nil
}

func runTrials(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarloConfig{
		Base:      base,
		NumTrials: trials,
		Frames:    frames,
		Dt:        dt,
		Seed:      base.Particles.Seed,
	}, slog.Default())
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no trials ran")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD")
	for _, name := range sortedKeys(results[0].Metrics) {
		mean, std := automation.MonteCarloStats(results, name)
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\n", name, mean, std)
	}
	return w.Flush()
}
