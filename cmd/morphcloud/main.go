package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/morphcloud/internal/audio"
	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/experiment"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/gui"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
	"github.com/san-kum/morphcloud/internal/storage"
	"github.com/san-kum/morphcloud/internal/stream"
	"github.com/san-kum/morphcloud/internal/viz"
)

var (
	dataDir   string
	logFormat string
	logLevel  string
	logFile   string

	// engine flags
	configFile string
	preset     string
	seed       int64
	particles  int
	shapeName  string
	modeName   string
	handScript string
	backend    string
	workers    int
	fps        int
	withAudio  bool

	// headless runs
	frames      int
	dt          float64
	recordEvery int

	// stored runs
	column string
	width  int
	height int
	output string

	addr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "morphcloud",
		Short: "interactive particle shape morphing",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd)
		},
		// default to the terminal viewer when no command given
		RunE: runLive,
	}
	addEngineFlags(rootCmd)

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".morphcloud", "data directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless and store per-frame statistics",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addEngineFlags(runCmd)
	addFrameFlags(runCmd)
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "store one frame in N")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "terminal viewer (mouse repels, click attracts)",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addEngineFlags(liveCmd)

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "window renderer",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	addEngineFlags(guiCmd)
	guiCmd.Flags().IntVar(&width, "width", 0, "window width (default from config)")
	guiCmd.Flags().IntVar(&height, "height", 0, "window height (default from config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the engine and stream frames over websocket",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addEngineFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark ticks per second across particle counts and backends",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&frames, "frames", 120, "frames per measurement")

	shapesCmd := &cobra.Command{
		Use:   "shapes",
		Short: "list shapes and their finger gestures",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			gestures := make(map[shape.Kind]int)
			for f := 0; f <= gesture.MaxFingers; f++ {
				if k, ok := gesture.ShapeFor(f); ok {
					gestures[k] = f
				}
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSHAPE\tFINGERS")
			for i, k := range shape.All() {
				fingers := "-"
				if f, ok := gestures[k]; ok {
					fingers = fmt.Sprint(f)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, k, fingers)
			}
			w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSHAPE\tPARTICLES\tALPHA")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\n", name, p.Shape, p.Particles.Count, p.Morph.Alpha)
			}
			w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file with the defaults (or a preset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	scriptCmd := &cobra.Command{
		Use:   "script [path]",
		Short: "write an example hand-tracking script that visits every shape",
		Args:  cobra.ExactArgs(1),
		RunE:  writeExampleScript,
	}

	rootCmd.AddCommand(runCmd, liveCmd, guiCmd, serveCmd, benchCmd, shapesCmd, presetsCmd, initCmd, scriptCmd)
	rootCmd.AddCommand(storedRunCommands()...)
	rootCmd.AddCommand(automationCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.IntVar(&particles, "particles", config.DefaultParticles, "particle count")
	f.StringVar(&shapeName, "shape", "sphere", "starting shape")
	f.StringVar(&modeName, "mode", "pointer", "interaction mode (pointer, hand)")
	f.StringVar(&handScript, "hand-script", "", "replay hand samples from a CSV file")
	f.StringVar(&backend, "backend", "cpu", "compute backend (cpu, serial)")
	f.IntVar(&workers, "workers", 0, "cpu workers (0 = all cores)")
	f.IntVar(&fps, "fps", config.DefaultFPS, "frame rate")
	f.BoolVar(&withAudio, "audio", false, "enable audio feedback")
}

func addFrameFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&frames, "frames", experiment.DefaultFrames, "number of frames")
	cmd.Flags().Float64Var(&dt, "dt", experiment.DefaultDt, "seconds per frame")
}

func setupLogging(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format: %s", logFormat)
	}

	// the full-screen viewers own the terminal
	if logFile == "" && (cmd.Name() == "live" || cmd == cmd.Root()) {
		handler = slog.DiscardHandler
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// intFlag and stringFlag read a flag from the command's own set. Several
// commands bind the same variable with different defaults, and pflag writes
// each default into the variable when the flag is defined.
func intFlag(cmd *cobra.Command, name string) int {
	v, _ := cmd.Flags().GetInt(name)
	return v
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// loadConfig resolves defaults, then the preset, then the config file, then
// any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	// config file overrides preset
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Particles.Seed = seed
	} else if cfg.Particles.Seed == 0 {
		cfg.Particles.Seed = time.Now().UnixNano()
	}
	if flags.Changed("particles") {
		cfg.Particles.Count = particles
	}
	if flags.Changed("backend") {
		cfg.Particles.Backend = backend
	}
	if flags.Changed("workers") {
		cfg.Particles.Workers = workers
	}
	if flags.Changed("shape") {
		k, err := shape.ParseKind(shapeName)
		if err != nil {
			return nil, err
		}
		cfg.Shape = k
	}
	if flags.Changed("mode") {
		m, err := interact.ParseMode(modeName)
		if err != nil {
			return nil, err
		}
		cfg.Input.Mode = m
	}
	if flags.Changed("hand-script") {
		cfg.Input.HandScript = handScript
	}
	if flags.Changed("fps") {
		cfg.Render.FPS = fps
	}
	if flags.Changed("audio") {
		cfg.Audio.Enabled = withAudio
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is an engine wired to live input sources and, optionally, audio.
type session struct {
	eng     *engine.Engine
	pointer *input.Pointer
	// hand is nil when a script replaces the interactive hand
	hand  *input.Hand
	synth *audio.Synth
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	be, ok := compute.ByName(cfg.Particles.Backend, cfg.Particles.Workers)
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", cfg.Particles.Backend)
	}
	eng, err := engine.New(cfg, be)
	if err != nil {
		return nil, err
	}
	eng.SetLogger(slog.Default())

	s := &session{eng: eng, pointer: input.NewPointer()}
	eng.SetPointerSource(s.pointer)

	if cfg.Input.HandScript != "" {
		script, err := input.LoadScript(cfg.Input.HandScript, true)
		if err != nil {
			return nil, err
		}
		eng.SetHandSource(script)
	} else {
		s.hand = input.NewHand()
		eng.SetHandSource(s.hand)
	}

	if cfg.Audio.Enabled {
		synth := audio.NewSynth(cfg.Audio)
		if err := synth.Start(); err != nil {
			slog.Warn("audio disabled", "err", err)
		} else {
			s.synth = synth
			eng.AddAudio(synth)
		}
	}
	return s, nil
}

func (s *session) Close() {
	if s.synth != nil {
		s.synth.Stop()
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return viz.Run(viz.Options{
		Engine:  s.eng,
		Pointer: s.pointer,
		Hand:    s.hand,
		FPS:     s.eng.Config().Render.FPS,
	})
}

func runGUI(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := s.eng.Config()
	w, h := cfg.Render.Width, cfg.Render.Height
	if v := intFlag(cmd, "width"); v > 0 {
		w = v
	}
	if v := intFlag(cmd, "height"); v > 0 {
		h = v
	}
	gui.Run(gui.Options{
		Engine:  s.eng,
		Pointer: s.pointer,
		Hand:    s.hand,
		Width:   w,
		Height:  h,
		FPS:     cfg.Render.FPS,
	})
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := s.eng.Config()
	listen := cfg.Stream.Addr
	if addr != "" {
		listen = addr
	}

	srv := stream.NewServer(stream.Options{
		Engine:   s.eng,
		Pointer:  s.pointer,
		Hand:     s.hand,
		Every:    cfg.Stream.Every,
		MaxConns: cfg.Stream.MaxConns,
		Logger:   slog.Default(),
	})
	s.eng.AddRenderer(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx, listen) })
	g.Go(func() error {
		if err := s.eng.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(experiment.Config{
		Engine:      cfg,
		Preset:      preset,
		Frames:      frames,
		Dt:          dt,
		RecordEvery: recordEvery,
	})
	if err := exp.Setup(nil, slog.Default()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d particles, %s, %d frames...\n", cfg.Particles.Count, cfg.Shape, frames)
	out, err := exp.Run(ctx)
	if err != nil && (out == nil || out.Result == nil) {
		return err
	}
	if err != nil {
		fmt.Printf("interrupted after %d frames\n", out.Result.Frames)
	}

	runID, saveErr := exp.Save(st, out)
	if saveErr != nil {
		return saveErr
	}

	res := out.Result
	fmt.Printf("completed in %v\n", out.Wall)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d (%.0f ticks/s)\n", res.Frames, float64(res.Frames)/out.Wall.Seconds())
	fmt.Printf("final shape: %s (%d changes)\n", res.FinalShape, res.ShapeChanges)
	if len(res.Errors) > 0 {
		fmt.Printf("input errors: %d (first: %v)\n", len(res.Errors), res.Errors[0])
	}
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
	fmt.Println("\nphases:")
	for _, phase := range sortedKeys(res.Perf.PhasePct) {
		fmt.Printf("  %s: %.1f%%\n", phase, res.Perf.PhasePct[phase])
	}

	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	n := intFlag(cmd, "frames")
	counts := []int{1000, 5000, 15000, 40000}
	backends := []string{"serial", "cpu"}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICLES\tBACKEND\tWORKERS\tFRAMES\tTIME\tTICKS/SEC\tAVG TICK")

	for _, count := range counts {
		for _, name := range backends {
			cfg := config.DefaultConfig()
			cfg.Particles.Count = count
			cfg.Particles.Seed = 42

			be, _ := compute.ByName(name, 0)
			eng, err := engine.New(cfg, be)
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := eng.RunFrames(context.Background(), n, experiment.DefaultDt)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%v\t%.0f\t%v\n",
				count, name, be.Workers(), res.Frames, elapsed.Round(time.Millisecond),
				float64(res.Frames)/elapsed.Seconds(), res.Perf.AvgTickDuration)
			be.Cleanup()
		}
	}

	return w.Flush()
}

// writeExampleScript cycles through the finger counts with a short noisy
// stretch before each hold so the gesture window has to reach consensus.
func writeExampleScript(cmd *cobra.Command, args []string) error {
	var rows []input.HandRow
	for _, fingers := range []int{2, 3, 4, 5, 1} {
		rows = append(rows,
			input.HandRow{Hold: 3, Fingers: fingers - 1, X: 0.5, Y: 0.5, Detected: true},
			input.HandRow{Hold: 1, Detected: false},
			input.HandRow{Hold: 60, Fingers: fingers, X: 0.5, Y: 0.5, Detected: true},
			input.HandRow{Hold: 40, Fingers: fingers, Pinching: true, Distance: 0.02, X: 0.3, Y: 0.6, Detected: true},
		)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if err := input.WriteScript(f, rows); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d rows)\n", args[0], len(rows))
	return nil
}
