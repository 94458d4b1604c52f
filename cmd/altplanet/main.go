package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/altplanet/engine/internal/config"
	"github.com/altplanet/engine/internal/data"
	"github.com/altplanet/engine/internal/metrics"
	"github.com/altplanet/engine/internal/net"
	"github.com/altplanet/engine/internal/persist"
	"github.com/altplanet/engine/internal/scripting"
	"github.com/altplanet/engine/internal/system"
	"github.com/altplanet/engine/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("ALTPLANET_CONFIG"); p != "" {
		return p
	}
	return "config/altplanet.toml"
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "altplanet",
		Short:         "altplanet - planet-scale actor simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath(), "path to the TOML config (env ALTPLANET_CONFIG)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "altplanet v%s\n", version)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the simulation loop until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cfgPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return run(cmd.Context(), cfg, log)
		},
	})

	var ticks int
	var sceneFile string
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a fixed number of ticks headless and print the state digest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cfgPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if sceneFile != "" {
				cfg.Simulation.SceneFile = sceneFile
			}
			res, err := simulate(cfg, ticks, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ticks=%d actors=%d digest=%s\n", res.Ticks, res.Actors, hex.EncodeToString(res.Digest[:]))
			return nil
		},
	}
	simulateCmd.Flags().IntVarP(&ticks, "ticks", "n", 600, "number of ticks to run")
	simulateCmd.Flags().StringVar(&sceneFile, "scene", "", "scene file, overrides simulation.scene_file")
	root.AddCommand(simulateCmd)

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the config and scene file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sc, err := data.LoadScene(cfg.Simulation.SceneFile)
			if err != nil {
				return err
			}
			if len(sc.Actors) > cfg.Simulation.MaxActors {
				return fmt.Errorf("scene has %d actors, simulation.max_actors is %d", len(sc.Actors), cfg.Simulation.MaxActors)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config %s ok\n", cfgPath)
			fmt.Fprintf(out, "scene %s ok: planet radius %g, %d actors\n", cfg.Simulation.SceneFile, sc.Planet.Radius, len(sc.Actors))
			return nil
		},
	})
	return root
}

func setup(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// buildWorld loads the scene and scripts and populates a fresh state. The
// caller closes the returned engine.
func buildWorld(cfg *config.Config, log *zap.Logger) (*world.State, *scripting.Engine, error) {
	sc, err := data.LoadScene(cfg.Simulation.SceneFile)
	if err != nil {
		return nil, nil, err
	}
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return nil, nil, fmt.Errorf("scripting: %w", err)
	}
	ws, err := world.New(world.Options{
		MaxActors:     cfg.Simulation.MaxActors,
		MaxSceneNodes: cfg.Simulation.MaxSceneNodes,
		Steer:         engine,
	}, log)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	if err := ws.InitScene(sc); err != nil {
		engine.Close()
		return nil, nil, err
	}
	return ws, engine, nil
}

type simResult struct {
	Ticks  uint64
	Actors int
	Digest [32]byte
}

// simulate runs ticks fixed steps of cfg.Simulation.TickRate without a wall
// clock or persistence.
func simulate(cfg *config.Config, ticks int, log *zap.Logger) (simResult, error) {
	if ticks < 0 {
		return simResult{}, fmt.Errorf("ticks must not be negative, got %d", ticks)
	}
	ws, engine, err := buildWorld(cfg, log)
	if err != nil {
		return simResult{}, err
	}
	defer engine.Close()
	defer ws.Close()

	p := system.NewPipeline(ws, system.PipelineConfig{StatsInterval: cfg.Simulation.StatsInterval}, log)
	for i := 0; i < ticks; i++ {
		p.Runner.Tick(cfg.Simulation.TickRate)
	}
	return simResult{Ticks: ws.Tick(), Actors: ws.ActorCount(), Digest: ws.Digest()}, nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printBanner(version)

	// 1. Optional snapshot database
	var saver system.SnapshotSaver
	if cfg.Database.Enabled {
		printSection("database")
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			dbCancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")
		schema, err := persist.RunMigrations(dbCtx, db.Pool, log)
		dbCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(schema))
		saver = persist.NewSnapshotRepo(db)
	}

	// 2. Scene, scripts, world
	printSection("world")
	ws, engine, err := buildWorld(cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer ws.Close()
	printStat("actors", ws.ActorCount())
	printStat("scene nodes", ws.Graph().Len())

	// 3. Metrics
	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.NewRecorder()
		go func() {
			if err := rec.Serve(ctx, cfg.Metrics.BindAddress, log); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		printOK("metrics on " + cfg.Metrics.BindAddress)
	}

	// 4. Remote control listener
	var ctl *net.Server
	if cfg.Control.Enabled {
		printSection("control")
		ctl, err = net.NewServer(cfg.Control.BindAddress,
			cfg.Control.InQueueSize, cfg.Control.OutQueueSize, cfg.Control.PacketsPerSecond, log)
		if err != nil {
			return fmt.Errorf("control listener: %w", err)
		}
		go ctl.AcceptLoop()
		printOK("control on " + ctl.Addr().String())
	}

	// 5. Systems
	p := system.NewPipeline(ws, system.PipelineConfig{
		StatsInterval:    cfg.Simulation.StatsInterval,
		SnapshotInterval: cfg.Persist.SnapshotInterval,
		Saver:            saver,
		Metrics:          rec,
		MetricsInterval:  60,
		Control:          ctl,
		ControlPerTick:   cfg.Control.MaxPacketsPerTick,
		MaxActors:        cfg.Simulation.MaxActors,
	}, log)
	if p.Remote != nil {
		defer p.Remote.Close()
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printReady(fmt.Sprintf("simulation running, tick %s", cfg.Simulation.TickRate))
	log.Info("simulation started",
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
		zap.Int("actors", ws.ActorCount()))

	for {
		select {
		case <-ticker.C:
			p.Runner.Tick(cfg.Simulation.TickRate)

		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return shutdown(p, ws, log)

		case <-ctx.Done():
			return shutdown(p, ws, log)
		}
	}
}

func shutdown(p *system.Pipeline, ws *world.State, log *zap.Logger) error {
	var err error
	if p.Persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = p.Persist.SaveNow(ctx)
		cancel()
	}
	d := ws.Digest()
	log.Info("simulation stopped",
		zap.Uint64("ticks", p.Runner.Ticks()),
		zap.String("digest", hex.EncodeToString(d[:8])))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("final snapshot timed out: %w", err)
	}
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(v string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m           altplanet  v%-19s \033[36;1m│\033[0m\n", v)
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}
