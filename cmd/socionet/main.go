// Command socionet runs the opinion-dynamics social network simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/engine"
	"github.com/talgya/socionet/internal/entropy"
	"github.com/talgya/socionet/internal/export"
	"github.com/talgya/socionet/internal/persistence"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (omit for built-in defaults)")
		dbPath     = flag.String("db", "data/socionet.db", "checkpoint database path")
		outDir     = flag.String("out", "data", "directory for CSV/DOT exports")
		seed       = flag.Int64("seed", 42, "base run seed")
		resume     = flag.Bool("resume", false, "resume from an existing checkpoint")
		verbose    = flag.Bool("v", false, "enable per-tick debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("configuration rejected", "error", err)
			os.Exit(1)
		}
		slog.Info("configuration loaded", "path", *configPath)
	} else {
		slog.Info("no config given, using built-in defaults")
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if dir := filepath.Dir(*dbPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}

	for rep := 0; rep < cfg.Simulation.RepCount; rep++ {
		if err := runRepetition(cfg, rep, *dbPath, *outDir, *seed+int64(rep), *resume); err != nil {
			slog.Error("repetition failed", "rep", rep, "error", err)
			os.Exit(1)
		}
	}
}

// runRepetition executes one seeded run end to end: state setup or
// resume, the tick loop, final checkpoint, and exports.
func runRepetition(cfg config.Config, rep int, dbPath, outDir string, seed int64, resume bool) error {
	runID := uuid.NewString()
	path := repPath(dbPath, rep, cfg.Simulation.RepCount)

	db, err := persistence.Open(path, runID)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rng := entropy.NewStream(seed)

	var st *engine.State
	if resume {
		loaded, rngState, err := db.LoadCheckpoint()
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		if err := rng.RestoreState(rngState); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		st = loaded
		slog.Info("resuming run", "rep", rep, "tick", st.Tick, "db", path)
	} else {
		st, err = engine.NewState(cfg, seed, rng)
		if err != nil {
			return fmt.Errorf("build initial state: %w", err)
		}
		slog.Info("fresh run",
			"rep", rep,
			"run_id", runID,
			"seed", seed,
			"agents", len(st.Agents),
			"edges", st.Graph.EdgeCount(),
			"db", path,
		)
	}

	runner := engine.NewRunner(cfg, engine.New(cfg, rng), rng)
	runner.Checkpoints = db

	start := time.Now()
	if err := runner.Run(st); err != nil {
		return err
	}

	// Final checkpoint plus collected outputs.
	if err := db.SaveCheckpoint(st, rng); err != nil {
		return fmt.Errorf("final checkpoint: %w", err)
	}
	if err := db.AppendTickLog(runner.TickLog); err != nil {
		return fmt.Errorf("store tick log: %w", err)
	}
	if err := db.SaveSnapshots(runner.Snapshots); err != nil {
		return fmt.Errorf("store snapshots: %w", err)
	}
	if err := writeExports(st, runner, outDir, rep); err != nil {
		return err
	}

	slog.Info("repetition finished",
		"rep", rep,
		"ticks", st.Tick,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"posts", humanize.Comma(int64(len(st.PostLog))),
		"log_rows", humanize.Comma(int64(len(runner.TickLog))),
		"edges", humanize.Comma(int64(st.Graph.EdgeCount())),
		"active", st.ActiveCount(),
	)
	return nil
}

func writeExports(st *engine.State, runner *engine.Runner, outDir string, rep int) error {
	agentLog, err := os.Create(filepath.Join(outDir, fmt.Sprintf("agent_log_rep%d.csv", rep)))
	if err != nil {
		return fmt.Errorf("create agent log: %w", err)
	}
	defer agentLog.Close()
	if err := export.WriteAgentLog(agentLog, runner.TickLog); err != nil {
		return err
	}

	postLog, err := os.Create(filepath.Join(outDir, fmt.Sprintf("post_log_rep%d.csv", rep)))
	if err != nil {
		return fmt.Errorf("create post log: %w", err)
	}
	defer postLog.Close()
	if err := export.WritePostLog(postLog, st.PostLog); err != nil {
		return err
	}

	graphFile, err := os.Create(filepath.Join(outDir, fmt.Sprintf("graph_rep%d.dot", rep)))
	if err != nil {
		return fmt.Errorf("create graph export: %w", err)
	}
	defer graphFile.Close()
	return export.WriteDOT(graphFile, fmt.Sprintf("rep%d", rep), st.Graph.Edges())
}

// repPath suffixes the db path per repetition so repeated runs never
// overwrite each other's checkpoints.
func repPath(path string, rep, repCount int) string {
	if repCount == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_rep%d%s", path[:len(path)-len(ext)], rep, ext)
}
