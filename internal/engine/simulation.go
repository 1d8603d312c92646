// Simulation runner — drives the tick engine over a whole run, managing
// logging, snapshot collection, and checkpoint cadence.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/entropy"
	"github.com/talgya/socionet/internal/graph"
)

// Checkpointer persists run state between ticks. The runner treats it
// as an injected capability and never defines the storage format; a
// failed save surfaces to the caller and stops the run.
type Checkpointer interface {
	SaveCheckpoint(st *State, rng *entropy.Stream) error
}

// GraphSnapshot is a periodic structural capture for later analysis.
type GraphSnapshot struct {
	Tick  uint64
	Edges []graph.Edge
}

// Runner executes n_iter ticks over one exclusively-owned state.
type Runner struct {
	Cfg    config.Config
	Engine *Engine
	Rng    *entropy.Stream

	// Checkpoints is optional; nil disables checkpointing.
	Checkpoints Checkpointer

	// Collected outputs.
	TickLog   []TickRecord
	Snapshots []GraphSnapshot
}

// NewRunner wires a runner around an engine and its stream.
func NewRunner(cfg config.Config, eng *Engine, rng *entropy.Stream) *Runner {
	return &Runner{Cfg: cfg, Engine: eng, Rng: rng}
}

// Run advances the state until n_iter ticks have completed. Resuming a
// checkpointed state is the same call: the loop picks up from st.Tick
// and the restored generator continues the original draw sequence.
func (r *Runner) Run(st *State) error {
	target := uint64(r.Cfg.Simulation.NIter)
	if st.Tick >= target {
		return nil
	}

	for st.Tick < target {
		records, err := r.Engine.Tick(st)
		if err != nil {
			return fmt.Errorf("run aborted: %w", err)
		}

		if r.Cfg.Simulation.Logging {
			r.TickLog = append(r.TickLog, records...)
		}

		if every := r.Cfg.Simulation.SnapshotEvery; every > 0 && st.Tick%uint64(every) == 0 {
			r.Snapshots = append(r.Snapshots, GraphSnapshot{
				Tick:  st.Tick,
				Edges: st.Graph.Edges(),
			})
		}

		if every := r.Cfg.Simulation.CheckpointEvery; every > 0 && st.Tick%uint64(every) == 0 && r.Checkpoints != nil {
			if err := r.Checkpoints.SaveCheckpoint(st, r.Rng); err != nil {
				return fmt.Errorf("checkpoint at tick %d: %w", st.Tick, err)
			}
			slog.Info("checkpoint saved", "tick", st.Tick, "edges", st.Graph.EdgeCount(), "posts", len(st.PostLog))
		}

		slog.Debug("tick report",
			"tick", st.Tick,
			"active", st.ActiveCount(),
			"edges", st.Graph.EdgeCount(),
			"posts", len(st.PostLog),
			"mean_opinion", fmt.Sprintf("%.4f", meanOpinion(st)),
		)
	}

	slog.Info("run complete",
		"ticks", st.Tick,
		"active", st.ActiveCount(),
		"edges", st.Graph.EdgeCount(),
		"posts", len(st.PostLog),
		"mean_opinion", fmt.Sprintf("%.4f", meanOpinion(st)),
	)
	return nil
}

func meanOpinion(st *State) float64 {
	if len(st.Agents) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range st.Agents {
		sum += a.Opinion
	}
	return sum / float64(len(st.Agents))
}
