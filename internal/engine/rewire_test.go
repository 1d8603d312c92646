package engine

import (
	"math"
	"testing"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/entropy"
	"github.com/talgya/socionet/internal/graph"
)

// feedFrom plants a post from src in a's feed with the given opinion.
func feedFrom(a *agents.Agent, src agents.AgentID, opinion float64, weight int) {
	a.Feed = append(a.Feed, &agents.Post{
		Opinion:     opinion,
		Weight:      weight,
		SourceAgent: src,
	})
}

func TestDropInputRequiresDistantPostAndDistantSource(t *testing.T) {
	cfg := config.Default()
	cfg.Treshs.Unfollow = 0.5
	cfg.AgentProps.UnfollowRate = 1.0

	// Agent 1 follows 2, 3, 4. Agent 2: distant post, distant source —
	// must be dropped. Agent 3: distant post, aligned source — a single
	// outlier post does not trigger an unfollow. Agent 4: aligned post —
	// never a candidate.
	st := buildState(t, 4, func(a *agents.Agent) {
		switch a.ID {
		case 1:
			a.Opinion = 0.9
		case 2:
			a.Opinion = -0.9
		case 3:
			a.Opinion = 0.8
		case 4:
			a.Opinion = -0.9
		}
	}, []graph.Edge{
		{From: 1, To: 2}, {From: 1, To: 3}, {From: 1, To: 4},
		{From: 3, To: 1}, // agent 1 keeps parity in followers: no coin flips here
	})

	a := st.Agent(1)
	feedFrom(a, 2, -0.9, 0)
	feedFrom(a, 3, -0.9, 0) // outlier post from an aligned source
	feedFrom(a, 4, 0.85, 0) // aligned post from a distant source

	e := New(cfg, entropy.NewStream(1))
	dropped, err := e.dropInput(st, a)
	if err != nil {
		t.Fatalf("drop input: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped %d edges, want 1", dropped)
	}
	if st.Graph.HasEdge(1, 2) {
		t.Fatal("distant source should have been unfollowed")
	}
	if !st.Graph.HasEdge(1, 3) || !st.Graph.HasEdge(1, 4) {
		t.Fatal("aligned source and aligned post must keep their edges")
	}
}

func TestDropInputBoundedByUnfollowRate(t *testing.T) {
	cfg := config.Default()
	cfg.Treshs.Unfollow = 0.5
	cfg.AgentProps.UnfollowRate = 0.25

	// Agent 1 follows 8 ideologically distant sources, all with fewer
	// followers than agent 1 (so no coin flips). Cap is ceil(8*0.25)=2.
	n := 9
	edges := make([]graph.Edge, 0, n)
	for v := 2; v <= n; v++ {
		edges = append(edges, graph.Edge{From: 1, To: agents.AgentID(v)})
	}
	edges = append(edges, graph.Edge{From: 2, To: 1}) // give agent 1 a follower

	st := buildState(t, n, func(a *agents.Agent) {
		if a.ID == 1 {
			a.Opinion = 1
		} else {
			a.Opinion = -1
		}
	}, edges)

	a := st.Agent(1)
	for v := 2; v <= n; v++ {
		feedFrom(a, agents.AgentID(v), -1, 0)
	}

	before := st.Graph.InputCount(1)
	e := New(cfg, entropy.NewStream(1))
	dropped, err := e.dropInput(st, a)
	if err != nil {
		t.Fatalf("drop input: %v", err)
	}

	want := int(math.Ceil(float64(before) * cfg.AgentProps.UnfollowRate))
	if dropped != want {
		t.Fatalf("dropped %d edges, want cap %d", dropped, want)
	}
	if got := st.Graph.InputCount(1); got != before-want {
		t.Fatalf("inputs = %d after drop, want %d", got, before-want)
	}
}

func TestDropInputPrefersLeastFollowedSources(t *testing.T) {
	cfg := config.Default()
	cfg.Treshs.Unfollow = 0.5
	cfg.AgentProps.UnfollowRate = 0.4 // ceil(3*0.4) = 2 of 3 candidates

	// Candidates sorted ascending by their own input counts: agent 4
	// follows nobody, agent 3 follows one, agent 2 follows two. The two
	// removals must hit 4 and 3, keeping 2.
	st := buildState(t, 6, func(a *agents.Agent) {
		if a.ID == 1 {
			a.Opinion = 1
		} else {
			a.Opinion = -1
		}
	}, []graph.Edge{
		{From: 1, To: 2}, {From: 1, To: 3}, {From: 1, To: 4},
		{From: 2, To: 5}, {From: 2, To: 6},
		{From: 3, To: 5},
		{From: 5, To: 1}, {From: 6, To: 1}, // agent 1 outranks candidates in followers
	})

	a := st.Agent(1)
	feedFrom(a, 2, -1, 0)
	feedFrom(a, 3, -1, 0)
	feedFrom(a, 4, -1, 0)

	e := New(cfg, entropy.NewStream(1))
	if _, err := e.dropInput(st, a); err != nil {
		t.Fatalf("drop input: %v", err)
	}

	if st.Graph.HasEdge(1, 4) || st.Graph.HasEdge(1, 3) {
		t.Fatal("least-followed candidates should be unfollowed first")
	}
	if !st.Graph.HasEdge(1, 2) {
		t.Fatal("most-followed candidate should survive the cap")
	}
}

func TestDropInputCoinFlipForPopularSources(t *testing.T) {
	cfg := config.Default()
	cfg.Treshs.Unfollow = 0.5
	cfg.AgentProps.UnfollowRate = 1.0

	// Source 2 has three followers, agent 1 has none: inclusion is a
	// coin flip. Across seeds both outcomes must occur.
	dropsSeen, keepsSeen := false, false
	for seed := int64(0); seed < 30 && !(dropsSeen && keepsSeen); seed++ {
		st := buildState(t, 5, func(a *agents.Agent) {
			if a.ID == 1 {
				a.Opinion = 1
			} else {
				a.Opinion = -1
			}
		}, []graph.Edge{
			{From: 1, To: 2}, {From: 3, To: 2}, {From: 4, To: 2},
		})
		a := st.Agent(1)
		feedFrom(a, 2, -1, 0)

		e := New(cfg, entropy.NewStream(seed))
		dropped, err := e.dropInput(st, a)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if dropped > 0 {
			dropsSeen = true
		} else {
			keepsSeen = true
		}
	}
	if !dropsSeen || !keepsSeen {
		t.Fatalf("coin flip degenerate: drops=%t keeps=%t", dropsSeen, keepsSeen)
	}
}

func TestVisibilityAddInputFillsShortfall(t *testing.T) {
	cfg := config.Default()

	st := buildState(t, 6, func(a *agents.Agent) {
		if a.ID == 1 {
			a.DesiredInputCount = 3
		}
	}, []graph.Edge{{From: 1, To: 2}})

	// Post log offers sources 2 (already followed), 3, 4, 5, and 1 (self).
	for _, src := range []agents.AgentID{2, 3, 4, 5, 1} {
		st.PostLog = append(st.PostLog, &agents.Post{
			ID:          len(st.PostLog) + 1,
			SourceAgent: src,
			Weight:      int(src) * 2,
		})
	}

	added, err := VisibilityAddInput(st, st.Agent(1), cfg, entropy.NewStream(12))
	if err != nil {
		t.Fatalf("add input: %v", err)
	}
	if added != 2 {
		t.Fatalf("added %d edges, want shortfall 2", added)
	}
	if got := st.Graph.InputCount(1); got != 3 {
		t.Fatalf("inputs = %d, want desired 3", got)
	}
	if st.Graph.HasEdge(1, 1) {
		t.Fatal("self-loop introduced")
	}
}

func TestVisibilityAddInputSkipsDeactivatedSources(t *testing.T) {
	cfg := config.Default()

	st := buildState(t, 3, func(a *agents.Agent) {
		switch a.ID {
		case 1:
			a.DesiredInputCount = 2
		case 2:
			a.Active = false
		}
	}, nil)

	st.PostLog = append(st.PostLog,
		&agents.Post{ID: 1, SourceAgent: 2, Weight: 100},
		&agents.Post{ID: 2, SourceAgent: 3, Weight: 1},
	)

	added, err := VisibilityAddInput(st, st.Agent(1), cfg, entropy.NewStream(1))
	if err != nil {
		t.Fatalf("add input: %v", err)
	}
	if added != 1 || !st.Graph.HasEdge(1, 3) {
		t.Fatalf("expected only the active source to be followed, added=%d", added)
	}
	if st.Graph.HasEdge(1, 2) {
		t.Fatal("deactivated source must not be followed")
	}
}

func TestVisibilityAddInputEmptyPostLog(t *testing.T) {
	cfg := config.Default()
	st := buildState(t, 3, func(a *agents.Agent) { a.DesiredInputCount = 2 }, nil)

	added, err := VisibilityAddInput(st, st.Agent(1), cfg, entropy.NewStream(1))
	if err != nil {
		t.Fatalf("add input: %v", err)
	}
	if added != 0 || st.Graph.EdgeCount() != 0 {
		t.Fatalf("nothing to follow from an empty post log, added=%d", added)
	}
}

func TestBoostDecayRegularityContract(t *testing.T) {
	cfg := config.Default()

	a := &agents.Agent{CheckRegularity: 0.5}
	boosted := BoostDecayRegularity(a, cfg, 3)
	if boosted <= 0.5 {
		t.Fatalf("churn should boost regularity, got %v", boosted)
	}

	a.CheckRegularity = 0.99
	decayed := BoostDecayRegularity(a, cfg, 0)
	if decayed >= 0.99 {
		t.Fatalf("quiet tick should decay toward midpoint, got %v", decayed)
	}

	// Engine clamps whatever the policy returns.
	if clamp01(1.7) != 1 || clamp01(-0.2) != 0 {
		t.Fatal("clamp01 must bound to [0,1]")
	}
}
