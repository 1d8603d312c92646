package agents

import (
	"math"
	"testing"

	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/entropy"
)

func TestSpawnFieldsWithinConfiguredRanges(t *testing.T) {
	props := config.Default().AgentProps
	sp := NewSpawner(props, 42)
	pop := sp.Spawn(200, entropy.NewStream(42))

	if len(pop) != 200 {
		t.Fatalf("expected 200 agents, got %d", len(pop))
	}
	for i, a := range pop {
		if a.ID != AgentID(i+1) {
			t.Fatalf("agent %d has ID %d, want dense 1..N", i, a.ID)
		}
		if !a.Active {
			t.Errorf("agent %d should start active", a.ID)
		}
		if a.CheckRegularity < props.CheckRegularity.Min || a.CheckRegularity > props.CheckRegularity.Max {
			t.Errorf("agent %d check_regularity %v outside range", a.ID, a.CheckRegularity)
		}
		if a.InclinInteract < props.InclinInteract.Min || a.InclinInteract > props.InclinInteract.Max {
			t.Errorf("agent %d inclin_interact %v outside range", a.ID, a.InclinInteract)
		}
		if float64(a.DesiredInputCount) < props.DesiredInput.Min || float64(a.DesiredInputCount) > props.DesiredInput.Max {
			t.Errorf("agent %d desired_input %d outside range", a.ID, a.DesiredInputCount)
		}
		if a.Opinion < -1 || a.Opinion > 1 {
			t.Errorf("agent %d opinion %v outside [-1,1]", a.ID, a.Opinion)
		}
	}
}

func TestSpawnDeterministic(t *testing.T) {
	props := config.Default().AgentProps
	a := NewSpawner(props, 7).Spawn(50, entropy.NewStream(7))
	b := NewSpawner(props, 7).Spawn(50, entropy.NewStream(7))

	for i := range a {
		if a[i].Opinion != b[i].Opinion || a[i].CheckRegularity != b[i].CheckRegularity {
			t.Fatalf("agent %d differs across identically seeded spawns", a[i].ID)
		}
	}
}

func TestNoiseOpinionsAreSpatiallyCorrelated(t *testing.T) {
	props := config.Default().AgentProps
	props.OpinionInit = "noise"
	pop := NewSpawner(props, 11).Spawn(500, entropy.NewStream(11))

	// Adjacent IDs sample adjacent points on a smooth field, so the mean
	// neighbor distance must be well below the uniform expectation (~2/3).
	var total float64
	for i := 1; i < len(pop); i++ {
		total += math.Abs(pop[i].Opinion - pop[i-1].Opinion)
	}
	mean := total / float64(len(pop)-1)
	if mean > 0.3 {
		t.Fatalf("noise field looks uncorrelated: mean neighbor distance %v", mean)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(1.5) != 1 || Clamp(-1.5) != -1 || Clamp(0.25) != 0.25 {
		t.Fatal("clamp must bound to [-1,1] and pass interior values through")
	}
}
