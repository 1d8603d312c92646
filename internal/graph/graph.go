// Package graph holds the directed follow graph — the only source of
// structural truth for the simulation.
//
// An edge (u→v) means "u follows v": v's posts reach u. In simulation
// terms u's inputs are the accounts it follows, and v's followers are
// the accounts its posts are delivered to. The vertex set is fixed for
// a run; only edges change, and only through Follow/Unfollow.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/entropy"
)

var (
	// ErrSelfLoop is returned when an agent tries to follow itself.
	ErrSelfLoop = errors.New("self-loop edge")
	// ErrDuplicateEdge is returned when a follow edge already exists.
	ErrDuplicateEdge = errors.New("duplicate edge")
	// ErrNoEdge is returned when unfollowing an edge that does not exist.
	ErrNoEdge = errors.New("no such edge")
	// ErrUnknownVertex is returned for IDs outside the vertex space.
	ErrUnknownVertex = errors.New("unknown vertex")
)

// Edge is one directed follow relation.
type Edge struct {
	From agents.AgentID // the follower
	To   agents.AgentID // the account being followed
}

// Graph is a directed graph over dense agent IDs 1..N with both edge
// directions indexed for O(1) degree queries.
type Graph struct {
	n         int
	inputs    []map[agents.AgentID]struct{} // inputs[u] = accounts u follows
	followers []map[agents.AgentID]struct{} // followers[v] = accounts following v
	edges     int
}

// New creates an empty graph over agent IDs 1..n.
func New(n int) *Graph {
	g := &Graph{
		n:         n,
		inputs:    make([]map[agents.AgentID]struct{}, n+1),
		followers: make([]map[agents.AgentID]struct{}, n+1),
	}
	for i := 1; i <= n; i++ {
		g.inputs[i] = make(map[agents.AgentID]struct{})
		g.followers[i] = make(map[agents.AgentID]struct{})
	}
	return g
}

// VertexCount returns the fixed number of vertices.
func (g *Graph) VertexCount() int { return g.n }

// EdgeCount returns the current number of follow edges.
func (g *Graph) EdgeCount() int { return g.edges }

func (g *Graph) valid(id agents.AgentID) bool {
	return id >= 1 && int(id) <= g.n
}

// Follow adds the edge (from→to). Self-loops and duplicates are
// invariant violations and are rejected.
func (g *Graph) Follow(from, to agents.AgentID) error {
	if !g.valid(from) || !g.valid(to) {
		return fmt.Errorf("%w: %d -> %d", ErrUnknownVertex, from, to)
	}
	if from == to {
		return fmt.Errorf("%w: %d", ErrSelfLoop, from)
	}
	if _, ok := g.inputs[from][to]; ok {
		return fmt.Errorf("%w: %d -> %d", ErrDuplicateEdge, from, to)
	}
	g.inputs[from][to] = struct{}{}
	g.followers[to][from] = struct{}{}
	g.edges++
	return nil
}

// Unfollow removes the edge (from→to).
func (g *Graph) Unfollow(from, to agents.AgentID) error {
	if !g.valid(from) || !g.valid(to) {
		return fmt.Errorf("%w: %d -> %d", ErrUnknownVertex, from, to)
	}
	if _, ok := g.inputs[from][to]; !ok {
		return fmt.Errorf("%w: %d -> %d", ErrNoEdge, from, to)
	}
	delete(g.inputs[from], to)
	delete(g.followers[to], from)
	g.edges--
	return nil
}

// HasEdge reports whether from follows to.
func (g *Graph) HasEdge(from, to agents.AgentID) bool {
	if !g.valid(from) || !g.valid(to) {
		return false
	}
	_, ok := g.inputs[from][to]
	return ok
}

// InputCount returns how many accounts u follows.
func (g *Graph) InputCount(u agents.AgentID) int {
	if !g.valid(u) {
		return 0
	}
	return len(g.inputs[u])
}

// FollowerCount returns how many accounts follow v. This is a post's
// reach, and fixes its weight at publish time.
func (g *Graph) FollowerCount(v agents.AgentID) int {
	if !g.valid(v) {
		return 0
	}
	return len(g.followers[v])
}

// Inputs returns the accounts u follows, sorted by ID for deterministic
// iteration.
func (g *Graph) Inputs(u agents.AgentID) []agents.AgentID {
	if !g.valid(u) {
		return nil
	}
	return sortedIDs(g.inputs[u])
}

// Followers returns the accounts following v, sorted by ID.
func (g *Graph) Followers(v agents.AgentID) []agents.AgentID {
	if !g.valid(v) {
		return nil
	}
	return sortedIDs(g.followers[v])
}

// Edges returns a snapshot of all edges, sorted by (From, To).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for u := 1; u <= g.n; u++ {
		for _, v := range sortedIDs(g.inputs[u]) {
			out = append(out, Edge{From: agents.AgentID(u), To: v})
		}
	}
	return out
}

// Wire builds the initial topology: every agent follows degree distinct
// random peers. Draws come from the run stream, so wiring is part of
// the reproducible draw sequence.
func (g *Graph) Wire(rng *entropy.Stream, degree int) error {
	if degree >= g.n {
		return fmt.Errorf("initial degree %d needs more than %d vertices", degree, g.n)
	}
	for u := 1; u <= g.n; u++ {
		for g.InputCount(agents.AgentID(u)) < degree {
			v := agents.AgentID(rng.IntN(g.n) + 1)
			if v == agents.AgentID(u) || g.HasEdge(agents.AgentID(u), v) {
				continue
			}
			if err := g.Follow(agents.AgentID(u), v); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedIDs(set map[agents.AgentID]struct{}) []agents.AgentID {
	out := make([]agents.AgentID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
