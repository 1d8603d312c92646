// Package agents provides the agent and post data model and the
// population spawner.
package agents

// AgentID is a stable index into the agent array and the graph's vertex
// space. IDs are dense, 1..N, and fixed for the lifetime of a run.
type AgentID int

// Agent is one simulated account. All fields except ID mutate over the
// run; the tick loop owns the agent array exclusively while a tick is
// in progress.
type Agent struct {
	ID      AgentID `json:"id"`
	Opinion float64 `json:"opinion"` // clamped to [-1, 1] after every update

	Active        bool `json:"active"`
	InactiveTicks int  `json:"inactive_ticks"` // consecutive ticks without activation

	// CheckRegularity is the per-tick activation probability.
	// Rewiring rules nudge it; it always stays in [0, 1].
	CheckRegularity float64 `json:"check_regularity"`

	// InclinInteract is the expected number of posts published per
	// active tick, consumed via repeated Bernoulli draws.
	InclinInteract float64 `json:"inclin_interact"`

	// DesiredInputCount is the target number of accounts followed.
	DesiredInputCount int `json:"desired_input_count"`

	// FeedMinWeight is the minimum post weight this agent accepts
	// into its feed.
	FeedMinWeight int `json:"feed_min_weight"`

	// Feed holds delivered posts not yet consumed. Append-only within
	// a tick; pruning happens through the engine's prune policy.
	Feed []*Post `json:"-"`
}

// Clamp bounds an opinion value to [-1, 1].
func Clamp(op float64) float64 {
	if op > 1 {
		return 1
	}
	if op < -1 {
		return -1
	}
	return op
}

// Post is a published message. Opinion, weight, source, and publish
// tick are fixed at creation; only the engagement counters move, and
// they only ever increase.
type Post struct {
	ID           int     `json:"id"` // position in the run post log, 0 until recorded
	Opinion      float64 `json:"opinion"`
	Weight       int     `json:"weight"` // publisher's follower count at publish time
	SourceAgent  AgentID `json:"source_agent"`
	PublishedAt  uint64  `json:"published_at"`
	SeenBy       int     `json:"seen"`
	LikeCount    int     `json:"likes"`
	DislikeCount int     `json:"dislikes"`
	ShareCount   int     `json:"reposts"`
}
