// Publish step — emits a post from an agent to its followers.
package engine

import (
	"github.com/talgya/socionet/internal/agents"
)

// publish builds a post with a jittered opinion and delivers it to
// every follower whose feed_min_weight accepts the post's weight. The
// weight is the publisher's follower count at publish time and never
// changes. A post nobody received is not recorded in the post log —
// unreachable posts must not pollute global post statistics.
func (e *Engine) publish(st *State, a *agents.Agent, tick uint64) error {
	tweetOpinion := agents.Clamp(a.Opinion + 0.1*(2*e.rng.Float()-1))

	post := &agents.Post{
		Opinion:     tweetOpinion,
		Weight:      st.Graph.FollowerCount(a.ID),
		SourceAgent: a.ID,
		PublishedAt: tick,
	}

	delivered := 0
	for _, fid := range st.Graph.Followers(a.ID) {
		follower := st.Agent(fid)
		if follower == nil {
			continue
		}
		if follower.FeedMinWeight <= post.Weight {
			follower.Feed = append(follower.Feed, post)
			delivered++
		}
	}

	if delivered > 0 {
		post.ID = len(st.PostLog) + 1
		st.PostLog = append(st.PostLog, post)
	}
	return nil
}
