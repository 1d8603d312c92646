// Engagement mechanics — like/dislike/share reactions to feed items.
package engine

import (
	"math"

	"github.com/talgya/socionet/internal/agents"
)

// engage walks the agent's feed and applies each enabled mechanic to
// each item, in like → dislike → share order.
//
// Draw discipline: an enabled mechanic consumes exactly one draw per
// feed item whether or not the threshold condition holds, and a
// disabled mechanic consumes none. Toggling one mechanic therefore
// never shifts the draw sequence seen by the others.
func (e *Engine) engage(a *agents.Agent) {
	m := e.cfg.Mechanics
	t := e.cfg.Treshs
	p := e.cfg.AgentProps

	for _, post := range a.Feed {
		post.SeenBy++
		dist := math.Abs(post.Opinion - a.Opinion)

		if m.Like {
			if draw := e.rng.Float(); dist <= t.Like && draw < p.LikeRate {
				post.LikeCount++
			}
		}
		if m.Dislike {
			if draw := e.rng.Float(); dist > t.Dislike && draw < p.DislikeRate {
				post.DislikeCount++
			}
		}
		if m.Share {
			if draw := e.rng.Float(); dist <= t.Share && draw < p.ShareRate {
				post.ShareCount++
			}
		}
	}
}
