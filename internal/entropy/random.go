// Package entropy provides the single seeded random stream that drives
// every stochastic decision in a simulation run.
//
// Reproducibility depends on one generator consumed in a fixed order:
// per-agent activation draw, then the opinion-drift draw, then engagement
// draws (like, dislike, share — enabled mechanics only), then rewiring
// draws, then per-publish draws. Components never create their own
// generators; the Stream is threaded explicitly through every call site.
package entropy

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
)

// Stream is a seeded PCG generator with externally restorable state,
// so a checkpoint can capture the generator mid-run rather than reseed.
type Stream struct {
	src *rand.PCG
	rng *rand.Rand
}

// NewStream creates a stream seeded from a single int64 run seed.
func NewStream(seed int64) *Stream {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	return &Stream{src: src, rng: rand.New(src)}
}

// Float returns the next float64 in [0, 1).
func (s *Stream) Float() float64 {
	return s.rng.Float64()
}

// IntN returns the next int in [0, n).
func (s *Stream) IntN(n int) int {
	return s.rng.IntN(n)
}

// Perm returns a random permutation of [0, n).
func (s *Stream) Perm(n int) []int {
	return s.rng.Perm(n)
}

// MarshalState returns the generator's internal state as a hex string
// suitable for checkpoint metadata.
func (s *Stream) MarshalState() (string, error) {
	raw, err := s.src.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal rng state: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// RestoreState overwrites the generator's internal state from a hex
// string produced by MarshalState.
func (s *Stream) RestoreState(state string) error {
	raw, err := hex.DecodeString(state)
	if err != nil {
		return fmt.Errorf("decode rng state: %w", err)
	}
	if err := s.src.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("restore rng state: %w", err)
	}
	return nil
}
