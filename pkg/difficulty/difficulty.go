// Package difficulty implements the adaptive task-difficulty policy the
// Fetcher consults before every fetch: promote on a fast proof, demote on
// failure, hold on a slow proof, and never cross the Large cap without an
// explicit operator override.
package difficulty

import "time"

// Difficulty is the four-level scale the orchestrator accepts as a
// requested (and returns as an actual) task difficulty.
type Difficulty int

const (
	Small Difficulty = iota
	Medium
	Large
	ExtraLarge
)

func (d Difficulty) String() string {
	switch d {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	case ExtraLarge:
		return "extra_large"
	default:
		return "unknown"
	}
}

// promoteThreshold is the wall-clock boundary below which the last proof
// counts as "fast" and a promotion is attempted.
const promoteThreshold = 7 * time.Minute

func (d Difficulty) promote() Difficulty {
	if d == ExtraLarge {
		return ExtraLarge
	}
	return d + 1
}

func (d Difficulty) demote() Difficulty {
	if d == Small {
		return Small
	}
	return d - 1
}

// Policy tracks the rolling state the adaptive difficulty rule needs: the
// current working difficulty. The previous cycle's duration and failure are
// passed to Next by the caller.
type Policy struct {
	current Difficulty
}

// NewPolicy starts the policy at its spec-mandated default of Large.
func NewPolicy() *Policy {
	return &Policy{current: Large}
}

// Next computes the difficulty to request for the upcoming fetch.
//
// override, if non-nil, is used verbatim and the internal state is left
// untouched so the policy resumes its own schedule once the override is
// lifted. Otherwise: a last proof duration under promoteThreshold attempts
// one promotion (capped at Large unless override — callers never see an
// auto-promotion past Large because override is the only path there);
// a duration at or above the threshold holds; lastProofFailed demotes one
// level regardless of duration.
func (p *Policy) Next(override *Difficulty, lastProofDuration time.Duration, lastProofFailed bool) Difficulty {
	if override != nil {
		return *override
	}

	switch {
	case lastProofFailed:
		p.current = p.current.demote()
	case lastProofDuration > 0 && lastProofDuration < promoteThreshold:
		p.current = capAtLarge(p.current.promote())
	}
	// duration >= promoteThreshold, or no prior proof yet: hold.

	return p.current
}

// capAtLarge enforces "never cross Large without an explicit override": the
// auto-promotion path can reach Large but not ExtraLarge.
func capAtLarge(d Difficulty) Difficulty {
	if d > Large {
		return Large
	}
	return d
}

// Current returns the policy's present working difficulty without advancing it.
func (p *Policy) Current() Difficulty { return p.current }
