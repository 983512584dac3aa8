package difficulty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPolicyStartsAtLarge(t *testing.T) {
	p := NewPolicy()
	require.Equal(t, Large, p.Current())
}

func TestOverrideIsUsedVerbatimAndDoesNotMutateState(t *testing.T) {
	p := NewPolicy()
	small := Small
	got := p.Next(&small, 0, false)
	require.Equal(t, Small, got)
	require.Equal(t, Large, p.Current()) // internal schedule untouched
}

func TestFastProofPromotesButCapsAtLarge(t *testing.T) {
	p := NewPolicy()
	got := p.Next(nil, time.Minute, false)
	require.Equal(t, Large, got, "promotion from Large must cap at Large, never reach ExtraLarge")
}

func TestSlowProofHolds(t *testing.T) {
	p := &Policy{current: Medium}
	got := p.Next(nil, 8*time.Minute, false)
	require.Equal(t, Medium, got)
}

func TestFailedProofDemotes(t *testing.T) {
	p := &Policy{current: Large}
	got := p.Next(nil, time.Minute, true)
	require.Equal(t, Medium, got)
}

func TestDemoteFloorsAtSmall(t *testing.T) {
	p := &Policy{current: Small}
	got := p.Next(nil, time.Minute, true)
	require.Equal(t, Small, got)
}

func TestPromoteFromBelowLargeCanReachLarge(t *testing.T) {
	p := &Policy{current: Medium}
	got := p.Next(nil, time.Minute, false)
	require.Equal(t, Large, got)
}
