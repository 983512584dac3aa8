package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MinInterval:          100 * time.Millisecond,
		MaxRequestsPerWindow: 2,
		Window:               time.Second,
		DefaultBackoff:       50 * time.Millisecond,
		MaxBackoff:           time.Second,
	}
}

func TestCanProceedInitiallyTrue(t *testing.T) {
	timer := New(testConfig())
	require.True(t, timer.CanProceed())
}

func TestMinIntervalGate(t *testing.T) {
	now := time.Now()
	timer := New(testConfig())
	timer.nowFn = func() time.Time { return now }

	timer.RecordSend()
	require.False(t, timer.CanProceed())

	now = now.Add(50 * time.Millisecond)
	require.False(t, timer.CanProceed())

	now = now.Add(60 * time.Millisecond)
	require.True(t, timer.CanProceed())
}

func TestSlidingWindowGate(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinInterval = 0
	timer := New(cfg)
	timer.nowFn = func() time.Time { return now }

	timer.RecordSend()
	now = now.Add(10 * time.Millisecond)
	timer.RecordSend()

	// window budget (2) exhausted within the 1s window
	require.False(t, timer.CanProceed())

	now = now.Add(time.Second)
	require.True(t, timer.CanProceed())
}

func TestRecordFailureHonorsServerRetryAfter(t *testing.T) {
	now := time.Now()
	timer := New(testConfig())
	timer.nowFn = func() time.Time { return now }

	serverDelay := 3 * time.Second
	timer.RecordFailure(&serverDelay)
	require.False(t, timer.CanProceed())
	require.Equal(t, 1, timer.FailureCount())

	now = now.Add(2 * time.Second)
	require.False(t, timer.CanProceed())

	now = now.Add(time.Second + time.Millisecond)
	require.True(t, timer.CanProceed())
}

func TestRecordFailureExponentialBackoffCapsAtMax(t *testing.T) {
	now := time.Now()
	timer := New(testConfig())
	timer.nowFn = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		timer.RecordFailure(nil)
	}
	require.Equal(t, 10, timer.FailureCount())

	wait := timer.TimeUntilNext()
	require.LessOrEqual(t, wait, timer.cfg.MaxBackoff+time.Millisecond)
}

func TestRecordSuccessClearsBackoffAndFailureCount(t *testing.T) {
	now := time.Now()
	timer := New(testConfig())
	timer.nowFn = func() time.Time { return now }

	timer.RecordFailure(nil)
	require.False(t, timer.CanProceed())

	timer.RecordSuccess()
	require.Equal(t, 0, timer.FailureCount())
	require.True(t, timer.CanProceed())
}
