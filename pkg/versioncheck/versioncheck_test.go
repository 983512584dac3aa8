package versioncheck_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zkproof-network/prover-node/pkg/versioncheck"
)

type fakeSource struct {
	mu   sync.Mutex
	reqs *versioncheck.Requirements
	err  error
}

func (f *fakeSource) Fetch(ctx context.Context) (*versioncheck.Requirements, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.reqs, nil
}

func newChecker(t *testing.T, source versioncheck.Source, currentVersion, countryCode string) (*versioncheck.Checker, *shutdownRecorder) {
	t.Helper()
	rec := &shutdownRecorder{}
	c := versioncheck.New(source, nil, versioncheck.Config{
		CurrentVersion: currentVersion,
		CountryCode:    countryCode,
		FetchTimeout:   time.Second,
		Shutdown:       rec.record,
	})
	return c, rec
}

type shutdownRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *shutdownRecorder) record(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *shutdownRecorder) called() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons) > 0
}

func pollOnceExported(t *testing.T, c *versioncheck.Checker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Run ticks immediately on entry, then we cancel before the next tick.
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Hour)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
}

func TestVersionCheckNoViolationDoesNotShutdown(t *testing.T) {
	source := &fakeSource{reqs: &versioncheck.Requirements{MinVersion: "1.0.0", MaxVersion: "2.0.0", ConstraintType: versioncheck.Blocking}}
	c, rec := newChecker(t, source, "1.5.0", "")
	pollOnceExported(t, c)
	require.False(t, rec.called())
}

func TestVersionCheckBelowMinBlockingShutsDown(t *testing.T) {
	source := &fakeSource{reqs: &versioncheck.Requirements{MinVersion: "2.0.0", ConstraintType: versioncheck.Blocking}}
	c, rec := newChecker(t, source, "1.0.0", "")
	pollOnceExported(t, c)
	require.True(t, rec.called())
}

func TestVersionCheckBelowMinWarningContinues(t *testing.T) {
	source := &fakeSource{reqs: &versioncheck.Requirements{MinVersion: "2.0.0", ConstraintType: versioncheck.Warning}}
	c, rec := newChecker(t, source, "1.0.0", "")
	pollOnceExported(t, c)
	require.False(t, rec.called())
}

func TestVersionCheckOFACMatchShutsDownRegardlessOfVersion(t *testing.T) {
	source := &fakeSource{reqs: &versioncheck.Requirements{OFACCountries: []string{"KP", "IR"}}}
	c, rec := newChecker(t, source, "1.0.0", "kp")
	pollOnceExported(t, c)
	require.True(t, rec.called())
}

func TestVersionCheckFallsBackToCachedOnFetchFailure(t *testing.T) {
	source := &fakeSource{reqs: &versioncheck.Requirements{MinVersion: "1.0.0", ConstraintType: versioncheck.Blocking}}
	c, rec := newChecker(t, source, "1.5.0", "")
	pollOnceExported(t, c) // populates the cache with a non-violating doc

	source.mu.Lock()
	source.err = errFetchFailed
	source.mu.Unlock()

	pollOnceExported(t, c)
	require.False(t, rec.called())
}

type plainError string

func (e plainError) Error() string { return string(e) }

var errFetchFailed = plainError("network unreachable")
