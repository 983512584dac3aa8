// Package versioncheck polls a remote document describing the client
// versions the orchestrator still accepts, the OFAC-restricted country
// list, and the severity of any violation, and raises shutdown when the
// running binary falls outside what the network currently allows.
package versioncheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/cenkalti/backoff"
	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/zkproof-network/prover-node/internal/events"
)

// ConstraintType names the severity the network attaches to a version
// mismatch.
type ConstraintType int

const (
	Blocking ConstraintType = iota
	Warning
	Notice
)

func (c ConstraintType) String() string {
	switch c {
	case Blocking:
		return "blocking"
	case Warning:
		return "warning"
	default:
		return "notice"
	}
}

func parseConstraintType(s string) ConstraintType {
	switch strings.ToLower(s) {
	case "blocking":
		return Blocking
	case "warning":
		return Warning
	default:
		return Notice
	}
}

// Requirements is the remote document fetched each poll.
type Requirements struct {
	MinVersion     string
	MaxVersion     string // empty means unbounded
	ConstraintType ConstraintType
	// OFACCountries is a set of ISO country codes the service is withheld
	// from, matched case-insensitively against the process's country code.
	OFACCountries []string
}

// remoteDoc is the wire shape of the JSON document; exported field names
// are kept internal since nothing outside this package needs them.
type remoteDoc struct {
	MinVersion     string   `json:"min_version"`
	MaxVersion     string   `json:"max_version"`
	ConstraintType string   `json:"constraint_type"`
	OFACCountries  []string `json:"ofac_countries"`
}

// Source fetches the remote Requirements document. HTTPSource is the real
// implementation; tests supply a func-backed fake.
type Source interface {
	Fetch(ctx context.Context) (*Requirements, error)
}

// HTTPSource fetches Requirements as plain JSON (not the protobuf wire
// protocol the orchestrator's task endpoints use) from a fixed URL.
type HTTPSource struct {
	client *resty.Client
	url    string
}

// NewHTTPSource builds a Source pointed at url, with a 10s request timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{client: resty.New().SetTimeout(10 * time.Second), url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context) (*Requirements, error) {
	resp, err := s.client.R().SetContext(ctx).SetHeader("Accept", "application/json").Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch version requirements: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("version requirements endpoint returned %d", resp.StatusCode())
	}
	var doc remoteDoc
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("decode version requirements: %w", err)
	}
	return &Requirements{
		MinVersion:     doc.MinVersion,
		MaxVersion:     doc.MaxVersion,
		ConstraintType: parseConstraintType(doc.ConstraintType),
		OFACCountries:  doc.OFACCountries,
	}, nil
}

// cacheKey is the sole entry go-cache ever holds: the last successfully
// fetched Requirements document, kept so a transient fetch failure falls
// back to the last known-good policy instead of skipping the poll.
const cacheKey = "last_good_requirements"

// Checker owns the periodic poll loop and the shutdown decision.
type Checker struct {
	source         Source
	bus            *events.Bus
	currentVersion string
	countryCode    string
	cache          *gocache.Cache
	fetchTimeout   time.Duration
	shutdown       func(reason string)
}

// Config controls one Checker.
type Config struct {
	CurrentVersion string
	// CountryCode, if set, is matched against the OFAC list every poll.
	CountryCode string
	// FetchTimeout bounds how long a single poll's retried fetch may take
	// before falling back to the cached last-good document.
	FetchTimeout time.Duration
	// Shutdown is invoked with a human-readable reason on a Blocking
	// violation or an OFAC match.
	Shutdown func(reason string)
}

// New builds a Checker. Its cache has no expiration: the last-good document
// lives until the next successful fetch replaces it.
func New(source Source, bus *events.Bus, cfg Config) *Checker {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdown := cfg.Shutdown
	if shutdown == nil {
		shutdown = func(string) {}
	}
	return &Checker{
		source:         source,
		bus:            bus,
		currentVersion: cfg.CurrentVersion,
		countryCode:    cfg.CountryCode,
		cache:          gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		fetchTimeout:   timeout,
		shutdown:       shutdown,
	}
}

// SetCountryCode updates the country code checked against the OFAC list,
// for the case where the orchestrator supplies it only after node
// registration rather than at Checker construction time.
func (c *Checker) SetCountryCode(code string) { c.countryCode = code }

// Run polls every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Checker) pollOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	var reqs *Requirements
	operation := func() error {
		r, err := c.source.Fetch(fetchCtx)
		if err != nil {
			return err
		}
		reqs = r
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = c.fetchTimeout
	if err := backoff.Retry(operation, backoff.WithContext(eb, fetchCtx)); err != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			reqs = cached.(*Requirements)
			c.logPublish(events.NewWithLevel(events.VersionCheckerWorker(), events.EventWaiting, events.LogWarn, "version requirements fetch failed, using cached document"))
		} else {
			c.logPublish(events.NewWithLevel(events.VersionCheckerWorker(), events.EventError, events.LogWarn, "version requirements fetch failed and no cached document is available"))
			return
		}
	} else {
		c.cache.Set(cacheKey, reqs, gocache.NoExpiration)
	}

	c.evaluate(reqs)
}

func (c *Checker) evaluate(reqs *Requirements) {
	if c.countryCode != "" {
		for _, restricted := range reqs.OFACCountries {
			if strings.EqualFold(restricted, c.countryCode) {
				reason := "service unavailable in this region due to OFAC regulations"
				c.logPublish(events.NewWithLevel(events.VersionCheckerWorker(), events.EventError, events.LogError, reason))
				c.shutdown(reason)
				return
			}
		}
	}

	violation, message := c.checkVersionConstraint(reqs)
	if !violation {
		return
	}

	switch reqs.ConstraintType {
	case Blocking:
		c.logPublish(events.NewWithLevel(events.VersionCheckerWorker(), events.EventError, events.LogError, message))
		c.shutdown(message)
	default:
		c.logPublish(events.NewWithLevel(events.VersionCheckerWorker(), events.EventError, events.LogWarn, message))
	}
}

// checkVersionConstraint reports whether the running version falls outside
// [MinVersion, MaxVersion]. Unparseable versions are treated as non-violating
// so a malformed remote document cannot brick an otherwise-healthy client.
func (c *Checker) checkVersionConstraint(reqs *Requirements) (bool, string) {
	current, err := semver.NewVersion(c.currentVersion)
	if err != nil {
		return false, ""
	}

	if reqs.MinVersion != "" {
		if min, err := semver.NewVersion(reqs.MinVersion); err == nil && current.LessThan(min) {
			return true, fmt.Sprintf("client version %s is below the minimum supported version %s", c.currentVersion, reqs.MinVersion)
		}
	}
	if reqs.MaxVersion != "" {
		if max, err := semver.NewVersion(reqs.MaxVersion); err == nil && current.GreaterThan(max) {
			return true, fmt.Sprintf("client version %s is above the maximum supported version %s", c.currentVersion, reqs.MaxVersion)
		}
	}
	return false, ""
}

func (c *Checker) logPublish(e events.Event) {
	if c.bus == nil {
		return
	}
	c.bus.LogAndPublish(e)
}
