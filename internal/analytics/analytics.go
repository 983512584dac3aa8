// Package analytics implements the fire-and-forget Firebase Measurement
// Protocol sink: every tracked event is a best-effort background POST whose
// failure never propagates back into the pipeline.
package analytics

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zkproof-network/prover-node/internal/environment"
	"github.com/zkproof-network/prover-node/internal/telemetry"
)

const collectURL = "https://www.google-analytics.com/mp/collect"

// appVersion is stamped into every event's params; overridden at link time
// in a release build via -ldflags, defaulting to "dev" otherwise.
var appVersion = "dev"

// invalidProofCount is retained as a permanently zero-valued telemetry field:
// the source declares the counter but never mutates it, and product has not
// confirmed intended semantics, so this sink preserves that exact behavior
// rather than inventing one.
const invalidProofCount = 0

// Sink posts named events to the Firebase Measurement Protocol endpoint for
// one environment/client_id pair. A Sink for the Local environment is
// inert: Track always returns nil without making a request.
type Sink struct {
	client      *resty.Client
	environment environment.Environment
	clientID    string
	numCores    int
	collectURL  string
}

// NewSink builds a Sink. clientID is typically the node's wallet address or
// a generated UUID for anonymous sessions.
func NewSink(env environment.Environment, clientID string) *Sink {
	return &Sink{
		client:      resty.New().SetTimeout(5 * time.Second),
		environment: env,
		clientID:    clientID,
		numCores:    telemetry.NumCores(),
		collectURL:  collectURL,
	}
}

// Track sends eventNames as a single Measurement Protocol batch, each
// sharing the same base params plus whatever extraParams the caller supplies
// (e.g. task_id, difficulty, error_kind). It never returns an error to the
// caller that matters operationally — failures are logged by the caller via
// the returned error only if it chooses to; callers should invoke this in a
// goroutine and discard the result, matching the "never propagates" rule.
func (s *Sink) Track(ctx context.Context, eventNames []string, extraParams map[string]any) error {
	if !s.environment.AnalyticsEnabled() {
		return nil
	}

	now := time.Now()
	params := map[string]any{
		"time":                now.UnixMilli(),
		"platform":            "CLI",
		"os":                  runtime.GOOS,
		"os_version":          runtime.GOOS,
		"app_version":         appVersion,
		"timezone":            now.Location().String(),
		"local_hour":          now.Hour(),
		"day_of_week":         int(now.Weekday()),
		"event_id":            now.UnixMilli(),
		"measured_flops":      telemetry.EstimatePeakGFLOPS(s.numCores),
		"num_cores":           s.numCores,
		"peak_flops":          telemetry.EstimatePeakGFLOPS(s.numCores),
		"invalid_proof_count": invalidProofCount,
	}
	for k, v := range extraParams {
		params[k] = v
	}

	events := make([]map[string]any, 0, len(eventNames))
	for _, name := range eventNames {
		events = append(events, map[string]any{"name": name, "params": params})
	}

	body := map[string]any{
		"client_id": s.clientID,
		"events":    events,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("measurement_id", s.environment.AnalyticsMeasurementID()).
		SetQueryParam("api_secret", s.environment.AnalyticsAPISecret()).
		SetBody(body).
		Post(s.collectURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &httpError{status: resp.StatusCode(), body: string(resp.Body())}
	}
	return nil
}

// TrackAsync fires Track in a new goroutine and discards its result,
// matching the spec's "analytics events are fire-and-forget; their failure
// never propagates" rule.
func (s *Sink) TrackAsync(eventNames []string, extraParams map[string]any) {
	go func() {
		_ = s.Track(context.Background(), eventNames, extraParams)
	}()
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("analytics: non-success response (%d): %s", e.status, e.body)
}
