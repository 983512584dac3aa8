package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkproof-network/prover-node/internal/environment"
)

func TestTrackIsNoopForLocalEnvironment(t *testing.T) {
	sink := NewSink(environment.Local, "client-1")
	err := sink.Track(context.Background(), []string{"task_fetched"}, nil)
	require.NoError(t, err)
}

func TestTrackPostsExpectedBody(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "G-T0M0Q3V6WN", r.URL.Query().Get("measurement_id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewSink(environment.Staging, "client-1")
	sink.collectURL = server.URL

	err := sink.Track(context.Background(), []string{"task_fetched"}, map[string]any{"task_id": "t-1"})
	require.NoError(t, err)

	require.Equal(t, "client-1", received["client_id"])
	events := received["events"].([]any)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	require.Equal(t, "task_fetched", ev["name"])
	params := ev["params"].(map[string]any)
	require.Equal(t, "t-1", params["task_id"])
	require.Equal(t, float64(0), params["invalid_proof_count"])
}

func TestTrackReturnsErrorOnNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewSink(environment.Beta, "client-1")
	sink.collectURL = server.URL

	err := sink.Track(context.Background(), []string{"task_fetched"}, nil)
	require.Error(t, err)
}
