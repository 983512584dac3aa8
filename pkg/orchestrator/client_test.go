package orchestrator

import (
	"context"
	"crypto/ed25519"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkproof-network/prover-node/internal/environment"
	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/pkg/orchestrator/wire"
)

func TestRegisterUserPostsExpectedBody(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(environment.Local).WithBaseURL(server.URL)
	err := c.RegisterUser(context.Background(), "user-1", "0xwallet")
	require.NoError(t, err)

	require.Equal(t, "POST", gotMethod)
	require.Equal(t, "/v3/users", gotPath)
	require.Equal(t, "application/octet-stream", gotContentType)

	var req wire.RegisterUserRequest
	require.NoError(t, req.Unmarshal(gotBody))
	require.Equal(t, "user-1", req.UUID)
	require.Equal(t, "0xwallet", req.WalletAddress)
}

func TestGetProofTaskDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := &wire.GetProofTaskResponse{
			TaskID:       "T1",
			ProgramID:    "fib_input_initial",
			PublicInputs: [][]byte{{1, 2, 3}},
		}
		_, _ = w.Write(resp.Marshal())
	}))
	defer server.Close()

	c := NewClient(environment.Local).WithBaseURL(server.URL)
	_, pub, _ := ed25519.GenerateKey(nil)
	got, err := c.GetProofTask(context.Background(), "7", pub, nil)
	require.NoError(t, err)
	require.Equal(t, "T1", got.TaskID)
	require.Equal(t, "fib_input_initial", got.ProgramID)
	require.Len(t, got.PublicInputs, 1)
}

func TestDoReturnsRetriableErrorForServerStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(environment.Local).WithBaseURL(server.URL)
	err := c.RegisterUser(context.Background(), "user-1", "0xwallet")
	require.Error(t, err)
	require.Equal(t, errs.Retriable, errs.Classify(err))
}
