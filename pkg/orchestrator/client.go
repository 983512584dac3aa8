package orchestrator

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zkproof-network/prover-node/internal/environment"
	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/pkg/difficulty"
	"github.com/zkproof-network/prover-node/pkg/orchestrator/wire"
	"github.com/zkproof-network/prover-node/pkg/task"
)

// defaultTimeout is the HTTP client default of 10s per request, overridable
// via WithTimeout.
const defaultTimeout = 10 * time.Second

// Client is the real HTTP implementation of Orchestrator, speaking
// Protocol-Buffer-encoded binary over HTTPS to the environment's base URL.
type Client struct {
	http        *resty.Client
	environment environment.Environment
	baseURL     string // overrides environment.OrchestratorBaseURL() when set; tests only
}

// NewClient builds a Client bound to one environment's base URL.
func NewClient(env environment.Environment) *Client {
	return &Client{
		http:        resty.New().SetTimeout(defaultTimeout),
		environment: env,
	}
}

// WithTimeout overrides the default per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.http.SetTimeout(d)
	return c
}

// WithBaseURL overrides the environment-derived base URL, for pointing a
// Client at a test server.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if base == "" {
		base = c.environment.OrchestratorBaseURL()
	}
	return base + "/v3" + path
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(body)

	var resp *resty.Response
	var err error
	switch method {
	case "POST":
		resp, err = req.Post(c.url(path))
	case "GET":
		resp, err = req.Get(c.url(path))
	default:
		return nil, errs.New(errs.KindUnsupportedMethod, fmt.Errorf("unsupported method %q", method))
	}
	if err != nil {
		return nil, errs.New(errs.KindConnection, err)
	}

	if !resp.IsSuccess() {
		return nil, errs.NewHTTP(resp.StatusCode(), retryAfterSeconds(resp), fmt.Errorf("%s", resp.Body()))
	}
	return resp.Body(), nil
}

func retryAfterSeconds(resp *resty.Response) *int {
	h := resp.Header().Get("Retry-After")
	if h == "" {
		return nil
	}
	var seconds int
	if _, err := fmt.Sscanf(h, "%d", &seconds); err != nil {
		return nil
	}
	return &seconds
}

// RegisterUser implements Orchestrator.
func (c *Client) RegisterUser(ctx context.Context, userID, walletAddress string) error {
	req := &wire.RegisterUserRequest{UUID: userID, WalletAddress: walletAddress}
	_, err := c.do(ctx, "POST", "/users", req.Marshal())
	return err
}

// RegisterNode implements Orchestrator.
func (c *Client) RegisterNode(ctx context.Context, userID string) (string, error) {
	req := &wire.RegisterNodeRequest{NodeType: NodeType, UserID: userID}
	respBytes, err := c.do(ctx, "POST", "/nodes", req.Marshal())
	if err != nil {
		return "", err
	}
	var resp wire.RegisterNodeResponse
	if err := resp.Unmarshal(respBytes); err != nil {
		return "", errs.New(errs.KindDecode, err)
	}
	return resp.NodeID, nil
}

// GetProofTask implements Orchestrator.
func (c *Client) GetProofTask(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
	req := &wire.GetProofTaskRequest{
		NodeID:           nodeID,
		NodeType:         NodeType,
		Ed25519PublicKey: verifyingKey,
		MaxDifficulty:    maxDifficulty,
	}
	respBytes, err := c.do(ctx, "POST", "/tasks", req.Marshal())
	if err != nil {
		return nil, err
	}
	var resp wire.GetProofTaskResponse
	if err := resp.Unmarshal(respBytes); err != nil {
		return nil, errs.New(errs.KindDecode, err)
	}
	return taskFromWire(&resp), nil
}

// GetTasks implements Orchestrator.
func (c *Client) GetTasks(ctx context.Context, nodeID, nextCursor string) ([]*task.Task, error) {
	req := &wire.GetTasksRequest{NodeID: nodeID, NextCursor: nextCursor}
	respBytes, err := c.do(ctx, "GET", "/tasks", req.Marshal())
	if err != nil {
		return nil, err
	}
	var resp wire.GetTasksResponse
	if err := resp.Unmarshal(respBytes); err != nil {
		return nil, errs.New(errs.KindDecode, err)
	}
	tasks := make([]*task.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, taskFromWire(t))
	}
	return tasks, nil
}

// SubmitProof implements Orchestrator. The signature is computed here, over
// the ASCII string "version: 0 | task_id: {id} | proof_hash: {hash}".
func (c *Client) SubmitProof(ctx context.Context, taskID, proofHash string, proof []byte, signingKey ed25519.PrivateKey, telemetry SubmitTelemetry) (bool, error) {
	msg := fmt.Sprintf("version: 0 | task_id: %s | proof_hash: %s", taskID, proofHash)
	signature := ed25519.Sign(signingKey, []byte(msg))
	verifyingKey := signingKey.Public().(ed25519.PublicKey)

	req := &wire.SubmitProofRequest{
		TaskID:    taskID,
		NodeType:  NodeType,
		ProofHash: proofHash,
		Proof:     proof,
		NodeTelemetry: &wire.NodeTelemetry{
			FlopsPerSec:    telemetry.FlopsPerSec,
			MemoryUsed:     telemetry.MemoryUsedMB,
			MemoryCapacity: telemetry.MemoryCapMB,
			Location:       telemetry.Location,
		},
		Ed25519PublicKey: verifyingKey,
		Signature:        signature,
	}
	respBytes, err := c.do(ctx, "POST", "/tasks/submit", req.Marshal())
	if err != nil {
		return false, err
	}
	if len(respBytes) == 0 {
		return false, nil
	}
	var resp wire.SubmitProofResponse
	if err := resp.Unmarshal(respBytes); err != nil {
		return false, errs.New(errs.KindDecode, err)
	}
	return resp.RewardsProcessed, nil
}

// GetNode resolves a node id to its wallet address, used by the config
// resolve flow at startup. Not part of the endpoint table in spec §6 but
// exercised the same way original_source's orchestrator client exposes it.
func (c *Client) GetNode(nodeID string) (string, error) {
	respBytes, err := c.do(context.Background(), "GET", "/nodes/"+nodeID, nil)
	if err != nil {
		return "", err
	}
	var resp wire.GetNodeResponse
	if err := resp.Unmarshal(respBytes); err != nil {
		return "", errs.New(errs.KindDecode, err)
	}
	return resp.WalletAddress, nil
}

func taskFromWire(resp *wire.GetProofTaskResponse) *task.Task {
	t := &task.Task{
		TaskID:       resp.TaskID,
		ProgramID:    resp.ProgramID,
		PublicInputs: resp.PublicInputs,
		Type:         task.Type(resp.TaskType),
		CreatedAt:    time.Now(),
		Difficulty:   difficulty.Large,
	}
	if resp.Difficulty != nil {
		t.Difficulty = difficulty.Difficulty(*resp.Difficulty)
	}
	if resp.RetryAfterSeconds != nil {
		sec := int(*resp.RetryAfterSeconds)
		t.RetryAfterSec = &sec
	}
	return t
}
