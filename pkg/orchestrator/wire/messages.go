// Package wire hand-encodes the orchestrator's request/response bodies as
// Protocol-Buffer binary using the low-level, descriptor-free
// google.golang.org/protobuf/encoding/protowire package: no .proto file or
// protoc-gen-go is available in this environment, but the bytes produced
// are genuine protobuf wire-format framing, field-compatible with any
// generated client that agrees on these field numbers.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers are assigned per message below and must stay stable once a
// message has shipped; they are the wire contract with the orchestrator.

// RegisterUserRequest is the /users POST body.
type RegisterUserRequest struct {
	UUID          string
	WalletAddress string
}

const (
	fieldRegisterUserUUID          = 1
	fieldRegisterUserWalletAddress = 2
)

func (m *RegisterUserRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldRegisterUserUUID, m.UUID)
	b = appendString(b, fieldRegisterUserWalletAddress, m.WalletAddress)
	return b
}

func (m *RegisterUserRequest) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldRegisterUserUUID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.UUID = s
		case fieldRegisterUserWalletAddress:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.WalletAddress = s
		}
		return nil
	})
}

// RegisterNodeRequest is the /nodes POST body.
type RegisterNodeRequest struct {
	NodeType string
	UserID   string
}

const (
	fieldRegisterNodeType   = 1
	fieldRegisterNodeUserID = 2
)

func (m *RegisterNodeRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldRegisterNodeType, m.NodeType)
	b = appendString(b, fieldRegisterNodeUserID, m.UserID)
	return b
}

func (m *RegisterNodeRequest) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldRegisterNodeType:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NodeType = s
		case fieldRegisterNodeUserID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.UserID = s
		}
		return nil
	})
}

// RegisterNodeResponse is the /nodes POST response body.
type RegisterNodeResponse struct {
	NodeID string
}

const fieldRegisterNodeRespNodeID = 1

func (m *RegisterNodeResponse) Marshal() []byte {
	return appendString(nil, fieldRegisterNodeRespNodeID, m.NodeID)
}

func (m *RegisterNodeResponse) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldRegisterNodeRespNodeID {
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NodeID = s
		}
		return nil
	})
}

// GetProofTaskRequest is the /tasks POST (fetch) body.
type GetProofTaskRequest struct {
	NodeID            string
	NodeType          string
	Ed25519PublicKey  []byte
	MaxDifficulty     *int32
}

const (
	fieldGetTaskNodeID        = 1
	fieldGetTaskNodeType      = 2
	fieldGetTaskPublicKey     = 3
	fieldGetTaskMaxDifficulty = 4
)

func (m *GetProofTaskRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldGetTaskNodeID, m.NodeID)
	b = appendString(b, fieldGetTaskNodeType, m.NodeType)
	b = appendBytes(b, fieldGetTaskPublicKey, m.Ed25519PublicKey)
	if m.MaxDifficulty != nil {
		b = appendVarint(b, fieldGetTaskMaxDifficulty, uint64(int64(*m.MaxDifficulty)))
	}
	return b
}

func (m *GetProofTaskRequest) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldGetTaskNodeID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NodeID = s
		case fieldGetTaskNodeType:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NodeType = s
		case fieldGetTaskPublicKey:
			b, err := bytesToBytes(typ, v)
			if err != nil {
				return err
			}
			m.Ed25519PublicKey = b
		case fieldGetTaskMaxDifficulty:
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			d := int32(int64(n))
			m.MaxDifficulty = &d
		}
		return nil
	})
}

// GetProofTaskResponse is the /tasks POST (fetch) response body.
type GetProofTaskResponse struct {
	TaskID            string
	ProgramID         string
	PublicInputs      [][]byte
	TaskType          int32
	Difficulty        *int32
	RetryAfterSeconds *int32
}

const (
	fieldTaskRespTaskID            = 1
	fieldTaskRespProgramID         = 2
	fieldTaskRespPublicInputs      = 3
	fieldTaskRespTaskType          = 4
	fieldTaskRespDifficulty        = 5
	fieldTaskRespRetryAfterSeconds = 6
)

func (m *GetProofTaskResponse) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldTaskRespTaskID, m.TaskID)
	b = appendString(b, fieldTaskRespProgramID, m.ProgramID)
	for _, in := range m.PublicInputs {
		b = appendBytes(b, fieldTaskRespPublicInputs, in)
	}
	b = appendVarint(b, fieldTaskRespTaskType, uint64(m.TaskType))
	if m.Difficulty != nil {
		b = appendVarint(b, fieldTaskRespDifficulty, uint64(*m.Difficulty))
	}
	if m.RetryAfterSeconds != nil {
		b = appendVarint(b, fieldTaskRespRetryAfterSeconds, uint64(*m.RetryAfterSeconds))
	}
	return b
}

func (m *GetProofTaskResponse) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTaskRespTaskID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.TaskID = s
		case fieldTaskRespProgramID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.ProgramID = s
		case fieldTaskRespPublicInputs:
			b, err := bytesToBytes(typ, v)
			if err != nil {
				return err
			}
			m.PublicInputs = append(m.PublicInputs, b)
		case fieldTaskRespTaskType:
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			m.TaskType = int32(n)
		case fieldTaskRespDifficulty:
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			d := int32(n)
			m.Difficulty = &d
		case fieldTaskRespRetryAfterSeconds:
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			r := int32(n)
			m.RetryAfterSeconds = &r
		}
		return nil
	})
}

// GetTasksRequest is the /tasks GET (list) body.
type GetTasksRequest struct {
	NodeID     string
	NextCursor string
}

const (
	fieldGetTasksNodeID     = 1
	fieldGetTasksNextCursor = 2
)

func (m *GetTasksRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldGetTasksNodeID, m.NodeID)
	b = appendString(b, fieldGetTasksNextCursor, m.NextCursor)
	return b
}

func (m *GetTasksRequest) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldGetTasksNodeID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NodeID = s
		case fieldGetTasksNextCursor:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NextCursor = s
		}
		return nil
	})
}

// GetTasksResponse is the /tasks GET (list) response body.
type GetTasksResponse struct {
	Tasks []*GetProofTaskResponse
}

const fieldGetTasksRespTasks = 1

func (m *GetTasksResponse) Marshal() []byte {
	var b []byte
	for _, t := range m.Tasks {
		b = appendBytes(b, fieldGetTasksRespTasks, t.Marshal())
	}
	return b
}

func (m *GetTasksResponse) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != fieldGetTasksRespTasks {
			return nil
		}
		raw, err := bytesToBytes(typ, v)
		if err != nil {
			return err
		}
		var t GetProofTaskResponse
		if err := t.Unmarshal(raw); err != nil {
			return err
		}
		m.Tasks = append(m.Tasks, &t)
		return nil
	})
}

// NodeTelemetry is the telemetry sidecar attached to a submit-proof request.
type NodeTelemetry struct {
	FlopsPerSec     float64
	MemoryUsed      int32
	MemoryCapacity  int32
	Location        string
}

const (
	fieldTelemetryFlops    = 1
	fieldTelemetryMemUsed  = 2
	fieldTelemetryMemCap   = 3
	fieldTelemetryLocation = 4
)

func (m *NodeTelemetry) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTelemetryFlops, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, doubleBits(m.FlopsPerSec))
	b = appendVarint(b, fieldTelemetryMemUsed, uint64(uint32(m.MemoryUsed)))
	b = appendVarint(b, fieldTelemetryMemCap, uint64(uint32(m.MemoryCapacity)))
	b = appendString(b, fieldTelemetryLocation, m.Location)
	return b
}

func (m *NodeTelemetry) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTelemetryFlops:
			if typ != protowire.Fixed64Type {
				return fmt.Errorf("node_telemetry.flops_per_sec: unexpected wire type %d", typ)
			}
			bits, n := protowire.ConsumeFixed64(v)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.FlopsPerSec = bitsToDouble(bits)
		case fieldTelemetryMemUsed:
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			m.MemoryUsed = int32(n)
		case fieldTelemetryMemCap:
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			m.MemoryCapacity = int32(n)
		case fieldTelemetryLocation:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.Location = s
		}
		return nil
	})
}

// SubmitProofRequest is the /tasks/submit POST body.
type SubmitProofRequest struct {
	TaskID           string
	NodeType         string
	ProofHash        string
	Proof            []byte
	NodeTelemetry    *NodeTelemetry
	Ed25519PublicKey []byte
	Signature        []byte
}

const (
	fieldSubmitTaskID     = 1
	fieldSubmitNodeType   = 2
	fieldSubmitProofHash  = 3
	fieldSubmitProof      = 4
	fieldSubmitTelemetry  = 5
	fieldSubmitPublicKey  = 6
	fieldSubmitSignature  = 7
)

func (m *SubmitProofRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldSubmitTaskID, m.TaskID)
	b = appendString(b, fieldSubmitNodeType, m.NodeType)
	b = appendString(b, fieldSubmitProofHash, m.ProofHash)
	b = appendBytes(b, fieldSubmitProof, m.Proof)
	if m.NodeTelemetry != nil {
		b = appendBytes(b, fieldSubmitTelemetry, m.NodeTelemetry.Marshal())
	}
	b = appendBytes(b, fieldSubmitPublicKey, m.Ed25519PublicKey)
	b = appendBytes(b, fieldSubmitSignature, m.Signature)
	return b
}

func (m *SubmitProofRequest) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldSubmitTaskID:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.TaskID = s
		case fieldSubmitNodeType:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.NodeType = s
		case fieldSubmitProofHash:
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.ProofHash = s
		case fieldSubmitProof:
			b, err := bytesToBytes(typ, v)
			if err != nil {
				return err
			}
			m.Proof = b
		case fieldSubmitTelemetry:
			raw, err := bytesToBytes(typ, v)
			if err != nil {
				return err
			}
			var t NodeTelemetry
			if err := t.Unmarshal(raw); err != nil {
				return err
			}
			m.NodeTelemetry = &t
		case fieldSubmitPublicKey:
			b, err := bytesToBytes(typ, v)
			if err != nil {
				return err
			}
			m.Ed25519PublicKey = b
		case fieldSubmitSignature:
			b, err := bytesToBytes(typ, v)
			if err != nil {
				return err
			}
			m.Signature = b
		}
		return nil
	})
}

// SubmitProofResponse is the /tasks/submit POST response body.
type SubmitProofResponse struct {
	RewardsProcessed bool
}

const fieldSubmitRespRewardsProcessed = 1

func (m *SubmitProofResponse) Marshal() []byte {
	if !m.RewardsProcessed {
		return nil
	}
	return appendVarint(nil, fieldSubmitRespRewardsProcessed, 1)
}

func (m *SubmitProofResponse) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldSubmitRespRewardsProcessed {
			n, err := bytesToVarint(typ, v)
			if err != nil {
				return err
			}
			m.RewardsProcessed = n != 0
		}
		return nil
	})
}

// GetNodeResponse carries the wallet address for a node id lookup (used by
// the config resolve flow; not in the endpoint table but exercised by the
// same GetNode orchestrator operation original_source/orchestrator/client.rs
// exposes).
type GetNodeResponse struct {
	WalletAddress string
}

const fieldGetNodeRespWalletAddress = 1

func (m *GetNodeResponse) Marshal() []byte {
	return appendString(nil, fieldGetNodeRespWalletAddress, m.WalletAddress)
}

func (m *GetNodeResponse) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldGetNodeRespWalletAddress {
			s, err := bytesToString(typ, v)
			if err != nil {
				return err
			}
			m.WalletAddress = s
		}
		return nil
	})
}
