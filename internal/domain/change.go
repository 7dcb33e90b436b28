package domain

import "github.com/google/uuid"

// MoveReason tags why a SubnetChange was produced.
type MoveReason string

const (
	ReasonExtend  MoveReason = "extend"
	ReasonOptimize MoveReason = "optimize"
	ReasonReplace  MoveReason = "replace"
	ReasonNoOp     MoveReason = "no_op"
)

// SubnetChange describes a proposed membership change: the subnet before
// and after, which node ids were removed and added, and why.
type SubnetChange struct {
	ID      string     `json:"id"`
	Before  Subnet     `json:"before"`
	After   Subnet     `json:"after"`
	Removed []NodeID   `json:"removed,omitempty"`
	Added   []NodeID   `json:"added,omitempty"`
	Reason  MoveReason `json:"reason"`
}

// NewSubnetChange builds a SubnetChange with a fresh id.
func NewSubnetChange(before, after Subnet, removed, added []NodeID, reason MoveReason) SubnetChange {
	return SubnetChange{
		ID:      uuid.NewString(),
		Before:  before,
		After:   after,
		Removed: removed,
		Added:   added,
		Reason:  reason,
	}
}
