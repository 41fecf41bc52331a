package thoughtflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
)

// FlowType identifies a reasoning strategy. It is a closed enumeration:
// processors are dispatched through an explicit type->processor registry,
// never through reflection or name scanning.
type FlowType string

// Supported reasoning strategies.
const (
	FlowTypeTreeOfThoughts    FlowType = "tree_of_thoughts"
	FlowTypeInternalMonologue FlowType = "internal_monologue"
	FlowTypeSelfCritique      FlowType = "self_critique"
)

// String returns the wire name of the flow type.
func (t FlowType) String() string { return string(t) }

// Valid reports whether t is one of the known flow types.
func (t FlowType) Valid() bool {
	switch t {
	case FlowTypeTreeOfThoughts, FlowTypeInternalMonologue, FlowTypeSelfCritique:
		return true
	}
	return false
}

// ParseFlowType converts a wire name into a FlowType.
// Returns ErrUnknownFlowType for names outside the enumeration.
func ParseFlowType(s string) (FlowType, error) {
	t := FlowType(s)
	if !t.Valid() {
		return "", &UnknownFlowTypeError{Name: s}
	}
	return t, nil
}

// FlowStatus is the lifecycle state of a flow definition.
type FlowStatus string

// Flow definition statuses.
const (
	FlowStatusActive   FlowStatus = "active"
	FlowStatusInactive FlowStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s FlowStatus) Valid() bool {
	return s == FlowStatusActive || s == FlowStatusInactive
}

// NewID returns a fresh string-backed UUID for flows, executions,
// organizations, debates and participants.
func NewID() string {
	return uuid.NewString()
}

// FlowDefinition is a named, organization-scoped reasoning flow:
// a flow type plus the configuration its processor runs with.
//
// ID, Type and OrganizationID are immutable after creation; updates
// through a store only touch Name, Description, Configuration and
// Status. Version increments on every successful update and guards
// against lost updates (compare-and-swap in the stores).
type FlowDefinition struct {
	ID             string
	Name           string
	Description    string
	Type           FlowType
	Configuration  config.Config
	Status         FlowStatus
	OrganizationID string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewFlowDefinition creates an active definition with a fresh ID.
func NewFlowDefinition(name string, flowType FlowType, cfg config.Config, orgID string) *FlowDefinition {
	now := time.Now().UTC()
	return &FlowDefinition{
		ID:             NewID(),
		Name:           name,
		Type:           flowType,
		Configuration:  cfg,
		Status:         FlowStatusActive,
		OrganizationID: orgID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Active reports whether the definition may be executed.
func (d *FlowDefinition) Active() bool {
	return d.Status == FlowStatusActive
}
