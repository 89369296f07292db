package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventAccessResolved    = "access.resolved"
	EventEnrollmentUpdated = "tac.enrollment.updated"
	EventDemoModeToggled   = "dashboard.demo_mode.toggled"
)

// NewAccessResolvedEvent records one access resolution for the audit trail.
func NewAccessResolvedEvent(identity, role, outcome string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventAccessResolved,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"identity": identity,
			"role":     role,
			"outcome":  outcome,
		},
	}
}

// NewDemoModeToggledEvent records who flipped the demo-mode flag.
func NewDemoModeToggledEvent(identity string, enabled bool) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventDemoModeToggled,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"identity": identity,
			"enabled":  enabled,
		},
	}
}

// NewEnrollmentUpdatedEvent fires after a successful enrollment save so
// cached TAC aggregates can be invalidated.
func NewEnrollmentUpdatedEvent(grades []string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventEnrollmentUpdated,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"grades": grades,
		},
	}
}
