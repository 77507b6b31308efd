package event

import (
	"time"

	"github.com/google/uuid"
)

// Type names a session notification.
type Type string

const (
	TypeSessionStarted Type = "session_started"
	TypeStageCleared   Type = "stage_cleared"
	TypeTimeExpired    Type = "time_expired"
	TypeBonusApplied   Type = "bonus_applied"
	TypeBonusIgnored   Type = "bonus_ignored"
	TypeItemUsed       Type = "item_used"
)

// Event is a notification emitted by a session to its collaborators.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	SessionID  string                 `json:"session_id"`
	Stage      int                    `json:"stage"`
	Clock      float64                `json:"clock"` // simulated seconds at emission
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh ID and the wall-clock time.
func New(typ Type, sessionID string, stage int, clock float64, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       typ,
		SessionID:  sessionID,
		Stage:      stage,
		Clock:      clock,
		OccurredAt: time.Now(),
		Payload:    payload,
	}
}
