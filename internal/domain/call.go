package domain

import "time"

// Call status constants for call session records
const (
	CallStatusActive = "active"
	CallStatusEnded  = "ended"
)

// CallRecord is the persistent log row for one verification call.
// It records lifecycle only; the conversational state lives in the
// in-memory session and is never persisted.
type CallRecord struct {
	ID         string    `json:"id" gorm:"column:id;primaryKey"`
	CallID     string    `json:"call_id" gorm:"column:call_id;uniqueIndex"`
	AgentName  string    `json:"agent_name" gorm:"column:agent_name"`
	Status     string    `json:"status" gorm:"column:status"`
	FinalState string    `json:"final_state" gorm:"column:final_state"`
	StartedAt  time.Time `json:"started_at" gorm:"column:started_at"`
	EndedAt    time.Time `json:"ended_at" gorm:"column:ended_at"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName sets the table name for GORM
func (CallRecord) TableName() string {
	return "fraud_calls"
}
