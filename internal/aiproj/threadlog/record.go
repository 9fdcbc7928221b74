package threadlog

import (
	"time"

	"github.com/google/uuid"
)

// Record is a local note of a thread created by an agent run
type Record struct {
	ID        string    `json:"id"`         // UUID v4 of the record itself
	Config    string    `json:"config"`     // Configuration name (e.g., "TEST")
	ThreadID  string    `json:"thread_id"`  // Provider thread ID (e.g., "thread_abc")
	AgentID   string    `json:"agent_id"`
	RunID     string    `json:"run_id"`
	RunStatus string    `json:"run_status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a record for a thread created under config
func NewRecord(config, threadID, agentID string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		Config:    config,
		ThreadID:  threadID,
		AgentID:   agentID,
		CreatedAt: time.Now(),
	}
}

// GetShortID returns the shortened record ID (first 8 characters)
func (r *Record) GetShortID() string {
	if len(r.ID) >= 8 {
		return r.ID[:8]
	}
	return r.ID
}
