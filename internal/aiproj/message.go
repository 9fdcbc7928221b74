package aiproj

import (
	"strings"
	"time"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole normalizes a role string returned by the service.
// Returns false when the role is not one of user, assistant or system.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, true
	}
	return r, false
}

// ConversationMessage is a single normalized message of a thread
type ConversationMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`   // Last text segment of the provider message
	CreatedAt time.Time `json:"timestamp"` // UTC
}
