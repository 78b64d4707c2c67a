package models

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one role-tagged message of a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
