// Package llm relays a single conversation turn to a hosted language model.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role is the speaker of a turn as stored by clients.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts the two roles clients send.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q: must be %q or %q", s, RoleUser, RoleAssistant)
}

// Turn is one prior message of the conversation, owned by the client.
type Turn struct {
	Role    Role
	Content string
}

// Acknowledgment is the model turn that follows the system prompt.
const Acknowledgment = "I understand. I'm ready to help you with your expense tracking and financial questions. I have access to your spending data and can provide personalized insights. How can I assist you today?"

// Relay sends the system prompt, prior history and the new message to a
// model and returns its reply. Implementations make exactly one outbound
// call and return *Error on failure.
type Relay interface {
	Converse(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error)
}
