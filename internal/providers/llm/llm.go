// Package llm abstracts the chat-completion backend used to write podcast
// dialogue.
package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Provider turns an ordered, role-tagged message list into one completion.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	// Model names the backing model, for logs and metrics.
	Model() string
	Close() error
}
