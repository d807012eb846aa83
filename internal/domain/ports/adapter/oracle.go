package adapter

import "context"

// Message is one turn of oracle context.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Oracle is the language-completion port. Its output is untrusted free text;
// callers extract tags and embedded JSON themselves.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt string, history []Message, userText string) (string, error)
}
