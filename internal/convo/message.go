// Package convo keeps the per-session conversation context fed to the completion provider.
package convo

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultSystemPrompt seeds every new context.
const DefaultSystemPrompt = "You are a helpful AI assistant engaging in a voice conversation. Keep your responses concise and natural."

func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
