package types

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type ChatRequest struct {
	Message   string         `json:"message"`
	SessionID *string        `json:"session_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ChatResponse struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
	Sources   []string       `json:"sources"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
	Sources   []string    `json:"sources,omitempty"`
}

// Session timestamps are kept as the backend sends them; they are not
// always RFC 3339 (naive datetimes are common).
type Session struct {
	SessionID string         `json:"session_id"`
	Messages  []Message      `json:"messages"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (s *Session) LastAssistantMessage() (Message, bool) {
	if s == nil {
		return Message{}, false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == MessageRoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// Title is the first user message, trimmed for list display.
func (s *Session) Title() string {
	if s == nil {
		return ""
	}
	for _, msg := range s.Messages {
		if msg.Role == MessageRoleUser && msg.Content != "" {
			return msg.Content
		}
	}
	return s.SessionID
}
