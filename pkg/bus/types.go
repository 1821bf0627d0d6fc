package bus

// InboundMessage is one message received from a channel adapter.
type InboundMessage struct {
	Channel  string            `json:"channel"`
	SenderID string            `json:"sender_id"`
	ChatID   string            `json:"chat_id"`
	Type     string            `json:"type"`
	Content  any               `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is the reply sent back through the originating channel.
type OutboundMessage struct {
	Channel  string            `json:"channel"`
	ChatID   string            `json:"chat_id"`
	Content  string            `json:"content"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
