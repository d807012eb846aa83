package adapter

import "context"

// InboundMessage is one chat event delivered by the transport.
type InboundMessage struct {
	ChannelID  string
	SenderName string
	Body       string
	// Type distinguishes text from media/status events; only "chat",
	// "image" and "document" are processed.
	Type string
}

// IsText reports whether the message carries processable text.
func (m InboundMessage) IsText() bool {
	switch m.Type {
	case "chat", "image", "document":
		return true
	}
	return false
}

// ChatTransport delivers outbound messages. Inbound events arrive through
// the webhook receiver, not through this port.
type ChatTransport interface {
	Send(ctx context.Context, channelID, text string) error
}
