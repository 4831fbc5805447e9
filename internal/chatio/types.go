package chatio

// Message is one inbound chat event as delivered over the WebSocket.
type Message struct {
	Room   string       `json:"room"`
	Msg    string       `json:"msg"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

// MessageJSON carries the decoded metadata block some servers attach to events.
type MessageJSON struct {
	UserID string `json:"user_id"`
}

// ReplyRequest is the outbound payload for text replies.
type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// TypingRequest signals a typing indicator for a room.
type TypingRequest struct {
	Room string `json:"room"`
}

// Config mirrors the chat server's /config response.
type Config struct {
	Port              int    `json:"port"`
	PollingSpeed      int    `json:"polling_speed"`
	MessageRate       int    `json:"message_rate"`
	WebserverEndpoint string `json:"webserver_endpoint"`
}

type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)

func (s WebSocketState) String() string { return string(s) }
