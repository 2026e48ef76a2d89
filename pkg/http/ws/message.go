package ws

import "encoding/json"

// MessageType constants for the lobby event protocol.
const (
	// Client -> Server
	TypeSubscribeLobby   = "subscribe_lobby"
	TypeUnsubscribeLobby = "unsubscribe_lobby"

	// Server -> Client
	TypeLobbyEvent = "lobby_event"
	TypeError      = "error"
	TypePing       = "ping"
	TypePong       = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// SubscribeLobbyPayload asks to receive events for one lobby.
type SubscribeLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
}

// LobbyEventPayload is a server push describing a lobby change.
type LobbyEventPayload struct {
	LobbyID string      `json:"lobby_id"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorPayload reports a protocol-level failure to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage marshals a payload into a typed message. Marshaling failures
// degrade to an empty payload rather than dropping the event type.
func NewMessage(msgType string, payload interface{}) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Message{Type: msgType, Payload: data}
}
