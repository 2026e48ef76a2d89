package lobby

import (
	"github.com/google/uuid"

	"github.com/triviaclash/platform/pkg/http/ws"
)

// FeedPublisher pushes lobby events through the WebSocket hub.
type FeedPublisher struct {
	hub *ws.Hub
}

var _ Publisher = (*FeedPublisher)(nil)

func NewFeedPublisher(hub *ws.Hub) *FeedPublisher {
	return &FeedPublisher{hub: hub}
}

// PublishLobby broadcasts an event to every subscriber of the lobby. Delivery
// is best-effort; a slow or absent subscriber never fails the originating
// request.
func (p *FeedPublisher) PublishLobby(lobbyID uuid.UUID, event string, payload interface{}) {
	msg := ws.NewMessage(ws.TypeLobbyEvent, ws.LobbyEventPayload{
		LobbyID: lobbyID.String(),
		Event:   event,
		Data:    payload,
	})
	_ = p.hub.BroadcastToLobby(lobbyID, msg)
}
