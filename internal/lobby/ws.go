package lobby

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/auth/jwt"
	httperrors "github.com/triviaclash/platform/pkg/http/errors"
	"github.com/triviaclash/platform/pkg/http/ws"
)

// wsUpgrader handles WebSocket upgrades for the lobby event feed.
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the web client's domains are final
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHandler serves the lobby event feed: clients authenticate with a token
// query parameter, then subscribe to lobbies they want events for.
type WSHandler struct {
	hub    *ws.Hub
	tokens *jwt.Manager
	logger zerolog.Logger
}

func NewWSHandler(hub *ws.Hub, tokens *jwt.Manager, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		logger: logger.With().Str("component", "lobby_ws").Logger(),
	}
}

// HandleWebSocket upgrades the HTTP connection and pumps messages. Browsers
// cannot set headers on WebSocket requests, so the bearer token travels as a
// query parameter.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	rawConn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	userID := claims.UserID
	conn := ws.NewConnection(rawConn, h.logger)
	h.hub.RegisterConnection(userID, conn)

	go conn.WritePump()
	conn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(userID, conn, msg)
	})

	h.hub.UnregisterConnection(userID)
}

func (h *WSHandler) handleMessage(userID uuid.UUID, conn *ws.Connection, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeSubscribeLobby:
		lobbyID, err := h.lobbyIDFromPayload(msg.Payload)
		if err != nil {
			return conn.Send(errorMessage(httperrors.ErrCodeInvalidPayload, err.Error()))
		}
		h.hub.SubscribeLobby(lobbyID, userID)
		return nil

	case ws.TypeUnsubscribeLobby:
		lobbyID, err := h.lobbyIDFromPayload(msg.Payload)
		if err != nil {
			return conn.Send(errorMessage(httperrors.ErrCodeInvalidPayload, err.Error()))
		}
		h.hub.UnsubscribeLobby(lobbyID, userID)
		return nil

	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})

	default:
		return conn.Send(errorMessage(httperrors.ErrCodeUnknownMessageType, "unknown message type "+msg.Type))
	}
}

func (h *WSHandler) lobbyIDFromPayload(raw json.RawMessage) (uuid.UUID, error) {
	var payload ws.SubscribeLobbyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(payload.LobbyID)
}

func errorMessage(code, message string) ws.Message {
	return ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}
