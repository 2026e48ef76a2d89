package lobby

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/auth"
	httperrors "github.com/triviaclash/platform/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for lobby operations.
type HTTPHandlers struct {
	coordinator *Coordinator
	logger      zerolog.Logger
}

func NewHTTPHandlers(coordinator *Coordinator, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		coordinator: coordinator,
		logger:      logger.With().Str("component", "lobby_http").Logger(),
	}
}

type readyUpBody struct {
	TermsAccepted bool `json:"terms_accepted"`
}

type createLobbyBody struct {
	IsCashMatch bool `json:"is_cash_match"`
}

// ReadyUp handles POST /v1/lobbies/{lobbyID}/ready
func (h *HTTPHandlers) ReadyUp(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	lobbyID, ok := h.lobbyIDFromPath(w, r)
	if !ok {
		return
	}

	var body readyUpBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
	}

	result, err := h.coordinator.ReadyUp(r.Context(), ReadyUpRequest{
		LobbyID:       lobbyID,
		UserID:        claims.UserID,
		TermsAccepted: body.TermsAccepted,
	})
	if err != nil {
		h.respondCoordinatorError(w, r, err, httperrors.ErrCodeReadyUpFailed)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"is_ready":     result.IsReady,
		"all_ready":    result.AllReady,
		"all_accepted": result.AllAccepted,
	})
}

// Create handles POST /v1/lobbies
func (h *HTTPHandlers) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var body createLobbyBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
	}

	lob, err := h.coordinator.CreateLobby(r.Context(), claims.UserID, claims.Username, body.IsCashMatch)
	if err != nil {
		h.respondCoordinatorError(w, r, err, httperrors.ErrCodeLobbyCreateFailed)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"lobby_id":      lob.ID.String(),
		"state":         lob.State,
		"is_cash_match": lob.IsCashMatch,
	})
}

// Join handles POST /v1/lobbies/{lobbyID}/join
func (h *HTTPHandlers) Join(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	lobbyID, ok := h.lobbyIDFromPath(w, r)
	if !ok {
		return
	}

	player, err := h.coordinator.Join(r.Context(), lobbyID, claims.UserID, claims.Username)
	if err != nil {
		h.respondCoordinatorError(w, r, err, httperrors.ErrCodeJoinFailed)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"lobby_id": lobbyID.String(),
		"user_id":  player.UserID.String(),
		"is_ready": player.IsReady,
	})
}

// Leave handles POST /v1/lobbies/{lobbyID}/leave
func (h *HTTPHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	lobbyID, ok := h.lobbyIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.coordinator.Leave(r.Context(), lobbyID, claims.UserID); err != nil {
		h.respondCoordinatorError(w, r, err, httperrors.ErrCodeLeaveFailed)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HTTPHandlers) lobbyIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	lobbyID, err := uuid.Parse(r.PathValue("lobbyID"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "lobbyID must be a valid UUID", "lobbyID")
		return uuid.Nil, false
	}
	return lobbyID, true
}

// respondCoordinatorError maps typed coordinator errors onto the wire
// taxonomy. Anything unrecognized is logged and reported as a generic
// internal error.
func (h *HTTPHandlers) respondCoordinatorError(w http.ResponseWriter, r *http.Request, err error, fallbackCode string) {
	var conflict *StateConflictError
	switch {
	case errors.Is(err, ErrLobbyNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeLobbyNotFound, "Lobby not found")
	case errors.Is(err, ErrNotAMember):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotALobbyMember, "You are not an active member of this lobby")
	case errors.Is(err, ErrTermsRequired):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeTermsRequired, "Terms acceptance is required to ready up in a cash match")
	case errors.Is(err, ErrCashDisabled):
		httperrors.RespondForbidden(w, httperrors.ErrCodeStateConflict, "Cash matches are currently disabled")
	case errors.As(err, &conflict):
		httperrors.RespondErrorWithDetails(w, http.StatusConflict, httperrors.ErrCodeStateConflict,
			"Operation not valid for the lobby's current state",
			map[string]interface{}{"state": conflict.State})
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("lobby operation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, fallbackCode, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
