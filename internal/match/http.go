package match

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/auth"
	"github.com/triviaclash/platform/internal/question"
	httperrors "github.com/triviaclash/platform/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for round questions.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "match_http").Logger(),
	}
}

// RoundQuestion handles GET /v1/matches/{matchID}/rounds/{roundNo}/question
func (h *HTTPHandlers) RoundQuestion(w http.ResponseWriter, r *http.Request) {
	matchID, roundNo, ok := h.roundKeyFromPath(w, r)
	if !ok {
		return
	}

	rq, err := h.service.RoundQuestion(r.Context(), matchID, roundNo)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"match_id": matchID.String(),
		"round_no": roundNo,
		"question": json.RawMessage(rq.Payload),
	})
}

type generateBody struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Mode       string `json:"mode"`
	SessionID  string `json:"session_id"`
}

// GenerateRound handles POST /v1/matches/{matchID}/rounds/{roundNo}/generate.
// This is the out-of-band generation step round fetches depend on.
func (h *HTTPHandlers) GenerateRound(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	matchID, roundNo, ok := h.roundKeyFromPath(w, r)
	if !ok {
		return
	}

	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if body.SessionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "session_id is required", "session_id")
		return
	}

	rq, err := h.service.GenerateRound(r.Context(), matchID, roundNo, question.ProvisionRequest{
		Category:   body.Category,
		Difficulty: body.Difficulty,
		Mode:       body.Mode,
		SessionID:  body.SessionID,
		UserID:     claims.UserID.String(),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"match_id": matchID.String(),
		"round_no": roundNo,
		"question": json.RawMessage(rq.Payload),
	})
}

func (h *HTTPHandlers) roundKeyFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	matchID, err := uuid.Parse(r.PathValue("matchID"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidMatchID, "matchID must be a valid UUID", "matchID")
		return uuid.Nil, 0, false
	}

	roundNo, err := strconv.Atoi(r.PathValue("roundNo"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRoundNo, "roundNo must be an integer", "roundNo")
		return uuid.Nil, 0, false
	}

	return matchID, roundNo, true
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRoundNo, validation.Message, validation.Field)
	case errors.Is(err, ErrRoundNotGenerated):
		httperrors.RespondNotFound(w, httperrors.ErrCodeRoundNotGenerated,
			"No question has been generated for this round yet; run the generation step first")
	case errors.Is(err, ErrQuestionsExhausted):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeQuestionsExhausted,
			"No questions available from any provisioning source")
	case errors.Is(err, question.ErrInvalidRequest):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid provisioning request")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("round question operation failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
