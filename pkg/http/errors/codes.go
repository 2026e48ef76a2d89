package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Lobby errors
	ErrCodeLobbyNotFound     = "lobby_not_found"
	ErrCodeNotALobbyMember   = "not_a_lobby_member"
	ErrCodeStateConflict     = "state_conflict"
	ErrCodeTermsRequired     = "terms_required"
	ErrCodeReadyUpFailed     = "ready_up_failed"
	ErrCodeLeaveFailed       = "leave_failed"
	ErrCodeLobbyCreateFailed = "lobby_create_failed"
	ErrCodeJoinFailed        = "join_failed"

	// Match / round errors
	ErrCodeInvalidMatchID     = "invalid_match_id"
	ErrCodeInvalidRoundNo     = "invalid_round_no"
	ErrCodeRoundNotGenerated  = "round_not_generated"
	ErrCodeGenerateFailed     = "generate_failed"
	ErrCodeQuestionsExhausted = "questions_exhausted"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
