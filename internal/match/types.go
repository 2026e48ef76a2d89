package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoundQuestion is the immutable question assigned to one (match, round)
// pair. Payload holds the canonical question exactly as stored, so every
// reader receives byte-identical content.
type RoundQuestion struct {
	MatchID    uuid.UUID       `json:"match_id"`
	RoundNo    int             `json:"round_no"`
	QuestionID string          `json:"question_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// QuestionStore persists round question assignments. Implemented over
// Postgres in internal/db/repository.
type QuestionStore interface {
	// GetRoundQuestion returns (nil, nil) when no row exists.
	GetRoundQuestion(ctx context.Context, matchID uuid.UUID, roundNo int) (*RoundQuestion, error)
	// InsertRoundQuestion is conflict-ignoring: a concurrent insert for the
	// same key leaves the first row in place.
	InsertRoundQuestion(ctx context.Context, matchID uuid.UUID, roundNo int, questionID string, payload []byte) error
}

var (
	// ErrRoundNotGenerated means the round's question has not been assigned
	// yet; an out-of-band generation step must run first.
	ErrRoundNotGenerated = errors.New("round question not generated yet")
	// ErrQuestionsExhausted means every provisioning tier came back empty.
	ErrQuestionsExhausted = errors.New("no questions available from any source")
)

// ValidationError rejects malformed round requests.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
