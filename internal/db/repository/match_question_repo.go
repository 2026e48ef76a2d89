package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/triviaclash/platform/internal/match"
)

// MatchQuestionRepository implements match.QuestionStore over Postgres. The
// (match_id, round_no) primary key plus conflict-ignoring inserts make each
// assignment write-once.
type MatchQuestionRepository struct {
	db DBTX
}

var _ match.QuestionStore = (*MatchQuestionRepository)(nil)

func NewMatchQuestionRepository(db DBTX) *MatchQuestionRepository {
	return &MatchQuestionRepository{db: db}
}

// GetRoundQuestion returns the stored payload verbatim, or (nil, nil) when
// the round has no assignment yet.
func (r *MatchQuestionRepository) GetRoundQuestion(ctx context.Context, matchID uuid.UUID, roundNo int) (*match.RoundQuestion, error) {
	var rq match.RoundQuestion
	err := r.db.QueryRow(ctx, `
		SELECT match_id, round_no, question_id, payload, created_at
		FROM match_questions WHERE match_id = $1 AND round_no = $2`,
		matchID, roundNo).
		Scan(&rq.MatchID, &rq.RoundNo, &rq.QuestionID, &rq.Payload, &rq.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get round question: %w", err)
	}
	return &rq, nil
}

// InsertRoundQuestion assigns a question once; a concurrent winner's row is
// left untouched.
func (r *MatchQuestionRepository) InsertRoundQuestion(ctx context.Context, matchID uuid.UUID, roundNo int, questionID string, payload []byte) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO match_questions (match_id, round_no, question_id, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, round_no) DO NOTHING`,
		matchID, roundNo, questionID, payload)
	if err != nil {
		return fmt.Errorf("insert round question: %w", err)
	}
	return nil
}
