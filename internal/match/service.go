package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/question"
)

// Provisioner is the question pipeline consumed by the round generation step.
type Provisioner interface {
	Provision(ctx context.Context, req question.ProvisionRequest) ([]question.Question, error)
}

// Service is the authority for "every player in this round sees the same
// question". Reads never generate: a missing row surfaces
// ErrRoundNotGenerated so two players racing a live fetch cannot create
// divergent assignments. Generation is a separate operation whose concurrent
// callers converge on a single stored row.
type Service struct {
	store       QuestionStore
	provisioner Provisioner
	maxRounds   int
	logger      zerolog.Logger
}

func NewService(store QuestionStore, provisioner Provisioner, maxRounds int, logger zerolog.Logger) *Service {
	if maxRounds <= 0 {
		maxRounds = 10
	}
	return &Service{
		store:       store,
		provisioner: provisioner,
		maxRounds:   maxRounds,
		logger:      logger.With().Str("component", "match_service").Logger(),
	}
}

// MaxRounds exposes the configured round bound for request validation.
func (s *Service) MaxRounds() int { return s.maxRounds }

// RoundQuestion returns the stored payload for a round verbatim.
func (s *Service) RoundQuestion(ctx context.Context, matchID uuid.UUID, roundNo int) (*RoundQuestion, error) {
	if err := s.validateRound(roundNo); err != nil {
		return nil, err
	}

	rq, err := s.store.GetRoundQuestion(ctx, matchID, roundNo)
	if err != nil {
		return nil, fmt.Errorf("load round question: %w", err)
	}
	if rq == nil {
		return nil, ErrRoundNotGenerated
	}
	return rq, nil
}

// GenerateRound provisions and assigns a question for the round. It is
// idempotent: an existing assignment is returned untouched, and concurrent
// generators converge on whichever insert won.
func (s *Service) GenerateRound(ctx context.Context, matchID uuid.UUID, roundNo int, req question.ProvisionRequest) (*RoundQuestion, error) {
	if err := s.validateRound(roundNo); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetRoundQuestion(ctx, matchID, roundNo); err != nil {
		return nil, fmt.Errorf("load round question: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	req.Count = 1
	req.MatchID = matchID.String()
	qs, err := s.provisioner.Provision(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provision question: %w", err)
	}
	if len(qs) == 0 {
		return nil, ErrQuestionsExhausted
	}

	payload, err := json.Marshal(qs[0])
	if err != nil {
		return nil, fmt.Errorf("marshal question payload: %w", err)
	}

	if err := s.store.InsertRoundQuestion(ctx, matchID, roundNo, qs[0].ID, payload); err != nil {
		return nil, fmt.Errorf("store round question: %w", err)
	}

	// Re-read so a concurrent generator's winning row is what we hand back.
	rq, err := s.store.GetRoundQuestion(ctx, matchID, roundNo)
	if err != nil {
		return nil, fmt.Errorf("reload round question: %w", err)
	}
	if rq == nil {
		return nil, fmt.Errorf("round question missing after insert")
	}

	s.logger.Info().
		Str("match_id", matchID.String()).
		Int("round_no", roundNo).
		Str("question_id", rq.QuestionID).
		Msg("round question assigned")
	return rq, nil
}

func (s *Service) validateRound(roundNo int) error {
	if roundNo < 1 || roundNo > s.maxRounds {
		return &ValidationError{
			Field:   "round_no",
			Message: fmt.Sprintf("round_no must be between 1 and %d", s.maxRounds),
		}
	}
	return nil
}
