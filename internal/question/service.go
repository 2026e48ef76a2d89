package question

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/question/external"
)

// ErrInvalidRequest covers malformed provisioning requests (non-positive
// count, missing session identifier).
var ErrInvalidRequest = errors.New("invalid provision request")

// Service runs the ordered provisioning chain: remote service, offline bank,
// in-memory last resort. Tier failures are logged and counted, never
// propagated; the result is only empty when every tier yields nothing.
//
// The service owns per-session dedup state for the lifetime of a play
// session, keyed by the caller-supplied session identifier.
type Service struct {
	providers []Provider
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService composes the fallback chain in the given order.
func NewService(providers []Provider, logger zerolog.Logger) *Service {
	return &Service{
		providers: providers,
		logger:    logger.With().Str("component", "question_service").Logger(),
		sessions:  make(map[string]*Session),
	}
}

// Provision returns up to req.Count canonical questions. Partial fulfillment
// and full exhaustion are both success cases; the error return is reserved
// for malformed requests.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) ([]Question, error) {
	if req.Count <= 0 || req.SessionID == "" {
		return nil, ErrInvalidRequest
	}
	if req.Category == "" {
		req.Category = "general"
	}
	if req.Difficulty == "" {
		req.Difficulty = DifficultyMedium
	}
	if req.Mode == "" {
		req.Mode = ModeFree
	}

	sess := s.session(req.SessionID)

	for _, provider := range s.providers {
		qs, err := provider.Provide(ctx, req, sess)
		if err != nil {
			provisionTier.WithLabelValues(provider.Name(), outcomeError).Inc()
			evt := s.logger.Warn()
			if errors.Is(err, external.ErrNeedsGeneration) {
				evt = s.logger.Debug()
			}
			evt.Err(err).
				Str("tier", provider.Name()).
				Str("category", req.Category).
				Str("session_id", req.SessionID).
				Msg("provisioning tier failed, falling through")
			continue
		}
		if len(qs) == 0 {
			provisionTier.WithLabelValues(provider.Name(), outcomeEmpty).Inc()
			continue
		}
		if len(qs) > req.Count {
			qs = qs[:req.Count]
		}
		provisionTier.WithLabelValues(provider.Name(), outcomeServed).Inc()
		s.logger.Info().
			Str("tier", provider.Name()).
			Str("category", req.Category).
			Int("count", len(qs)).
			Msg("questions provisioned")
		return qs, nil
	}

	s.logger.Warn().
		Str("category", req.Category).
		Str("session_id", req.SessionID).
		Msg("all provisioning tiers exhausted")
	return nil, nil
}

// session returns the dedup state for a session identifier, creating it on
// first use.
func (s *Service) session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := NewSession(id)
	s.sessions[id] = sess
	return sess
}

// EndSession drops dedup state once a play session is over.
func (s *Service) EndSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
