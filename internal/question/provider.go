package question

import (
	"context"
	"errors"
	"time"

	"github.com/triviaclash/platform/internal/question/external"
)

// Source labels on canonical questions.
const (
	SourceRemote  = "remote"
	SourceOffline = "offline"
	SourceMemory  = "memory"
)

// Provider is one tier in the provisioning fallback chain. A tier reports its
// own failures through the error return; an empty result without error means
// the tier has nothing for this request. Both cause the chain to fall through.
type Provider interface {
	Name() string
	Provide(ctx context.Context, req ProvisionRequest, sess *Session) ([]Question, error)
}

type remoteFetcher interface {
	Fetch(ctx context.Context, q external.FetchQuery) ([]external.RemoteQuestion, error)
}

// RemoteProvider queries the authoritative question service with a bounded
// timeout. Expiry is treated the same as an unreachable service.
type RemoteProvider struct {
	client  remoteFetcher
	timeout time.Duration
}

func NewRemoteProvider(client remoteFetcher, timeout time.Duration) *RemoteProvider {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &RemoteProvider{client: client, timeout: timeout}
}

func (p *RemoteProvider) Name() string { return SourceRemote }

func (p *RemoteProvider) Provide(ctx context.Context, req ProvisionRequest, _ *Session) ([]Question, error) {
	if p.client == nil {
		return nil, errors.New("remote question service not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	remote, err := p.client.Fetch(ctx, external.FetchQuery{
		Category:   req.Category,
		Difficulty: req.Difficulty,
		Count:      req.Count,
		Mode:       req.Mode,
		Session:    req.SessionID,
		UserID:     req.UserID,
	})
	if err != nil {
		return nil, err
	}

	qs := make([]Question, 0, len(remote))
	for _, rq := range remote {
		q := normalizeRemote(rq)
		if q.Valid() {
			qs = append(qs, q)
		}
	}
	return qs, nil
}

func normalizeRemote(rq external.RemoteQuestion) Question {
	return Question{
		ID:           rq.ID,
		Prompt:       rq.Prompt,
		Choices:      rq.Choices,
		CorrectIndex: rq.CorrectChoice,
		Category:     rq.Category,
		Difficulty:   rq.Difficulty,
		Explanation:  rq.Explanation,
		Source:       SourceRemote,
	}
}

// OfflineProvider draws from the statically bundled question bank through the
// session-scoped dedup selector. A structurally empty difficulty tier is
// substituted with a sibling tier before any selection happens, so the
// selector never sees an empty pool.
type OfflineProvider struct {
	pool *Pool
}

func NewOfflineProvider(pool *Pool) *OfflineProvider {
	return &OfflineProvider{pool: pool}
}

func (p *OfflineProvider) Name() string { return SourceOffline }

func (p *OfflineProvider) Provide(ctx context.Context, req ProvisionRequest, sess *Session) ([]Question, error) {
	if p.pool == nil {
		return nil, errors.New("offline question bank unavailable")
	}

	tier, difficulty := p.pool.ResolveTier(req.Category, req.Difficulty)
	if len(tier) == 0 {
		return nil, nil
	}

	qs := make([]Question, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		idx, err := sess.Pick(req.Category, difficulty, len(tier))
		if err != nil {
			return qs, err
		}
		qs = append(qs, normalizeBank(tier[idx], difficulty))
	}
	return qs, nil
}

func normalizeBank(bq BankQuestion, difficulty string) Question {
	return Question{
		ID:           bq.ID,
		Prompt:       bq.Prompt,
		Choices:      bq.Choices,
		CorrectIndex: bq.CorrectIndex,
		Category:     bq.Category,
		Difficulty:   difficulty,
		Explanation:  bq.Explanation,
		Source:       SourceOffline,
	}
}

// MemoryProvider is the last-resort tier: a small fixed pool held in process.
// It never fails; with no pool it simply yields nothing.
type MemoryProvider struct {
	questions []Question
}

func NewMemoryProvider(questions []Question) *MemoryProvider {
	valid := make([]Question, 0, len(questions))
	for _, q := range questions {
		q.Source = SourceMemory
		if q.Valid() {
			valid = append(valid, q)
		}
	}
	return &MemoryProvider{questions: valid}
}

func (p *MemoryProvider) Name() string { return SourceMemory }

func (p *MemoryProvider) Provide(ctx context.Context, req ProvisionRequest, _ *Session) ([]Question, error) {
	if len(p.questions) == 0 {
		return nil, nil
	}
	n := req.Count
	if n > len(p.questions) {
		n = len(p.questions)
	}
	out := make([]Question, n)
	copy(out, p.questions[:n])
	return out, nil
}

// DefaultMemoryPool returns the built-in emergency questions used when both
// the remote service and the bundled bank are unavailable.
func DefaultMemoryPool() []Question {
	return []Question{
		{
			ID:           "mem-001",
			Prompt:       "Which planet is closest to the Sun?",
			Choices:      []string{"Venus", "Mercury", "Earth", "Mars"},
			CorrectIndex: 1,
			Category:     "general",
			Difficulty:   DifficultyEasy,
		},
		{
			ID:           "mem-002",
			Prompt:       "How many minutes are in a full day?",
			Choices:      []string{"1440", "1200", "1660", "2400"},
			CorrectIndex: 0,
			Category:     "general",
			Difficulty:   DifficultyEasy,
		},
		{
			ID:           "mem-003",
			Prompt:       "What color results from mixing blue and yellow paint?",
			Choices:      []string{"Purple", "Orange", "Green", "Brown"},
			CorrectIndex: 2,
			Category:     "general",
			Difficulty:   DifficultyEasy,
		},
	}
}
