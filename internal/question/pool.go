package question

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed bank/questions.json
var bundledBank []byte

// BankQuestion is the storage shape of the offline question bank.
type BankQuestion struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Category     string   `json:"category"`
	Difficulty   string   `json:"difficulty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Pool indexes bank questions by category and difficulty for offline
// provisioning.
type Pool struct {
	tiers map[string]map[string][]BankQuestion
}

// NewPool builds an index over the given bank entries. Entries that violate
// the canonical invariants are dropped.
func NewPool(entries []BankQuestion) *Pool {
	tiers := make(map[string]map[string][]BankQuestion)
	for _, e := range entries {
		if len(e.Choices) == 0 || e.CorrectIndex < 0 || e.CorrectIndex >= len(e.Choices) {
			continue
		}
		cat := strings.ToLower(e.Category)
		diff := strings.ToLower(e.Difficulty)
		if tiers[cat] == nil {
			tiers[cat] = make(map[string][]BankQuestion)
		}
		tiers[cat][diff] = append(tiers[cat][diff], e)
	}
	return &Pool{tiers: tiers}
}

// LoadBundled parses the statically bundled question bank.
func LoadBundled() (*Pool, error) {
	var entries []BankQuestion
	if err := json.Unmarshal(bundledBank, &entries); err != nil {
		return nil, fmt.Errorf("parse bundled question bank: %w", err)
	}
	return NewPool(entries), nil
}

// Tier returns the questions for an exact (category, difficulty) pair.
func (p *Pool) Tier(category, difficulty string) []BankQuestion {
	return p.tiers[strings.ToLower(category)][strings.ToLower(difficulty)]
}

// siblingOrder lists which difficulty tiers substitute for a structurally
// empty one, nearest first.
var siblingOrder = map[string][]string{
	DifficultyEasy:   {DifficultyEasy, DifficultyMedium, DifficultyHard},
	DifficultyMedium: {DifficultyMedium, DifficultyEasy, DifficultyHard},
	DifficultyHard:   {DifficultyHard, DifficultyMedium, DifficultyEasy},
}

// ResolveTier returns the first non-empty tier for the category, starting at
// the requested difficulty and walking its siblings. The returned string is
// the difficulty actually used. An empty slice means the whole category is
// empty.
func (p *Pool) ResolveTier(category, difficulty string) ([]BankQuestion, string) {
	order, ok := siblingOrder[strings.ToLower(difficulty)]
	if !ok {
		order = siblingOrder[DifficultyMedium]
	}
	for _, diff := range order {
		if tier := p.Tier(category, diff); len(tier) > 0 {
			return tier, diff
		}
	}
	return nil, ""
}

// Categories lists the categories present in the pool.
func (p *Pool) Categories() []string {
	cats := make([]string, 0, len(p.tiers))
	for cat := range p.tiers {
		cats = append(cats, cat)
	}
	return cats
}
