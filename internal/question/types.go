package question

// Difficulty constants for readability.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Match modes accepted by the provisioning pipeline.
const (
	ModeFree     = "free"
	ModeCash     = "cash"
	ModeCashTest = "cash-test"
)

// Question is the canonical shape every provisioning tier converges on.
// CorrectIndex is 0-based across the whole pipeline.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Category     string   `json:"category"`
	Difficulty   string   `json:"difficulty"`
	Explanation  string   `json:"explanation,omitempty"`
	Source       string   `json:"source"`
}

// Valid reports whether the canonical invariants hold: non-empty choices and
// a correct index that points into them.
func (q Question) Valid() bool {
	return len(q.Choices) > 0 && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Choices)
}

// ProvisionRequest guides question selection for one match or play session.
// SessionID is generated once per client session and reused across requests.
type ProvisionRequest struct {
	Category   string
	Difficulty string
	Count      int
	Mode       string
	MatchID    string
	SessionID  string
	UserID     string
}
