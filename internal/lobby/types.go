package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lobby lifecycle states.
const (
	StateForming           = "forming"
	StateWaitingForPlayers = "waiting_for_players"
	StateConsentPending    = "consent_pending"
	StateEscrowLocked      = "escrow_locked"
	StateReadyToStart      = "ready_to_start"
	StateInProgress        = "in_progress"
	StateCompleted         = "completed"
	StateAbandoned         = "abandoned"
)

// Lobby is a pre-match grouping of players negotiating readiness.
type Lobby struct {
	ID          uuid.UUID
	State       string
	IsCashMatch bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Player is a lobby member. A non-nil LeftAt soft-removes the player from all
// readiness aggregation; rows are never hard-deleted.
type Player struct {
	LobbyID         uuid.UUID
	UserID          uuid.UUID
	Username        string
	IsReady         bool
	TermsAccepted   bool
	TermsAcceptedAt *time.Time
	JoinedAt        time.Time
	LeftAt          *time.Time
}

// Active reports whether the player counts toward readiness aggregation.
func (p *Player) Active() bool {
	return p != nil && p.LeftAt == nil
}

// Registry is the lobby player registry: membership, readiness and terms
// acceptance per player per lobby. Implemented over Postgres in
// internal/db/repository.
type Registry interface {
	CreateLobby(ctx context.Context, isCashMatch bool) (*Lobby, error)
	GetLobby(ctx context.Context, lobbyID uuid.UUID) (*Lobby, error)
	// UpdateLobbyState transitions the lobby conditionally; it reports false
	// when the lobby was no longer in the expected state.
	UpdateLobbyState(ctx context.Context, lobbyID uuid.UUID, from, to string) (bool, error)

	AddPlayer(ctx context.Context, lobbyID, userID uuid.UUID, username string) (*Player, error)
	GetPlayer(ctx context.Context, lobbyID, userID uuid.UUID) (*Player, error)
	// MarkReady sets is_ready and, when acceptTerms is true, records terms
	// acceptance; the acceptance timestamp is stamped exactly once and never
	// overwritten.
	MarkReady(ctx context.Context, lobbyID, userID uuid.UUID, acceptTerms bool) (*Player, error)
	MarkLeft(ctx context.Context, lobbyID, userID uuid.UUID) error
	ListActivePlayers(ctx context.Context, lobbyID uuid.UUID) ([]Player, error)
}

// Locker provides per-lobby mutual exclusion across the ready-up-and-aggregate
// sequence.
type Locker interface {
	Acquire(ctx context.Context, lobbyID uuid.UUID) (func() error, error)
}

// Publisher pushes lobby events to connected clients. Implemented by the
// WebSocket feed; a nil publisher disables broadcasting.
type Publisher interface {
	PublishLobby(lobbyID uuid.UUID, event string, payload interface{})
}

// ReadyUpRequest is a single player's ready-up call.
type ReadyUpRequest struct {
	LobbyID       uuid.UUID
	UserID        uuid.UUID
	TermsAccepted bool
}

// ReadyUpResult reports the caller's flag plus the aggregate recomputed over
// all active players after the update.
type ReadyUpResult struct {
	IsReady     bool `json:"is_ready"`
	AllReady    bool `json:"all_ready"`
	AllAccepted bool `json:"all_accepted"`
}

// Typed errors surfaced by the coordinator. None of them are retried
// internally.
var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrNotAMember    = errors.New("player is not an active member of this lobby")
	ErrTermsRequired = errors.New("terms acceptance required for cash match")
	ErrCashDisabled  = errors.New("cash matches are disabled")
)

// StateConflictError rejects an operation invalid for the lobby's current
// lifecycle state, naming that state.
type StateConflictError struct {
	State string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("lobby state %q does not accept this operation", e.State)
}
