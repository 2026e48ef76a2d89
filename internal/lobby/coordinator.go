package lobby

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Lobby event names pushed to the WebSocket feed.
const (
	EventPlayerJoined      = "player_joined"
	EventPlayerReady       = "player_ready"
	EventPlayerLeft        = "player_left"
	EventLobbyReadyToStart = "lobby_ready_to_start"
)

// CoordinatorOptions carries the configuration injected at construction.
type CoordinatorOptions struct {
	CashMatchesEnabled bool
}

// Coordinator is the request-handling entry point for readiness. It validates
// a player's ready-up, mutates the registry, recomputes aggregate readiness
// over a consistent snapshot, and advances the state machine. The whole
// sequence runs under the per-lobby lock so concurrent calls cannot
// interleave around a stale snapshot.
type Coordinator struct {
	registry Registry
	machine  *Machine
	locks    Locker
	events   Publisher
	opts     CoordinatorOptions
	logger   zerolog.Logger
}

func NewCoordinator(registry Registry, locks Locker, events Publisher, opts CoordinatorOptions, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		machine:  NewMachine(),
		locks:    locks,
		events:   events,
		opts:     opts,
		logger:   logger.With().Str("component", "lobby_coordinator").Logger(),
	}
}

// ReadyUp processes one player's ready-up request end to end. Calling it
// again for an already-ready player is a no-op that still re-evaluates the
// aggregate. The ready_to_start transition fires exactly once: the
// conditional state update only succeeds for the request that observes the
// completing snapshot first.
func (c *Coordinator) ReadyUp(ctx context.Context, req ReadyUpRequest) (*ReadyUpResult, error) {
	unlock, err := c.locks.Acquire(ctx, req.LobbyID)
	if err != nil {
		readyUpTotal.WithLabelValues(outcomeInternalError).Inc()
		return nil, fmt.Errorf("lock lobby: %w", err)
	}
	defer unlock()

	lob, err := c.registry.GetLobby(ctx, req.LobbyID)
	if err != nil {
		readyUpTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, err
	}

	if !c.machine.CanReadyUp(lob.State) {
		readyUpTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, &StateConflictError{State: lob.State}
	}

	if lob.IsCashMatch && !c.opts.CashMatchesEnabled {
		readyUpTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, ErrCashDisabled
	}

	player, err := c.registry.GetPlayer(ctx, req.LobbyID, req.UserID)
	if err != nil {
		readyUpTotal.WithLabelValues(outcomeInternalError).Inc()
		return nil, fmt.Errorf("load player: %w", err)
	}
	if !player.Active() {
		readyUpTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, ErrNotAMember
	}

	// Readiness is never granted on a cash match without terms acceptance,
	// either previously recorded or supplied with this call.
	if lob.IsCashMatch && !player.TermsAccepted && !req.TermsAccepted {
		readyUpTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, ErrTermsRequired
	}

	player, err = c.registry.MarkReady(ctx, req.LobbyID, req.UserID, req.TermsAccepted)
	if err != nil {
		readyUpTotal.WithLabelValues(outcomeInternalError).Inc()
		return nil, fmt.Errorf("mark ready: %w", err)
	}

	players, err := c.registry.ListActivePlayers(ctx, req.LobbyID)
	if err != nil {
		readyUpTotal.WithLabelValues(outcomeInternalError).Inc()
		return nil, fmt.Errorf("list active players: %w", err)
	}

	allReady, allAccepted := Aggregate(players, lob.IsCashMatch)

	result := &ReadyUpResult{
		IsReady:     player.IsReady,
		AllReady:    allReady,
		AllAccepted: allAccepted,
	}

	c.publish(req.LobbyID, EventPlayerReady, map[string]interface{}{
		"user_id":   req.UserID.String(),
		"all_ready": allReady,
	})

	if allReady && (!lob.IsCashMatch || allAccepted) {
		transitioned, err := c.registry.UpdateLobbyState(ctx, req.LobbyID, lob.State, StateReadyToStart)
		if err != nil {
			readyUpTotal.WithLabelValues(outcomeInternalError).Inc()
			return nil, fmt.Errorf("advance lobby: %w", err)
		}
		if transitioned {
			readyUpTotal.WithLabelValues(outcomeTransitioned).Inc()
			c.logger.Info().
				Str("lobby_id", req.LobbyID.String()).
				Int("players", len(players)).
				Msg("lobby ready to start")
			c.publish(req.LobbyID, EventLobbyReadyToStart, map[string]interface{}{
				"state": StateReadyToStart,
			})
			return result, nil
		}
	}

	readyUpTotal.WithLabelValues(outcomeAccepted).Inc()
	return result, nil
}

// CreateLobby opens a new lobby with the caller as its first member.
func (c *Coordinator) CreateLobby(ctx context.Context, userID uuid.UUID, username string, isCashMatch bool) (*Lobby, error) {
	if isCashMatch && !c.opts.CashMatchesEnabled {
		return nil, ErrCashDisabled
	}
	lob, err := c.registry.CreateLobby(ctx, isCashMatch)
	if err != nil {
		return nil, fmt.Errorf("create lobby: %w", err)
	}
	if _, err := c.registry.AddPlayer(ctx, lob.ID, userID, username); err != nil {
		return nil, fmt.Errorf("add host player: %w", err)
	}
	c.logger.Info().
		Str("lobby_id", lob.ID.String()).
		Bool("cash_match", isCashMatch).
		Msg("lobby created")
	return lob, nil
}

// Join adds a player to an accepting lobby. Rejoining after a soft leave
// clears left_at and resets readiness.
func (c *Coordinator) Join(ctx context.Context, lobbyID, userID uuid.UUID, username string) (*Player, error) {
	unlock, err := c.locks.Acquire(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("lock lobby: %w", err)
	}
	defer unlock()

	lob, err := c.registry.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if !c.machine.CanReadyUp(lob.State) {
		return nil, &StateConflictError{State: lob.State}
	}

	player, err := c.registry.AddPlayer(ctx, lobbyID, userID, username)
	if err != nil {
		return nil, fmt.Errorf("add player: %w", err)
	}

	c.publish(lobbyID, EventPlayerJoined, map[string]interface{}{
		"user_id":  userID.String(),
		"username": username,
	})
	return player, nil
}

// Leave soft-removes a player. The player stops counting toward readiness
// aggregation but the row is kept.
func (c *Coordinator) Leave(ctx context.Context, lobbyID, userID uuid.UUID) error {
	unlock, err := c.locks.Acquire(ctx, lobbyID)
	if err != nil {
		return fmt.Errorf("lock lobby: %w", err)
	}
	defer unlock()

	lob, err := c.registry.GetLobby(ctx, lobbyID)
	if err != nil {
		return err
	}
	if c.machine.IsTerminal(lob.State) {
		return &StateConflictError{State: lob.State}
	}

	player, err := c.registry.GetPlayer(ctx, lobbyID, userID)
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}
	if !player.Active() {
		return ErrNotAMember
	}

	if err := c.registry.MarkLeft(ctx, lobbyID, userID); err != nil {
		return fmt.Errorf("mark left: %w", err)
	}

	c.publish(lobbyID, EventPlayerLeft, map[string]interface{}{
		"user_id": userID.String(),
	})
	return nil
}

func (c *Coordinator) publish(lobbyID uuid.UUID, event string, payload interface{}) {
	if c.events == nil {
		return
	}
	c.events.PublishLobby(lobbyID, event, payload)
}
