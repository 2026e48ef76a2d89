package lobby

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRegistry is an in-process Registry that mirrors the conditional-update
// semantics of the Postgres implementation.
type memRegistry struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
	players map[uuid.UUID]map[uuid.UUID]*Player
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		lobbies: make(map[uuid.UUID]*Lobby),
		players: make(map[uuid.UUID]map[uuid.UUID]*Player),
	}
}

func (r *memRegistry) CreateLobby(_ context.Context, isCashMatch bool) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lob := &Lobby{
		ID:          uuid.New(),
		State:       StateWaitingForPlayers,
		IsCashMatch: isCashMatch,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.lobbies[lob.ID] = lob
	r.players[lob.ID] = make(map[uuid.UUID]*Player)
	return copyLobby(lob), nil
}

func (r *memRegistry) GetLobby(_ context.Context, lobbyID uuid.UUID) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lob, ok := r.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return copyLobby(lob), nil
}

func (r *memRegistry) UpdateLobbyState(_ context.Context, lobbyID uuid.UUID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lob, ok := r.lobbies[lobbyID]
	if !ok || lob.State != from {
		return false, nil
	}
	lob.State = to
	lob.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRegistry) AddPlayer(_ context.Context, lobbyID, userID uuid.UUID, username string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.players[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if p, exists := members[userID]; exists {
		if p.LeftAt != nil {
			p.LeftAt = nil
			p.IsReady = false
		}
		p.Username = username
		return copyPlayer(p), nil
	}
	p := &Player{
		LobbyID:  lobbyID,
		UserID:   userID,
		Username: username,
		JoinedAt: time.Now(),
	}
	members[userID] = p
	return copyPlayer(p), nil
}

func (r *memRegistry) GetPlayer(_ context.Context, lobbyID, userID uuid.UUID) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[lobbyID][userID]
	if !ok {
		return nil, nil
	}
	return copyPlayer(p), nil
}

func (r *memRegistry) MarkReady(_ context.Context, lobbyID, userID uuid.UUID, acceptTerms bool) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[lobbyID][userID]
	if !ok || p.LeftAt != nil {
		return nil, ErrNotAMember
	}
	p.IsReady = true
	if acceptTerms {
		p.TermsAccepted = true
		if p.TermsAcceptedAt == nil {
			now := time.Now()
			p.TermsAcceptedAt = &now
		}
	}
	return copyPlayer(p), nil
}

func (r *memRegistry) MarkLeft(_ context.Context, lobbyID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[lobbyID][userID]
	if !ok {
		return ErrNotAMember
	}
	now := time.Now()
	p.LeftAt = &now
	return nil
}

func (r *memRegistry) ListActivePlayers(_ context.Context, lobbyID uuid.UUID) ([]Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Player
	for _, p := range r.players[lobbyID] {
		if p.LeftAt == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func copyLobby(l *Lobby) *Lobby {
	c := *l
	return &c
}

func copyPlayer(p *Player) *Player {
	c := *p
	return &c
}

// memLocker serializes per-lobby access in process, standing in for the Redis
// lock.
type memLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *memLocker) Acquire(_ context.Context, lobbyID uuid.UUID) (func() error, error) {
	l.mu.Lock()
	m, ok := l.locks[lobbyID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[lobbyID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return func() error {
		m.Unlock()
		return nil
	}, nil
}

type recordedEvent struct {
	lobbyID uuid.UUID
	event   string
}

type memPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *memPublisher) PublishLobby(lobbyID uuid.UUID, event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{lobbyID: lobbyID, event: event})
}

func (p *memPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func newTestCoordinator(reg Registry, pub Publisher, cashEnabled bool) *Coordinator {
	return NewCoordinator(reg, newMemLocker(), pub, CoordinatorOptions{CashMatchesEnabled: cashEnabled}, zerolog.New(io.Discard))
}

func seedLobby(t *testing.T, reg *memRegistry, isCash bool, userIDs ...uuid.UUID) *Lobby {
	t.Helper()
	lob, err := reg.CreateLobby(context.Background(), isCash)
	require.NoError(t, err)
	for i, id := range userIDs {
		_, err := reg.AddPlayer(context.Background(), lob.ID, id, "player-"+string(rune('a'+i)))
		require.NoError(t, err)
	}
	return lob
}

func TestReadyUpSinglePlayerTransitions(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	userID := uuid.New()
	lob := seedLobby(t, reg, false, userID)

	result, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: userID})
	require.NoError(t, err)
	assert.True(t, result.IsReady)
	assert.True(t, result.AllReady)
	assert.True(t, result.AllAccepted)

	stored, err := reg.GetLobby(context.Background(), lob.ID)
	require.NoError(t, err)
	assert.Equal(t, StateReadyToStart, stored.State)
	assert.Equal(t, 1, pub.count(EventLobbyReadyToStart))
}

func TestReadyUpWaitsForAllPlayers(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, false, alice, bob)

	result, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: alice})
	require.NoError(t, err)
	assert.True(t, result.IsReady)
	assert.False(t, result.AllReady)

	stored, _ := reg.GetLobby(context.Background(), lob.ID)
	assert.Equal(t, StateWaitingForPlayers, stored.State)
	assert.Zero(t, pub.count(EventLobbyReadyToStart))

	result, err = coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: bob})
	require.NoError(t, err)
	assert.True(t, result.AllReady)

	stored, _ = reg.GetLobby(context.Background(), lob.ID)
	assert.Equal(t, StateReadyToStart, stored.State)
	assert.Equal(t, 1, pub.count(EventLobbyReadyToStart))
}

func TestReadyUpIsIdempotent(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, false, alice, bob)

	for i := 0; i < 3; i++ {
		result, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: alice})
		require.NoError(t, err)
		assert.True(t, result.IsReady)
		assert.False(t, result.AllReady)
	}

	stored, _ := reg.GetLobby(context.Background(), lob.ID)
	assert.Equal(t, StateWaitingForPlayers, stored.State)
}

func TestReadyUpCashMatchRequiresTerms(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	userID := uuid.New()
	lob := seedLobby(t, reg, true, userID)

	_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: userID})
	assert.ErrorIs(t, err, ErrTermsRequired)

	result, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: userID, TermsAccepted: true})
	require.NoError(t, err)
	assert.True(t, result.IsReady)
	assert.True(t, result.AllAccepted)
}

func TestReadyUpCashMatchPriorAcceptanceSticks(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, true, alice, bob)

	_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: alice, TermsAccepted: true})
	require.NoError(t, err)

	first, err := reg.GetPlayer(context.Background(), lob.ID, alice)
	require.NoError(t, err)
	require.NotNil(t, first.TermsAcceptedAt)
	stamp := *first.TermsAcceptedAt

	// A later ready-up, with or without the flag, must not move the
	// acceptance timestamp.
	_, err = coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: alice, TermsAccepted: true})
	require.NoError(t, err)

	again, err := reg.GetPlayer(context.Background(), lob.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, stamp, *again.TermsAcceptedAt)

	// Acceptance recorded earlier also satisfies a bare ready-up.
	_, err = coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: alice})
	assert.NoError(t, err)
}

func TestReadyUpCashDisabled(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, false)

	userID := uuid.New()
	lob := seedLobby(t, reg, true, userID)

	_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: userID, TermsAccepted: true})
	assert.ErrorIs(t, err, ErrCashDisabled)
}

func TestReadyUpRejectsNonMembers(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	member := uuid.New()
	lob := seedLobby(t, reg, false, member)

	_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestReadyUpRejectsDepartedPlayers(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, false, alice, bob)

	require.NoError(t, reg.MarkLeft(context.Background(), lob.ID, bob))

	_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: bob})
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestReadyUpDepartedPlayersDoNotBlockStart(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, false, alice, bob)

	require.NoError(t, reg.MarkLeft(context.Background(), lob.ID, bob))

	result, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: alice})
	require.NoError(t, err)
	assert.True(t, result.AllReady)

	stored, _ := reg.GetLobby(context.Background(), lob.ID)
	assert.Equal(t, StateReadyToStart, stored.State)
}

func TestReadyUpStateConflict(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	userID := uuid.New()
	lob := seedLobby(t, reg, false, userID)

	ok, err := reg.UpdateLobbyState(context.Background(), lob.ID, StateWaitingForPlayers, StateReadyToStart)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = reg.UpdateLobbyState(context.Background(), lob.ID, StateReadyToStart, StateInProgress)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: userID})
	var conflict *StateConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, StateInProgress, conflict.State)
}

func TestReadyUpLobbyNotFound(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: uuid.New(), UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestReadyUpConcurrentPlayersTransitionOnce(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	const n = 8
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	lob := seedLobby(t, reg, false, ids...)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: userID})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	stored, _ := reg.GetLobby(context.Background(), lob.ID)
	assert.Equal(t, StateReadyToStart, stored.State)
	assert.Equal(t, 1, pub.count(EventLobbyReadyToStart), "ready_to_start must fire exactly once")
	assert.Equal(t, n, pub.count(EventPlayerReady))
}

func TestCreateLobbyAddsHost(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	hostID := uuid.New()
	lob, err := coord.CreateLobby(context.Background(), hostID, "host", false)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingForPlayers, lob.State)

	player, err := reg.GetPlayer(context.Background(), lob.ID, hostID)
	require.NoError(t, err)
	require.NotNil(t, player)
	assert.True(t, player.Active())
}

func TestCreateCashLobbyWhenDisabled(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, false)

	_, err := coord.CreateLobby(context.Background(), uuid.New(), "host", true)
	assert.ErrorIs(t, err, ErrCashDisabled)
}

func TestJoinPublishesAndRejoinResetsReadiness(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, false, alice)

	player, err := coord.Join(context.Background(), lob.ID, bob, "bob")
	require.NoError(t, err)
	assert.True(t, player.Active())
	assert.Equal(t, 1, pub.count(EventPlayerJoined))

	_, err = coord.ReadyUp(context.Background(), ReadyUpRequest{LobbyID: lob.ID, UserID: bob})
	require.NoError(t, err)
	require.NoError(t, coord.Leave(context.Background(), lob.ID, bob))

	player, err = coord.Join(context.Background(), lob.ID, bob, "bob")
	require.NoError(t, err)
	assert.True(t, player.Active())
	assert.False(t, player.IsReady, "rejoin must reset readiness")
}

func TestJoinRejectsClosedLobby(t *testing.T) {
	reg := newMemRegistry()
	coord := newTestCoordinator(reg, &memPublisher{}, true)

	lob := seedLobby(t, reg, false, uuid.New())
	ok, err := reg.UpdateLobbyState(context.Background(), lob.ID, StateWaitingForPlayers, StateReadyToStart)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = coord.Join(context.Background(), lob.ID, uuid.New(), "late")
	var conflict *StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestLeave(t *testing.T) {
	reg := newMemRegistry()
	pub := &memPublisher{}
	coord := newTestCoordinator(reg, pub, true)

	alice, bob := uuid.New(), uuid.New()
	lob := seedLobby(t, reg, false, alice, bob)

	require.NoError(t, coord.Leave(context.Background(), lob.ID, bob))
	assert.Equal(t, 1, pub.count(EventPlayerLeft))

	// Leaving twice is rejected; the player is no longer active.
	err := coord.Leave(context.Background(), lob.ID, bob)
	assert.ErrorIs(t, err, ErrNotAMember)

	players, err := reg.ListActivePlayers(context.Background(), lob.ID)
	require.NoError(t, err)
	assert.Len(t, players, 1)
}
