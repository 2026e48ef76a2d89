package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triviaclash/platform/internal/lobby"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeDB records the last statement and serves canned results.
type fakeDB struct {
	row      pgx.Row
	execTag  pgconn.CommandTag
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	f.lastArgs = args
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL = sql
	f.lastArgs = args
	return nil, pgx.ErrNoRows
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.lastArgs = args
	return f.row
}

func noRows() pgx.Row {
	return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
}

func lobbyRow(id uuid.UUID, state string, isCash bool) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = id
		*dest[1].(*string) = state
		*dest[2].(*bool) = isCash
		*dest[3].(*time.Time) = time.Now()
		*dest[4].(*time.Time) = time.Now()
		return nil
	}}
}

func playerRow(lobbyID, userID uuid.UUID, isReady, termsAccepted bool) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = lobbyID
		*dest[1].(*uuid.UUID) = userID
		*dest[2].(*string) = "player"
		*dest[3].(*bool) = isReady
		*dest[4].(*bool) = termsAccepted
		*dest[5].(**time.Time) = nil
		*dest[6].(*time.Time) = time.Now()
		*dest[7].(**time.Time) = nil
		return nil
	}}
}

func TestLobbyRepositoryGetLobbyNotFound(t *testing.T) {
	db := &fakeDB{row: noRows()}
	repo := NewLobbyRepository(db)

	_, err := repo.GetLobby(context.Background(), uuid.New())
	assert.ErrorIs(t, err, lobby.ErrLobbyNotFound)
}

func TestLobbyRepositoryGetLobby(t *testing.T) {
	lobbyID := uuid.New()
	db := &fakeDB{row: lobbyRow(lobbyID, lobby.StateWaitingForPlayers, true)}
	repo := NewLobbyRepository(db)

	lob, err := repo.GetLobby(context.Background(), lobbyID)
	require.NoError(t, err)
	assert.Equal(t, lobbyID, lob.ID)
	assert.Equal(t, lobby.StateWaitingForPlayers, lob.State)
	assert.True(t, lob.IsCashMatch)
}

func TestLobbyRepositoryUpdateLobbyStateConditional(t *testing.T) {
	lobbyID := uuid.New()

	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewLobbyRepository(db)

	ok, err := repo.UpdateLobbyState(context.Background(), lobbyID, lobby.StateWaitingForPlayers, lobby.StateReadyToStart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, db.lastSQL, "state = $2", "update must be conditional on the expected state")
	assert.Equal(t, []any{lobbyID, lobby.StateWaitingForPlayers, lobby.StateReadyToStart}, db.lastArgs)

	// A concurrent transition already moved the lobby on.
	db.execTag = pgconn.NewCommandTag("UPDATE 0")
	ok, err = repo.UpdateLobbyState(context.Background(), lobbyID, lobby.StateWaitingForPlayers, lobby.StateReadyToStart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLobbyRepositoryGetPlayerAbsent(t *testing.T) {
	db := &fakeDB{row: noRows()}
	repo := NewLobbyRepository(db)

	player, err := repo.GetPlayer(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, player)
}

func TestLobbyRepositoryMarkReadyNotAMember(t *testing.T) {
	db := &fakeDB{row: noRows()}
	repo := NewLobbyRepository(db)

	_, err := repo.MarkReady(context.Background(), uuid.New(), uuid.New(), false)
	assert.ErrorIs(t, err, lobby.ErrNotAMember)
}

func TestLobbyRepositoryMarkReadyStampsTermsOnce(t *testing.T) {
	lobbyID, userID := uuid.New(), uuid.New()
	db := &fakeDB{row: playerRow(lobbyID, userID, true, true)}
	repo := NewLobbyRepository(db)

	player, err := repo.MarkReady(context.Background(), lobbyID, userID, true)
	require.NoError(t, err)
	assert.True(t, player.IsReady)
	assert.Contains(t, db.lastSQL, "COALESCE(terms_accepted_at, now())",
		"acceptance timestamp must survive repeat calls")
	assert.Contains(t, db.lastSQL, "left_at IS NULL")
}

func TestLobbyRepositoryMarkLeft(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewLobbyRepository(db)

	require.NoError(t, repo.MarkLeft(context.Background(), uuid.New(), uuid.New()))
	assert.Contains(t, db.lastSQL, "left_at = now()")

	db.execTag = pgconn.NewCommandTag("UPDATE 0")
	err := repo.MarkLeft(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, lobby.ErrNotAMember)
}

func TestLobbyRepositoryAddPlayerRejoinSemantics(t *testing.T) {
	lobbyID, userID := uuid.New(), uuid.New()
	db := &fakeDB{row: playerRow(lobbyID, userID, false, false)}
	repo := NewLobbyRepository(db)

	player, err := repo.AddPlayer(context.Background(), lobbyID, userID, "player")
	require.NoError(t, err)
	assert.True(t, player.Active())

	sql := db.lastSQL
	assert.Contains(t, sql, "ON CONFLICT (lobby_id, user_id) DO UPDATE")
	assert.Contains(t, sql, "left_at = NULL", "rejoin must reactivate the row")
	assert.True(t, strings.Contains(sql, "ELSE FALSE"), "rejoin must reset readiness")
}
