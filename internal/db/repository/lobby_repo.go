package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/triviaclash/platform/internal/lobby"
)

// LobbyRepository implements lobby.Registry over Postgres.
type LobbyRepository struct {
	db DBTX
}

var _ lobby.Registry = (*LobbyRepository)(nil)

func NewLobbyRepository(db DBTX) *LobbyRepository {
	return &LobbyRepository{db: db}
}

// CreateLobby inserts a lobby in its initial lifecycle state.
func (r *LobbyRepository) CreateLobby(ctx context.Context, isCashMatch bool) (*lobby.Lobby, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO lobbies (lobby_id, state, is_cash_match)
		VALUES ($1, $2, $3)
		RETURNING lobby_id, state, is_cash_match, created_at, updated_at`,
		uuid.New(), lobby.StateWaitingForPlayers, isCashMatch)
	return scanLobby(row)
}

// GetLobby loads a lobby by id.
func (r *LobbyRepository) GetLobby(ctx context.Context, lobbyID uuid.UUID) (*lobby.Lobby, error) {
	row := r.db.QueryRow(ctx, `
		SELECT lobby_id, state, is_cash_match, created_at, updated_at
		FROM lobbies WHERE lobby_id = $1`, lobbyID)
	lob, err := scanLobby(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lobby.ErrLobbyNotFound
	}
	return lob, err
}

// UpdateLobbyState transitions conditionally on the expected current state so
// a concurrent transition cannot fire twice.
func (r *LobbyRepository) UpdateLobbyState(ctx context.Context, lobbyID uuid.UUID, from, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE lobbies SET state = $3, updated_at = now()
		WHERE lobby_id = $1 AND state = $2`, lobbyID, from, to)
	if err != nil {
		return false, fmt.Errorf("update lobby state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AddPlayer inserts a membership row. Rejoining after a soft leave clears
// left_at and resets readiness; joining twice while active is a no-op.
func (r *LobbyRepository) AddPlayer(ctx context.Context, lobbyID, userID uuid.UUID, username string) (*lobby.Player, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO lobby_players (lobby_id, user_id, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (lobby_id, user_id) DO UPDATE
			SET left_at = NULL,
			    is_ready = CASE WHEN lobby_players.left_at IS NULL THEN lobby_players.is_ready ELSE FALSE END,
			    username = EXCLUDED.username
		RETURNING lobby_id, user_id, username, is_ready, terms_accepted, terms_accepted_at, joined_at, left_at`,
		lobbyID, userID, username)
	return scanPlayer(row)
}

// GetPlayer returns (nil, nil) when the user never joined the lobby.
func (r *LobbyRepository) GetPlayer(ctx context.Context, lobbyID, userID uuid.UUID) (*lobby.Player, error) {
	row := r.db.QueryRow(ctx, `
		SELECT lobby_id, user_id, username, is_ready, terms_accepted, terms_accepted_at, joined_at, left_at
		FROM lobby_players WHERE lobby_id = $1 AND user_id = $2`, lobbyID, userID)
	player, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return player, err
}

// MarkReady sets the readiness flag and, when acceptTerms is set, records
// terms acceptance. COALESCE keeps the original acceptance timestamp on
// repeat calls.
func (r *LobbyRepository) MarkReady(ctx context.Context, lobbyID, userID uuid.UUID, acceptTerms bool) (*lobby.Player, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE lobby_players
		SET is_ready = TRUE,
		    terms_accepted = terms_accepted OR $3,
		    terms_accepted_at = CASE WHEN $3 THEN COALESCE(terms_accepted_at, now()) ELSE terms_accepted_at END
		WHERE lobby_id = $1 AND user_id = $2 AND left_at IS NULL
		RETURNING lobby_id, user_id, username, is_ready, terms_accepted, terms_accepted_at, joined_at, left_at`,
		lobbyID, userID, acceptTerms)
	player, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lobby.ErrNotAMember
	}
	return player, err
}

// MarkLeft soft-removes a player; the row is never deleted.
func (r *LobbyRepository) MarkLeft(ctx context.Context, lobbyID, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE lobby_players SET left_at = now()
		WHERE lobby_id = $1 AND user_id = $2 AND left_at IS NULL`, lobbyID, userID)
	if err != nil {
		return fmt.Errorf("mark player left: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lobby.ErrNotAMember
	}
	return nil
}

// ListActivePlayers returns the consistent snapshot readiness aggregation
// runs over. Players with a non-null left_at are excluded.
func (r *LobbyRepository) ListActivePlayers(ctx context.Context, lobbyID uuid.UUID) ([]lobby.Player, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lobby_id, user_id, username, is_ready, terms_accepted, terms_accepted_at, joined_at, left_at
		FROM lobby_players
		WHERE lobby_id = $1 AND left_at IS NULL
		ORDER BY joined_at`, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("list active players: %w", err)
	}
	defer rows.Close()

	var players []lobby.Player
	for rows.Next() {
		var p lobby.Player
		if err := rows.Scan(&p.LobbyID, &p.UserID, &p.Username, &p.IsReady, &p.TermsAccepted,
			&p.TermsAcceptedAt, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func scanLobby(row pgx.Row) (*lobby.Lobby, error) {
	var lob lobby.Lobby
	if err := row.Scan(&lob.ID, &lob.State, &lob.IsCashMatch, &lob.CreatedAt, &lob.UpdatedAt); err != nil {
		return nil, err
	}
	return &lob, nil
}

func scanPlayer(row pgx.Row) (*lobby.Player, error) {
	var p lobby.Player
	if err := row.Scan(&p.LobbyID, &p.UserID, &p.Username, &p.IsReady, &p.TermsAccepted,
		&p.TermsAcceptedAt, &p.JoinedAt, &p.LeftAt); err != nil {
		return nil, err
	}
	return &p, nil
}
