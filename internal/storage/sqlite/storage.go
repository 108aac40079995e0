package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// Storage is a SQLite implementation of the storage interface.
// A single connection serialises writers; version checks ride on
// UPDATE ... WHERE version = ? inside a transaction.
type Storage struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;", "PRAGMA foreign_keys=ON;"}
	for _, p := range append(pragmas, schema...) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, nickname, avatar_color, total_games, total_wins, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			nickname = excluded.nickname,
			avatar_color = excluded.avatar_color,
			total_games = excluded.total_games,
			total_wins = excluded.total_wins,
			updated_at = excluded.updated_at`,
		player.ID, player.Nickname, player.AvatarColor, player.TotalGames, player.TotalWins,
		toNanos(player.CreatedAt), toNanos(player.UpdatedAt))
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var (
		p                model.Player
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nickname, avatar_color, total_games, total_wins, created_at, updated_at
		FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Nickname, &p.AvatarColor, &p.TotalGames, &p.TotalWins, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

// Game operations

const gameColumns = `id, room_code, secret_word, secret_lemma, status, host_player_id,
	current_turn_player_id, turn_number, turn_duration, turn_started_at, max_players, is_public,
	winner_id, last_turn_end, version, created_at, started_at, ended_at, updated_at`

func gameArgs(g *model.Game) []any {
	return []any{
		g.ID, g.RoomCode, g.SecretWord, g.SecretLemma, g.Status, g.HostPlayerID,
		g.CurrentTurnPlayerID, g.TurnNumber, int64(g.TurnDuration), toNanos(g.TurnStartedAt), g.MaxPlayers, g.IsPublic,
		g.WinnerID, g.LastTurnEnd, g.Version, toNanos(g.CreatedAt), toNanos(g.StartedAt), toNanos(g.EndedAt), toNanos(g.UpdatedAt),
	}
}

func scanGame(row scanner) (*model.Game, error) {
	var (
		g        model.Game
		duration int64
		times    [5]int64
	)
	err := row.Scan(
		&g.ID, &g.RoomCode, &g.SecretWord, &g.SecretLemma, &g.Status, &g.HostPlayerID,
		&g.CurrentTurnPlayerID, &g.TurnNumber, &duration, &times[0], &g.MaxPlayers, &g.IsPublic,
		&g.WinnerID, &g.LastTurnEnd, &g.Version, &times[1], &times[2], &times[3], &times[4],
	)
	if err != nil {
		return nil, err
	}
	g.TurnDuration = time.Duration(duration)
	g.TurnStartedAt = fromNanos(times[0])
	g.CreatedAt = fromNanos(times[1])
	g.StartedAt = fromNanos(times[2])
	g.EndedAt = fromNanos(times[3])
	g.UpdatedAt = fromNanos(times[4])
	return &g, nil
}

const memberColumns = `game_id, player_id, nickname, avatar_color, join_order, is_host, is_ready,
	is_connected, last_active_at, guess_count, joined_at`

func upsertMember(ctx context.Context, tx *sql.Tx, p *model.GamePlayer) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO game_players (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			nickname = excluded.nickname,
			avatar_color = excluded.avatar_color,
			join_order = excluded.join_order,
			is_host = excluded.is_host,
			is_ready = excluded.is_ready,
			is_connected = excluded.is_connected,
			last_active_at = excluded.last_active_at,
			guess_count = excluded.guess_count`,
		p.GameID, p.PlayerID, p.Nickname, p.AvatarColor, p.JoinOrder, p.IsHost, p.IsReady,
		p.IsConnected, toNanos(p.LastActiveAt), p.GuessCount, toNanos(p.JoinedAt))
	return err
}

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, host *model.GamePlayer) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var holder string
		err := tx.QueryRowContext(ctx, `SELECT game_id FROM room_codes WHERE code = ?`, game.RoomCode).Scan(&holder)
		if err == nil {
			return model.ErrRoomCodeInUse
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		game.Version = 1
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO games (`+gameColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			gameArgs(game)...); err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO room_codes (code, game_id) VALUES (?, ?)`, game.RoomCode, game.ID); err != nil {
			return fmt.Errorf("claim room code: %w", err)
		}
		return upsertMember(ctx, tx, host)
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	game, err := scanGame(s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGameNotFound
	}
	return game, err
}

func (s *Storage) LoadGame(ctx context.Context, id model.GameID) (*model.GameState, error) {
	var state *model.GameState
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		game, err := scanGame(tx.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrGameNotFound
		}
		if err != nil {
			return err
		}
		state = &model.GameState{Game: game}

		if state.Players, err = loadMembers(ctx, tx, id); err != nil {
			return err
		}
		state.Guesses, err = loadGuesses(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func loadMembers(ctx context.Context, tx *sql.Tx, id model.GameID) ([]*model.GamePlayer, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+memberColumns+` FROM game_players WHERE game_id = ? ORDER BY join_order`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*model.GamePlayer
	for rows.Next() {
		var (
			p              model.GamePlayer
			active, joined int64
		)
		if err := rows.Scan(&p.GameID, &p.PlayerID, &p.Nickname, &p.AvatarColor, &p.JoinOrder, &p.IsHost,
			&p.IsReady, &p.IsConnected, &active, &p.GuessCount, &joined); err != nil {
			return nil, err
		}
		p.LastActiveAt = fromNanos(active)
		p.JoinedAt = fromNanos(joined)
		members = append(members, &p)
	}
	return members, rows.Err()
}

func loadGuesses(ctx context.Context, tx *sql.Tx, id model.GameID) ([]*model.Guess, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT game_id, id, player_id, word, distance, similarity, is_correct, turn_number, source, created_at
		FROM guesses WHERE game_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guesses []*model.Guess
	for rows.Next() {
		var (
			g  model.Guess
			at int64
		)
		if err := rows.Scan(&g.GameID, &g.ID, &g.PlayerID, &g.Word, &g.Distance, &g.Similarity,
			&g.IsCorrect, &g.TurnNumber, &g.Source, &at); err != nil {
			return nil, err
		}
		g.Timestamp = fromNanos(at)
		guesses = append(guesses, &g)
	}
	return guesses, rows.Err()
}

func (s *Storage) FindGameByRoomCode(ctx context.Context, code model.RoomCode) (model.GameID, error) {
	var id model.GameID
	err := s.db.QueryRowContext(ctx, `SELECT game_id FROM room_codes WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrRoomNotFound
	}
	return id, err
}

func (s *Storage) ListOpenGames(ctx context.Context, limit int) ([]*model.GameState, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM games
		WHERE status = ? AND is_public = 1
		ORDER BY created_at DESC
		LIMIT ?`, model.GameStatusWaiting, limit)
	if err != nil {
		return nil, err
	}
	var ids []model.GameID
	for rows.Next() {
		var id model.GameID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	open := make([]*model.GameState, 0, len(ids))
	for _, id := range ids {
		state, err := s.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		open = append(open, state)
	}
	return open, nil
}

func (s *Storage) CommitGame(ctx context.Context, change *storage.GameChange) error {
	game := change.Game
	next := game.Clone()
	next.Version = change.ExpectedVersion + 1

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE games SET
				status = ?, current_turn_player_id = ?, turn_number = ?, turn_started_at = ?,
				winner_id = ?, last_turn_end = ?, version = ?, started_at = ?, ended_at = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			next.Status, next.CurrentTurnPlayerID, next.TurnNumber, toNanos(next.TurnStartedAt),
			next.WinnerID, next.LastTurnEnd, next.Version, toNanos(next.StartedAt), toNanos(next.EndedAt), toNanos(next.UpdatedAt),
			next.ID, change.ExpectedVersion)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return s.missOrConflict(ctx, tx, next.ID)
		}

		if g := change.AppendGuess; g != nil {
			var dup int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM guesses WHERE game_id = ? AND word = ?`, g.GameID, g.Word).Scan(&dup); err != nil {
				return err
			}
			if dup > 0 {
				return model.ErrDuplicateWord
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO guesses (game_id, id, player_id, word, distance, similarity, is_correct, turn_number, source, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				g.GameID, g.ID, g.PlayerID, g.Word, g.Distance, g.Similarity, g.IsCorrect, g.TurnNumber, g.Source, toNanos(g.Timestamp)); err != nil {
				return fmt.Errorf("insert guess: %w", err)
			}
		}

		for _, id := range change.RemovePlayers {
			if _, err := tx.ExecContext(ctx, `DELETE FROM game_players WHERE game_id = ? AND player_id = ?`, next.ID, id); err != nil {
				return err
			}
		}
		for _, p := range change.UpsertPlayers {
			if err := upsertMember(ctx, tx, p); err != nil {
				return err
			}
		}

		if next.Status.IsTerminal() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM room_codes WHERE code = ? AND game_id = ?`, next.RoomCode, next.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	game.Version = next.Version
	return nil
}

func (s *Storage) missOrConflict(ctx context.Context, tx *sql.Tx, id model.GameID) error {
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrGameNotFound
	}
	return model.ErrVersionConflict
}

func (s *Storage) TouchGamePlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE game_players SET last_active_at = ? WHERE game_id = ? AND player_id = ?`,
			toNanos(at), gameID, playerID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n > 0 {
			return err
		}
		err = s.missOrConflict(ctx, tx, gameID)
		if errors.Is(err, model.ErrVersionConflict) {
			return model.ErrNotInGame
		}
		return err
	})
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	var loaded int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dictionary_meta`).Scan(&loaded); err != nil {
		return nil, err
	}
	if loaded == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	rows, err := s.db.QueryContext(ctx, `SELECT word FROM dictionary_words`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	words := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dictionary_words`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO dictionary_words (word) VALUES (?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, w := range words {
			if _, err := stmt.ExecContext(ctx, w); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO dictionary_meta (id, loaded_at) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET loaded_at = excluded.loaded_at`, time.Now().UnixNano())
		return err
	})
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
