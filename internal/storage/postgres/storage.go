package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// Storage is a PostgreSQL implementation of the storage interface.
// Version checks ride on UPDATE ... WHERE version = $n; the row lock taken by
// the update serialises competing writers to the same game.
type Storage struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn and applies the schema
func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Storage{pool: pool}, nil
}

// Close releases the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromNull(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (id, nickname, avatar_color, total_games, total_wins, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			nickname = EXCLUDED.nickname,
			avatar_color = EXCLUDED.avatar_color,
			total_games = EXCLUDED.total_games,
			total_wins = EXCLUDED.total_wins,
			updated_at = EXCLUDED.updated_at`,
		string(player.ID), player.Nickname, player.AvatarColor, player.TotalGames, player.TotalWins,
		player.CreatedAt, player.UpdatedAt)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var (
		p   model.Player
		pid string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, nickname, avatar_color, total_games, total_wins, created_at, updated_at
		FROM players WHERE id = $1`, string(id)).
		Scan(&pid, &p.Nickname, &p.AvatarColor, &p.TotalGames, &p.TotalWins, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ID = model.PlayerID(pid)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// Game operations

const gameColumns = `id, room_code, secret_word, secret_lemma, status, host_player_id,
	current_turn_player_id, turn_number, turn_duration_ms, turn_started_at, max_players, is_public,
	winner_id, last_turn_end, version, created_at, started_at, ended_at, updated_at`

func scanGame(row pgx.Row) (*model.Game, error) {
	var (
		g                                    model.Game
		id, code, status, host, turn, winner string
		lastEnd                              string
		durationMS                           int64
		turnStarted, started, ended          *time.Time
	)
	err := row.Scan(
		&id, &code, &g.SecretWord, &g.SecretLemma, &status, &host,
		&turn, &g.TurnNumber, &durationMS, &turnStarted, &g.MaxPlayers, &g.IsPublic,
		&winner, &lastEnd, &g.Version, &g.CreatedAt, &started, &ended, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.ID = model.GameID(id)
	g.RoomCode = model.RoomCode(code)
	g.Status = model.GameStatus(status)
	g.HostPlayerID = model.PlayerID(host)
	g.CurrentTurnPlayerID = model.PlayerID(turn)
	g.WinnerID = model.PlayerID(winner)
	g.LastTurnEnd = model.TurnEnd(lastEnd)
	g.TurnDuration = time.Duration(durationMS) * time.Millisecond
	g.TurnStartedAt = fromNull(turnStarted)
	g.StartedAt = fromNull(started)
	g.EndedAt = fromNull(ended)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return &g, nil
}

func upsertMember(ctx context.Context, tx pgx.Tx, p *model.GamePlayer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game_players (game_id, player_id, nickname, avatar_color, join_order, is_host, is_ready,
			is_connected, last_active_at, guess_count, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			nickname = EXCLUDED.nickname,
			avatar_color = EXCLUDED.avatar_color,
			join_order = EXCLUDED.join_order,
			is_host = EXCLUDED.is_host,
			is_ready = EXCLUDED.is_ready,
			is_connected = EXCLUDED.is_connected,
			last_active_at = EXCLUDED.last_active_at,
			guess_count = EXCLUDED.guess_count`,
		string(p.GameID), string(p.PlayerID), p.Nickname, p.AvatarColor, p.JoinOrder, p.IsHost, p.IsReady,
		p.IsConnected, p.LastActiveAt, p.GuessCount, p.JoinedAt)
	return err
}

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, host *model.GamePlayer) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO room_codes (code, game_id) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
			string(game.RoomCode), string(game.ID))
		if err != nil {
			return fmt.Errorf("claim room code: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrRoomCodeInUse
		}

		game.Version = 1
		_, err = tx.Exec(ctx, `INSERT INTO games (`+gameColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			string(game.ID), string(game.RoomCode), game.SecretWord, game.SecretLemma, string(game.Status), string(game.HostPlayerID),
			string(game.CurrentTurnPlayerID), game.TurnNumber, game.TurnDuration.Milliseconds(), nullTime(game.TurnStartedAt),
			game.MaxPlayers, game.IsPublic, string(game.WinnerID), string(game.LastTurnEnd), game.Version,
			game.CreatedAt, nullTime(game.StartedAt), nullTime(game.EndedAt), game.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		return upsertMember(ctx, tx, host)
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	game, err := scanGame(s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrGameNotFound
	}
	return game, err
}

func (s *Storage) LoadGame(ctx context.Context, id model.GameID) (*model.GameState, error) {
	var state *model.GameState
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		game, err := scanGame(tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, string(id)))
		if errors.Is(err, pgx.ErrNoRows) {
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

func loadMembers(ctx context.Context, tx pgx.Tx, id model.GameID) ([]*model.GamePlayer, error) {
	rows, err := tx.Query(ctx, `
		SELECT player_id, nickname, avatar_color, join_order, is_host, is_ready,
			is_connected, last_active_at, guess_count, joined_at
		FROM game_players WHERE game_id = $1 ORDER BY join_order`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*model.GamePlayer
	for rows.Next() {
		var (
			p   model.GamePlayer
			pid string
		)
		if err := rows.Scan(&pid, &p.Nickname, &p.AvatarColor, &p.JoinOrder, &p.IsHost, &p.IsReady,
			&p.IsConnected, &p.LastActiveAt, &p.GuessCount, &p.JoinedAt); err != nil {
			return nil, err
		}
		p.GameID = id
		p.PlayerID = model.PlayerID(pid)
		p.LastActiveAt = p.LastActiveAt.UTC()
		p.JoinedAt = p.JoinedAt.UTC()
		members = append(members, &p)
	}
	return members, rows.Err()
}

func loadGuesses(ctx context.Context, tx pgx.Tx, id model.GameID) ([]*model.Guess, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, player_id, word, distance, similarity, is_correct, turn_number, source, created_at
		FROM guesses WHERE game_id = $1 ORDER BY seq`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guesses []*model.Guess
	for rows.Next() {
		var (
			g                model.Guess
			gid, pid, source string
		)
		if err := rows.Scan(&gid, &pid, &g.Word, &g.Distance, &g.Similarity, &g.IsCorrect,
			&g.TurnNumber, &source, &g.Timestamp); err != nil {
			return nil, err
		}
		g.GameID = id
		g.ID = model.GuessID(gid)
		g.PlayerID = model.PlayerID(pid)
		g.Source = model.RankSource(source)
		g.Timestamp = g.Timestamp.UTC()
		guesses = append(guesses, &g)
	}
	return guesses, rows.Err()
}

func (s *Storage) FindGameByRoomCode(ctx context.Context, code model.RoomCode) (model.GameID, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT game_id FROM room_codes WHERE code = $1`, string(code)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrRoomNotFound
	}
	return model.GameID(id), err
}

func (s *Storage) ListOpenGames(ctx context.Context, limit int) ([]*model.GameState, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM games
		WHERE status = $1 AND is_public
		ORDER BY created_at DESC
		LIMIT $2`, string(model.GameStatusWaiting), limitArg)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	open := make([]*model.GameState, 0, len(ids))
	for _, id := range ids {
		state, err := s.LoadGame(ctx, model.GameID(id))
		if err != nil {
			return nil, err
		}
		open = append(open, state)
	}
	return open, nil
}

func (s *Storage) CommitGame(ctx context.Context, change *storage.GameChange) error {
	game := change.Game
	nextVersion := change.ExpectedVersion + 1

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE games SET
				status = $1, current_turn_player_id = $2, turn_number = $3, turn_started_at = $4,
				winner_id = $5, last_turn_end = $6, version = $7, started_at = $8, ended_at = $9, updated_at = $10
			WHERE id = $11 AND version = $12`,
			string(game.Status), string(game.CurrentTurnPlayerID), game.TurnNumber, nullTime(game.TurnStartedAt),
			string(game.WinnerID), string(game.LastTurnEnd), nextVersion, nullTime(game.StartedAt), nullTime(game.EndedAt),
			game.UpdatedAt, string(game.ID), change.ExpectedVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return missOrConflict(ctx, tx, game.ID)
		}

		if g := change.AppendGuess; g != nil {
			var dup bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM guesses WHERE game_id = $1 AND word = $2)`,
				string(g.GameID), g.Word).Scan(&dup); err != nil {
				return err
			}
			if dup {
				return model.ErrDuplicateWord
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO guesses (game_id, id, player_id, word, distance, similarity, is_correct, turn_number, source, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				string(g.GameID), string(g.ID), string(g.PlayerID), g.Word, g.Distance, g.Similarity, g.IsCorrect,
				g.TurnNumber, string(g.Source), g.Timestamp); err != nil {
				return fmt.Errorf("insert guess: %w", err)
			}
		}

		for _, id := range change.RemovePlayers {
			if _, err := tx.Exec(ctx, `DELETE FROM game_players WHERE game_id = $1 AND player_id = $2`,
				string(game.ID), string(id)); err != nil {
				return err
			}
		}
		for _, p := range change.UpsertPlayers {
			if err := upsertMember(ctx, tx, p); err != nil {
				return err
			}
		}

		if game.Status.IsTerminal() {
			if _, err := tx.Exec(ctx, `DELETE FROM room_codes WHERE code = $1 AND game_id = $2`,
				string(game.RoomCode), string(game.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	game.Version = nextVersion
	return nil
}

func missOrConflict(ctx context.Context, tx pgx.Tx, id model.GameID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return model.ErrGameNotFound
	}
	return model.ErrVersionConflict
}

func (s *Storage) TouchGamePlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID, at time.Time) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE game_players SET last_active_at = $1 WHERE game_id = $2 AND player_id = $3`,
			at, string(gameID), string(playerID))
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		err = missOrConflict(ctx, tx, gameID)
		if errors.Is(err, model.ErrVersionConflict) {
			return model.ErrNotInGame
		}
		return err
	})
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	var loaded bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dictionary_meta)`).Scan(&loaded); err != nil {
		return nil, err
	}
	if !loaded {
		return nil, model.ErrDictionaryNotLoaded
	}

	rows, err := s.pool.Query(ctx, `SELECT word FROM dictionary_words`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM dictionary_words`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, w := range words {
			batch.Queue(`INSERT INTO dictionary_words (word) VALUES ($1) ON CONFLICT DO NOTHING`, w)
		}
		batch.Queue(`INSERT INTO dictionary_meta (id, loaded_at) VALUES (1, now())
			ON CONFLICT (id) DO UPDATE SET loaded_at = EXCLUDED.loaded_at`)
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Truncate empties every table; used by tests against a shared database
func (s *Storage) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE guesses, game_players, games, room_codes, players, dictionary_words, dictionary_meta`)
	return err
}
