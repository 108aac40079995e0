package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		nickname TEXT NOT NULL,
		avatar_color TEXT NOT NULL,
		total_games INTEGER NOT NULL DEFAULT 0,
		total_wins INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		room_code TEXT NOT NULL,
		secret_word TEXT NOT NULL,
		secret_lemma TEXT NOT NULL,
		status TEXT NOT NULL,
		host_player_id TEXT NOT NULL,
		current_turn_player_id TEXT NOT NULL DEFAULT '',
		turn_number INTEGER NOT NULL DEFAULT 0,
		turn_duration_ms BIGINT NOT NULL,
		turn_started_at TIMESTAMPTZ,
		max_players INTEGER NOT NULL,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		winner_id TEXT NOT NULL DEFAULT '',
		last_turn_end TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_open ON games (status, is_public, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS game_players (
		game_id TEXT NOT NULL REFERENCES games(id),
		player_id TEXT NOT NULL,
		nickname TEXT NOT NULL,
		avatar_color TEXT NOT NULL,
		join_order INTEGER NOT NULL,
		is_host BOOLEAN NOT NULL DEFAULT FALSE,
		is_ready BOOLEAN NOT NULL DEFAULT FALSE,
		is_connected BOOLEAN NOT NULL DEFAULT TRUE,
		last_active_at TIMESTAMPTZ NOT NULL,
		guess_count INTEGER NOT NULL DEFAULT 0,
		joined_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (game_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS guesses (
		seq BIGSERIAL PRIMARY KEY,
		game_id TEXT NOT NULL REFERENCES games(id),
		id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		word TEXT NOT NULL,
		distance INTEGER NOT NULL,
		similarity DOUBLE PRECISION NOT NULL,
		is_correct BOOLEAN NOT NULL DEFAULT FALSE,
		turn_number INTEGER NOT NULL,
		source TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (game_id, word)
	)`,
	`CREATE TABLE IF NOT EXISTS room_codes (
		code TEXT PRIMARY KEY,
		game_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dictionary_words (
		word TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS dictionary_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		loaded_at TIMESTAMPTZ NOT NULL
	)`,
}
