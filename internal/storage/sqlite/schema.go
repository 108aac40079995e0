package sqlite

// Timestamps are unix nanoseconds, 0 for unset. Durations are nanoseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		nickname TEXT NOT NULL,
		avatar_color TEXT NOT NULL,
		total_games INTEGER NOT NULL DEFAULT 0,
		total_wins INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		room_code TEXT NOT NULL,
		secret_word TEXT NOT NULL,
		secret_lemma TEXT NOT NULL,
		status TEXT NOT NULL,
		host_player_id TEXT NOT NULL,
		current_turn_player_id TEXT NOT NULL DEFAULT '',
		turn_number INTEGER NOT NULL DEFAULT 0,
		turn_duration INTEGER NOT NULL,
		turn_started_at INTEGER NOT NULL DEFAULT 0,
		max_players INTEGER NOT NULL,
		is_public INTEGER NOT NULL DEFAULT 0,
		winner_id TEXT NOT NULL DEFAULT '',
		last_turn_end TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		started_at INTEGER NOT NULL DEFAULT 0,
		ended_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_games_open ON games(status, is_public, created_at);`,
	`CREATE TABLE IF NOT EXISTS game_players (
		game_id TEXT NOT NULL REFERENCES games(id),
		player_id TEXT NOT NULL,
		nickname TEXT NOT NULL,
		avatar_color TEXT NOT NULL,
		join_order INTEGER NOT NULL,
		is_host INTEGER NOT NULL DEFAULT 0,
		is_ready INTEGER NOT NULL DEFAULT 0,
		is_connected INTEGER NOT NULL DEFAULT 1,
		last_active_at INTEGER NOT NULL,
		guess_count INTEGER NOT NULL DEFAULT 0,
		joined_at INTEGER NOT NULL,
		PRIMARY KEY (game_id, player_id)
	);`,
	`CREATE TABLE IF NOT EXISTS guesses (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT NOT NULL REFERENCES games(id),
		id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		word TEXT NOT NULL,
		distance INTEGER NOT NULL,
		similarity REAL NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		turn_number INTEGER NOT NULL,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (game_id, word)
	);`,
	`CREATE TABLE IF NOT EXISTS room_codes (
		code TEXT PRIMARY KEY,
		game_id TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS dictionary_words (
		word TEXT PRIMARY KEY
	);`,
	`CREATE TABLE IF NOT EXISTS dictionary_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		loaded_at INTEGER NOT NULL
	);`,
}
