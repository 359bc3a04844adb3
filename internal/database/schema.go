package database

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		xp INTEGER NOT NULL DEFAULT 0,
		group_id INTEGER,
		created_at DATETIME NOT NULL,
		last_login_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS study_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		created_by INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		group_id INTEGER NOT NULL REFERENCES study_groups(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		condition_type TEXT NOT NULL,
		condition_value INTEGER NOT NULL CHECK (condition_value > 0),
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS user_achievement_progress (
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		condition_type TEXT NOT NULL,
		current_value INTEGER NOT NULL DEFAULT 0 CHECK (current_value >= 0),
		last_updated DATETIME NOT NULL,
		UNIQUE (user_id, condition_type)
	);`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement_id TEXT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
		achieved_at DATETIME NOT NULL,
		UNIQUE (user_id, achievement_id)
	);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_group_id ON users(group_id);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_group ON chat_messages(group_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_condition ON achievements(condition_type, condition_value);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		xp BIGINT NOT NULL DEFAULT 0,
		group_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL,
		last_login_at TIMESTAMPTZ
	);`,
	`CREATE TABLE IF NOT EXISTS study_groups (
		id BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		group_id BIGINT NOT NULL REFERENCES study_groups(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		condition_type TEXT NOT NULL,
		condition_value BIGINT NOT NULL CHECK (condition_value > 0),
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS user_achievement_progress (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		condition_type TEXT NOT NULL,
		current_value BIGINT NOT NULL DEFAULT 0 CHECK (current_value >= 0),
		last_updated TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, condition_type)
	);`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement_id TEXT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
		achieved_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, achievement_id)
	);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_group_id ON users(group_id);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_group ON chat_messages(group_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_condition ON achievements(condition_type, condition_value);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);`,
}
