package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
// Uniqueness constraints on responses and weekly_responses are what make
// answer recording idempotent; repository code relies on them.
func InitSchema(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		name  string
		query string
	}{
		{"accounts", `
		CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT UNIQUE,
			nickname TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			subscribed INTEGER NOT NULL DEFAULT 0,
			study_mode TEXT NOT NULL DEFAULT 'daily' CHECK (study_mode IN ('daily', 'weekly')),
			answered_count INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			is_temporary INTEGER NOT NULL DEFAULT 0,
			archived_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_subscribed ON accounts(subscribed) WHERE archived_at IS NULL;
		`},
		{"chat_identities", `
		CREATE TABLE IF NOT EXISTS chat_identities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			channel_user_id TEXT NOT NULL,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			is_temporary INTEGER NOT NULL DEFAULT 1,
			link_code TEXT UNIQUE,
			link_code_expires_at INTEGER,
			created_at INTEGER NOT NULL,
			UNIQUE (platform, channel_user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_chat_identities_account ON chat_identities(account_id);
		`},
		{"questions", `
		CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			difficulty INTEGER NOT NULL DEFAULT 1 CHECK (difficulty BETWEEN 1 AND 3),
			active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_questions_active ON questions(active);
		`},
		{"daily_questions", `
		CREATE TABLE IF NOT EXISTS daily_questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id INTEGER NOT NULL REFERENCES questions(id),
			publish_date TEXT NOT NULL UNIQUE,
			sent_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_daily_questions_sent_at ON daily_questions(sent_at);
		`},
		{"responses", `
		CREATE TABLE IF NOT EXISTS responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			daily_question_id INTEGER NOT NULL REFERENCES daily_questions(id),
			selected_index INTEGER NOT NULL,
			is_correct INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (account_id, daily_question_id)
		);
		CREATE INDEX IF NOT EXISTS idx_responses_daily ON responses(daily_question_id);
		`},
		{"weekly_quizzes", `
		CREATE TABLE IF NOT EXISTS weekly_quizzes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			week_number INTEGER NOT NULL,
			quiz_number INTEGER NOT NULL CHECK (quiz_number BETWEEN 1 AND 7),
			category TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			UNIQUE (week_number, quiz_number)
		);
		`},
		{"weekly_responses", `
		CREATE TABLE IF NOT EXISTS weekly_responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			weekly_quiz_id INTEGER NOT NULL REFERENCES weekly_quizzes(id) ON DELETE CASCADE,
			selected_index INTEGER NOT NULL,
			is_correct INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (account_id, weekly_quiz_id)
		);
		`},
		{"oauth_tokens", `
		CREATE TABLE IF NOT EXISTS oauth_tokens (
			token_key TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		`},
	}

	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", step.name, err)
		}
	}
	return nil
}
