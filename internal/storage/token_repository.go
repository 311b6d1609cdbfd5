package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
)

// GetToken loads a persisted token by key. Returns ErrNotFound when absent.
func (db *DB) GetToken(ctx context.Context, key string) (*StoredToken, error) {
	var (
		t                StoredToken
		expires, updated int64
	)
	err := db.reader.QueryRowContext(ctx, `
		SELECT token_key, access_token, refresh_token, expires_at, updated_at
		FROM oauth_tokens WHERE token_key = ?
	`, key).Scan(&t.Key, &t.AccessToken, &t.RefreshToken, &expires, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token %q: %w", key, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	t.ExpiresAt = fromUnix(expires)
	t.UpdatedAt = fromUnix(updated)
	return &t, nil
}

// SaveToken upserts a token. An empty refresh token keeps the stored one,
// since providers often omit it on refresh responses.
func (db *DB) SaveToken(ctx context.Context, t *StoredToken) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO oauth_tokens (token_key, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token_key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN oauth_tokens.refresh_token ELSE excluded.refresh_token END,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, t.Key, t.AccessToken, t.RefreshToken, unix(t.ExpiresAt), t.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// DeleteToken removes a token, for example after the provider revoked it.
func (db *DB) DeleteToken(ctx context.Context, key string) error {
	if _, err := db.writer.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE token_key = ?`, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
