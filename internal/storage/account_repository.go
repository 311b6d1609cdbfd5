package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
)

const accountColumns = `id, COALESCE(external_id, ''), nickname, role, subscribed, study_mode,
	answered_count, correct_count, is_temporary, archived_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a                    Account
		mode                 string
		archived             sql.NullInt64
		created, updated     int64
		subscribed, tempFlag bool
	)
	if err := row.Scan(&a.ID, &a.ExternalID, &a.Nickname, &a.Role, &subscribed, &mode,
		&a.AnsweredCount, &a.CorrectCount, &tempFlag, &archived, &created, &updated); err != nil {
		return nil, err
	}
	a.Subscribed = subscribed
	a.IsTemporary = tempFlag
	a.StudyMode = StudyMode(mode)
	if archived.Valid {
		t := time.Unix(archived.Int64, 0)
		a.ArchivedAt = &t
	}
	a.CreatedAt = fromUnix(created)
	a.UpdatedAt = fromUnix(updated)
	return &a, nil
}

// GetAccount retrieves an account by ID. Returns ErrNotFound when missing.
func (db *DB) GetAccount(ctx context.Context, id int64) (*Account, error) {
	a, err := scanAccount(db.reader.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query account", "account_id", id, "error", err)
		return nil, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

// GetAccountByExternalID retrieves a non-temporary account by its login identity.
func (db *DB) GetAccountByExternalID(ctx context.Context, externalID string) (*Account, error) {
	a, err := scanAccount(db.reader.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", externalID, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query account by external id: %w", err)
	}
	return a, nil
}

// UpsertLoginAccount creates or refreshes the permanent account for an OAuth login.
// The role is only raised to admin, never lowered, so manual promotions survive logins.
func (db *DB) UpsertLoginAccount(ctx context.Context, externalID, nickname, role string) (*Account, error) {
	now := time.Now().Unix()
	start := time.Now()
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO accounts (external_id, nickname, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			nickname = excluded.nickname,
			role = CASE WHEN excluded.role = 'admin' THEN 'admin' ELSE accounts.role END,
			updated_at = excluded.updated_at
	`, externalID, nickname, role, now, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upsert login account", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("upsert login account: %w", err)
	}
	observe(ctx, "UpsertLoginAccount", start)
	return db.GetAccountByExternalID(ctx, externalID)
}

// SetSubscribed updates the daily notification flag.
func (db *DB) SetSubscribed(ctx context.Context, accountID int64, subscribed bool) error {
	return db.updateAccount(ctx, "SetSubscribed", accountID,
		`UPDATE accounts SET subscribed = ?, updated_at = ? WHERE id = ?`, subscribed)
}

// SetStudyMode switches the account between daily and weekly flows.
func (db *DB) SetStudyMode(ctx context.Context, accountID int64, mode StudyMode) error {
	if !mode.Valid() {
		return domerrors.NewValidationError("study_mode", fmt.Sprintf("unknown mode %q", mode))
	}
	return db.updateAccount(ctx, "SetStudyMode", accountID,
		`UPDATE accounts SET study_mode = ?, updated_at = ? WHERE id = ?`, string(mode))
}

// SetRole changes an account's role.
func (db *DB) SetRole(ctx context.Context, accountID int64, role string) error {
	if role != RoleUser && role != RoleAdmin {
		return domerrors.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	return db.updateAccount(ctx, "SetRole", accountID,
		`UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?`, role)
}

func (db *DB) updateAccount(ctx context.Context, op string, accountID int64, query string, value any) error {
	start := time.Now()
	res, err := db.writer.ExecContext(ctx, query, value, time.Now().Unix(), accountID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update account", "operation", op, "account_id", accountID, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	observe(ctx, op, start, "account_id", accountID)
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", accountID, domerrors.ErrNotFound)
	}
	return nil
}

// ListSubscribers returns every chat identity whose account is subscribed.
func (db *DB) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := db.reader.QueryContext(ctx, `
		SELECT a.id, ci.platform, ci.channel_user_id
		FROM accounts a
		JOIN chat_identities ci ON ci.account_id = a.id
		WHERE a.subscribed = 1 AND a.archived_at IS NULL
		ORDER BY a.id, ci.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.AccountID, &s.Platform, &s.ChannelUserID); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// CountAccounts returns active (non-archived) account counts split by temporary flag.
func (db *DB) CountAccounts(ctx context.Context) (permanent, temporary int, err error) {
	err = db.reader.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_temporary = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_temporary = 1 THEN 1 ELSE 0 END), 0)
		FROM accounts WHERE archived_at IS NULL
	`).Scan(&permanent, &temporary)
	if err != nil {
		return 0, 0, fmt.Errorf("count accounts: %w", err)
	}
	return permanent, temporary, nil
}

// GetAccountStats returns totals and the current daily streak.
// The streak counts consecutive published days answered, starting from the
// latest day; an unanswered latest day does not break it.
func (db *DB) GetAccountStats(ctx context.Context, accountID int64) (*AccountStats, error) {
	a, err := db.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	stats := &AccountStats{Answered: a.AnsweredCount, Correct: a.CorrectCount}

	rows, err := db.reader.QueryContext(ctx, `
		SELECT r.id IS NOT NULL
		FROM daily_questions dq
		LEFT JOIN responses r ON r.daily_question_id = dq.id AND r.account_id = ?
		ORDER BY dq.publish_date DESC
		LIMIT 366
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query streak: %w", err)
	}
	defer func() { _ = rows.Close() }()

	first := true
	for rows.Next() {
		var answered bool
		if err := rows.Scan(&answered); err != nil {
			return nil, fmt.Errorf("scan streak: %w", err)
		}
		if !answered {
			if first {
				first = false
				continue
			}
			break
		}
		first = false
		stats.Streak++
	}
	return stats, rows.Err()
}
