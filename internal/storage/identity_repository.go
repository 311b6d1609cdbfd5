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

// ErrLinkCodeTaken is returned when a generated link code collides with a live one.
var ErrLinkCodeTaken = errors.New("link code already in use")

const identityColumns = `id, platform, channel_user_id, account_id, is_temporary,
	COALESCE(link_code, ''), COALESCE(link_code_expires_at, 0), created_at`

func scanIdentity(row rowScanner) (*ChatIdentity, error) {
	var (
		ci               ChatIdentity
		expires, created int64
	)
	if err := row.Scan(&ci.ID, &ci.Platform, &ci.ChannelUserID, &ci.AccountID, &ci.IsTemporary,
		&ci.LinkCode, &expires, &created); err != nil {
		return nil, err
	}
	ci.LinkCodeExpiresAt = fromUnix(expires)
	ci.CreatedAt = fromUnix(created)
	return &ci, nil
}

// GetIdentity looks up a chat identity. Returns ErrNotFound when missing.
func (db *DB) GetIdentity(ctx context.Context, platform, channelUserID string) (*ChatIdentity, error) {
	ci, err := scanIdentity(db.reader.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM chat_identities WHERE platform = ? AND channel_user_id = ?`,
		platform, channelUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity %s/%s: %w", platform, channelUserID, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return ci, nil
}

// ListIdentitiesByAccount returns all chat identities bound to an account.
func (db *DB) ListIdentitiesByAccount(ctx context.Context, accountID int64) ([]ChatIdentity, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM chat_identities WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChatIdentity
	for rows.Next() {
		ci, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, *ci)
	}
	return out, rows.Err()
}

// EnsureIdentity returns the chat identity and its account, creating a
// temporary account and identity on first contact. created reports whether
// new rows were inserted.
func (db *DB) EnsureIdentity(ctx context.Context, platform, channelUserID string) (ci *ChatIdentity, created bool, err error) {
	ci, err = db.GetIdentity(ctx, platform, channelUserID)
	if err == nil {
		return ci, false, nil
	}
	if !domerrors.IsNotFound(err) {
		return nil, false, err
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		// Another request may have created it between the read and the write lock.
		existing, qerr := scanIdentity(tx.QueryRowContext(ctx,
			`SELECT `+identityColumns+` FROM chat_identities WHERE platform = ? AND channel_user_id = ?`,
			platform, channelUserID))
		if qerr == nil {
			ci = existing
			return nil
		}
		if !errors.Is(qerr, sql.ErrNoRows) {
			return fmt.Errorf("query identity: %w", qerr)
		}

		now := time.Now().Unix()
		res, xerr := tx.ExecContext(ctx,
			`INSERT INTO accounts (is_temporary, created_at, updated_at) VALUES (1, ?, ?)`, now, now)
		if xerr != nil {
			return fmt.Errorf("insert temporary account: %w", xerr)
		}
		accountID, _ := res.LastInsertId()

		res, xerr = tx.ExecContext(ctx, `
			INSERT INTO chat_identities (platform, channel_user_id, account_id, is_temporary, created_at)
			VALUES (?, ?, ?, 1, ?)
		`, platform, channelUserID, accountID, now)
		if xerr != nil {
			return fmt.Errorf("insert identity: %w", xerr)
		}
		id, _ := res.LastInsertId()

		ci = &ChatIdentity{
			ID:            id,
			Platform:      platform,
			ChannelUserID: channelUserID,
			AccountID:     accountID,
			IsTemporary:   true,
			CreatedAt:     time.Unix(now, 0),
		}
		created = true
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to ensure identity", "platform", platform, "error", err)
		return nil, false, err
	}
	observe(ctx, "EnsureIdentity", start)
	return ci, created, nil
}

// SetLinkCode stores a link code on the identity. Returns ErrLinkCodeTaken
// when another identity holds the same unexpired code; an expired holder is
// cleared so the code can be reused.
func (db *DB) SetLinkCode(ctx context.Context, identityID int64, code string, expiresAt, now time.Time) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var holder int64
		var holderExpires int64
		err := tx.QueryRowContext(ctx,
			`SELECT id, COALESCE(link_code_expires_at, 0) FROM chat_identities WHERE link_code = ?`, code).
			Scan(&holder, &holderExpires)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("check link code: %w", err)
		case holder != identityID && holderExpires > now.Unix():
			return ErrLinkCodeTaken
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE chat_identities SET link_code = NULL, link_code_expires_at = NULL WHERE id = ?`, holder); err != nil {
				return fmt.Errorf("clear stale link code: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE chat_identities SET link_code = ?, link_code_expires_at = ? WHERE id = ?`,
			code, expiresAt.Unix(), identityID)
		if err != nil {
			return fmt.Errorf("set link code: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("identity %d: %w", identityID, domerrors.ErrNotFound)
		}
		return nil
	})
}

// LinkResult describes what a successful link-code redemption changed.
type LinkResult struct {
	Identity        ChatIdentity
	PreviousAccount int64
	MovedResponses  int
	MovedCorrect    int
}

// RedeemLinkCode binds the identity holding code to targetAccountID.
//
// Outcomes:
//   - unknown or expired code: ErrInvalidLinkCode, nothing changes
//   - identity already bound to target: ErrAlreadyLinked, nothing changes
//     and the code stays redeemable until it expires
//   - otherwise: responses of the temporary account move to the target
//     (rows that would duplicate an existing target answer stay behind),
//     totals follow the moved rows, the temporary account is archived and
//     the code is cleared, all in one transaction.
//
// An identity bound to another permanent account is rebound without moving
// that account's history.
func (db *DB) RedeemLinkCode(ctx context.Context, code string, targetAccountID int64, now time.Time) (*LinkResult, error) {
	var (
		result        *LinkResult
		alreadyLinked bool
	)
	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ci, err := scanIdentity(tx.QueryRowContext(ctx,
			`SELECT `+identityColumns+` FROM chat_identities WHERE link_code = ?`, code))
		if errors.Is(err, sql.ErrNoRows) {
			return domerrors.ErrInvalidLinkCode
		}
		if err != nil {
			return fmt.Errorf("query link code: %w", err)
		}
		if !ci.LinkCodeExpiresAt.After(now) {
			return domerrors.ErrInvalidLinkCode
		}

		var targetExists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) > 0 FROM accounts WHERE id = ? AND archived_at IS NULL`, targetAccountID).
			Scan(&targetExists); err != nil {
			return fmt.Errorf("check target account: %w", err)
		}
		if !targetExists {
			return fmt.Errorf("account %d: %w", targetAccountID, domerrors.ErrNotFound)
		}

		if ci.AccountID == targetAccountID {
			result = &LinkResult{Identity: *ci, PreviousAccount: ci.AccountID}
			alreadyLinked = true
			return nil
		}

		result = &LinkResult{PreviousAccount: ci.AccountID}

		var sourceTemporary, sourceSubscribed bool
		if err := tx.QueryRowContext(ctx,
			`SELECT is_temporary, subscribed FROM accounts WHERE id = ?`, ci.AccountID).
			Scan(&sourceTemporary, &sourceSubscribed); err != nil {
			return fmt.Errorf("query source account: %w", err)
		}

		if sourceTemporary {
			moved, correct, err := moveHistory(ctx, tx, ci.AccountID, targetAccountID)
			if err != nil {
				return err
			}
			result.MovedResponses, result.MovedCorrect = moved, correct

			ts := now.Unix()
			if _, err := tx.ExecContext(ctx, `
				UPDATE accounts SET
					answered_count = answered_count + ?,
					correct_count = correct_count + ?,
					subscribed = MAX(subscribed, ?),
					updated_at = ?
				WHERE id = ?
			`, moved, correct, sourceSubscribed, ts, targetAccountID); err != nil {
				return fmt.Errorf("add totals to target: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE accounts SET
					answered_count = answered_count - ?,
					correct_count = correct_count - ?,
					subscribed = 0,
					archived_at = ?,
					updated_at = ?
				WHERE id = ?
			`, moved, correct, ts, ts, ci.AccountID); err != nil {
				return fmt.Errorf("archive temporary account: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE chat_identities SET
				account_id = ?, is_temporary = 0, link_code = NULL, link_code_expires_at = NULL
			WHERE id = ?
		`, targetAccountID, ci.ID); err != nil {
			return fmt.Errorf("rebind identity: %w", err)
		}

		ci.AccountID = targetAccountID
		ci.IsTemporary = false
		ci.LinkCode = ""
		ci.LinkCodeExpiresAt = time.Time{}
		result.Identity = *ci
		return nil
	})

	if err != nil {
		if !errors.Is(err, domerrors.ErrInvalidLinkCode) {
			slog.ErrorContext(ctx, "failed to redeem link code", "account_id", targetAccountID, "error", err)
		}
		return nil, err
	}
	observe(ctx, "RedeemLinkCode", start, "moved", result.MovedResponses)
	if alreadyLinked {
		return result, domerrors.ErrAlreadyLinked
	}
	return result, nil
}

// moveHistory reassigns daily and weekly responses, skipping rows the target
// already has for the same question. Returns counts of moved rows.
func moveHistory(ctx context.Context, tx *sql.Tx, from, to int64) (moved, correct int, err error) {
	for _, table := range []string{"responses", "weekly_responses"} {
		for _, isCorrect := range []int{1, 0} {
			res, err := tx.ExecContext(ctx,
				`UPDATE OR IGNORE `+table+` SET account_id = ? WHERE account_id = ? AND is_correct = ?`,
				to, from, isCorrect)
			if err != nil {
				return 0, 0, fmt.Errorf("move %s: %w", table, err)
			}
			n, _ := res.RowsAffected()
			moved += int(n)
			if isCorrect == 1 {
				correct += int(n)
			}
		}
	}
	return moved, correct, nil
}

// ClearExpiredLinkCodes removes link codes that expired before now.
func (db *DB) ClearExpiredLinkCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.writer.ExecContext(ctx, `
		UPDATE chat_identities SET link_code = NULL, link_code_expires_at = NULL
		WHERE link_code IS NOT NULL AND link_code_expires_at <= ?
	`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("clear expired link codes: %w", err)
	}
	return res.RowsAffected()
}
