package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
)

const dailyColumns = `dq.id, dq.question_id, dq.publish_date, dq.sent_at,
	q.id, q.category, q.text, q.options, q.correct_index, q.explanation, q.difficulty, q.active, q.created_at`

func scanDaily(row rowScanner) (*DailyQuestion, error) {
	var (
		dq            DailyQuestion
		q             = &dq.Question
		options       string
		sent, created int64
	)
	if err := row.Scan(&dq.ID, &dq.QuestionID, &dq.PublishDate, &sent,
		&q.ID, &q.Category, &q.Text, &options, &q.CorrectIndex, &q.Explanation, &q.Difficulty, &q.Active, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	dq.SentAt = fromUnix(sent)
	q.CreatedAt = fromUnix(created)
	return &dq, nil
}

// PublishDailyQuestion records questionID as the question for date.
// Publishing the same date twice returns the existing row unchanged, so
// the scheduler can retry safely. created reports whether a row was inserted.
func (db *DB) PublishDailyQuestion(ctx context.Context, questionID int64, date string, sentAt time.Time) (dq *DailyQuestion, created bool, err error) {
	start := time.Now()
	res, err := db.writer.ExecContext(ctx, `
		INSERT INTO daily_questions (question_id, publish_date, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT(publish_date) DO NOTHING
	`, questionID, date, sentAt.Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish daily question", "question_id", questionID, "date", date, "error", err)
		return nil, false, fmt.Errorf("publish daily question: %w", err)
	}
	observe(ctx, "PublishDailyQuestion", start)
	n, _ := res.RowsAffected()

	dq, err = db.GetDailyQuestionByDate(ctx, date)
	if err != nil {
		return nil, false, err
	}
	return dq, n == 1, nil
}

// GetDailyQuestionByDate returns the question published for date.
func (db *DB) GetDailyQuestionByDate(ctx context.Context, date string) (*DailyQuestion, error) {
	dq, err := scanDaily(db.reader.QueryRowContext(ctx, `
		SELECT `+dailyColumns+`
		FROM daily_questions dq JOIN questions q ON q.id = dq.question_id
		WHERE dq.publish_date = ?
	`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("daily question for %s: %w", date, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query daily question: %w", err)
	}
	return dq, nil
}

// GetCurrentDailyQuestion returns the most recently sent daily question.
func (db *DB) GetCurrentDailyQuestion(ctx context.Context) (*DailyQuestion, error) {
	dq, err := scanDaily(db.reader.QueryRowContext(ctx, `
		SELECT `+dailyColumns+`
		FROM daily_questions dq JOIN questions q ON q.id = dq.question_id
		ORDER BY dq.sent_at DESC, dq.id DESC
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("current daily question: %w", domerrors.ErrNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query current daily question", "error", err)
		return nil, fmt.Errorf("query current daily question: %w", err)
	}
	return dq, nil
}

// GetResponse returns the account's answer to a daily question.
func (db *DB) GetResponse(ctx context.Context, accountID, dailyQuestionID int64) (*Response, error) {
	var (
		r       Response
		created int64
	)
	err := db.reader.QueryRowContext(ctx, `
		SELECT account_id, daily_question_id, selected_index, is_correct, created_at
		FROM responses WHERE account_id = ? AND daily_question_id = ?
	`, accountID, dailyQuestionID).Scan(&r.AccountID, &r.DailyQuestionID, &r.SelectedIndex, &r.IsCorrect, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("response: %w", domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query response: %w", err)
	}
	r.CreatedAt = fromUnix(created)
	return &r, nil
}

// RecordResponse stores an answer and bumps the account totals in one
// transaction. The insert is conditional on the (account, daily question)
// unique key; when a row already exists nothing changes and
// ErrAlreadyAnswered is returned.
func (db *DB) RecordResponse(ctx context.Context, r *Response) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO responses (account_id, daily_question_id, selected_index, is_correct, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(account_id, daily_question_id) DO NOTHING
		`, r.AccountID, r.DailyQuestionID, r.SelectedIndex, r.IsCorrect, r.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domerrors.ErrAlreadyAnswered
		}
		return bumpTotals(ctx, tx, r.AccountID, r.IsCorrect, r.CreatedAt)
	})
	if err != nil {
		if !errors.Is(err, domerrors.ErrAlreadyAnswered) {
			slog.ErrorContext(ctx, "failed to record response",
				"account_id", r.AccountID,
				"daily_question_id", r.DailyQuestionID,
				"error", err)
		}
		return err
	}
	observe(ctx, "RecordResponse", start, "account_id", r.AccountID)
	return nil
}

func bumpTotals(ctx context.Context, tx *sql.Tx, accountID int64, correct bool, at time.Time) error {
	inc := 0
	if correct {
		inc = 1
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET answered_count = answered_count + 1, correct_count = correct_count + ?, updated_at = ?
		WHERE id = ?
	`, inc, at.Unix(), accountID)
	if err != nil {
		return fmt.Errorf("update totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", accountID, domerrors.ErrNotFound)
	}
	return nil
}

// GetQuestionStats counts responses to a daily question.
func (db *DB) GetQuestionStats(ctx context.Context, dailyQuestionID int64) (*QuestionStats, error) {
	var s QuestionStats
	err := db.reader.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_correct), 0) FROM responses WHERE daily_question_id = ?
	`, dailyQuestionID).Scan(&s.Total, &s.Correct)
	if err != nil {
		return nil, fmt.Errorf("query question stats: %w", err)
	}
	return &s, nil
}
