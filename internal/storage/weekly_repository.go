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

const weeklyColumns = `id, week_number, quiz_number, category, text, options, correct_index, explanation`

func scanWeekly(row rowScanner) (*WeeklyQuiz, error) {
	var (
		w       WeeklyQuiz
		options string
	)
	if err := row.Scan(&w.ID, &w.WeekNumber, &w.QuizNumber, &w.Category, &w.Text,
		&options, &w.CorrectIndex, &w.Explanation); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(options), &w.Options); err != nil {
		return nil, fmt.Errorf("decode options for weekly quiz %d: %w", w.ID, err)
	}
	return &w, nil
}

// SaveWeeklyQuiz inserts or replaces the quiz for (week, slot).
// Replacing a slot keeps its ID so recorded answers stay attached. A slot
// that already has answers keeps its options and correct index; changing
// them returns ErrChoicesLocked.
func (db *DB) SaveWeeklyQuiz(ctx context.Context, w *WeeklyQuiz) error {
	if w.WeekNumber < 1 {
		return domerrors.NewValidationError("week_number", "must be positive")
	}
	if w.QuizNumber < 1 || w.QuizNumber > WeeklySlots {
		return domerrors.NewValidationError("quiz_number", fmt.Sprintf("must be between 1 and %d", WeeklySlots))
	}
	if err := ValidateChoices(w.Text, w.Options, w.CorrectIndex); err != nil {
		return err
	}
	options, err := json.Marshal(w.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		var (
			curOptions string
			curCorrect int
			answered   bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT options, correct_index,
				EXISTS (SELECT 1 FROM weekly_responses WHERE weekly_quiz_id = weekly_quizzes.id)
			FROM weekly_quizzes WHERE week_number = ? AND quiz_number = ?
		`, w.WeekNumber, w.QuizNumber).Scan(&curOptions, &curCorrect, &answered)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("query weekly quiz: %w", err)
		case answered && (curOptions != string(options) || curCorrect != w.CorrectIndex):
			return fmt.Errorf("week %d slot %d: %w", w.WeekNumber, w.QuizNumber, domerrors.ErrChoicesLocked)
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO weekly_quizzes (week_number, quiz_number, category, text, options, correct_index, explanation)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(week_number, quiz_number) DO UPDATE SET
				category = excluded.category,
				text = excluded.text,
				options = excluded.options,
				correct_index = excluded.correct_index,
				explanation = excluded.explanation
			RETURNING id
		`, w.WeekNumber, w.QuizNumber, w.Category, w.Text, string(options), w.CorrectIndex, w.Explanation).Scan(&w.ID)
	})
	if errors.Is(err, domerrors.ErrChoicesLocked) {
		return err
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to save weekly quiz",
			"week", w.WeekNumber,
			"slot", w.QuizNumber,
			"error", err)
		return fmt.Errorf("save weekly quiz: %w", err)
	}
	observe(ctx, "SaveWeeklyQuiz", start)
	return nil
}

// GetWeeklyQuiz returns the quiz at slot for week. Returns ErrNotFound when the slot is empty.
func (db *DB) GetWeeklyQuiz(ctx context.Context, week, slot int) (*WeeklyQuiz, error) {
	w, err := scanWeekly(db.reader.QueryRowContext(ctx,
		`SELECT `+weeklyColumns+` FROM weekly_quizzes WHERE week_number = ? AND quiz_number = ?`, week, slot))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("weekly quiz %d/%d: %w", week, slot, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query weekly quiz: %w", err)
	}
	return w, nil
}

// ListWeeklyQuizzes returns the quizzes of a week ordered by slot.
func (db *DB) ListWeeklyQuizzes(ctx context.Context, week int) ([]WeeklyQuiz, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT `+weeklyColumns+` FROM weekly_quizzes WHERE week_number = ? ORDER BY quiz_number`, week)
	if err != nil {
		return nil, fmt.Errorf("list weekly quizzes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []WeeklyQuiz
	for rows.Next() {
		w, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// DeleteWeeklyQuiz removes a slot together with its answers.
func (db *DB) DeleteWeeklyQuiz(ctx context.Context, week, slot int) error {
	res, err := db.writer.ExecContext(ctx,
		`DELETE FROM weekly_quizzes WHERE week_number = ? AND quiz_number = ?`, week, slot)
	if err != nil {
		return fmt.Errorf("delete weekly quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("weekly quiz %d/%d: %w", week, slot, domerrors.ErrNotFound)
	}
	return nil
}

// ListWeeklyResponses returns the account's answers for week keyed by slot.
func (db *DB) ListWeeklyResponses(ctx context.Context, accountID int64, week int) (map[int]WeeklyResponse, error) {
	rows, err := db.reader.QueryContext(ctx, `
		SELECT wr.account_id, wr.weekly_quiz_id, wq.quiz_number, wr.selected_index, wr.is_correct, wr.created_at
		FROM weekly_responses wr
		JOIN weekly_quizzes wq ON wq.id = wr.weekly_quiz_id
		WHERE wr.account_id = ? AND wq.week_number = ?
	`, accountID, week)
	if err != nil {
		return nil, fmt.Errorf("list weekly responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]WeeklyResponse)
	for rows.Next() {
		var (
			r       WeeklyResponse
			created int64
		)
		if err := rows.Scan(&r.AccountID, &r.WeeklyQuizID, &r.QuizNumber, &r.SelectedIndex, &r.IsCorrect, &created); err != nil {
			return nil, fmt.Errorf("scan weekly response: %w", err)
		}
		r.CreatedAt = fromUnix(created)
		out[r.QuizNumber] = r
	}
	return out, rows.Err()
}

// RecordWeeklyResponse stores a weekly answer at most once per (account, quiz)
// and bumps account totals in the same transaction. Returns ErrAlreadyAnswered
// without changes when the slot was answered before.
func (db *DB) RecordWeeklyResponse(ctx context.Context, r *WeeklyResponse) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_responses (account_id, weekly_quiz_id, selected_index, is_correct, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(account_id, weekly_quiz_id) DO NOTHING
		`, r.AccountID, r.WeeklyQuizID, r.SelectedIndex, r.IsCorrect, r.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert weekly response: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domerrors.ErrAlreadyAnswered
		}
		return bumpTotals(ctx, tx, r.AccountID, r.IsCorrect, r.CreatedAt)
	})
	if err != nil {
		if !errors.Is(err, domerrors.ErrAlreadyAnswered) {
			slog.ErrorContext(ctx, "failed to record weekly response",
				"account_id", r.AccountID,
				"weekly_quiz_id", r.WeeklyQuizID,
				"error", err)
		}
		return err
	}
	observe(ctx, "RecordWeeklyResponse", start, "account_id", r.AccountID)
	return nil
}

// GetWeeklySummary aggregates the account's results for week.
func (db *DB) GetWeeklySummary(ctx context.Context, accountID int64, week int) (*WeeklySummary, error) {
	s := &WeeklySummary{WeekNumber: week}
	err := db.reader.QueryRowContext(ctx, `
		SELECT
			COUNT(wq.id),
			COUNT(wr.id),
			COALESCE(SUM(wr.is_correct), 0)
		FROM weekly_quizzes wq
		LEFT JOIN weekly_responses wr ON wr.weekly_quiz_id = wq.id AND wr.account_id = ?
		WHERE wq.week_number = ?
	`, accountID, week).Scan(&s.Total, &s.Answered, &s.Correct)
	if err != nil {
		return nil, fmt.Errorf("query weekly summary: %w", err)
	}
	return s, nil
}
