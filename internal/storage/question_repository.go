package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
)

const questionColumns = `id, category, text, options, correct_index, explanation, difficulty, active, created_at`

func scanQuestion(row rowScanner) (*Question, error) {
	var (
		q       Question
		options string
		created int64
	)
	if err := row.Scan(&q.ID, &q.Category, &q.Text, &options, &q.CorrectIndex,
		&q.Explanation, &q.Difficulty, &q.Active, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	q.CreatedAt = fromUnix(created)
	return &q, nil
}

// ValidateChoices checks the shared shape of questions and weekly quizzes.
func ValidateChoices(text string, options []string, correctIndex int) error {
	if strings.TrimSpace(text) == "" {
		return domerrors.NewValidationError("text", "must not be empty")
	}
	if len(options) < 2 || len(options) > 9 {
		return domerrors.NewValidationError("options", "must have between 2 and 9 options")
	}
	for i, o := range options {
		if strings.TrimSpace(o) == "" {
			return domerrors.NewValidationError("options", fmt.Sprintf("option %d is empty", i+1))
		}
	}
	if correctIndex < 0 || correctIndex >= len(options) {
		return domerrors.NewValidationError("correct_index", "out of range")
	}
	return nil
}

func (q *Question) validate() error {
	if err := ValidateChoices(q.Text, q.Options, q.CorrectIndex); err != nil {
		return err
	}
	if q.Difficulty == 0 {
		q.Difficulty = 1
	}
	if q.Difficulty < 1 || q.Difficulty > 3 {
		return domerrors.NewValidationError("difficulty", "must be 1, 2 or 3")
	}
	return nil
}

// CreateQuestion inserts a question and sets its ID.
func (db *DB) CreateQuestion(ctx context.Context, q *Question) error {
	if err := q.validate(); err != nil {
		return err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	now := time.Now()
	res, err := db.writer.ExecContext(ctx, `
		INSERT INTO questions (category, text, options, correct_index, explanation, difficulty, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, q.Category, q.Text, string(options), q.CorrectIndex, q.Explanation, q.Difficulty, now.Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create question", "error", err)
		return fmt.Errorf("create question: %w", err)
	}
	q.ID, _ = res.LastInsertId()
	q.Active = true
	q.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}

// UpdateQuestion replaces the editable fields of a question.
// Once a daily question points at the row its options and correct index
// are frozen and changing them returns ErrChoicesLocked; wording,
// explanation and the other fields stay editable.
func (db *DB) UpdateQuestion(ctx context.Context, q *Question) error {
	if err := q.validate(); err != nil {
		return err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var (
			curOptions string
			curCorrect int
			published  bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT options, correct_index,
				EXISTS (SELECT 1 FROM daily_questions WHERE question_id = questions.id)
			FROM questions WHERE id = ?
		`, q.ID).Scan(&curOptions, &curCorrect, &published)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("question %d: %w", q.ID, domerrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query question: %w", err)
		}
		if published && (curOptions != string(options) || curCorrect != q.CorrectIndex) {
			return fmt.Errorf("question %d: %w", q.ID, domerrors.ErrChoicesLocked)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE questions SET category = ?, text = ?, options = ?, correct_index = ?,
				explanation = ?, difficulty = ?, active = ?
			WHERE id = ?
		`, q.Category, q.Text, string(options), q.CorrectIndex, q.Explanation, q.Difficulty, q.Active, q.ID); err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		return nil
	})
}

// DeactivateQuestion removes a question from future rotation.
// Rows are never deleted because daily questions reference them.
func (db *DB) DeactivateQuestion(ctx context.Context, id int64) error {
	res, err := db.writer.ExecContext(ctx, `UPDATE questions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("question %d: %w", id, domerrors.ErrNotFound)
	}
	return nil
}

// GetQuestion retrieves a question by ID.
func (db *DB) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	q, err := scanQuestion(db.reader.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %d: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query question: %w", err)
	}
	return q, nil
}

// ListQuestions pages through questions newest first.
func (db *DB) ListQuestions(ctx context.Context, limit, offset int) ([]Question, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.reader.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// PickNextQuestion chooses the active question published least often,
// breaking ties by oldest last publication and then by ID.
func (db *DB) PickNextQuestion(ctx context.Context) (*Question, error) {
	q, err := scanQuestion(db.reader.QueryRowContext(ctx, `
		SELECT q.id, q.category, q.text, q.options, q.correct_index, q.explanation, q.difficulty, q.active, q.created_at
		FROM questions q
		LEFT JOIN daily_questions dq ON dq.question_id = q.id
		WHERE q.active = 1
		GROUP BY q.id
		ORDER BY COUNT(dq.id) ASC, COALESCE(MAX(dq.sent_at), 0) ASC, q.id ASC
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active question: %w", domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("pick next question: %w", err)
	}
	return q, nil
}
