// Package daily implements today's question and answer submission.
//
// Accounts in weekly mode are redirected before any lookup; answers are
// recorded at most once per account and daily question.
package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyellow/quizbot-go/internal/bot"
	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// ModuleName is the module name used in logs and metrics.
const ModuleName = "daily"

// Store is the persistence surface the handler needs.
type Store interface {
	GetCurrentDailyQuestion(ctx context.Context) (*storage.DailyQuestion, error)
	GetResponse(ctx context.Context, accountID, dailyQuestionID int64) (*storage.Response, error)
	RecordResponse(ctx context.Context, r *storage.Response) error
	GetQuestionStats(ctx context.Context, dailyQuestionID int64) (*storage.QuestionStats, error)
}

// Handler serves the today and answer commands.
type Handler struct {
	store   Store
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHandler creates a daily handler. m may be nil.
func NewHandler(store Store, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{store: store, logger: log, metrics: m, now: time.Now}
}

// Name returns the module name.
func (h *Handler) Name() string { return ModuleName }

// Routes implements bot.Module.
func (h *Handler) Routes() []bot.Route {
	return []bot.Route{
		bot.NoArg(intent.CmdToday, h.Today),
		bot.Int(intent.CmdAnswer, h.Answer),
	}
}

// Today shows the current daily question.
func (h *Handler) Today(ctx context.Context, req *bot.Request) (reply.Response, error) {
	if req.Account.StudyMode == storage.StudyModeWeekly {
		return weeklyRedirect(), nil
	}

	dq, err := h.store.GetCurrentDailyQuestion(ctx)
	if domerrors.IsNotFound(err) {
		return reply.Text(MsgNotAvailable), nil
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("current daily question: %w", err)
	}

	resp := reply.CardResponse(questionCard(dq), reply.NumberQuickReplies(len(dq.Question.Options))...)

	prev, err := h.store.GetResponse(ctx, req.Account.ID, dq.ID)
	switch {
	case err == nil:
		resp = resp.AddText(fmt.Sprintf(MsgAlreadySolved, prev.SelectedIndex+1)).
			WithQuickReplies(reply.Quick("통계"), reply.Quick("주간 퀴즈"))
	case domerrors.IsNotFound(err):
		resp = resp.AddText(MsgAnswerHint)
	default:
		return reply.Response{}, fmt.Errorf("previous response: %w", err)
	}
	return resp, nil
}

// Answer records option n (1-based) for the current daily question.
func (h *Handler) Answer(ctx context.Context, req *bot.Request, n int) (reply.Response, error) {
	if req.Account.StudyMode == storage.StudyModeWeekly {
		return weeklyRedirect(), nil
	}

	dq, err := h.store.GetCurrentDailyQuestion(ctx)
	if domerrors.IsNotFound(err) {
		return reply.Text(MsgNotAvailable), nil
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("current daily question: %w", err)
	}

	q := dq.Question
	idx := n - 1
	if idx < 0 || idx >= len(q.Options) {
		return reply.Text(fmt.Sprintf(MsgOutOfRange, len(q.Options)), reply.NumberQuickReplies(len(q.Options))...), nil
	}

	correct := idx == q.CorrectIndex
	err = h.store.RecordResponse(ctx, &storage.Response{
		AccountID:       req.Account.ID,
		DailyQuestionID: dq.ID,
		SelectedIndex:   idx,
		IsCorrect:       correct,
		CreatedAt:       h.now(),
	})
	if errors.Is(err, domerrors.ErrAlreadyAnswered) {
		h.recordAnswer("duplicate")
		return reply.Text(MsgAlreadyAnswered, reply.Quick("통계")), nil
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("record response: %w", err)
	}

	var b strings.Builder
	if correct {
		h.recordAnswer("correct")
		b.WriteString(MsgCorrect)
	} else {
		h.recordAnswer("incorrect")
		fmt.Fprintf(&b, MsgIncorrect, q.CorrectIndex+1, q.Options[q.CorrectIndex])
	}
	if q.Explanation != "" {
		b.WriteString("\n\n💡 ")
		b.WriteString(q.Explanation)
	}

	resp := reply.Text(b.String(), reply.Quick("통계"), reply.Quick("주간 퀴즈"))

	stats, err := h.store.GetQuestionStats(ctx, dq.ID)
	if err != nil {
		// the answer is stored; stats are decoration
		h.logger.WithError(err).WarnContext(ctx, "Failed to load question stats")
		return resp, nil
	}
	return resp.AddText(fmt.Sprintf(MsgTodayStats, stats.Total, stats.Correct, ratio(stats.Correct, stats.Total))), nil
}

func (h *Handler) recordAnswer(result string) {
	if h.metrics != nil {
		h.metrics.RecordAnswer(ModuleName, result)
	}
}

func weeklyRedirect() reply.Response {
	return reply.Text(MsgWeeklyRedirect, reply.Quick("주간 퀴즈"), reply.Quick("데일리 모드"))
}

func questionCard(dq *storage.DailyQuestion) reply.Card {
	q := dq.Question
	var b strings.Builder
	b.WriteString(q.Text)
	b.WriteString("\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
	}

	title := "오늘의 문제"
	if dq.PublishDate != "" {
		title += " (" + dq.PublishDate + ")"
	}
	if q.Category != "" {
		title += " · " + q.Category
	}
	return reply.Card{Title: title, Description: b.String()}
}

func ratio(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) * 100 / float64(total)
}
