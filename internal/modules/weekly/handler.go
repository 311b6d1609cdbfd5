// Package weekly implements the seven-slot weekly quiz flow.
//
// "Next" is the first slot without an answer by the account. Answering a
// slot that was already answered is not an error: nothing is written and
// the flow moves on to the next slot.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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
const ModuleName = "weekly"

// Store is the persistence surface the handler needs.
type Store interface {
	GetWeeklyQuiz(ctx context.Context, week, slot int) (*storage.WeeklyQuiz, error)
	ListWeeklyResponses(ctx context.Context, accountID int64, week int) (map[int]storage.WeeklyResponse, error)
	RecordWeeklyResponse(ctx context.Context, r *storage.WeeklyResponse) error
	GetWeeklySummary(ctx context.Context, accountID int64, week int) (*storage.WeeklySummary, error)
}

// Handler serves the weekly quiz commands.
type Handler struct {
	store   Store
	epoch   time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHandler creates a weekly handler. epoch is the Monday that starts
// week 1. m may be nil.
func NewHandler(store Store, epoch time.Time, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{store: store, epoch: epoch, logger: log, metrics: m, now: time.Now}
}

// Name returns the module name.
func (h *Handler) Name() string { return ModuleName }

// Routes implements bot.Module.
func (h *Handler) Routes() []bot.Route {
	return []bot.Route{
		bot.Text(intent.CmdWeeklyQuiz, h.Quiz),
		bot.Pair(intent.CmdWeeklyAnswer, h.Answer),
		bot.NoArg(intent.CmdWeeklySummary, h.Summary),
	}
}

// CurrentWeek returns the week number for the handler's clock.
func (h *Handler) CurrentWeek() int {
	return WeekNumber(h.epoch, h.now())
}

// Quiz shows the slot named in text ("3", "3번"), or the next unanswered
// slot when text names none.
func (h *Handler) Quiz(ctx context.Context, req *bot.Request, text string) (reply.Response, error) {
	week := h.CurrentWeek()

	var (
		resp reply.Response
		err  error
	)
	if slot, ok := parseSlot(text); ok {
		resp, err = h.showSlot(ctx, week, slot)
	} else {
		resp, err = h.Next(ctx, req, week)
	}
	if err != nil {
		return reply.Response{}, err
	}

	if req.Account.StudyMode != storage.StudyModeWeekly {
		resp = resp.AddText(MsgDailyModeHint)
	}
	return resp, nil
}

// Next resolves the first unanswered slot of week. When all slots are
// answered it returns the completion summary.
func (h *Handler) Next(ctx context.Context, req *bot.Request, week int) (reply.Response, error) {
	answered, err := h.store.ListWeeklyResponses(ctx, req.Account.ID, week)
	if err != nil {
		return reply.Response{}, fmt.Errorf("list weekly responses: %w", err)
	}

	slot := NextSlot(answered)
	if slot == 0 {
		return h.summary(ctx, req.Account.ID, week, MsgCompleted)
	}

	quiz, err := h.store.GetWeeklyQuiz(ctx, week, slot)
	if domerrors.IsNotFound(err) {
		if len(answered) == 0 {
			return reply.Text(MsgNotPrepared), nil
		}
		return reply.Text(fmt.Sprintf(MsgNotFound, slot)), nil
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("get weekly quiz: %w", err)
	}
	return quizResponse(quiz), nil
}

// NextSlot returns the first slot in 1..7 missing from answered, or 0
// when every slot has an answer.
func NextSlot(answered map[int]storage.WeeklyResponse) int {
	for slot := 1; slot <= storage.WeeklySlots; slot++ {
		if _, ok := answered[slot]; !ok {
			return slot
		}
	}
	return 0
}

func (h *Handler) showSlot(ctx context.Context, week, slot int) (reply.Response, error) {
	if slot < 1 || slot > storage.WeeklySlots {
		return reply.Text(fmt.Sprintf(MsgNotFound, slot)), nil
	}
	quiz, err := h.store.GetWeeklyQuiz(ctx, week, slot)
	if domerrors.IsNotFound(err) {
		return reply.Text(fmt.Sprintf(MsgNotFound, slot)), nil
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("get weekly quiz: %w", err)
	}
	return quizResponse(quiz), nil
}

// Answer records option for slot, then shows the next slot or summary.
func (h *Handler) Answer(ctx context.Context, req *bot.Request, slot, option int) (reply.Response, error) {
	week := h.CurrentWeek()

	if slot < 1 || slot > storage.WeeklySlots {
		return reply.Text(fmt.Sprintf(MsgNotFound, slot)), nil
	}
	quiz, err := h.store.GetWeeklyQuiz(ctx, week, slot)
	if domerrors.IsNotFound(err) {
		return reply.Text(fmt.Sprintf(MsgNotFound, slot)), nil
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("get weekly quiz: %w", err)
	}

	// an answered slot moves on whatever option was sent
	answered, err := h.store.ListWeeklyResponses(ctx, req.Account.ID, week)
	if err != nil {
		return reply.Response{}, fmt.Errorf("list weekly responses: %w", err)
	}
	if _, ok := answered[slot]; ok {
		return h.proceed(ctx, req, week, fmt.Sprintf(MsgAlreadyAnswered, slot))
	}

	idx := option - 1
	if idx < 0 || idx >= len(quiz.Options) {
		return reply.Text(fmt.Sprintf(MsgOutOfRange, len(quiz.Options)), answerQuickReplies(quiz)...), nil
	}

	correct := idx == quiz.CorrectIndex
	err = h.store.RecordWeeklyResponse(ctx, &storage.WeeklyResponse{
		AccountID:     req.Account.ID,
		WeeklyQuizID:  quiz.ID,
		QuizNumber:    slot,
		SelectedIndex: idx,
		IsCorrect:     correct,
		CreatedAt:     h.now(),
	})
	if errors.Is(err, domerrors.ErrAlreadyAnswered) {
		// lost a race with a concurrent submission
		return h.proceed(ctx, req, week, fmt.Sprintf(MsgAlreadyAnswered, slot))
	}
	if err != nil {
		return reply.Response{}, fmt.Errorf("record weekly response: %w", err)
	}

	var b strings.Builder
	if correct {
		h.recordAnswer("correct")
		fmt.Fprintf(&b, MsgCorrect, slot)
	} else {
		h.recordAnswer("incorrect")
		fmt.Fprintf(&b, MsgIncorrect, slot, quiz.CorrectIndex+1, quiz.Options[quiz.CorrectIndex])
	}
	if quiz.Explanation != "" {
		b.WriteString("\n\n💡 ")
		b.WriteString(quiz.Explanation)
	}
	return h.proceed(ctx, req, week, b.String())
}

// proceed prefixes the next slot (or summary) with a result line.
func (h *Handler) proceed(ctx context.Context, req *bot.Request, week int, lead string) (reply.Response, error) {
	next, err := h.Next(ctx, req, week)
	if err != nil {
		return reply.Response{}, err
	}
	return reply.Response{
		Outputs:      append([]reply.Output{{Kind: reply.KindText, Text: lead}}, next.Outputs...),
		QuickReplies: next.QuickReplies,
	}, nil
}

// Summary shows the current week's results.
func (h *Handler) Summary(ctx context.Context, req *bot.Request) (reply.Response, error) {
	return h.summary(ctx, req.Account.ID, h.CurrentWeek(), "")
}

func (h *Handler) summary(ctx context.Context, accountID int64, week int, lead string) (reply.Response, error) {
	s, err := h.store.GetWeeklySummary(ctx, accountID, week)
	if err != nil {
		return reply.Response{}, fmt.Errorf("weekly summary: %w", err)
	}
	if s.Total == 0 {
		return reply.Text(MsgNotPrepared), nil
	}

	text := fmt.Sprintf(MsgSummary, s.WeekNumber, s.Answered, s.Total, s.Correct, s.Accuracy())
	if lead != "" {
		text = lead + "\n\n" + text
	}
	return reply.Text(text, reply.Quick("통계"), reply.Quick("오늘의 문제")), nil
}

func (h *Handler) recordAnswer(result string) {
	if h.metrics != nil {
		h.metrics.RecordAnswer(ModuleName, result)
	}
}

func quizResponse(q *storage.WeeklyQuiz) reply.Response {
	var b strings.Builder
	b.WriteString(q.Text)
	b.WriteString("\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
	}

	title := fmt.Sprintf("%d주차 주간 퀴즈 %d/%d", q.WeekNumber, q.QuizNumber, storage.WeeklySlots)
	if q.Category != "" {
		title += " · " + q.Category
	}
	card := reply.Card{Title: title, Description: b.String()}
	return reply.CardResponse(card, answerQuickReplies(q)...).
		AddText(fmt.Sprintf(MsgAnswerHint, q.QuizNumber))
}

// answerQuickReplies label each option "N번" and send the weekly answer form.
func answerQuickReplies(q *storage.WeeklyQuiz) []reply.QuickReply {
	items := make([]reply.QuickReply, 0, len(q.Options))
	for i := range q.Options {
		items = append(items, reply.QuickReply{
			Label:   fmt.Sprintf("%d번", i+1),
			Message: fmt.Sprintf("주간 정답 %d번 %d", q.QuizNumber, i+1),
		})
	}
	return items
}

func parseSlot(text string) (int, bool) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "번"))
	if text == "" {
		return 0, false
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}
