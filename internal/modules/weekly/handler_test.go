package weekly

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

var seoul = time.FixedZone("KST", 9*60*60)

// Monday 2026-01-05 starts week 1; 2026-01-21 is in week 3.
var (
	epoch = time.Date(2026, 1, 5, 0, 0, 0, 0, seoul)
	today = time.Date(2026, 1, 21, 12, 0, 0, 0, seoul)
)

const week = 3

type fixture struct {
	db *storage.DB
	h  *Handler
}

func setup(t *testing.T, slots int) *fixture {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for slot := 1; slot <= slots; slot++ {
		require.NoError(t, db.SaveWeeklyQuiz(ctx, &storage.WeeklyQuiz{
			WeekNumber:   week,
			QuizNumber:   slot,
			Text:         fmt.Sprintf("문제 %d", slot),
			Options:      []string{"가", "나", "다"},
			CorrectIndex: 1,
			Explanation:  "해설",
		}))
	}

	h := NewHandler(db, epoch, logger.NewWithWriter("error", io.Discard), metrics.New(prometheus.NewRegistry()))
	h.now = func() time.Time { return today }
	return &fixture{db: db, h: h}
}

func (f *fixture) request(t *testing.T, mode storage.StudyMode) *bot.Request {
	t.Helper()
	ctx := context.Background()
	ci, _, err := f.db.EnsureIdentity(ctx, storage.PlatformKakao, "u1")
	require.NoError(t, err)
	require.NoError(t, f.db.SetStudyMode(ctx, ci.AccountID, mode))
	acct, err := f.db.GetAccount(ctx, ci.AccountID)
	require.NoError(t, err)
	return &bot.Request{Identity: *ci, Account: *acct}
}

func cardTitle(t *testing.T, resp reply.Response) string {
	t.Helper()
	for _, o := range resp.Outputs {
		if o.Kind == reply.KindCard {
			return o.Card.Title
		}
	}
	t.Fatalf("no card in %+v", resp.Outputs)
	return ""
}

func TestWeekNumber(t *testing.T) {
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2026, 1, 5, 0, 0, 0, 0, seoul), 1},
		{time.Date(2026, 1, 11, 23, 59, 0, 0, seoul), 1},
		{time.Date(2026, 1, 12, 0, 0, 0, 0, seoul), 2},
		{today, 3},
		{time.Date(2025, 12, 30, 0, 0, 0, 0, seoul), 1},
		// 2026-01-11 16:00 UTC is Monday 01:00 in Seoul
		{time.Date(2026, 1, 11, 16, 0, 0, 0, time.UTC), 2},
	}
	for _, tt := range tests {
		if got := WeekNumber(epoch, tt.at); got != tt.want {
			t.Errorf("WeekNumber(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestNextSlot(t *testing.T) {
	answered := map[int]storage.WeeklyResponse{1: {}, 2: {}}
	assert.Equal(t, 3, NextSlot(answered))

	for s := 3; s <= storage.WeeklySlots; s++ {
		answered[s] = storage.WeeklyResponse{}
	}
	assert.Equal(t, 0, NextSlot(answered))
	assert.Equal(t, 1, NextSlot(nil))
}

func TestQuizShowsFirstUnanswered(t *testing.T) {
	f := setup(t, 7)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	_, err := f.h.Answer(ctx, req, 1, 2)
	require.NoError(t, err)
	_, err = f.h.Answer(ctx, req, 2, 1)
	require.NoError(t, err)

	resp, err := f.h.Quiz(ctx, req, "")
	require.NoError(t, err)
	assert.Contains(t, cardTitle(t, resp), "3/7")
	assert.Equal(t, "주간 정답 3번 1", resp.QuickReplies[0].Message)
}

func TestQuizExplicitSlot(t *testing.T) {
	f := setup(t, 3)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	resp, err := f.h.Quiz(ctx, req, "2번")
	require.NoError(t, err)
	assert.Contains(t, cardTitle(t, resp), "2/7")

	resp, err = f.h.Quiz(ctx, req, "5")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgNotFound, 5), resp.PlainText())
}

func TestQuizDailyModeHint(t *testing.T) {
	f := setup(t, 1)
	resp, err := f.h.Quiz(context.Background(), f.request(t, storage.StudyModeDaily), "")
	require.NoError(t, err)
	assert.Contains(t, resp.PlainText(), MsgDailyModeHint)
}

func TestQuizNotPrepared(t *testing.T) {
	f := setup(t, 0)
	resp, err := f.h.Quiz(context.Background(), f.request(t, storage.StudyModeWeekly), "")
	require.NoError(t, err)
	assert.Equal(t, MsgNotPrepared, resp.PlainText())
}

func TestAnswerAllSevenShowsSummary(t *testing.T) {
	f := setup(t, 7)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	var resp reply.Response
	var err error
	for slot := 1; slot <= 7; slot++ {
		option := 1
		if slot <= 4 {
			option = 2 // correct
		}
		resp, err = f.h.Answer(ctx, req, slot, option)
		require.NoError(t, err)
	}

	text := resp.PlainText()
	assert.Contains(t, text, MsgCompleted)
	assert.Contains(t, text, "푼 문제: 7/7")
	assert.Contains(t, text, "맞힌 문제: 4")

	acct, _ := f.db.GetAccount(ctx, req.Account.ID)
	assert.Equal(t, 7, acct.AnsweredCount)
	assert.Equal(t, 4, acct.CorrectCount)
}

func TestAnswerAlreadyAnsweredProceeds(t *testing.T) {
	f := setup(t, 7)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	_, err := f.h.Answer(ctx, req, 1, 2)
	require.NoError(t, err)

	resp, err := f.h.Answer(ctx, req, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgAlreadyAnswered, 1), resp.Outputs[0].Text)
	assert.Contains(t, cardTitle(t, resp), "2/7")

	answered, _ := f.db.ListWeeklyResponses(ctx, req.Account.ID, week)
	assert.Equal(t, 1, answered[1].SelectedIndex, "first answer kept")

	acct, _ := f.db.GetAccount(ctx, req.Account.ID)
	assert.Equal(t, 1, acct.AnsweredCount)
}

func TestAnswerAlreadyAnsweredIgnoresOptionRange(t *testing.T) {
	f := setup(t, 7)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	_, err := f.h.Answer(ctx, req, 1, 2)
	require.NoError(t, err)

	for _, option := range []int{0, 9} {
		resp, err := f.h.Answer(ctx, req, 1, option)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf(MsgAlreadyAnswered, 1), resp.Outputs[0].Text, "option %d", option)
		assert.Contains(t, cardTitle(t, resp), "2/7")
	}

	acct, _ := f.db.GetAccount(ctx, req.Account.ID)
	assert.Equal(t, 1, acct.AnsweredCount)
}

func TestAnswerOutOfRangeAndMissingSlot(t *testing.T) {
	f := setup(t, 2)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	resp, err := f.h.Answer(ctx, req, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgOutOfRange, 3), resp.PlainText())

	resp, err = f.h.Answer(ctx, req, 6, 1)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgNotFound, 6), resp.PlainText())

	resp, err = f.h.Answer(ctx, req, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgNotFound, 8), resp.PlainText())

	answered, _ := f.db.ListWeeklyResponses(ctx, req.Account.ID, week)
	assert.Empty(t, answered)
}

func TestSummary(t *testing.T) {
	f := setup(t, 3)
	req := f.request(t, storage.StudyModeWeekly)
	ctx := context.Background()

	_, err := f.h.Answer(ctx, req, 1, 2)
	require.NoError(t, err)

	resp, err := f.h.Summary(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgSummary, week, 1, 3, 1, 100.0), resp.PlainText())
}
