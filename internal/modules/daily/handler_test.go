package daily

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

type fixture struct {
	db      *storage.DB
	h       *Handler
	metrics *metrics.Metrics
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.New(prometheus.NewRegistry())
	return &fixture{db: db, h: NewHandler(db, logger.NewWithWriter("error", io.Discard), m), metrics: m}
}

func (f *fixture) request(t *testing.T, channelID string, mode storage.StudyMode) *bot.Request {
	t.Helper()
	ctx := context.Background()
	ci, _, err := f.db.EnsureIdentity(ctx, storage.PlatformKakao, channelID)
	require.NoError(t, err)
	require.NoError(t, f.db.SetStudyMode(ctx, ci.AccountID, mode))
	acct, err := f.db.GetAccount(ctx, ci.AccountID)
	require.NoError(t, err)
	return &bot.Request{Platform: storage.PlatformKakao, ChannelUserID: channelID, Identity: *ci, Account: *acct}
}

func (f *fixture) publish(t *testing.T) *storage.DailyQuestion {
	t.Helper()
	ctx := context.Background()
	q := &storage.Question{
		Category:     "운영체제",
		Text:         "프로세스 간 통신 방법이 아닌 것은?",
		Options:      []string{"파이프", "공유 메모리", "메시지 큐", "페이지 테이블"},
		CorrectIndex: 3,
		Explanation:  "페이지 테이블은 주소 변환 자료구조입니다.",
	}
	require.NoError(t, f.db.CreateQuestion(ctx, q))
	dq, _, err := f.db.PublishDailyQuestion(ctx, q.ID, "2026-03-02", time.Now())
	require.NoError(t, err)
	return dq
}

func TestTodayNotAvailable(t *testing.T) {
	f := setup(t)
	resp, err := f.h.Today(context.Background(), f.request(t, "u1", storage.StudyModeDaily))
	require.NoError(t, err)
	assert.Equal(t, MsgNotAvailable, resp.PlainText())
}

func TestTodayShowsQuestion(t *testing.T) {
	f := setup(t)
	f.publish(t)

	resp, err := f.h.Today(context.Background(), f.request(t, "u1", storage.StudyModeDaily))
	require.NoError(t, err)
	require.Equal(t, reply.KindCard, resp.Outputs[0].Kind)
	assert.Contains(t, resp.Outputs[0].Card.Description, "4. 페이지 테이블")
	assert.Equal(t, reply.NumberQuickReplies(4), resp.QuickReplies)
}

func TestWeeklyModeIsRedirected(t *testing.T) {
	f := setup(t)
	dq := f.publish(t)
	req := f.request(t, "u1", storage.StudyModeWeekly)
	ctx := context.Background()

	resp, err := f.h.Today(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, MsgWeeklyRedirect, resp.PlainText())

	resp, err = f.h.Answer(ctx, req, 4)
	require.NoError(t, err)
	assert.Equal(t, MsgWeeklyRedirect, resp.PlainText())

	_, err = f.db.GetResponse(ctx, req.Account.ID, dq.ID)
	assert.Error(t, err, "redirect must not record a response")
}

func TestAnswerOutOfRange(t *testing.T) {
	f := setup(t)
	dq := f.publish(t)
	req := f.request(t, "u1", storage.StudyModeDaily)
	ctx := context.Background()

	for _, n := range []int{0, 5, 99} {
		resp, err := f.h.Answer(ctx, req, n)
		require.NoError(t, err)
		assert.Equal(t, "1부터 4 사이의 번호로 답해 주세요.", resp.PlainText())
	}

	_, err := f.db.GetResponse(ctx, req.Account.ID, dq.ID)
	assert.Error(t, err)
}

func TestAnswerCorrectThenDuplicate(t *testing.T) {
	f := setup(t)
	f.publish(t)
	req := f.request(t, "u1", storage.StudyModeDaily)
	ctx := context.Background()

	resp, err := f.h.Answer(ctx, req, 4)
	require.NoError(t, err)
	text := resp.PlainText()
	assert.True(t, strings.HasPrefix(text, MsgCorrect), text)
	assert.Contains(t, text, "페이지 테이블은 주소 변환")
	assert.Contains(t, text, "오늘 1명 중 1명이 맞혔어요")

	resp, err = f.h.Answer(ctx, req, 1)
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadyAnswered, resp.PlainText())

	acct, err := f.db.GetAccount(ctx, req.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, acct.AnsweredCount)
	assert.Equal(t, 1, acct.CorrectCount)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AnswersTotal.WithLabelValues("daily", "correct")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AnswersTotal.WithLabelValues("daily", "duplicate")), 0)
}

func TestAnswerIncorrect(t *testing.T) {
	f := setup(t)
	f.publish(t)
	req := f.request(t, "u1", storage.StudyModeDaily)

	resp, err := f.h.Answer(context.Background(), req, 2)
	require.NoError(t, err)
	assert.Contains(t, resp.PlainText(), "정답은 4번 (페이지 테이블)")

	acct, _ := f.db.GetAccount(context.Background(), req.Account.ID)
	assert.Equal(t, 1, acct.AnsweredCount)
	assert.Equal(t, 0, acct.CorrectCount)
}

func TestTodayAfterAnswer(t *testing.T) {
	f := setup(t)
	f.publish(t)
	req := f.request(t, "u1", storage.StudyModeDaily)
	ctx := context.Background()

	_, err := f.h.Answer(ctx, req, 2)
	require.NoError(t, err)

	resp, err := f.h.Today(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, resp.PlainText(), "이미 풀었어요. 선택한 답: 2번")
}
