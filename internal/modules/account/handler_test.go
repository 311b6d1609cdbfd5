package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/identity"
	"github.com/garyellow/quizbot-go/internal/ratelimit"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

type fixture struct {
	db *storage.DB
	h  *Handler
}

func setup(t *testing.T, llm *ratelimit.KeyedLimiter) *fixture {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	links := identity.NewService(db, 10*time.Minute, identity.WithCodeGenerator(func() (string, error) {
		return "042917", nil
	}))
	cfg := Config{PublishHour: 8, PublishMinute: 30, LinkURL: "https://quiz.example.com/link"}
	return &fixture{db: db, h: NewHandler(db, links, llm, cfg)}
}

// request reloads the account so handlers see the latest settings.
func (f *fixture) request(t *testing.T) *bot.Request {
	t.Helper()
	ctx := context.Background()
	ci, _, err := f.db.EnsureIdentity(ctx, storage.PlatformKakao, "u1")
	require.NoError(t, err)
	acct, err := f.db.GetAccount(ctx, ci.AccountID)
	require.NoError(t, err)
	return &bot.Request{Platform: storage.PlatformKakao, ChannelUserID: "u1", Identity: *ci, Account: *acct}
}

func TestSubscribeToggle(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	resp, err := f.h.Subscribe(ctx, f.request(t))
	require.NoError(t, err)
	assert.Equal(t, "구독했어요! 매일 08:30에 오늘의 문제를 보내드릴게요.", resp.PlainText())

	resp, err = f.h.Subscribe(ctx, f.request(t))
	require.NoError(t, err)
	assert.Contains(t, resp.PlainText(), "이미 구독 중이에요")

	resp, err = f.h.Unsubscribe(ctx, f.request(t))
	require.NoError(t, err)
	assert.Equal(t, MsgUnsubscribed, resp.PlainText())

	resp, err = f.h.Unsubscribe(ctx, f.request(t))
	require.NoError(t, err)
	assert.Equal(t, MsgNotSubscribed, resp.PlainText())
}

func TestModeSwitch(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	toWeekly := f.h.modeSwitch(storage.StudyModeWeekly)
	toDaily := f.h.modeSwitch(storage.StudyModeDaily)

	resp, err := toDaily(ctx, f.request(t))
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadyModeDaily, resp.PlainText())

	resp, err = toWeekly(ctx, f.request(t))
	require.NoError(t, err)
	assert.Equal(t, MsgModeWeekly, resp.PlainText())
	assert.Equal(t, storage.StudyModeWeekly, f.request(t).Account.StudyMode)

	resp, err = toWeekly(ctx, f.request(t))
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadyModeWeekly, resp.PlainText())
}

func TestStats(t *testing.T) {
	llm := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: "llm", Burst: 5, RefillRate: 1, DailyLimit: 20})
	t.Cleanup(llm.Stop)
	f := setup(t, llm)

	resp, err := f.h.Stats(context.Background(), f.request(t))
	require.NoError(t, err)
	text := resp.PlainText()
	assert.Contains(t, text, "푼 문제: 0")
	assert.Contains(t, text, "학습 방식: 데일리 · 구독: 꺼짐")
	assert.Contains(t, text, "오늘 남은 AI 대화 횟수: 20회")
	assert.Contains(t, text, MsgStatsTemporary)
}

func TestLink(t *testing.T) {
	f := setup(t, nil)

	resp, err := f.h.Link(context.Background(), f.request(t))
	require.NoError(t, err)
	require.Len(t, resp.Outputs, 1)
	card := resp.Outputs[0].Card
	require.NotNil(t, card)
	assert.Equal(t, MsgLinkTitle, card.Title)
	assert.Contains(t, card.Description, "코드: 042917")
	assert.Contains(t, card.Description, "10분")
	assert.Equal(t, []reply.Button{reply.URLButton(MsgLinkButton, "https://quiz.example.com/link")}, card.Buttons)

	ci, err := f.db.GetIdentity(context.Background(), storage.PlatformKakao, "u1")
	require.NoError(t, err)
	assert.Equal(t, "042917", ci.LinkCode)
}
