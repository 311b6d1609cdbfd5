// Package help implements the help command.
package help

import (
	"context"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/reply"
)

// ModuleName is the module name used in logs and metrics.
const ModuleName = "help"

const (
	helpTitle = "퀴즈봇 사용법"
	helpBody  = "• 오늘의 문제: 오늘 문제 보기\n" +
		"• 숫자 입력 (예: 2): 오늘 문제에 답하기\n" +
		"• 주간 퀴즈: 이번 주 7문제 풀기\n" +
		"• 주간 결과: 이번 주 성적 보기\n" +
		"• 통계: 내 기록 보기\n" +
		"• 구독 / 구독 해지: 매일 문제 알림 받기\n" +
		"• 주간 모드 / 데일리 모드: 학습 방식 바꾸기\n" +
		"• 연동: 웹 계정과 연결하기"
	nluHint = "\n\n💬 자연스럽게 말해도 알아들을게요. 예: \"오늘 퀴즈 보여줘\""
)

// Handler serves the static help card.
type Handler struct {
	nluEnabled bool
}

// NewHandler creates a help handler. nluEnabled adds a free-text hint.
func NewHandler(nluEnabled bool) *Handler {
	return &Handler{nluEnabled: nluEnabled}
}

// Name returns the module name.
func (h *Handler) Name() string { return ModuleName }

// Routes implements bot.Module.
func (h *Handler) Routes() []bot.Route {
	return []bot.Route{bot.NoArg(intent.CmdHelp, h.Help)}
}

// Help returns the command overview.
func (h *Handler) Help(_ context.Context, _ *bot.Request) (reply.Response, error) {
	body := helpBody
	if h.nluEnabled {
		body += nluHint
	}
	card := reply.Card{
		Title:       helpTitle,
		Description: body,
		Buttons: []reply.Button{
			reply.MessageButton("오늘의 문제", "오늘의 문제"),
			reply.MessageButton("주간 퀴즈", "주간 퀴즈"),
		},
	}
	return reply.CardResponse(card, reply.DefaultQuickReplies()...), nil
}
