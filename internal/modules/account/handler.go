// Package account implements the per-account chat commands: subscription,
// study mode, stats and link code issuance.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyellow/quizbot-go/internal/bot"
	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/identity"
	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/ratelimit"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// ModuleName is the module name used in logs and metrics.
const ModuleName = "account"

// Store is the persistence surface the handler needs.
type Store interface {
	SetSubscribed(ctx context.Context, accountID int64, subscribed bool) error
	SetStudyMode(ctx context.Context, accountID int64, mode storage.StudyMode) error
	GetAccountStats(ctx context.Context, accountID int64) (*storage.AccountStats, error)
}

// LinkCoder issues link codes.
type LinkCoder interface {
	GenerateLinkCode(ctx context.Context, platform, channelUserID string) (*identity.LinkCode, error)
}

// Config holds presentation settings.
type Config struct {
	PublishHour   int
	PublishMinute int
	// LinkURL is the web page where codes are entered. Empty hides the button.
	LinkURL string
}

// Handler serves account commands.
type Handler struct {
	store      Store
	links      LinkCoder
	llmLimiter *ratelimit.KeyedLimiter
	cfg        Config
	now        func() time.Time
}

// NewHandler creates an account handler. llmLimiter may be nil.
func NewHandler(store Store, links LinkCoder, llmLimiter *ratelimit.KeyedLimiter, cfg Config) *Handler {
	return &Handler{store: store, links: links, llmLimiter: llmLimiter, cfg: cfg, now: time.Now}
}

// Name returns the module name.
func (h *Handler) Name() string { return ModuleName }

// Routes implements bot.Module.
func (h *Handler) Routes() []bot.Route {
	return []bot.Route{
		bot.NoArg(intent.CmdLink, h.Link),
		bot.NoArg(intent.CmdSubscribe, h.Subscribe),
		bot.NoArg(intent.CmdUnsubscribe, h.Unsubscribe),
		bot.NoArg(intent.CmdModeWeekly, h.modeSwitch(storage.StudyModeWeekly)),
		bot.NoArg(intent.CmdModeDaily, h.modeSwitch(storage.StudyModeDaily)),
		bot.NoArg(intent.CmdStats, h.Stats),
	}
}

// Subscribe turns on the daily notification.
func (h *Handler) Subscribe(ctx context.Context, req *bot.Request) (reply.Response, error) {
	if req.Account.Subscribed {
		return reply.Textf(MsgAlreadySubscribed, h.cfg.PublishHour, h.cfg.PublishMinute), nil
	}
	if err := h.store.SetSubscribed(ctx, req.Account.ID, true); err != nil {
		return reply.Response{}, fmt.Errorf("subscribe: %w", err)
	}
	return reply.Textf(MsgSubscribed, h.cfg.PublishHour, h.cfg.PublishMinute), nil
}

// Unsubscribe turns off the daily notification.
func (h *Handler) Unsubscribe(ctx context.Context, req *bot.Request) (reply.Response, error) {
	if !req.Account.Subscribed {
		return reply.Text(MsgNotSubscribed), nil
	}
	if err := h.store.SetSubscribed(ctx, req.Account.ID, false); err != nil {
		return reply.Response{}, fmt.Errorf("unsubscribe: %w", err)
	}
	return reply.Text(MsgUnsubscribed), nil
}

func (h *Handler) modeSwitch(mode storage.StudyMode) bot.NoArgHandler {
	return func(ctx context.Context, req *bot.Request) (reply.Response, error) {
		if req.Account.StudyMode == mode {
			if mode == storage.StudyModeWeekly {
				return reply.Text(MsgAlreadyModeWeekly, reply.Quick("주간 퀴즈")), nil
			}
			return reply.Text(MsgAlreadyModeDaily, reply.Quick("오늘의 문제")), nil
		}
		if err := h.store.SetStudyMode(ctx, req.Account.ID, mode); err != nil {
			return reply.Response{}, fmt.Errorf("set study mode: %w", err)
		}
		if mode == storage.StudyModeWeekly {
			return reply.Text(MsgModeWeekly, reply.Quick("주간 퀴즈")), nil
		}
		return reply.Text(MsgModeDaily, reply.Quick("오늘의 문제")), nil
	}
}

// Stats shows totals, accuracy and the current streak.
func (h *Handler) Stats(ctx context.Context, req *bot.Request) (reply.Response, error) {
	s, err := h.store.GetAccountStats(ctx, req.Account.ID)
	if err != nil {
		return reply.Response{}, fmt.Errorf("account stats: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, MsgStats, s.Answered, s.Correct, s.Accuracy(), s.Streak)
	b.WriteString("\n")
	fmt.Fprintf(&b, MsgStatsSettings, modeLabel(req.Account.StudyMode), onOff(req.Account.Subscribed))

	if h.llmLimiter != nil {
		key := req.Platform + ":" + req.ChannelUserID
		if remaining := h.llmLimiter.DailyRemaining(key); remaining >= 0 {
			b.WriteString("\n")
			fmt.Fprintf(&b, MsgStatsLLMQuota, remaining)
		}
	}

	resp := reply.Text(b.String(), reply.Quick("오늘의 문제"), reply.Quick("주간 결과"))
	if req.Account.IsTemporary {
		resp = resp.AddText(MsgStatsTemporary)
	}
	return resp, nil
}

// Link issues a link code for the chat identity.
func (h *Handler) Link(ctx context.Context, req *bot.Request) (reply.Response, error) {
	code, err := h.links.GenerateLinkCode(ctx, req.Platform, req.ChannelUserID)
	if err != nil {
		return reply.Response{}, domerrors.WithUserMessage(fmt.Errorf("generate link code: %w", err), MsgLinkFailed)
	}

	minutes := int(code.ExpiresAt.Sub(h.now()).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	body := fmt.Sprintf(MsgLinkBody, code.Code, minutes)
	if !req.Identity.IsTemporary {
		body += MsgLinkAlreadyLinked
	}

	card := reply.Card{Title: MsgLinkTitle, Description: body}
	if h.cfg.LinkURL != "" {
		card.Buttons = []reply.Button{reply.URLButton(MsgLinkButton, h.cfg.LinkURL)}
	}
	return reply.CardResponse(card), nil
}

func modeLabel(m storage.StudyMode) string {
	if m == storage.StudyModeWeekly {
		return modeLabelWeekly
	}
	return modeLabelDaily
}

func onOff(b bool) string {
	if b {
		return subscribedLabelOn
	}
	return subscribedLabelOff
}
