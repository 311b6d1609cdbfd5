// Package webhook handles LINE webhook events and replies through the
// shared command router.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/time/rate"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/ctxutil"
	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/lineutil"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/stringutil"
)

// minReplyTokenLength rejects obviously malformed reply tokens.
const minReplyTokenLength = 10

// loadingSeconds must be a multiple of 5 between 5 and 60.
const loadingSeconds int32 = 20

// Dispatcher routes utterances and direct commands.
type Dispatcher interface {
	Handle(ctx context.Context, in bot.Inbound) reply.Response
	HandleCommand(ctx context.Context, in bot.Inbound, cmd intent.Command) reply.Response
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	messenger     lineutil.Messenger
	dispatcher    Dispatcher
	sender        *messaging_api.Sender
	rateLimiter   *rate.Limiter // global limit for outbound API calls
	metrics       *metrics.Metrics
	logger        *logger.Logger
	wg            sync.WaitGroup

	timeout             time.Duration
	maxEventsPerWebhook int
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	Messenger     lineutil.Messenger
	Dispatcher    Dispatcher
	BotConfig     *config.BotConfig
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	SenderName    string
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if cfg.Messenger == nil || cfg.Dispatcher == nil {
		return nil, errors.New("messenger and dispatcher are required")
	}

	rps := cfg.BotConfig.GlobalRateLimitRPS
	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		messenger:           cfg.Messenger,
		dispatcher:          cfg.Dispatcher,
		sender:              lineutil.NewSender(cfg.SenderName, ""),
		rateLimiter:         rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule("line"),
		timeout:             cfg.BotConfig.WebhookTimeout,
		maxEventsPerWebhook: cfg.BotConfig.MaxEventsPerWebhook,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	// 1. Parse request
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// 2. Return 200 OK immediately (LINE requirement)
	c.Status(http.StatusOK)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	// Copy events to avoid race condition after HTTP response completes
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)
	parent := ctxutil.PreserveTracing(c.Request.Context())

	// 3. Process events asynchronously
	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(parent, event)
		}
	})
}

// processEvent handles one event and sends the reply.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()

	meta, ok := extractEventMeta(event)
	if !ok {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).Debug("Unsupported event type")
		return
	}

	log := h.logger
	if meta.eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, meta.eventID)
		log = log.WithRequestID(meta.eventID)
	}
	if meta.redelivery {
		log = log.WithField("is_redelivery", true)
	}

	userID, ok := directUserID(meta.source)
	if !ok {
		log.WithField("event_type", meta.kind).Debug("Ignoring event outside one-on-one chat")
		return
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	in := bot.Inbound{Platform: storage.PlatformLINE, ChannelUserID: userID}
	var resp reply.Response
	switch e := event.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			log.WithField("message_type", e.Message.GetType()).Debug("Ignoring non-text message")
			return
		}
		h.showLoading(ctx, userID, log)
		in.Utterance = text.Text
		resp = h.dispatcher.Handle(ctx, in)
	case webhook.PostbackEvent:
		if e.Postback == nil {
			return
		}
		h.showLoading(ctx, userID, log)
		in.Utterance = e.Postback.Data
		resp = h.dispatcher.Handle(ctx, in)
	case webhook.FollowEvent:
		resp = h.dispatcher.HandleCommand(ctx, in, intent.CmdHelp)
	}

	status := "success"
	if err := h.reply(ctx, meta.replyToken, lineutil.Render(resp, h.sender)); err != nil {
		status = "reply_error"
		h.logReplyError(log, meta.replyToken, err)
	}
	h.recordWebhook(status, start)

	log.WithField("event_type", meta.kind).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	if len(replyToken) < minReplyTokenLength {
		return fmt.Errorf("invalid reply token (length %d)", len(replyToken))
	}

	if !h.rateLimiter.Allow() {
		h.logger.Warn("Global rate limit exceeded; waiting")
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("global")
		}
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	return h.messenger.Reply(ctx, replyToken, messages)
}

func (h *Handler) logReplyError(log *logger.Logger, replyToken string, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Invalid reply token"):
		log.WithError(err).Debug("Reply token already used or invalid")
	case strings.Contains(msg, "rate limit"):
		log.WithError(err).Error("Rate limit exceeded")
	default:
		log.WithError(err).
			WithField("reply_token", stringutil.Mask(replyToken, 8)).
			Error("Failed to send reply")
	}
}

// showLoading is best-effort; failures are logged and ignored.
func (h *Handler) showLoading(ctx context.Context, chatID string, log *logger.Logger) {
	if err := h.messenger.ShowLoading(ctx, chatID, loadingSeconds); err != nil {
		log.WithError(err).Warn("Failed to show loading animation")
	}
}

func (h *Handler) recordWebhook(status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(storage.PlatformLINE, status, time.Since(start).Seconds())
	}
}

type eventMeta struct {
	kind       string
	eventID    string
	replyToken string
	source     webhook.SourceInterface
	redelivery bool
}

func extractEventMeta(event webhook.EventInterface) (eventMeta, bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return eventMeta{"message", e.WebhookEventId, e.ReplyToken, e.Source, isRedelivery(e.DeliveryContext)}, true
	case webhook.PostbackEvent:
		return eventMeta{"postback", e.WebhookEventId, e.ReplyToken, e.Source, isRedelivery(e.DeliveryContext)}, true
	case webhook.FollowEvent:
		return eventMeta{"follow", e.WebhookEventId, e.ReplyToken, e.Source, isRedelivery(e.DeliveryContext)}, true
	default:
		return eventMeta{}, false
	}
}

func isRedelivery(dc *webhook.DeliveryContext) bool {
	return dc != nil && dc.IsRedelivery
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
