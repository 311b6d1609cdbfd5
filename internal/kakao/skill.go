// Package kakao serves the Kakao i open builder skill endpoint.
//
// Kakao waits at most five seconds for a skill response and treats any
// non-200 status as a bot failure, so the handler answers synchronously
// and always returns 200 with a renderable template.
package kakao

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/ctxutil"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// HeaderSkillToken carries the optional shared secret configured on the
// skill in the open builder console.
const HeaderSkillToken = "X-Skill-Token"

// Dispatcher handles one inbound utterance.
type Dispatcher interface {
	Handle(ctx context.Context, in bot.Inbound) reply.Response
}

// Handler is the gin handler for POST /kakao/skill.
type Handler struct {
	dispatcher Dispatcher
	token      string
	timeout    time.Duration
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithSkillToken requires requests to present token in X-Skill-Token.
func WithSkillToken(token string) Option {
	return func(h *Handler) {
		h.token = token
	}
}

// WithTimeout overrides config.KakaoSkillProcessing.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// NewHandler creates a skill handler. m may be nil.
func NewHandler(d Dispatcher, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		dispatcher: d,
		timeout:    config.KakaoSkillProcessing,
		logger:     log.WithModule("kakao"),
		metrics:    m,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes one skill request.
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()

	if h.token != "" {
		got := c.GetHeader(HeaderSkillToken)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			h.logger.Warn("Rejected skill request with bad token")
			h.respond(c, reply.GenericError(), "unauthorized", start)
			return
		}
	}

	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Malformed skill payload")
		h.respond(c, reply.GenericError(), "bad_request", start)
		return
	}

	userID, utterance := req.UserID(), req.Text()
	if userID == "" {
		h.logger.Debug("Skill payload without user id")
		h.respond(c, reply.GenericError(), "bad_request", start)
		return
	}

	ctx := ctxutil.PreserveTracing(c.Request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp := h.dispatcher.Handle(ctx, bot.Inbound{
		Platform:      storage.PlatformKakao,
		ChannelUserID: userID,
		Utterance:     utterance,
	})

	status := "success"
	if ctx.Err() != nil {
		status = "timeout"
	}
	h.respond(c, resp, status, start)
}

func (h *Handler) respond(c *gin.Context, resp reply.Response, status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(storage.PlatformKakao, status, time.Since(start).Seconds())
	}
	c.JSON(http.StatusOK, Render(resp))
}

// SkillRequest accepts both the open builder envelope and the flat
// {user:{id}, utterance} shape used by internal tooling.
type SkillRequest struct {
	UserRequest *UserRequest `json:"userRequest,omitempty"`
	User        *User        `json:"user,omitempty"`
	Utterance   string       `json:"utterance,omitempty"`
}

// UserRequest is the userRequest object of a skill payload.
type UserRequest struct {
	User      User   `json:"user"`
	Utterance string `json:"utterance"`
}

// User identifies the chatting user. ID is the bot-scoped botUserKey.
type User struct {
	ID string `json:"id"`
}

// UserID returns the user id from whichever shape was sent.
func (r SkillRequest) UserID() string {
	if r.UserRequest != nil && r.UserRequest.User.ID != "" {
		return strings.TrimSpace(r.UserRequest.User.ID)
	}
	if r.User != nil {
		return strings.TrimSpace(r.User.ID)
	}
	return ""
}

// Text returns the utterance from whichever shape was sent.
func (r SkillRequest) Text() string {
	if r.UserRequest != nil && r.UserRequest.Utterance != "" {
		return r.UserRequest.Utterance
	}
	return r.Utterance
}
