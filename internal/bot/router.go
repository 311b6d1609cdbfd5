package bot

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/garyellow/quizbot-go/internal/ctxutil"
	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/genai"
	"github.com/garyellow/quizbot-go/internal/identity"
	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/ratelimit"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/sentry"
)

// MsgTooLong is returned for utterances above the configured length.
const MsgTooLong = "메시지가 너무 길어요. 짧게 다시 입력해 주세요."

// Inbound is one chat message as extracted by a transport.
type Inbound struct {
	Platform      string
	ChannelUserID string
	Utterance     string
}

// Resolver maps chat users to accounts.
type Resolver interface {
	Resolve(ctx context.Context, platform, channelUserID string) (*identity.Principal, error)
}

// Router matches utterances and dispatches them to module handlers.
// It never returns an error: failures become the generic apology.
type Router struct {
	registry    *Registry
	matcher     *intent.Matcher
	resolver    Resolver
	classifier  genai.Classifier
	userLimiter *ratelimit.KeyedLimiter
	llmLimiter  *ratelimit.KeyedLimiter
	middlewares []Middleware
	logger      *logger.Logger
	metrics     *metrics.Metrics

	timeout   time.Duration
	maxLength int
}

// RouterConfig holds dependencies for NewRouter.
// Classifier, limiters and Metrics are optional.
type RouterConfig struct {
	Registry    *Registry
	Matcher     *intent.Matcher
	Resolver    Resolver
	Classifier  genai.Classifier
	UserLimiter *ratelimit.KeyedLimiter
	LLMLimiter  *ratelimit.KeyedLimiter
	Logger      *logger.Logger
	Metrics     *metrics.Metrics

	// Timeout bounds one dispatch. Zero leaves the caller's deadline alone.
	Timeout time.Duration
	// MaxUtteranceLength is counted in runes. Zero disables the check.
	MaxUtteranceLength int
}

// NewRouter creates a router with logging, metrics and recovery middleware.
func NewRouter(cfg RouterConfig) *Router {
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = intent.New()
	}
	return &Router{
		registry:    cfg.Registry,
		matcher:     matcher,
		resolver:    cfg.Resolver,
		classifier:  cfg.Classifier,
		userLimiter: cfg.UserLimiter,
		llmLimiter:  cfg.LLMLimiter,
		middlewares: []Middleware{
			LoggingMiddleware(cfg.Logger),
			MetricsMiddleware(cfg.Metrics),
			RecoveryMiddleware(cfg.Logger),
		},
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		timeout:   cfg.Timeout,
		maxLength: cfg.MaxUtteranceLength,
	}
}

// NLUEnabled reports whether unmatched utterances go to the classifier.
func (r *Router) NLUEnabled() bool {
	return r.classifier != nil
}

// Handle processes one utterance end to end.
func (r *Router) Handle(ctx context.Context, in Inbound) reply.Response {
	ctx = ctxutil.WithPlatform(ctx, in.Platform)
	ctx = ctxutil.WithUserID(ctx, in.ChannelUserID)

	if r.maxLength > 0 && utf8.RuneCountInString(in.Utterance) > r.maxLength {
		r.logger.WithField("length", utf8.RuneCountInString(in.Utterance)).
			WarnContext(ctx, "Utterance too long")
		return reply.Text(MsgTooLong)
	}

	if !r.allowUser(ctx, in) {
		return reply.RateLimited()
	}

	res := r.matcher.Match(in.Utterance)
	return r.run(ctx, in, res)
}

// HandleCommand dispatches cmd directly, bypassing the matcher. Transports
// use it for events that carry no utterance, such as a LINE follow.
func (r *Router) HandleCommand(ctx context.Context, in Inbound, cmd intent.Command) reply.Response {
	ctx = ctxutil.WithPlatform(ctx, in.Platform)
	ctx = ctxutil.WithUserID(ctx, in.ChannelUserID)
	return r.run(ctx, in, intent.Result{Command: cmd})
}

func (r *Router) run(ctx context.Context, in Inbound, res intent.Result) reply.Response {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	principal, err := r.resolver.Resolve(ctx, in.Platform, in.ChannelUserID)
	if err != nil {
		return r.fail(ctx, res.Command, "", err)
	}
	ctx = ctxutil.WithAccountID(ctx, principal.Account.ID)

	req := &Request{
		Platform:      in.Platform,
		ChannelUserID: in.ChannelUserID,
		Utterance:     in.Utterance,
		Identity:      principal.Identity,
		Account:       principal.Account,
	}

	if res.Command == intent.CmdUnknown {
		var direct *reply.Response
		res, direct = r.classify(ctx, in, res)
		if direct != nil {
			return *direct
		}
		if res.Command == intent.CmdUnknown {
			r.recordUnknown()
			return reply.Unknown()
		}
	}

	return r.dispatch(ctx, req, res)
}

func (r *Router) dispatch(ctx context.Context, req *Request, res intent.Result) reply.Response {
	route, module, ok := r.registry.Lookup(res.Command)
	if !ok {
		r.logger.WithField("command", string(res.Command)).
			WarnContext(ctx, "No route registered for command")
		r.recordUnknown()
		return reply.Unknown()
	}

	h := Chain(route.invoke, module, r.middlewares...)
	resp, err := h(ctx, req, res)
	if err != nil {
		return r.fail(ctx, res.Command, module, err)
	}
	if resp.IsEmpty() {
		return reply.GenericError()
	}
	return resp
}

// fail converts an internal error into the apology reply. Errors that carry
// a user message keep it.
func (r *Router) fail(ctx context.Context, cmd intent.Command, module string, err error) reply.Response {
	if ue, ok := errors.AsType[*domerrors.UserError](err); ok && ue.Message != "" {
		return reply.Text(ue.Message)
	}
	if errors.Is(err, context.Canceled) {
		return reply.GenericError()
	}

	if module == "" {
		// errors inside handlers were already logged by LoggingMiddleware
		r.logger.WithError(err).
			WithField("command", string(cmd)).
			ErrorContext(ctx, "Command resolution failed")
	}
	sentry.CaptureCommandError(ctx, err, sentry.Command{
		Name:     string(cmd),
		Module:   module,
		Platform: ctxutil.GetPlatform(ctx),
	})
	return reply.GenericError()
}

// classify asks the LLM for a no-argument command. It returns either a
// new matcher result or a direct reply.
func (r *Router) classify(ctx context.Context, in Inbound, res intent.Result) (intent.Result, *reply.Response) {
	if r.classifier == nil || res.Text == "" {
		return res, nil
	}
	if r.llmLimiter != nil && !r.llmLimiter.Allow(limiterKey(in)) {
		r.logger.WarnContext(ctx, "LLM rate limit exceeded")
		return res, nil
	}

	c, err := r.classifier.Classify(ctx, res.Text)
	if err != nil {
		r.logger.WithError(err).WarnContext(ctx, "NLU intent classification failed")
		return res, nil
	}

	if c.Command != intent.CmdUnknown && genai.IsClassifiable(c.Command) {
		r.logger.WithField("command", string(c.Command)).
			WithField("provider", c.Provider.String()).
			DebugContext(ctx, "NLU intent classified")
		return intent.Result{Command: c.Command, Kind: intent.KindNone}, nil
	}
	if c.Reply != "" {
		resp := reply.Text(c.Reply, reply.DefaultQuickReplies()...)
		return res, &resp
	}
	return res, nil
}

func (r *Router) allowUser(ctx context.Context, in Inbound) bool {
	if r.userLimiter == nil || in.ChannelUserID == "" {
		return true
	}
	if r.userLimiter.Allow(limiterKey(in)) {
		return true
	}
	r.logger.WarnContext(ctx, "User rate limit exceeded")
	return false
}

func (r *Router) recordUnknown() {
	if r.metrics != nil {
		r.metrics.RecordCommand(string(intent.CmdUnknown), "unmatched", 0)
	}
}

func limiterKey(in Inbound) string {
	return in.Platform + ":" + in.ChannelUserID
}
