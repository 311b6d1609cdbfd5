// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/quizbot-go/internal/api"
	"github.com/garyellow/quizbot-go/internal/auth"
	"github.com/garyellow/quizbot-go/internal/backup"
	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/buildinfo"
	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/genai"
	"github.com/garyellow/quizbot-go/internal/httpclient"
	"github.com/garyellow/quizbot-go/internal/identity"
	"github.com/garyellow/quizbot-go/internal/kakao"
	"github.com/garyellow/quizbot-go/internal/lineutil"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/modules/account"
	"github.com/garyellow/quizbot-go/internal/modules/daily"
	"github.com/garyellow/quizbot-go/internal/modules/help"
	"github.com/garyellow/quizbot-go/internal/modules/weekly"
	"github.com/garyellow/quizbot-go/internal/notify"
	"github.com/garyellow/quizbot-go/internal/oauth"
	"github.com/garyellow/quizbot-go/internal/r2client"
	"github.com/garyellow/quizbot-go/internal/ratelimit"
	"github.com/garyellow/quizbot-go/internal/scheduler"
	"github.com/garyellow/quizbot-go/internal/sentry"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/token"
	"github.com/garyellow/quizbot-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *storage.DB
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	identity    *identity.Service
	router      *bot.Router
	classifier  genai.Classifier
	llmLimiter  *ratelimit.KeyedLimiter
	userLimiter *ratelimit.KeyedLimiter
	lineHandler *webhook.Handler // nil when LINE is disabled
	notifier    *notify.Notifier
	publisher   *scheduler.Publisher
	scheduler   *scheduler.Scheduler
	backup      *backup.Manager // nil when R2 is disabled
	server      *http.Server
	wg          sync.WaitGroup
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	var logOpts logger.Options
	if cfg.BetterStackEnabled {
		logOpts.BetterStackToken = cfg.BetterStackToken
		logOpts.BetterStackEndpoint = cfg.BetterStackEndpoint
	}
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logOpts)
	log = log.WithField("service", cfg.ServerName).WithField("instance_id", cfg.InstanceID)
	slog.SetDefault(log.Logger)

	log.WithFields(buildinfo.Fields()).Info("Initializing application...")
	if logOpts.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	var backupMgr *backup.Manager
	if cfg.R2Enabled {
		var err error
		if backupMgr, err = newBackupManager(ctx, cfg, log, m); err != nil {
			return nil, err
		}
		// must run before the database file is opened
		restored, err := backupMgr.Restore(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		log.WithField("restored", restored).Info("R2 backup enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	ids := identity.NewService(db, cfg.LinkCodeTTL)

	llmLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "llm",
		Burst:         cfg.Bot.LLMRateBurst,
		RefillRate:    cfg.Bot.LLMRateHourly / 3600.0,
		DailyLimit:    cfg.Bot.LLMDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})
	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.Bot.UserRateBurst,
		RefillRate:    cfg.Bot.UserRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	var classifier genai.Classifier
	if cfg.LLMEnabled && cfg.HasLLMProvider() {
		llmCfg := buildLLMConfig(cfg)
		if classifier, err = genai.NewClassifier(ctx, llmCfg, m); err != nil {
			log.WithError(err).Warn("Intent classifier initialization failed; NLU disabled")
			classifier = nil
		}
		if classifier != nil {
			providers := llmCfg.ConfiguredProviders()
			names := make([]string, len(providers))
			for i, p := range providers {
				names[i] = p.String()
			}
			log.WithField("providers", names).Info("NLU enabled")
		}
	}

	linkURL := ""
	if cfg.OAuthEnabled() {
		linkURL = cfg.PublicBaseURL + "/auth/kakao/login"
	}
	modules := bot.NewRegistry()
	modules.Register(help.NewHandler(classifier != nil))
	modules.Register(daily.NewHandler(db, log, m))
	modules.Register(weekly.NewHandler(db, cfg.WeekEpoch, log, m))
	modules.Register(account.NewHandler(db, ids, llmLimiter, account.Config{
		PublishHour:   cfg.PublishHour,
		PublishMinute: cfg.PublishMinute,
		LinkURL:       linkURL,
	}))

	router := bot.NewRouter(bot.RouterConfig{
		Registry:           modules,
		Resolver:           ids,
		Classifier:         classifier,
		UserLimiter:        userLimiter,
		LLMLimiter:         llmLimiter,
		Logger:             log,
		Metrics:            m,
		Timeout:            cfg.Bot.WebhookTimeout,
		MaxUtteranceLength: cfg.Bot.MaxUtteranceLength,
	})

	var senders []notify.Sender
	var lineHandler *webhook.Handler
	if cfg.LineEnabled {
		lineClient, err := lineutil.NewAPIClient(cfg.LineChannelToken)
		if err != nil {
			return nil, fmt.Errorf("line client: %w", err)
		}
		lineHandler, err = webhook.NewHandler(webhook.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			Messenger:     lineClient,
			Dispatcher:    router,
			BotConfig:     &cfg.Bot,
			Metrics:       m,
			Logger:        log,
			SenderName:    cfg.ServerName,
		})
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		senders = append(senders, notify.NewLINESender(lineClient, cfg.ServerName))
	}
	if cfg.NotifyEnabled {
		senders = append(senders, newTemplateSender(cfg, db, log, m))
	}
	notifier := notify.New(log, m, senders...)
	publisher := scheduler.NewPublisher(db, notifier, cfg.Location, log, m)

	app := &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		registry:    registry,
		identity:    ids,
		router:      router,
		classifier:  classifier,
		llmLimiter:  llmLimiter,
		userLimiter: userLimiter,
		lineHandler: lineHandler,
		notifier:    notifier,
		publisher:   publisher,
		backup:      backupMgr,
		scheduler: scheduler.New(scheduler.Config{
			Publisher:     publisher,
			Cleaner:       ids,
			Counter:       db,
			Location:      cfg.Location,
			PublishHour:   cfg.PublishHour,
			PublishMinute: cfg.PublishMinute,
			Logger:        log,
			Metrics:       m,
		}),
	}

	engine, err := app.newEngine()
	if err != nil {
		return nil, err
	}
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: config.HTTPReadTimeout,
		ReadTimeout:       config.HTTPReadTimeout,
		WriteTimeout:      config.HTTPWriteTimeout,
		IdleTimeout:       config.HTTPIdleTimeout,
	}

	log.Info("Initialization complete")
	return app, nil
}

func newBackupManager(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*backup.Manager, error) {
	client, err := r2client.New(ctx, r2client.Config{
		AccountID:   cfg.R2AccountID,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return nil, fmt.Errorf("r2: %w", err)
	}
	lock := r2client.NewLock(client, cfg.R2LockKey, cfg.R2LockTTL, cfg.InstanceID)
	mgr, err := backup.NewManager(client, lock, backup.Config{
		SnapshotKey: cfg.R2SnapshotKey,
		Interval:    cfg.BackupInterval,
		TempDir:     cfg.DataDir,
	}, log, m)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	return mgr, nil
}

func newTemplateSender(cfg *config.Config, db *storage.DB, log *logger.Logger, m *metrics.Metrics) *notify.TemplateSender {
	pcfg := notify.ProviderConfig{
		BaseURL:      cfg.NotifyBaseURL,
		ClientID:     cfg.NotifyClientID,
		ClientSecret: cfg.NotifyClientSecret,
		TemplateID:   cfg.NotifyTemplateID,
	}
	hc := httpclient.New(config.NotifyRequest,
		httpclient.WithRetries(2, 500*time.Millisecond),
		httpclient.WithUserAgent(cfg.ServerName))
	tokens := token.NewProvider(db, notify.NewClientCredentials(pcfg, hc), log, token.WithMetrics(m))
	return notify.NewTemplateSender(pcfg, hc, tokens)
}

// newEngine builds the gin engine and registers every route.
func (a *Application) newEngine() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if sentry.IsEnabled() {
		engine.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	engine.Use(securityHeadersMiddleware())
	engine.Use(loggingMiddleware(a.logger))

	engine.GET("/livez", a.livenessCheck)
	engine.HEAD("/livez", a.livenessCheck)
	engine.GET("/readyz", a.readinessCheck)
	engine.HEAD("/readyz", a.readinessCheck)
	engine.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.cfg.KakaoEnabled {
		var opts []kakao.Option
		if a.cfg.KakaoSkillToken != "" {
			opts = append(opts, kakao.WithSkillToken(a.cfg.KakaoSkillToken))
		}
		engine.POST("/kakao/skill", kakao.NewHandler(a.router, a.logger, a.metrics, opts...).Handle)
	}
	if a.lineHandler != nil {
		engine.POST("/line/webhook", a.lineHandler.Handle)
	}

	if a.cfg.JWTSecret == "" {
		a.logger.Warn("JWT secret not configured; web API disabled")
		return engine, nil
	}
	srv, err := api.NewServer(a.apiConfig())
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	srv.Register(engine)
	return engine, nil
}

func (a *Application) apiConfig() api.Config {
	cfg := api.Config{
		Store:         a.db,
		Linker:        a.identity,
		Publisher:     a.publisher,
		Issuer:        auth.NewIssuer(a.cfg.JWTSecret, a.cfg.JWTTTL),
		AdminAccounts: a.cfg.AdminAccounts,
		SecureCookies: isHTTPS(a.cfg.PublicBaseURL),
		Logger:        a.logger,
		Metrics:       a.metrics,
	}
	if a.cfg.OAuthEnabled() {
		redirect := a.cfg.KakaoRedirectURL
		if redirect == "" {
			redirect = a.cfg.PublicBaseURL + "/auth/kakao/callback"
		}
		client := oauth.NewKakao(oauth.Config{
			ClientID:     a.cfg.KakaoRESTAPIKey,
			ClientSecret: a.cfg.KakaoClientSecret,
			RedirectURL:  redirect,
		}, httpclient.WithRetries(2, 500*time.Millisecond))
		cfg.OAuth = client
		cfg.Tokens = token.NewProvider(a.db, client, a.logger, token.WithMetrics(a.metrics))
	}
	return cfg
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}

// buildLLMConfig creates a genai.Config from the application config.
func buildLLMConfig(cfg *config.Config) genai.Config {
	llmCfg := genai.Config{
		Gemini: genai.ProviderConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel},
		OpenAI: genai.ProviderConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		Retry:  genai.DefaultRetryConfig(),
	}
	for _, p := range cfg.LLMProviders {
		switch p {
		case "gemini":
			llmCfg.Providers = append(llmCfg.Providers, genai.ProviderGemini)
		case "openai":
			llmCfg.Providers = append(llmCfg.Providers, genai.ProviderOpenAI)
		default:
			slog.Warn("ignoring unknown provider", "name", p)
		}
	}
	return llmCfg
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM.
//
// Background jobs are stopped and awaited before any resource is closed so
// a publish or backup in flight never sees a closed database.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.scheduler.Wait()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.scheduler.Start(ctx)
	if a.backup != nil {
		a.wg.Go(func() {
			a.backup.Run(ctx, a.db)
		})
	}
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops HTTP traffic, drains LINE events, uploads a final
// snapshot, and closes resources. Call it after background jobs stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.lineHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.lineHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	if a.backup != nil {
		if _, err := a.backup.Backup(shutdownCtx, a.db); err != nil && !errors.Is(err, backup.ErrLocked) {
			a.logger.WithError(err).Error("Final backup failed")
		}
	}

	a.logger.Info("Closing resources...")
	if a.classifier != nil {
		if err := a.classifier.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "classifier").Error("Component close error")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	a.llmLimiter.Stop()
	a.userLimiter.Stop()

	a.logger.Info("Shutdown complete")
	if n := a.logger.Dropped(); n > 0 {
		a.logger.WithField("dropped", n).Warn("Some log records were not shipped to Better Stack")
	}
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
	return nil
}
