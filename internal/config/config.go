// Package config provides application configuration management.
// It loads settings from environment variables (optionally via a .env file)
// and validates that enabled features carry the credentials they need.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string
	InstanceID      string
	PublicBaseURL   string // External URL used to build OAuth redirect and link instructions

	// Data Configuration
	DataDir string

	// Quiz schedule
	Timezone      string
	Location      *time.Location
	PublishHour   int
	PublishMinute int
	WeekEpoch     time.Time // Monday that starts week 1
	LinkCodeTTL   time.Duration

	// Kakao channel
	KakaoEnabled      bool
	KakaoSkillToken   string // Shared secret expected in X-Skill-Token (empty = unchecked)
	KakaoRESTAPIKey   string // OAuth client_id
	KakaoClientSecret string
	KakaoRedirectURL  string

	// LINE channel
	LineEnabled       bool
	LineChannelToken  string
	LineChannelSecret string

	// Web session
	JWTSecret     string
	JWTTTL        time.Duration
	AdminAccounts []string // External IDs granted the admin role on login

	// Bot Configuration
	Bot BotConfig

	// LLM Configuration
	LLMEnabled    bool
	LLMProviders  []string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Notification provider
	NotifyEnabled      bool
	NotifyBaseURL      string
	NotifyClientID     string
	NotifyClientSecret string
	NotifyTemplateID   string

	// R2 Backup
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2SnapshotKey     string
	R2LockKey         string
	R2LockTTL         time.Duration
	BackupInterval    time.Duration

	// Sentry
	SentryEnabled     bool
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentryRelease     string
	SentrySampleRate  float64

	// Better Stack
	BetterStackEnabled  bool
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string
}

// BotConfig holds chat-handling limits.
type BotConfig struct {
	WebhookTimeout time.Duration

	// Per-user token bucket
	UserRateBurst  int
	UserRateRefill float64 // tokens per second

	GlobalRateLimitRPS float64

	// Per-user LLM budget, consulted only for unmatched utterances
	LLMRateBurst  int
	LLMRateHourly float64
	LLMDailyLimit int // 0 disables the daily cap

	MaxEventsPerWebhook int
	MaxUtteranceLength  int
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, DefaultShutdownTimeout),
		ServerName:      getEnv(EnvServerName, "quizbot"),
		InstanceID:      getEnv(EnvInstanceID, hostname()),
		PublicBaseURL:   strings.TrimRight(getEnv(EnvPublicBaseURL, "http://localhost:10000"), "/"),

		DataDir: getEnv(EnvDataDir, getDefaultDataDir()),

		Timezone:    getEnv(EnvTimezone, "Asia/Seoul"),
		LinkCodeTTL: getDurationEnv(EnvLinkCodeTTL, 10*time.Minute),

		KakaoEnabled:      getBoolEnv(EnvKakaoEnabled, true),
		KakaoSkillToken:   getEnv(EnvKakaoSkillToken, ""),
		KakaoRESTAPIKey:   getEnv(EnvKakaoRESTAPIKey, ""),
		KakaoClientSecret: getEnv(EnvKakaoClientSecret, ""),
		KakaoRedirectURL:  getEnv(EnvKakaoRedirectURL, ""),

		LineEnabled:       getBoolEnv(EnvLineEnabled, false),
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		JWTSecret:     getEnv(EnvJWTSecret, ""),
		JWTTTL:        getDurationEnv(EnvJWTTTL, 7*24*time.Hour),
		AdminAccounts: getListEnv(EnvAdminAccounts),

		Bot: BotConfig{
			WebhookTimeout:      getDurationEnv(EnvWebhookTimeout, LINEEventProcessing),
			UserRateBurst:       getIntEnv(EnvUserRateBurst, 10),
			UserRateRefill:      getFloatEnv(EnvUserRateRefill, 0.5),
			GlobalRateLimitRPS:  getFloatEnv(EnvGlobalRateRPS, 100.0),
			LLMRateBurst:        getIntEnv(EnvLLMRateBurst, 5),
			LLMRateHourly:       getFloatEnv(EnvLLMRateHourly, 30),
			LLMDailyLimit:       getIntEnv(EnvLLMDailyLimit, 100),
			MaxEventsPerWebhook: 100,
			MaxUtteranceLength:  1000,
		},

		LLMEnabled:    getBoolEnv(EnvLLMEnabled, false),
		LLMProviders:  getListEnv(EnvLLMProviders),
		GeminiAPIKey:  getEnv(EnvGeminiAPIKey, ""),
		GeminiModel:   getEnv(EnvGeminiModel, "gemini-2.5-flash-lite"),
		OpenAIAPIKey:  getEnv(EnvOpenAIAPIKey, ""),
		OpenAIBaseURL: getEnv(EnvOpenAIBaseURL, ""),
		OpenAIModel:   getEnv(EnvOpenAIModel, "gpt-4.1-mini"),

		NotifyEnabled:      getBoolEnv(EnvNotifyEnabled, false),
		NotifyBaseURL:      strings.TrimRight(getEnv(EnvNotifyBaseURL, ""), "/"),
		NotifyClientID:     getEnv(EnvNotifyClientID, ""),
		NotifyClientSecret: getEnv(EnvNotifyClientSecret, ""),
		NotifyTemplateID:   getEnv(EnvNotifyTemplateID, ""),

		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/quiz.db.zst"),
		R2LockKey:         getEnv(EnvR2LockKey, "locks/leader.json"),
		R2LockTTL:         getDurationEnv(EnvR2LockTTL, time.Hour),
		BackupInterval:    getDurationEnv(EnvBackupInterval, 6*time.Hour),

		SentryEnabled:     getBoolEnv(EnvSentryEnabled, false),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:     getEnv(EnvSentryRelease, ""),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackEnabled:  getBoolEnv(EnvBetterStackEnabled, false),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.parseSchedule(getEnv(EnvPublishTime, "08:00"), getEnv(EnvWeekEpoch, "2026-01-05")); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if len(cfg.LLMProviders) == 0 {
		cfg.LLMProviders = []string{"gemini", "openai"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) parseSchedule(publishTime, weekEpoch string) error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvTimezone, err)
	}
	c.Location = loc

	t, err := time.Parse("15:04", publishTime)
	if err != nil {
		return fmt.Errorf("%s must be HH:MM: %w", EnvPublishTime, err)
	}
	c.PublishHour, c.PublishMinute = t.Hour(), t.Minute()

	epoch, err := time.ParseInLocation(time.DateOnly, weekEpoch, loc)
	if err != nil {
		return fmt.Errorf("%s must be YYYY-MM-DD: %w", EnvWeekEpoch, err)
	}
	c.WeekEpoch = epoch
	return nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if !c.KakaoEnabled && !c.LineEnabled {
		errs = append(errs, errors.New("at least one chat channel (Kakao or LINE) must be enabled"))
	}
	if c.LineEnabled {
		if c.LineChannelToken == "" {
			errs = append(errs, fmt.Errorf("%s is required when LINE is enabled", EnvLineChannelAccessToken))
		}
		if c.LineChannelSecret == "" {
			errs = append(errs, fmt.Errorf("%s is required when LINE is enabled", EnvLineChannelSecret))
		}
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("%s must be at least 32 bytes", EnvJWTSecret))
	}
	if c.LinkCodeTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvLinkCodeTTL, c.LinkCodeTTL))
	}
	if c.WeekEpoch.Weekday() != time.Monday {
		errs = append(errs, fmt.Errorf("%s must be a Monday, got %s", EnvWeekEpoch, c.WeekEpoch.Weekday()))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}
	if c.LLMEnabled && !c.HasLLMProvider() {
		errs = append(errs, fmt.Errorf("%s or %s is required when LLM is enabled", EnvGeminiAPIKey, EnvOpenAIAPIKey))
	}
	if c.NotifyEnabled && (c.NotifyBaseURL == "" || c.NotifyClientID == "" || c.NotifyClientSecret == "") {
		errs = append(errs, errors.New("notify base URL, client ID and client secret are required when notifications are enabled"))
	}
	if c.R2Enabled && (c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "") {
		errs = append(errs, errors.New("R2 account ID, access keys and bucket name are required when R2 is enabled"))
	}
	if c.SentryEnabled && (c.SentryToken == "" || c.SentryHost == "") {
		errs = append(errs, fmt.Errorf("%s and %s are required when Sentry is enabled", EnvSentryToken, EnvSentryHost))
	}
	if c.BetterStackEnabled && c.BetterStackToken == "" {
		errs = append(errs, fmt.Errorf("%s is required when Better Stack is enabled", EnvBetterStackToken))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the bot limits are usable.
func (b *BotConfig) Validate() error {
	var errs []error
	if b.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", b.WebhookTimeout))
	}
	if b.UserRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("user rate burst must be positive, got %d", b.UserRateBurst))
	}
	if b.UserRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("user rate refill must be positive, got %f", b.UserRateRefill))
	}
	if b.GlobalRateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("global rate limit RPS must be positive, got %f", b.GlobalRateLimitRPS))
	}
	return errors.Join(errs...)
}

// OAuthEnabled reports whether the Kakao login flow can run.
func (c *Config) OAuthEnabled() bool {
	return c.KakaoRESTAPIKey != "" && c.JWTSecret != ""
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.OpenAIAPIKey != ""
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "quiz.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty items.
func getListEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "local"
	}
	return h
}
