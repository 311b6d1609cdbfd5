// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "QUIZ_PORT"
	EnvLogLevel        = "QUIZ_LOG_LEVEL"
	EnvShutdownTimeout = "QUIZ_SHUTDOWN_TIMEOUT"
	EnvServerName      = "QUIZ_SERVER_NAME"
	EnvInstanceID      = "QUIZ_INSTANCE_ID"
	EnvPublicBaseURL   = "QUIZ_PUBLIC_BASE_URL"

	// Data
	EnvDataDir = "QUIZ_DATA_DIR"

	// Quiz schedule
	EnvTimezone    = "QUIZ_TIMEZONE"
	EnvPublishTime = "QUIZ_PUBLISH_TIME"
	EnvWeekEpoch   = "QUIZ_WEEK_EPOCH"
	EnvLinkCodeTTL = "QUIZ_LINK_CODE_TTL"

	// Kakao channel
	EnvKakaoEnabled      = "QUIZ_KAKAO_ENABLED"
	EnvKakaoSkillToken   = "QUIZ_KAKAO_SKILL_TOKEN"
	EnvKakaoRESTAPIKey   = "QUIZ_KAKAO_REST_API_KEY"
	EnvKakaoClientSecret = "QUIZ_KAKAO_CLIENT_SECRET"
	EnvKakaoRedirectURL  = "QUIZ_KAKAO_REDIRECT_URL"

	// LINE channel
	EnvLineEnabled            = "QUIZ_LINE_ENABLED"
	EnvLineChannelAccessToken = "QUIZ_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "QUIZ_LINE_CHANNEL_SECRET"

	// Web session
	EnvJWTSecret      = "QUIZ_JWT_SECRET"
	EnvJWTTTL         = "QUIZ_JWT_TTL"
	EnvAdminAccounts  = "QUIZ_ADMIN_ACCOUNTS"
	EnvWebhookTimeout = "QUIZ_WEBHOOK_TIMEOUT"

	// Rate Limits
	EnvGlobalRateRPS  = "QUIZ_GLOBAL_RATE_RPS"
	EnvUserRateBurst  = "QUIZ_USER_RATE_BURST"
	EnvUserRateRefill = "QUIZ_USER_RATE_REFILL"
	EnvLLMRateBurst   = "QUIZ_LLM_RATE_BURST"
	EnvLLMRateHourly  = "QUIZ_LLM_RATE_HOURLY"
	EnvLLMDailyLimit  = "QUIZ_LLM_DAILY_LIMIT"

	// LLM Feature
	EnvLLMEnabled    = "QUIZ_LLM_ENABLED"
	EnvLLMProviders  = "QUIZ_LLM_PROVIDERS"
	EnvGeminiAPIKey  = "QUIZ_GEMINI_API_KEY"
	EnvGeminiModel   = "QUIZ_GEMINI_MODEL"
	EnvOpenAIAPIKey  = "QUIZ_OPENAI_API_KEY"
	EnvOpenAIBaseURL = "QUIZ_OPENAI_BASE_URL"
	EnvOpenAIModel   = "QUIZ_OPENAI_MODEL"

	// Notification provider
	EnvNotifyEnabled      = "QUIZ_NOTIFY_ENABLED"
	EnvNotifyBaseURL      = "QUIZ_NOTIFY_BASE_URL"
	EnvNotifyClientID     = "QUIZ_NOTIFY_CLIENT_ID"
	EnvNotifyClientSecret = "QUIZ_NOTIFY_CLIENT_SECRET"
	EnvNotifyTemplateID   = "QUIZ_NOTIFY_TEMPLATE_ID"

	// R2 Backup Feature
	EnvR2Enabled         = "QUIZ_R2_ENABLED"
	EnvR2AccountID       = "QUIZ_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "QUIZ_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "QUIZ_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "QUIZ_R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "QUIZ_R2_SNAPSHOT_KEY"
	EnvR2LockKey         = "QUIZ_R2_LOCK_KEY"
	EnvR2LockTTL         = "QUIZ_R2_LOCK_TTL"
	EnvBackupInterval    = "QUIZ_BACKUP_INTERVAL"

	// Sentry Feature
	EnvSentryEnabled     = "QUIZ_SENTRY_ENABLED"
	EnvSentryToken       = "QUIZ_SENTRY_TOKEN"
	EnvSentryHost        = "QUIZ_SENTRY_HOST"
	EnvSentryEnvironment = "QUIZ_SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "QUIZ_SENTRY_RELEASE"
	EnvSentrySampleRate  = "QUIZ_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "QUIZ_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "QUIZ_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "QUIZ_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "QUIZ_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "QUIZ_METRICS_USERNAME"
	EnvMetricsPassword    = "QUIZ_METRICS_PASSWORD"
)
