package config

import "time"

// Chat platforms. Kakao i open builder drops skill responses after 5s, so
// Kakao turns are answered inline. LINE events are handled after the
// webhook has been acknowledged.
const (
	KakaoSkillProcessing = 4500 * time.Millisecond
	LINEEventProcessing  = 30 * time.Second
)

// HTTP server.
const (
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 35 * time.Second
	HTTPIdleTimeout  = 2 * time.Minute
	// DefaultShutdownTimeout bounds draining requests and the final backup.
	DefaultShutdownTimeout = 30 * time.Second
)

// Outbound calls.
const (
	// OAuthRequest bounds one call to the Kakao token or profile endpoint.
	OAuthRequest = 10 * time.Second
	// NotifyRequest bounds one message push.
	NotifyRequest = 10 * time.Second
	// TokenRefreshSkew renews provider tokens this long before they expire.
	TokenRefreshSkew = time.Minute
)

// SQLite.
const (
	DatabaseBusyTimeout     = 5 * time.Second
	DatabaseConnMaxLifetime = time.Hour
	// SlowQueryThreshold logs slower queries at warn level.
	SlowQueryThreshold = 200 * time.Millisecond
)

// Background jobs.
const (
	LinkCodeCleanupInterval    = time.Hour
	MetricsUpdateInterval      = 5 * time.Minute
	RateLimiterCleanupInterval = 5 * time.Minute
	// NotifyBatchConcurrency caps subscribers notified at once.
	NotifyBatchConcurrency = 8
)
