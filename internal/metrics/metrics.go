package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Command metrics
	CommandsTotal          *prometheus.CounterVec
	CommandDurationSeconds *prometheus.HistogramVec

	// Quiz metrics
	AnswersTotal         *prometheus.CounterVec
	LinkRedemptionsTotal *prometheus.CounterVec
	AccountsGauge        *prometheus.GaugeVec

	// Outbound metrics
	NotificationsTotal *prometheus.CounterVec
	TokenRefreshTotal  *prometheus.CounterVec
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Background job metrics
	JobRunsTotal       *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	m := &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds by platform",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"platform"}, // platform: kakao, line
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_webhook_requests_total",
				Help: "Total number of webhook requests by platform and status",
			},
			[]string{"platform", "status"}, // status: success, error, unauthorized, bad_request
		),

		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_commands_total",
				Help: "Total number of chat commands by command and outcome",
			},
			[]string{"command", "status"}, // status: success, error, panic
		),

		CommandDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_command_duration_seconds",
				Help:    "Chat command handling duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"command"},
		),

		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_answers_total",
				Help: "Total number of submitted answers by flow and result",
			},
			[]string{"flow", "result"}, // flow: daily, weekly; result: correct, incorrect, duplicate, out_of_range
		),

		LinkRedemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_link_redemptions_total",
				Help: "Total number of link code redemptions by result",
			},
			[]string{"result"}, // result: linked, already_linked, invalid, error
		),

		AccountsGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quiz_accounts",
				Help: "Number of accounts by kind",
			},
			[]string{"kind"}, // kind: permanent, temporary
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_notifications_total",
				Help: "Total number of outbound daily notifications by platform and status",
			},
			[]string{"platform", "status"},
		),

		TokenRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_token_refresh_total",
				Help: "Total number of OAuth token refreshes by status",
			},
			[]string{"status"}, // status: success, error, shared
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_llm_requests_total",
				Help: "Total number of LLM intent classification requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, fallback, clarification
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_llm_duration_seconds",
				Help:    "LLM intent classification latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8},
			},
			[]string{"provider"},
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: timeout, rate_limit, invalid_signature, etc.
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: user, global, llm
		),

		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_job_runs_total",
				Help: "Total number of background job runs by job and status",
			},
			[]string{"job", "status"},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"job"}, // job: publish, backup, link_cleanup
		),
	}

	return m
}

// RecordWebhook records a webhook request
func (m *Metrics) RecordWebhook(platform, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(platform, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(platform).Observe(duration)
}

// RecordCommand records the outcome of one routed command.
func (m *Metrics) RecordCommand(command, status string, duration float64) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
	m.CommandDurationSeconds.WithLabelValues(command).Observe(duration)
}

// RecordAnswer records an answer submission.
func (m *Metrics) RecordAnswer(flow, result string) {
	m.AnswersTotal.WithLabelValues(flow, result).Inc()
}

// RecordLinkRedemption records a link code redemption attempt.
func (m *Metrics) RecordLinkRedemption(result string) {
	m.LinkRedemptionsTotal.WithLabelValues(result).Inc()
}

// SetAccounts updates the account gauges.
func (m *Metrics) SetAccounts(permanent, temporary int) {
	m.AccountsGauge.WithLabelValues("permanent").Set(float64(permanent))
	m.AccountsGauge.WithLabelValues("temporary").Set(float64(temporary))
}

// RecordNotification records one outbound notification.
func (m *Metrics) RecordNotification(platform, status string) {
	m.NotificationsTotal.WithLabelValues(platform, status).Inc()
}

// RecordTokenRefresh records a token refresh attempt.
func (m *Metrics) RecordTokenRefresh(status string) {
	m.TokenRefreshTotal.WithLabelValues(status).Inc()
}

// RecordLLM records an LLM classification call.
func (m *Metrics) RecordLLM(provider, status string, duration float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordJob records one background job run.
func (m *Metrics) RecordJob(job, status string, duration float64) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobDurationSeconds.WithLabelValues(job).Observe(duration)
}
