package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.WebhookRequestsTotal == nil {
		t.Error("WebhookRequestsTotal is nil")
	}
	if m.CommandsTotal == nil {
		t.Error("CommandsTotal is nil")
	}
	if m.AnswersTotal == nil {
		t.Error("AnswersTotal is nil")
	}
	if m.JobDurationSeconds == nil {
		t.Error("JobDurationSeconds is nil")
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry panics; separate registries must not.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRecordWebhook(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordWebhook("kakao", "success", 0.1)
	m.RecordWebhook("kakao", "success", 0.2)
	m.RecordWebhook("line", "error", 0.5)

	if got := testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("kakao", "success")); got != 2 {
		t.Errorf("kakao success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("line", "error")); got != 1 {
		t.Errorf("line error = %v, want 1", got)
	}
}

func TestRecordCommand(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordCommand("answer", "success", 0.01)
	m.RecordCommand("answer", "error", 0.02)
	m.RecordCommand("today", "panic", 0.03)

	tests := []struct {
		command, status string
		want            float64
	}{
		{"answer", "success", 1},
		{"answer", "error", 1},
		{"today", "panic", 1},
		{"today", "success", 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues(tt.command, tt.status)); got != tt.want {
			t.Errorf("%s/%s = %v, want %v", tt.command, tt.status, got, tt.want)
		}
	}
}

func TestRecordAnswerAndLink(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAnswer("daily", "correct")
	m.RecordAnswer("daily", "duplicate")
	m.RecordAnswer("weekly", "incorrect")
	m.RecordLinkRedemption("linked")

	if got := testutil.ToFloat64(m.AnswersTotal.WithLabelValues("daily", "duplicate")); got != 1 {
		t.Errorf("daily duplicate = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LinkRedemptionsTotal.WithLabelValues("linked")); got != 1 {
		t.Errorf("linked = %v, want 1", got)
	}
}

func TestSetAccounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetAccounts(10, 3)
	m.SetAccounts(11, 2)

	if got := testutil.ToFloat64(m.AccountsGauge.WithLabelValues("permanent")); got != 11 {
		t.Errorf("permanent = %v, want 11", got)
	}
	if got := testutil.ToFloat64(m.AccountsGauge.WithLabelValues("temporary")); got != 2 {
		t.Errorf("temporary = %v, want 2", got)
	}
}

func TestRecordMisc(t *testing.T) {
	m := New(prometheus.NewRegistry())

	// Should not panic
	m.RecordNotification("line", "success")
	m.RecordTokenRefresh("shared")
	m.RecordLLM("gemini", "success", 0.8)
	m.RecordHTTPError("timeout", "oauth")
	m.RecordRateLimiterDrop("user")
	m.RecordJob("publish", "success", 1.2)

	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("user")); got != 1 {
		t.Errorf("user drops = %v, want 1", got)
	}
}
