package kakao

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
)

type fakeDispatcher struct {
	got   []bot.Inbound
	resp  reply.Response
	block bool
}

func (f *fakeDispatcher) Handle(ctx context.Context, in bot.Inbound) reply.Response {
	f.got = append(f.got, in)
	if f.block {
		<-ctx.Done()
	}
	return f.resp
}

func setupRouter(t *testing.T, d Dispatcher, opts ...Option) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry())
	h := NewHandler(d, logger.NewWithWriter("error", io.Discard), m, opts...)
	r := gin.New()
	r.POST("/kakao/skill", h.Handle)
	return r, m
}

func post(t *testing.T, r *gin.Engine, body string, header map[string]string) (*httptest.ResponseRecorder, SkillResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/kakao/skill", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out SkillResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestHandle_OpenBuilderEnvelope(t *testing.T) {
	d := &fakeDispatcher{resp: reply.Text("안녕", reply.Quick("도움말"))}
	r, m := setupRouter(t, d)

	w, out := post(t, r, `{"userRequest":{"user":{"id":"abc"},"utterance":"오늘의 문제"}}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, d.got, 1)
	assert.Equal(t, bot.Inbound{Platform: "kakao", ChannelUserID: "abc", Utterance: "오늘의 문제"}, d.got[0])
	assert.Equal(t, "2.0", out.Version)
	require.Len(t, out.Template.Outputs, 1)
	assert.Equal(t, "안녕", out.Template.Outputs[0].SimpleText.Text)
	assert.Equal(t, []QuickReply{{Action: "message", Label: "도움말", MessageText: "도움말"}}, out.Template.QuickReplies)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("kakao", "success")), 0)
}

func TestHandle_FlatShape(t *testing.T) {
	d := &fakeDispatcher{resp: reply.Text("ok")}
	r, _ := setupRouter(t, d)

	_, out := post(t, r, `{"user":{"id":"flat"},"utterance":"3"}`, nil)

	require.Len(t, d.got, 1)
	assert.Equal(t, "flat", d.got[0].ChannelUserID)
	assert.Equal(t, "3", d.got[0].Utterance)
	assert.Equal(t, "ok", out.Template.Outputs[0].SimpleText.Text)
}

func TestHandle_AlwaysOK(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		header map[string]string
	}{
		{"malformed json", `{"userRequest":`, nil},
		{"missing user", `{"utterance":"문제"}`, nil},
		{"bad token", `{"user":{"id":"a"},"utterance":"문제"}`, map[string]string{HeaderSkillToken: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{resp: reply.Text("should not be used")}
			r, _ := setupRouter(t, d, WithSkillToken("secret"))

			header := tt.header
			if header == nil {
				header = map[string]string{HeaderSkillToken: "secret"}
			}
			w, out := post(t, r, tt.body, header)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, d.got)
			assert.Equal(t, reply.MsgGenericError, out.Template.Outputs[0].SimpleText.Text)
		})
	}
}

func TestHandle_TokenAccepted(t *testing.T) {
	d := &fakeDispatcher{resp: reply.Text("ok")}
	r, _ := setupRouter(t, d, WithSkillToken("secret"))

	post(t, r, `{"user":{"id":"a"},"utterance":"문제"}`, map[string]string{HeaderSkillToken: "secret"})

	assert.Len(t, d.got, 1)
}

func TestHandle_TimeoutStillRenders(t *testing.T) {
	d := &fakeDispatcher{resp: reply.GenericError(), block: true}
	r, m := setupRouter(t, d, WithTimeout(10*time.Millisecond))

	w, out := post(t, r, `{"user":{"id":"a"},"utterance":"문제"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reply.MsgGenericError, out.Template.Outputs[0].SimpleText.Text)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("kakao", "timeout")), 0)
}
