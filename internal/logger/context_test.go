package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/quizbot-go/internal/ctxutil"
)

func TestTracingHandlerAttributes(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() context.Context
		want map[string]any
		skip []string
	}{
		{
			name: "empty context",
			ctx:  context.Background,
			skip: []string{"platform", "user_id", "account_id", "request_id"},
		},
		{
			name: "kakao chat turn",
			ctx: func() context.Context {
				ctx := ctxutil.WithPlatform(context.Background(), "kakao")
				ctx = ctxutil.WithUserID(ctx, "kakao-user-9")
				return ctxutil.WithAccountID(ctx, 42)
			},
			want: map[string]any{"platform": "kakao", "user_id": "kakao-user-9", "account_id": float64(42)},
			skip: []string{"request_id"},
		},
		{
			name: "web request",
			ctx: func() context.Context {
				return ctxutil.WithRequestID(context.Background(), "req-1")
			},
			want: map[string]any{"request_id": "req-1"},
			skip: []string{"platform", "user_id"},
		},
		{
			name: "blank request id",
			ctx: func() context.Context {
				return ctxutil.WithRequestID(context.Background(), "")
			},
			skip: []string{"request_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewWithWriter("info", &buf).InfoContext(tt.ctx(), "answer graded")

			entry := decode(t, &buf)
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
			for _, k := range tt.skip {
				assert.NotContains(t, entry, k)
			}
		})
	}
}

func TestTracingHandlerKeepsGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf).WithModule("daily")
	ctx := ctxutil.WithPlatform(context.Background(), "line")

	log.WithGroup("quiz").DebugContext(ctx, "served", "question_id", 3)

	entry := decode(t, &buf)
	assert.Equal(t, "daily", entry["module"])
	group, ok := entry["quiz"].(map[string]any)
	if assert.True(t, ok, "quiz group missing: %v", entry) {
		assert.Equal(t, float64(3), group["question_id"])
		// context attrs land inside the open group
		assert.Equal(t, "line", group["platform"])
	}
}
