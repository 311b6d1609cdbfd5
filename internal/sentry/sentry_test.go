package sentry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDisabledWithoutToken(t *testing.T) {
	require.NoError(t, Initialize(Config{Host: "errors.betterstack.com"}))
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	_, err := clientOptions(Config{Token: "tok"})
	assert.Error(t, err)

	opts, err := clientOptions(Config{
		Token:       "tok",
		Host:        "errors.betterstack.com",
		Environment: "production",
		Release:     "v1.2.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://tok@errors.betterstack.com/1", opts.Dsn)
	assert.Equal(t, "v1.2.0", opts.Release)
	assert.InDelta(t, 1.0, opts.SampleRate, 0)
	assert.True(t, opts.AttachStacktrace)

	opts, err = clientOptions(Config{Token: "tok", Host: "h", SampleRate: 0.25})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, opts.SampleRate, 0)
}

func TestDropCanceled(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{}
	canceled := fmt.Errorf("grade answer: %w", context.Canceled)
	assert.Nil(t, dropCanceled(event, &sentry.EventHint{OriginalException: canceled}))
	assert.Same(t, event, dropCanceled(event, &sentry.EventHint{OriginalException: errors.New("db locked")}))
	assert.Same(t, event, dropCanceled(event, nil))
}

func TestCaptureCommandError(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	CaptureCommandError(ctx, errors.New("no quiz for today"), Command{Name: "daily", Module: "daily", Platform: "kakao"})
	CaptureCommandError(ctx, errors.New("resolve failed"), Command{Name: "link"})
	hub.CaptureException(errors.New("plain"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, map[string]string{"command": "daily", "module": "daily", "platform": "kakao"}, events[0].Tags)
	assert.Equal(t, []string{"command", "daily", "{{ default }}"}, events[0].Fingerprint)
	assert.Equal(t, map[string]string{"command": "link"}, events[1].Tags)
	// scope tags must not leak onto the hub
	assert.Empty(t, events[2].Tags)
}
