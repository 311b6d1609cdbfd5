// Package sentry reports errors to Better Stack through the Sentry SDK.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Better Stack error tracking settings.
type Config struct {
	// Token is the Better Stack Errors application token.
	Token string
	// Host is the ingesting host, e.g. "errors.betterstack.com".
	Host        string
	Environment string
	Release     string
	// SampleRate defaults to 1.0 when unset.
	SampleRate float64
	Debug      bool
}

func clientOptions(cfg Config) (sentry.ClientOptions, error) {
	if cfg.Host == "" {
		return sentry.ClientOptions{}, errors.New("sentry host is required when token is provided")
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	return sentry.ClientOptions{
		// Better Stack ignores the project ID but the SDK requires one.
		Dsn:              fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       dropCanceled,
	}, nil
}

// dropCanceled discards events for turns the user or platform abandoned.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// Initialize installs the global client. An empty token leaves reporting off.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	opts, err := clientOptions(cfg)
	if err != nil {
		return err
	}
	return sentry.Init(opts)
}

// Flush waits up to timeout for buffered events and reports whether all were sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether a client is installed.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports a startup or background failure.
func CaptureException(err error) {
	sentry.CaptureException(err)
}

// Command describes the chat turn that failed.
type Command struct {
	Name     string
	Module   string
	Platform string
}

// CaptureCommandError reports a failed chat command. Events are grouped
// by command so one broken handler does not split into many issues.
func CaptureCommandError(ctx context.Context, err error, cmd Command) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("command", cmd.Name)
		if cmd.Module != "" {
			scope.SetTag("module", cmd.Module)
		}
		if cmd.Platform != "" {
			scope.SetTag("platform", cmd.Platform)
		}
		scope.SetFingerprint([]string{"command", cmd.Name, "{{ default }}"})
		hub.CaptureException(err)
	})
}
