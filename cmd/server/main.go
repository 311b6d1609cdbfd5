// Package main provides the quiz bot server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/garyellow/quizbot-go/internal/app"
	"github.com/garyellow/quizbot-go/internal/buildinfo"
	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/sentry"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "quizbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.SentryEnabled {
		release := cfg.SentryRelease
		if release == "" {
			release = buildinfo.Release()
		}
		if err := sentry.Initialize(sentry.Config{
			Token:       cfg.SentryToken,
			Host:        cfg.SentryHost,
			Environment: cfg.SentryEnvironment,
			Release:     release,
			SampleRate:  cfg.SentrySampleRate,
		}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	application, err := app.Initialize(ctx, cfg)
	cancel()
	if err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("initialize: %w", err)
	}
	return application.Run()
}
