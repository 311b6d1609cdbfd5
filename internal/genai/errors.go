package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorAction is what the fallback chain does after a failed classification.
type ErrorAction int

const (
	// ActionRetry calls the same provider again after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next provider.
	ActionFallback
	// ActionFail abandons the LLM and leaves the keyword result in place.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	}
	return fmt.Sprintf("ErrorAction(%d)", int(a))
}

// LLMError is a provider failure. StatusCode is zero when the provider
// answered but the answer could not be turned into a command.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %v (status: %d)", e.Provider, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError tags err with the provider and HTTP status it came from.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}

func errMissingParam(name string) error {
	return fmt.Errorf("missing parameter %q", name)
}

func errUnknownCommand(cmd string) error {
	return fmt.Errorf("model selected unsupported command %q", cmd)
}

func errUnknownFunction(name string) error {
	return fmt.Errorf("unknown function %q", name)
}

// messageRules classify SDK errors that carry no status code, checked in order.
var messageRules = []struct {
	action  ErrorAction
	markers []string
}{
	{ActionFallback, []string{"quota", "billing", "daily limit"}},
	{ActionRetry, []string{"429", "rate limit", "too many requests", "resource_exhausted",
		"500", "502", "503", "504", "unavailable", "overloaded", "timeout", "connection"}},
	{ActionFail, []string{"400", "401", "403", "404", "invalid api key", "unauthorized", "permission denied"}},
}

// ClassifyError maps a provider error to the next step. Cancellation
// fails, a spent deadline falls back, and otherwise the HTTP status or
// error text decides.
func ClassifyError(err error) ErrorAction {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ActionFail
	case errors.Is(err, context.DeadlineExceeded):
		return ActionFallback
	}

	if llmErr, ok := errors.AsType[*LLMError](err); ok {
		if llmErr.StatusCode == 0 {
			return ActionFallback
		}
		return classifyStatus(llmErr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, m := range rule.markers {
			if strings.Contains(msg, m) {
				return rule.action
			}
		}
	}
	return ActionRetry
}

func classifyStatus(code int) ErrorAction {
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		return ActionRetry
	}
	if code >= 400 && code < 500 {
		return ActionFail
	}
	return ActionRetry
}
