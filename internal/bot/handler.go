// Package bot routes resolved chat commands to module handlers.
// Each module (help, daily, weekly, account) registers one Route per
// command it owns; the Router matches utterances, resolves the caller's
// account and dispatches through a middleware chain that logs, records
// metrics and converts panics into errors.
package bot

import (
	"context"
	"fmt"

	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// Request is the resolved caller of a command.
type Request struct {
	Platform      string
	ChannelUserID string
	Utterance     string

	Identity storage.ChatIdentity
	Account  storage.Account
}

// Handler signatures. Every handler returns a reply or an internal error;
// user-facing business outcomes (not found, already answered, out of range)
// are replies, not errors.
type (
	NoArgHandler func(ctx context.Context, req *Request) (reply.Response, error)
	TextHandler  func(ctx context.Context, req *Request, text string) (reply.Response, error)
	IntHandler   func(ctx context.Context, req *Request, n int) (reply.Response, error)
	PairHandler  func(ctx context.Context, req *Request, a, b int) (reply.Response, error)
)

// Route binds a command to exactly one handler form.
type Route struct {
	Command intent.Command

	NoArg NoArgHandler
	Text  TextHandler
	Int   IntHandler
	Pair  PairHandler
}

// NoArg builds a route for a handler without arguments.
func NoArg(cmd intent.Command, h NoArgHandler) Route { return Route{Command: cmd, NoArg: h} }

// Text builds a route for a handler reading the utterance remainder.
func Text(cmd intent.Command, h TextHandler) Route { return Route{Command: cmd, Text: h} }

// Int builds a route for a handler taking one integer capture.
func Int(cmd intent.Command, h IntHandler) Route { return Route{Command: cmd, Int: h} }

// Pair builds a route for a handler taking two integer captures.
func Pair(cmd intent.Command, h PairHandler) Route { return Route{Command: cmd, Pair: h} }

// invoke adapts the matcher result to the route's handler form.
func (rt Route) invoke(ctx context.Context, req *Request, res intent.Result) (reply.Response, error) {
	switch {
	case rt.Pair != nil:
		if len(res.Args) < 2 {
			return reply.Response{}, fmt.Errorf("command %s: want 2 arguments, got %d", rt.Command, len(res.Args))
		}
		return rt.Pair(ctx, req, res.Int(0), res.Int(1))
	case rt.Int != nil:
		if len(res.Args) < 1 {
			return reply.Response{}, fmt.Errorf("command %s: want 1 argument, got 0", rt.Command)
		}
		return rt.Int(ctx, req, res.Int(0))
	case rt.Text != nil:
		return rt.Text(ctx, req, res.Text)
	case rt.NoArg != nil:
		return rt.NoArg(ctx, req)
	default:
		return reply.Response{}, fmt.Errorf("command %s: route has no handler", rt.Command)
	}
}

// Module is a group of routes owned by one feature package.
type Module interface {
	// Name identifies the module in logs and metrics.
	Name() string
	// Routes lists the commands the module handles.
	Routes() []Route
}
