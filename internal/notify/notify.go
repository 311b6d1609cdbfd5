// Package notify delivers the daily push to subscribers on every platform.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/stringutil"
)

// ErrNoSender is returned for subscribers on a platform without a sender.
var ErrNoSender = errors.New("no sender for platform")

// Sender pushes a reply to one chat user.
type Sender interface {
	Platform() string
	Send(ctx context.Context, channelUserID string, resp reply.Response) error
}

// Result counts the outcome of a broadcast.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Notifier fans a message out to subscribers.
type Notifier struct {
	senders     map[string]Sender
	concurrency int
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// New creates a notifier. Nil senders are ignored.
func New(log *logger.Logger, m *metrics.Metrics, senders ...Sender) *Notifier {
	n := &Notifier{
		senders:     make(map[string]Sender, len(senders)),
		concurrency: config.NotifyBatchConcurrency,
		logger:      log.WithModule("notify"),
		metrics:     m,
	}
	for _, s := range senders {
		if s != nil {
			n.senders[s.Platform()] = s
		}
	}
	return n
}

// Enabled reports whether any platform can be notified.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

// Broadcast sends resp to every subscriber. Individual failures are logged
// and counted; only context cancellation aborts the batch.
func (n *Notifier) Broadcast(ctx context.Context, subs []storage.Subscriber, resp reply.Response) (Result, error) {
	var sent, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for _, sub := range subs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := n.send(gctx, sub, resp)
			switch {
			case err == nil:
				sent.Add(1)
			case errors.Is(err, ErrNoSender):
				skipped.Add(1)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				failed.Add(1)
				n.logger.WithError(err).
					WithField("account_id", sub.AccountID).
					WithField("platform", sub.Platform).
					WithField("channel_user_id", stringutil.Mask(sub.ChannelUserID, 4)).
					WarnContext(ctx, "Notification failed")
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := Result{Sent: int(sent.Load()), Failed: int(failed.Load()), Skipped: int(skipped.Load())}
	n.logger.WithField("sent", res.Sent).
		WithField("failed", res.Failed).
		WithField("skipped", res.Skipped).
		InfoContext(ctx, "Broadcast finished")
	return res, err
}

func (n *Notifier) send(ctx context.Context, sub storage.Subscriber, resp reply.Response) error {
	s, ok := n.senders[sub.Platform]
	if !ok {
		n.record(sub.Platform, "skipped")
		return fmt.Errorf("%w %q", ErrNoSender, sub.Platform)
	}
	if err := s.Send(ctx, sub.ChannelUserID, resp); err != nil {
		n.record(sub.Platform, "error")
		return err
	}
	n.record(sub.Platform, "success")
	return nil
}

func (n *Notifier) record(platform, status string) {
	if n.metrics != nil {
		n.metrics.RecordNotification(platform, status)
	}
}
