// Package scheduler runs the daily publish job and periodic housekeeping.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/notify"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// ErrEmptyPool means there is no active question to publish.
var ErrEmptyPool = errors.New("question pool is empty")

// PublishStore is the storage surface of the publisher.
type PublishStore interface {
	GetDailyQuestionByDate(ctx context.Context, date string) (*storage.DailyQuestion, error)
	PickNextQuestion(ctx context.Context) (*storage.Question, error)
	PublishDailyQuestion(ctx context.Context, questionID int64, date string, sentAt time.Time) (*storage.DailyQuestion, bool, error)
	ListSubscribers(ctx context.Context) ([]storage.Subscriber, error)
}

// Broadcaster delivers a message to subscribers.
type Broadcaster interface {
	Enabled() bool
	Broadcast(ctx context.Context, subs []storage.Subscriber, resp reply.Response) (notify.Result, error)
}

// PublishResult describes one publish run.
type PublishResult struct {
	Date            string         `json:"date"`
	DailyQuestionID int64          `json:"daily_question_id"`
	QuestionID      int64          `json:"question_id"`
	Created         bool           `json:"created"`
	Notified        *notify.Result `json:"notified,omitempty"`
}

// Publisher publishes one question per calendar day and notifies
// subscribers when the day's row is first created.
type Publisher struct {
	store    PublishStore
	notifier Broadcaster
	loc      *time.Location
	now      func() time.Time
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewPublisher creates a publisher. notifier and m may be nil.
func NewPublisher(store PublishStore, notifier Broadcaster, loc *time.Location, log *logger.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    store,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   log.WithModule("publisher"),
		metrics:  m,
	}
}

// Today returns the publish date for now in the service timezone.
func (p *Publisher) Today() string {
	return p.now().In(p.loc).Format(time.DateOnly)
}

// Published reports whether today's question already exists.
func (p *Publisher) Published(ctx context.Context) (bool, error) {
	_, err := p.store.GetDailyQuestionByDate(ctx, p.Today())
	if domerrors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Publish publishes today's question. Running it again on the same day
// returns the existing row and sends nothing.
func (p *Publisher) Publish(ctx context.Context) (*PublishResult, error) {
	start := time.Now()
	date := p.Today()

	dq, err := p.store.GetDailyQuestionByDate(ctx, date)
	if err == nil {
		p.recordJob("exists", start)
		return &PublishResult{Date: date, DailyQuestionID: dq.ID, QuestionID: dq.QuestionID}, nil
	}
	if !domerrors.IsNotFound(err) {
		p.recordJob("error", start)
		return nil, err
	}

	q, err := p.store.PickNextQuestion(ctx)
	if domerrors.IsNotFound(err) {
		p.recordJob("error", start)
		return nil, fmt.Errorf("publish %s: %w", date, ErrEmptyPool)
	}
	if err != nil {
		p.recordJob("error", start)
		return nil, err
	}

	dq, created, err := p.store.PublishDailyQuestion(ctx, q.ID, date, p.now())
	if err != nil {
		p.recordJob("error", start)
		return nil, err
	}
	result := &PublishResult{Date: date, DailyQuestionID: dq.ID, QuestionID: dq.QuestionID, Created: created}

	log := p.logger.WithField("date", date).WithField("question_id", dq.QuestionID)
	if !created {
		// another request won the race; it owns the notifications
		log.InfoContext(ctx, "Daily question already published")
		p.recordJob("exists", start)
		return result, nil
	}
	log.InfoContext(ctx, "Daily question published")

	if p.notifier != nil && p.notifier.Enabled() {
		notified, err := p.notifySubscribers(ctx, dq)
		result.Notified = &notified
		if err != nil {
			log.WithError(err).WarnContext(ctx, "Notification batch interrupted")
		}
	}

	p.recordJob("success", start)
	return result, nil
}

func (p *Publisher) notifySubscribers(ctx context.Context, dq *storage.DailyQuestion) (notify.Result, error) {
	subs, err := p.store.ListSubscribers(ctx)
	if err != nil {
		return notify.Result{}, fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		return notify.Result{}, nil
	}
	return p.notifier.Broadcast(ctx, subs, Announcement(dq))
}

// Announcement is the push message for a newly published question.
func Announcement(dq *storage.DailyQuestion) reply.Response {
	q := dq.Question
	var b strings.Builder
	b.WriteString(q.Text)
	b.WriteString("\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
	}
	b.WriteString("\n\n번호를 보내 답해 주세요.")

	title := "오늘의 문제가 도착했어요"
	if q.Category != "" {
		title += " · " + q.Category
	}
	return reply.CardResponse(reply.Card{
		Title:       title,
		Description: b.String(),
		Buttons:     []reply.Button{reply.MessageButton("문제 보기", "오늘의 문제")},
	}, reply.NumberQuickReplies(len(q.Options))...)
}

func (p *Publisher) recordJob(status string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordJob("daily_publish", status, time.Since(start).Seconds())
	}
}
