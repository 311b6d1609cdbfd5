// Package storage provides repository interfaces for data access abstraction.
// These interfaces decouple chat handlers and HTTP handlers from the
// concrete SQLite implementation so they can be tested with fakes.
package storage

import (
	"context"
	"time"
)

// AccountRepository defines account operations.
type AccountRepository interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetAccountByExternalID(ctx context.Context, externalID string) (*Account, error)
	UpsertLoginAccount(ctx context.Context, externalID, nickname, role string) (*Account, error)
	SetSubscribed(ctx context.Context, accountID int64, subscribed bool) error
	SetStudyMode(ctx context.Context, accountID int64, mode StudyMode) error
	GetAccountStats(ctx context.Context, accountID int64) (*AccountStats, error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
}

// IdentityRepository defines chat identity and linking operations.
type IdentityRepository interface {
	GetIdentity(ctx context.Context, platform, channelUserID string) (*ChatIdentity, error)
	EnsureIdentity(ctx context.Context, platform, channelUserID string) (*ChatIdentity, bool, error)
	ListIdentitiesByAccount(ctx context.Context, accountID int64) ([]ChatIdentity, error)
	SetLinkCode(ctx context.Context, identityID int64, code string, expiresAt, now time.Time) error
	RedeemLinkCode(ctx context.Context, code string, targetAccountID int64, now time.Time) (*LinkResult, error)
	ClearExpiredLinkCodes(ctx context.Context, now time.Time) (int64, error)
}

// QuestionRepository defines question pool operations.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *Question) error
	UpdateQuestion(ctx context.Context, q *Question) error
	DeactivateQuestion(ctx context.Context, id int64) error
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	ListQuestions(ctx context.Context, limit, offset int) ([]Question, error)
	PickNextQuestion(ctx context.Context) (*Question, error)
}

// DailyRepository defines daily question and answer operations.
type DailyRepository interface {
	PublishDailyQuestion(ctx context.Context, questionID int64, date string, sentAt time.Time) (*DailyQuestion, bool, error)
	GetCurrentDailyQuestion(ctx context.Context) (*DailyQuestion, error)
	GetResponse(ctx context.Context, accountID, dailyQuestionID int64) (*Response, error)
	RecordResponse(ctx context.Context, r *Response) error
	GetQuestionStats(ctx context.Context, dailyQuestionID int64) (*QuestionStats, error)
}

// WeeklyRepository defines weekly quiz operations.
type WeeklyRepository interface {
	SaveWeeklyQuiz(ctx context.Context, w *WeeklyQuiz) error
	GetWeeklyQuiz(ctx context.Context, week, slot int) (*WeeklyQuiz, error)
	ListWeeklyQuizzes(ctx context.Context, week int) ([]WeeklyQuiz, error)
	DeleteWeeklyQuiz(ctx context.Context, week, slot int) error
	ListWeeklyResponses(ctx context.Context, accountID int64, week int) (map[int]WeeklyResponse, error)
	RecordWeeklyResponse(ctx context.Context, r *WeeklyResponse) error
	GetWeeklySummary(ctx context.Context, accountID int64, week int) (*WeeklySummary, error)
}

// TokenRepository persists OAuth tokens.
type TokenRepository interface {
	GetToken(ctx context.Context, key string) (*StoredToken, error)
	SaveToken(ctx context.Context, t *StoredToken) error
	DeleteToken(ctx context.Context, key string) error
}

var (
	_ AccountRepository  = (*DB)(nil)
	_ IdentityRepository = (*DB)(nil)
	_ QuestionRepository = (*DB)(nil)
	_ DailyRepository    = (*DB)(nil)
	_ WeeklyRepository   = (*DB)(nil)
	_ TokenRepository    = (*DB)(nil)
)
