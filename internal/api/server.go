// Package api serves the web login flow and the JSON endpoints used by the
// account page and the admin console.
package api

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/quizbot-go/internal/auth"
	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/oauth"
	"github.com/garyellow/quizbot-go/internal/scheduler"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/token"
)

// Store is the persistence surface of the API.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*storage.Account, error)
	GetAccountStats(ctx context.Context, accountID int64) (*storage.AccountStats, error)
	ListIdentitiesByAccount(ctx context.Context, accountID int64) ([]storage.ChatIdentity, error)
	UpsertLoginAccount(ctx context.Context, externalID, nickname, role string) (*storage.Account, error)

	CreateQuestion(ctx context.Context, q *storage.Question) error
	UpdateQuestion(ctx context.Context, q *storage.Question) error
	DeactivateQuestion(ctx context.Context, id int64) error
	GetQuestion(ctx context.Context, id int64) (*storage.Question, error)
	ListQuestions(ctx context.Context, limit, offset int) ([]storage.Question, error)

	SaveWeeklyQuiz(ctx context.Context, w *storage.WeeklyQuiz) error
	ListWeeklyQuizzes(ctx context.Context, week int) ([]storage.WeeklyQuiz, error)
	DeleteWeeklyQuiz(ctx context.Context, week, slot int) error
}

// Linker redeems link codes shown in chat.
type Linker interface {
	RedeemLinkCode(ctx context.Context, code string, accountID int64) (*storage.LinkResult, error)
}

// OAuthClient is the Kakao login client.
type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*token.Token, error)
	Profile(ctx context.Context, accessToken string) (*oauth.Profile, error)
}

// TokenStore persists the user's OAuth token after login.
type TokenStore interface {
	Put(ctx context.Context, key string, t *token.Token) error
}

// Publisher publishes today's question on demand.
type Publisher interface {
	Publish(ctx context.Context) (*scheduler.PublishResult, error)
}

// Config holds the dependencies of a Server. OAuth, Tokens and Publisher
// may be nil; the matching routes are then not registered.
type Config struct {
	Store         Store
	Linker        Linker
	OAuth         OAuthClient
	Tokens        TokenStore
	Publisher     Publisher
	Issuer        *auth.Issuer
	AdminAccounts []string
	SecureCookies bool
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// Server holds the HTTP handlers.
type Server struct {
	store         Store
	linker        Linker
	oauth         OAuthClient
	tokens        TokenStore
	publisher     Publisher
	issuer        *auth.Issuer
	adminAccounts []string
	secureCookies bool
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// NewServer creates a server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Linker == nil {
		return nil, errors.New("store and linker are required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	return &Server{
		store:         cfg.Store,
		linker:        cfg.Linker,
		oauth:         cfg.OAuth,
		tokens:        cfg.Tokens,
		publisher:     cfg.Publisher,
		issuer:        cfg.Issuer,
		adminAccounts: cfg.AdminAccounts,
		secureCookies: cfg.SecureCookies,
		logger:        cfg.Logger.WithModule("api"),
		metrics:       cfg.Metrics,
	}, nil
}

// Register mounts all routes on r.
func (s *Server) Register(r gin.IRouter) {
	if s.oauth != nil {
		r.GET("/auth/kakao/login", s.login)
		r.GET("/auth/kakao/callback", s.callback)
	}

	api := r.Group("/api", auth.Middleware(s.issuer))
	api.GET("/me", s.me)
	api.POST("/me/link", s.redeemLink)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.GET("/questions", s.listQuestions)
	admin.POST("/questions", s.createQuestion)
	admin.GET("/questions/:id", s.getQuestion)
	admin.PUT("/questions/:id", s.updateQuestion)
	admin.DELETE("/questions/:id", s.deleteQuestion)
	admin.GET("/weekly/:week", s.listWeekly)
	admin.POST("/weekly", s.saveWeekly)
	admin.DELETE("/weekly/:week/:slot", s.deleteWeekly)
	if s.publisher != nil {
		admin.POST("/publish", s.publish)
	}
}

func (s *Server) isAdminAccount(externalID string) bool {
	return slices.Contains(s.adminAccounts, externalID)
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and hidden from the client.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *domerrors.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, domerrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, domerrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domerrors.ErrInvalidLinkCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired link code"})
	case errors.Is(err, domerrors.ErrAlreadyLinked):
		c.JSON(http.StatusConflict, gin.H{"error": "already linked"})
	case errors.Is(err, domerrors.ErrChoicesLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "options and correct answer cannot change once published or answered"})
	default:
		s.logger.WithError(err).
			WithField("http_path", c.FullPath()).
			ErrorContext(c.Request.Context(), "API request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
