package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/quizbot-go/internal/auth"
	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/stringutil"
)

const linkCodeLength = 6

type meResponse struct {
	Account    *storage.Account       `json:"account"`
	Stats      *storage.AccountStats  `json:"stats"`
	Accuracy   float64                `json:"accuracy"`
	Identities []storage.ChatIdentity `json:"identities"`
}

type linkRequest struct {
	Code string `json:"code" binding:"required"`
}

type linkResponse struct {
	Platform       string `json:"platform"`
	MovedResponses int    `json:"moved_responses"`
	MovedCorrect   int    `json:"moved_correct"`
	AlreadyLinked  bool   `json:"already_linked"`
}

func (s *Server) me(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := auth.ClaimsFrom(c).AccountID

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	stats, err := s.store.GetAccountStats(ctx, accountID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	identities, err := s.store.ListIdentitiesByAccount(ctx, accountID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if identities == nil {
		identities = []storage.ChatIdentity{}
	}

	c.JSON(http.StatusOK, meResponse{
		Account:    account,
		Stats:      stats,
		Accuracy:   stats.Accuracy(),
		Identities: identities,
	})
}

// redeemLink binds the chat identity holding the code to the caller.
func (s *Server) redeemLink(c *gin.Context) {
	ctx := c.Request.Context()
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	code := strings.TrimSpace(req.Code)
	if len(code) != linkCodeLength || !stringutil.IsNumeric(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code must be 6 digits"})
		return
	}

	result, err := s.linker.RedeemLinkCode(ctx, code, auth.ClaimsFrom(c).AccountID)
	s.recordLink(err)
	// a retried redeem of the caller's own identity succeeds without changes
	alreadyLinked := errors.Is(err, domerrors.ErrAlreadyLinked) && result != nil
	if err != nil && !alreadyLinked {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkResponse{
		Platform:       result.Identity.Platform,
		MovedResponses: result.MovedResponses,
		MovedCorrect:   result.MovedCorrect,
		AlreadyLinked:  alreadyLinked,
	})
}

func (s *Server) recordLink(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordLinkRedemption("success")
	case errors.Is(err, domerrors.ErrInvalidLinkCode):
		s.metrics.RecordLinkRedemption("invalid")
	case errors.Is(err, domerrors.ErrAlreadyLinked):
		s.metrics.RecordLinkRedemption("already_linked")
	default:
		s.metrics.RecordLinkRedemption("error")
	}
}
