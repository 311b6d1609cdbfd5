package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/quizbot-go/internal/oauth"
	"github.com/garyellow/quizbot-go/internal/storage"
)

const (
	stateCookie       = "quizbot_oauth_state"
	stateCookieMaxAge = 600
)

type loginResponse struct {
	Token   string           `json:"token"`
	Account *storage.Account `json:"account"`
}

// login redirects to the Kakao consent page with a signed state that is
// also kept in a cookie.
func (s *Server) login(c *gin.Context) {
	state, err := s.issuer.IssueState()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieMaxAge, "/auth/kakao", "", s.secureCookies, true)
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

// callback completes the code flow and answers with a session token.
func (s *Server) callback(c *gin.Context) {
	ctx := c.Request.Context()

	if errCode := c.Query("error"); errCode != "" {
		s.logger.WithField("oauth_error", errCode).InfoContext(ctx, "Login canceled at provider")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login canceled"})
		return
	}

	state := c.Query("state")
	cookie, err := c.Cookie(stateCookie)
	if err != nil || state == "" || cookie != state || s.issuer.VerifyState(state) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/auth/kakao", "", s.secureCookies, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.WithError(err).WarnContext(ctx, "OAuth code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "login failed"})
		return
	}
	profile, err := s.oauth.Profile(ctx, tok.AccessToken)
	if err != nil {
		s.logger.WithError(err).WarnContext(ctx, "OAuth profile request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "login failed"})
		return
	}

	externalID := oauth.ExternalID(profile)
	role := storage.RoleUser
	if s.isAdminAccount(externalID) {
		role = storage.RoleAdmin
	}
	account, err := s.store.UpsertLoginAccount(ctx, externalID, profile.Nickname, role)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if s.tokens != nil {
		if err := s.tokens.Put(ctx, oauth.TokenKey(account.ID), tok); err != nil {
			// login still succeeds; the token is only needed for later API calls
			s.logger.WithError(err).WarnContext(ctx, "Failed to store OAuth token")
		}
	}

	session, err := s.issuer.Issue(account)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.WithField("account_id", account.ID).
		WithField("role", account.Role).
		InfoContext(ctx, "Account logged in")
	c.JSON(http.StatusOK, loginResponse{Token: session, Account: account})
}
