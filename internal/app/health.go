package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessCheckTimeout = 3 * time.Second

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"kakao":   a.cfg.KakaoEnabled,
		"line":    a.lineHandler != nil,
		"nlu":     a.router != nil && a.router.NLUEnabled(),
		"notify":  a.notifier != nil && a.notifier.Enabled(),
		"backup":  a.backup != nil,
		"web_api": a.cfg.JWTSecret != "",
		"login":   a.cfg.OAuthEnabled(),
	}
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	body := gin.H{
		"status":   "ready",
		"database": "connected",
		"features": a.features(),
	}
	if permanent, temporary, err := a.db.CountAccounts(ctx); err == nil {
		body["accounts"] = gin.H{"permanent": permanent, "temporary": temporary}
	} else {
		a.logger.WithError(err).Warn("Failed to count accounts for readiness")
	}
	if a.publisher != nil {
		if published, err := a.publisher.Published(ctx); err == nil {
			body["today"] = gin.H{"date": a.publisher.Today(), "published": published}
		}
	}
	c.JSON(http.StatusOK, body)
}
