package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/ctxutil"
	"github.com/garyellow/quizbot-go/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(now time.Time) *Issuer {
	i := NewIssuer(testSecret, time.Hour)
	i.now = func() time.Time { return now }
	return i
}

func TestIssueAndParse(t *testing.T) {
	i := NewIssuer(testSecret, time.Hour)

	signed, err := i.Issue(&storage.Account{ID: 42, Role: storage.RoleAdmin})
	require.NoError(t, err)

	claims, err := i.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, "42", claims.Subject)
	assert.True(t, claims.IsAdmin())
}

func TestParse_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	i := newTestIssuer(now)
	valid, err := i.Issue(&storage.Account{ID: 1, Role: storage.RoleUser})
	require.NoError(t, err)

	other := NewIssuer("another-secret-another-secret-xx", time.Hour)
	foreign, err := other.Issue(&storage.Account{ID: 1, Role: storage.RoleUser})
	require.NoError(t, err)

	state, err := i.IssueState()
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{AccountID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	later := newTestIssuer(now.Add(2 * time.Hour))

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{"garbage", i, "not-a-token"},
		{"wrong secret", i, foreign},
		{"state used as session", i, state},
		{"alg none", i, none},
		{"expired", later, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestState(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	i := newTestIssuer(now)

	state, err := i.IssueState()
	require.NoError(t, err)
	assert.NoError(t, i.VerifyState(state))

	session, err := i.Issue(&storage.Account{ID: 3})
	require.NoError(t, err)
	assert.Error(t, i.VerifyState(session), "session tokens are not states")

	assert.Error(t, newTestIssuer(now.Add(stateTTL+time.Minute)).VerifyState(state))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	i := NewIssuer(testSecret, time.Hour)
	userToken, err := i.Issue(&storage.Account{ID: 5, Role: storage.RoleUser})
	require.NoError(t, err)
	adminToken, err := i.Issue(&storage.Account{ID: 6, Role: storage.RoleAdmin})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", Middleware(i), func(c *gin.Context) {
		id, _ := ctxutil.GetAccountID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": ClaimsFrom(c).AccountID, "ctx": id})
	})
	router.GET("/admin", Middleware(i), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"user", "/me", "Bearer " + userToken, http.StatusOK},
		{"user on admin route", "/admin", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"id":5,"ctx":5}`, w.Body.String())
			}
		})
	}
}

func TestClaimsFromMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ClaimsFrom(c))
}
