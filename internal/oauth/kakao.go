// Package oauth implements the Kakao Login authorization-code flow.
//
// Reference: https://developers.kakao.com/docs/latest/ko/kakaologin/rest-api
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/httpclient"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/token"
)

// Default Kakao endpoints.
const (
	DefaultAuthBaseURL = "https://kauth.kakao.com"
	DefaultAPIBaseURL  = "https://kapi.kakao.com"
)

// ErrUnauthorized means the provider rejected the access token.
var ErrUnauthorized = errors.New("oauth: access token rejected")

// Profile is the subset of the Kakao user we keep.
type Profile struct {
	ID       string
	Nickname string
}

// Config holds client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthBaseURL  string
	APIBaseURL   string
}

// Kakao is a Kakao Login client.
type Kakao struct {
	cfg  Config
	http *httpclient.Client
	now  func() time.Time
}

// NewKakao creates a client. Empty base URLs use the public Kakao hosts.
func NewKakao(cfg Config, opts ...httpclient.Option) *Kakao {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = DefaultAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	return &Kakao{
		cfg:  cfg,
		http: httpclient.New(config.OAuthRequest, opts...),
		now:  time.Now,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (k *Kakao) AuthCodeURL(state string) string {
	q := url.Values{
		"client_id":     {k.cfg.ClientID},
		"redirect_uri":  {k.cfg.RedirectURL},
		"response_type": {"code"},
		"state":         {state},
	}
	return k.cfg.AuthBaseURL + "/oauth/authorize?" + q.Encode()
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

func (r tokenResponse) toToken(now time.Time) *token.Token {
	t := &token.Token{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
	if r.ExpiresIn > 0 {
		t.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return t
}

// Exchange trades an authorization code for tokens.
func (k *Kakao) Exchange(ctx context.Context, code string) (*token.Token, error) {
	if code == "" {
		return nil, errors.New("oauth: empty authorization code")
	}
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {k.cfg.ClientID},
		"redirect_uri": {k.cfg.RedirectURL},
		"code":         {code},
	}
	if k.cfg.ClientSecret != "" {
		form.Set("client_secret", k.cfg.ClientSecret)
	}

	var resp tokenResponse
	if err := k.http.PostForm(ctx, k.cfg.AuthBaseURL+"/oauth/token", form, nil, &resp); err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("exchange code: empty access token")
	}
	return resp.toToken(k.now()), nil
}

// Refresh implements token.Refresher with the refresh_token grant.
func (k *Kakao) Refresh(ctx context.Context, current *storage.StoredToken) (*token.Token, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, token.ErrNoRefreshToken
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {k.cfg.ClientID},
		"refresh_token": {current.RefreshToken},
	}
	if k.cfg.ClientSecret != "" {
		form.Set("client_secret", k.cfg.ClientSecret)
	}

	var resp tokenResponse
	if err := k.http.PostForm(ctx, k.cfg.AuthBaseURL+"/oauth/token", form, nil, &resp); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return resp.toToken(k.now()), nil
}

type userResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
}

// Profile fetches the user behind accessToken.
func (k *Kakao) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	header := http.Header{"Authorization": {"Bearer " + accessToken}}

	var resp userResponse
	if err := k.http.GetJSON(ctx, k.cfg.APIBaseURL+"/v2/user/me", header, &resp); err != nil {
		if httpclient.StatusCode(err) == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if resp.ID == 0 {
		return nil, errors.New("fetch profile: missing user id")
	}

	nickname := resp.KakaoAccount.Profile.Nickname
	if nickname == "" {
		nickname = resp.Properties.Nickname
	}
	return &Profile{ID: strconv.FormatInt(resp.ID, 10), Nickname: nickname}, nil
}

// ExternalID namespaces a Kakao user id for accounts.external_id.
func ExternalID(p *Profile) string {
	return "kakao:" + p.ID
}

// TokenKey is the oauth_tokens key for an account's Kakao token.
func TokenKey(accountID int64) string {
	return "oauth:" + strconv.FormatInt(accountID, 10)
}
