package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/garyellow/quizbot-go/internal/httpclient"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
	"github.com/garyellow/quizbot-go/internal/stringutil"
	"github.com/garyellow/quizbot-go/internal/token"
)

// TokenKey is where the provider's client-credentials token is stored.
const TokenKey = "notify:provider"

// maxTemplateText is the provider's limit for a template variable.
const maxTemplateText = 1000

// Tokens hands out and invalidates the provider token.
type Tokens interface {
	Get(ctx context.Context, key string) (string, error)
	Invalidate(ctx context.Context, key string) error
}

// ProviderConfig configures the template-message provider.
type ProviderConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TemplateID   string
}

// ClientCredentials obtains provider tokens with the client_credentials
// grant. It implements token.Refresher.
type ClientCredentials struct {
	cfg  ProviderConfig
	http *httpclient.Client
	now  func() time.Time
}

// NewClientCredentials creates the provider token refresher.
func NewClientCredentials(cfg ProviderConfig, hc *httpclient.Client) *ClientCredentials {
	return &ClientCredentials{cfg: cfg, http: hc, now: time.Now}
}

type credentialsResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Refresh implements token.Refresher. The stored token is not needed.
func (c *ClientCredentials) Refresh(ctx context.Context, _ *storage.StoredToken) (*token.Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	var resp credentialsResponse
	if err := c.http.PostForm(ctx, c.cfg.BaseURL+"/oauth/token", form, nil, &resp); err != nil {
		return nil, fmt.Errorf("client credentials: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("client credentials: empty access token")
	}
	t := &token.Token{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		t.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return t, nil
}

// TemplateSender delivers Kakao notifications through a template-message
// provider authenticated with a bearer token.
type TemplateSender struct {
	cfg    ProviderConfig
	http   *httpclient.Client
	tokens Tokens
}

// NewTemplateSender creates the Kakao sender.
func NewTemplateSender(cfg ProviderConfig, hc *httpclient.Client, tokens Tokens) *TemplateSender {
	return &TemplateSender{cfg: cfg, http: hc, tokens: tokens}
}

type templateRequest struct {
	TemplateID string            `json:"template_id"`
	Recipient  string            `json:"recipient"`
	Args       map[string]string `json:"args"`
}

type templateResponse struct {
	MessageID string `json:"message_id"`
}

// Platform implements Sender.
func (s *TemplateSender) Platform() string { return storage.PlatformKakao }

// Send implements Sender. A rejected token is invalidated and the send is
// retried once with a fresh one.
func (s *TemplateSender) Send(ctx context.Context, userID string, resp reply.Response) error {
	req := templateRequest{
		TemplateID: s.cfg.TemplateID,
		Recipient:  userID,
		Args:       templateArgs(resp),
	}

	err := s.post(ctx, req)
	if httpclient.StatusCode(err) == http.StatusUnauthorized {
		if ierr := s.tokens.Invalidate(ctx, TokenKey); ierr != nil {
			return errors.Join(err, ierr)
		}
		err = s.post(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("template message: %w", err)
	}
	return nil
}

func (s *TemplateSender) post(ctx context.Context, req templateRequest) error {
	access, err := s.tokens.Get(ctx, TokenKey)
	if err != nil {
		return err
	}
	header := http.Header{"Authorization": {"Bearer " + access}}
	var out templateResponse
	return s.http.PostJSON(ctx, s.cfg.BaseURL+"/v1/messages", req, header, &out)
}

// templateArgs fills the title and body variables of the template.
func templateArgs(resp reply.Response) map[string]string {
	args := map[string]string{"title": "", "text": stringutil.TruncateRunes(resp.PlainText(), maxTemplateText)}
	for _, o := range resp.Outputs {
		if o.Card != nil {
			args["title"] = o.Card.Title
			args["text"] = stringutil.TruncateRunes(o.Card.Description, maxTemplateText)
			break
		}
	}
	return args
}
