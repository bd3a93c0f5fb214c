// Package oauth provides a cached client-credentials token source for the
// carrier APIs.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shipops/rate-shopper/pkg/utils"
)

// Tokens are refreshed a minute before the issuer's expiry to keep a
// request from racing the deadline mid-flight.
const expirySkew = time.Minute

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// ExtraForm is merged into the token request body. Some issuers want
	// account numbers or grant scopes alongside the credentials.
	ExtraForm map[string]string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenSource fetches and caches one bearer token per credential pair.
type TokenSource struct {
	httpc *http.Client
	cfg   Config

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenSource(httpc *http.Client, cfg Config) (*TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth: missing client credentials for %s", cfg.TokenURL)
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenSource{httpc: httpc, cfg: cfg}, nil
}

// Token returns a cached bearer token, refreshing it when expired.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expires) {
		return ts.token, nil
	}

	var res tokenResponse
	err := utils.Retry(utils.RetryConfig{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 1}, func() error {
		return ts.fetch(ctx, &res)
	})
	if err != nil {
		return "", fmt.Errorf("oauth: token request to %s: %w", ts.cfg.TokenURL, err)
	}

	ts.token = res.AccessToken
	ts.expires = time.Now().Add(time.Duration(res.ExpiresIn)*time.Second - expirySkew)
	return ts.token, nil
}

func (ts *TokenSource) fetch(ctx context.Context, out *tokenResponse) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.cfg.ClientID},
		"client_secret": {ts.cfg.ClientSecret},
	}
	for k, v := range ts.cfg.ExtraForm {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("empty access token in response")
	}
	return nil
}
