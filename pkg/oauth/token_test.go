package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, expiresIn int) (*httptest.Server, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "id", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", *calls),
			"token_type":   "bearer",
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestNewTokenSourceRequiresCredentials(t *testing.T) {
	_, err := NewTokenSource(nil, Config{TokenURL: "http://x"})
	assert.Error(t, err)
}

func TestTokenIsCached(t *testing.T) {
	srv, calls := tokenServer(t, 3600)
	ts, err := NewTokenSource(srv.Client(), Config{TokenURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tok, err := ts.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, 1, *calls)
}

func TestTokenRefreshesWhenExpired(t *testing.T) {
	// Lifetime shorter than the refresh skew means every call re-fetches.
	srv, calls := tokenServer(t, 30)
	ts, err := NewTokenSource(srv.Client(), Config{TokenURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, *calls)
}

func TestTokenExtraForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "740561073", r.Form.Get("account_number"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	t.Cleanup(srv.Close)

	ts, err := NewTokenSource(srv.Client(), Config{
		TokenURL:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		ExtraForm:    map[string]string{"account_number": "740561073"},
	})
	require.NoError(t, err)

	_, err = ts.Token(context.Background())
	require.NoError(t, err)
}

func TestTokenRejectsEmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	t.Cleanup(srv.Close)

	ts, err := NewTokenSource(srv.Client(), Config{TokenURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	_, err = ts.Token(context.Background())
	require.Error(t, err)
}

func TestTokenRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	t.Cleanup(srv.Close)

	ts, err := NewTokenSource(srv.Client(), Config{TokenURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.Equal(t, 2, calls)
}
