package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar_bot/internal/domain"
)

func TestReadAuthorizedUser_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	raw := `{"token": "access", "refresh_token": "refresh", "token_uri": "https://oauth2.googleapis.com/token",
		"client_id": "id", "client_secret": "secret", "scopes": ["https://www.googleapis.com/auth/calendar.events"]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	u, err := ReadAuthorizedUser(path)
	require.NoError(t, err)

	cfg := u.OAuthConfig()
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/calendar.events"}, cfg.Scopes)

	tok := u.OAuthToken()
	assert.Equal(t, "access", tok.AccessToken)
	assert.False(t, tok.Valid(), "token without expiry must be refreshed first")
}

func TestReadAuthorizedUser_MissingRefreshToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token": "x", "client_id": "id"}`), 0o600))

	_, err := ReadAuthorizedUser(path)
	assert.True(t, errors.Is(err, domain.ErrAuth))
}

func TestFileTokenSource_RefreshesAndPersists(t *testing.T) {
	refreshes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, WriteAuthorizedUser(path, &AuthorizedUser{
		Token:        "stale",
		RefreshToken: "refresh",
		TokenURI:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts, err := NewFileTokenSource(context.Background(), path, logger)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	// Cached until expiry.
	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, 1, refreshes)

	saved, err := ReadAuthorizedUser(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.Token)
	assert.Equal(t, "refresh", saved.RefreshToken)
	assert.Equal(t, srv.URL, saved.TokenURI)
	assert.WithinDuration(t, time.Now().Add(time.Hour), saved.Expiry, time.Minute)
}
