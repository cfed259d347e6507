package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"calendar_bot/internal/domain"
)

// Scopes requested for the bot's calendar access.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// AuthorizedUser is the token file format: an authorized-user credential holding both the
// OAuth client and the user's tokens.
type AuthorizedUser struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// OAuthConfig returns the client configuration stored with the tokens.
func (u *AuthorizedUser) OAuthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if u.TokenURI != "" {
		endpoint.TokenURL = u.TokenURI
	}

	scopes := u.Scopes
	if len(scopes) == 0 {
		scopes = Scopes
	}

	return &oauth2.Config{
		ClientID:     u.ClientID,
		ClientSecret: u.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// OAuthToken returns the stored tokens. A token without a recorded expiry is treated as
// expired so it is refreshed before first use.
func (u *AuthorizedUser) OAuthToken() *oauth2.Token {
	expiry := u.Expiry
	if expiry.IsZero() {
		expiry = time.Unix(1, 0)
	}

	return &oauth2.Token{
		AccessToken:  u.Token,
		RefreshToken: u.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}

// NewAuthorizedUser combines a client configuration and a token into the token file format.
func NewAuthorizedUser(cfg *oauth2.Config, tok *oauth2.Token) *AuthorizedUser {
	return &AuthorizedUser{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Expiry:       tok.Expiry,
	}
}

// ReadAuthorizedUser loads a token file.
func ReadAuthorizedUser(path string) (*AuthorizedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var u AuthorizedUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	if u.RefreshToken == "" || u.ClientID == "" {
		return nil, fmt.Errorf("token file %s has no refresh token or client id: %w", path, domain.ErrAuth)
	}

	return &u, nil
}

// WriteAuthorizedUser saves a token file readable only by the owner.
func WriteAuthorizedUser(path string, u *AuthorizedUser) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}

	return nil
}

// FileTokenSource refreshes tokens from a token file and writes refreshed tokens back, so a
// restart does not need a fresh consent.
type FileTokenSource struct {
	path   string
	cfg    *oauth2.Config
	base   oauth2.TokenSource
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewFileTokenSource reads the token file at path.
func NewFileTokenSource(ctx context.Context, path string, logger *slog.Logger) (*FileTokenSource, error) {
	u, err := ReadAuthorizedUser(path)
	if err != nil {
		return nil, err
	}

	cfg := u.OAuthConfig()
	tok := u.OAuthToken()

	return &FileTokenSource{
		path:   path,
		cfg:    cfg,
		base:   oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok)),
		logger: logger.With("source", SourceID),
		last:   tok.AccessToken,
	}, nil
}

// Token returns a valid token, refreshing it when expired.
func (s *FileTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh calendar token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	if err := WriteAuthorizedUser(s.path, NewAuthorizedUser(s.cfg, tok)); err != nil {
		// The refreshed token stays usable in memory.
		s.logger.Warn("failed to persist refreshed token", "path", s.path, "error", err)
	} else {
		s.logger.Info("calendar token refreshed", "expiry", tok.Expiry)
	}

	return tok, nil
}
