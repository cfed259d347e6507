// Command calendar-auth authorizes the bot's Google Calendar access and writes the token
// file the bot reads. An existing token is refreshed in place when possible; otherwise a
// browser consent is run against a loopback redirect.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"calendar_bot/internal/source/gcal"
)

const consentTimeout = 5 * time.Minute

func main() {
	credentialsPath := flag.String("credentials", "credentials.json", "OAuth client secrets downloaded from the Google Cloud console")
	tokenPath := flag.String("token", "token.json", "token file to create or refresh")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := refresh(ctx, *tokenPath)
	if err == nil {
		fmt.Println("Authentication successful!")
		return
	}
	logger.Info("existing token unusable, starting consent", "error", err)

	if err := authorize(ctx, *credentialsPath, *tokenPath); err != nil {
		logger.Error("authorization failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Authentication successful!")
}

// refresh exchanges the stored refresh token for a new access token and saves it.
func refresh(ctx context.Context, tokenPath string) error {
	u, err := gcal.ReadAuthorizedUser(tokenPath)
	if err != nil {
		return err
	}

	cfg := u.OAuthConfig()
	tok, err := cfg.TokenSource(ctx, u.OAuthToken()).Token()
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = u.RefreshToken
	}

	return gcal.WriteAuthorizedUser(tokenPath, gcal.NewAuthorizedUser(cfg, tok))
}

func authorize(ctx context.Context, credentialsPath, tokenPath string) error {
	secrets, err := os.ReadFile(credentialsPath)
	if err != nil {
		return fmt.Errorf("read client secrets: %w", err)
	}

	cfg, err := google.ConfigFromJSON(secrets, gcal.Scopes...)
	if err != nil {
		return fmt.Errorf("parse client secrets: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}
	cfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr())

	state, err := randomState()
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()

	codes := make(chan string, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state || q.Get("code") == "" {
				http.Error(w, "invalid authorization response", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}),
	}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	fmt.Printf("Open this URL in your browser to authorize calendar access:\n\n%s\n\n", authURL)

	ctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codes:
	case <-ctx.Done():
		return fmt.Errorf("wait for consent: %w", ctx.Err())
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return errors.New("no refresh token returned, revoke the app's access and try again")
	}

	return gcal.WriteAuthorizedUser(tokenPath, gcal.NewAuthorizedUser(cfg, tok))
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
