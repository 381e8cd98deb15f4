// Command oauth-init runs the installed-app consent flow once and saves a
// read-only Sheets token for the sheets backend to use.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"contracts/internal/cli"
	applog "contracts/internal/log"
	gsheet "contracts/internal/sheets/google"
)

func main() {
	logger := cli.SetupLogger(os.Stderr, "info", "text")
	if err := cli.LoadEnvFile(); err != nil {
		cli.Exit(logger, "Failed to load .env file", err)
	}

	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		cli.Exit(logger, "OAuth client unavailable", err)
	}

	// The OAuth client must list http://localhost:<port>/callback as an
	// authorized redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(state, codeCh, errCh))
	srv := &http.Server{
		Addr:              net.JoinHostPort("localhost", redirectPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize read-only access to the contracts sheet:\n%s\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		cli.Exit(logger, "Authorization failed", err)
	case <-ctx.Done():
		cli.Exit(logger, "Authorization not completed", ctx.Err())
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		cli.Exit(logger, "Token exchange failed", err)
	}
	out := gsheet.TokenFileFromEnv()
	if err := gsheet.SaveToken(out, tok); err != nil {
		cli.Exit(logger, "Failed to save token", err)
	}
	logger.Info("Saved OAuth token", "path", out, applog.FieldOperation, "oauth_init")
}

// callbackHandler accepts one redirect carrying the expected state.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("consent denied: %s", e))
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		trySend(codeCh, code)
	}
}

func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
