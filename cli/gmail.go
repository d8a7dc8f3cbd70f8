// ABOUTME: Gmail authorization command
// ABOUTME: Runs the OAuth flow once and stores the token the gmail mailer sends with
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/mailer"
	"golang.org/x/oauth2"
)

// GmailLoginCommand authorizes the server to send mail through Gmail.
func GmailLoginCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("gmail-login", flag.ExitOnError)
	tokenPath := fs.String("token", "", "Where to store the token (default: server.mailer.gmail_token)")
	_ = fs.Parse(args)

	path := *tokenPath
	if path == "" {
		path = cfg.Server.Mailer.GmailToken
	}
	if path == "" {
		path = mailer.TokenPath()
	}

	ctx := context.Background()
	oauthCfg := mailer.NewOAuthConfig()
	if oauthCfg.ClientID == "" || oauthCfg.ClientSecret == "" {
		return fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}

	tokens := make(chan *oauth2.Token, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errs <- fmt.Errorf("no authorization code received")
			return
		}
		token, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			errs <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}
		tokens <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: "localhost:8080", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	authURL := oauthCfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	_, _ = fmt.Fprintln(stdout, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(stdout, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case token := <-tokens:
		_ = server.Shutdown(ctx)
		if err := mailer.SaveToken(path, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "\n✓ Authenticated successfully\n")
		_, _ = fmt.Fprintf(stdout, "✓ Token saved to %s\n", path)
		_, _ = fmt.Fprintln(stdout, "Set server.mailer.kind to gmail to send with it.")
		return nil
	case err := <-errs:
		_ = server.Shutdown(ctx)
		return fmt.Errorf("OAuth flow failed: %w", err)
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
