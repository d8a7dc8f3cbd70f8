// ABOUTME: Gmail API mailer using a stored OAuth token
// ABOUTME: Token lives at an XDG path; messages are sent as raw MIME
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewOAuthConfig creates the OAuth2 config for sending through Gmail.
func NewOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
}

// TokenPath returns the XDG path of the stored Google token.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, "pipeboard", "google-credentials.json")
}

// SaveToken writes the token with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

type GmailMailer struct {
	svc *gmail.Service
}

// NewGmailMailer authenticates with the token stored at tokenPath.
func NewGmailMailer(ctx context.Context, tokenPath string) (*GmailMailer, error) {
	token, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	cfg := NewOAuthConfig()
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailMailer{svc: svc}, nil
}

func (m *GmailMailer) Send(ctx context.Context, msg Message) error {
	var buf bytes.Buffer
	if _, err := compose(msg, "").WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	raw := base64.URLEncoding.EncodeToString(buf.Bytes())
	if _, err := m.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email to %s via Gmail: %w", msg.To, err)
	}
	return nil
}
