// ABOUTME: Configuration loading for server, client and logging
// ABOUTME: Layers defaults, a YAML file at XDG paths, .env and PIPEBOARD_* environment overrides
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/pipeboard/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "pipeboard"

type Config struct {
	Server ServerConfig   `yaml:"server"`
	Client ClientConfig   `yaml:"client"`
	Log    logging.Config `yaml:"log"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	DBPath    string        `yaml:"db_path"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Mailer    MailerConfig  `yaml:"mailer"`
}

// MailerConfig picks how the server delivers email: "log", "smtp" or "gmail".
type MailerConfig struct {
	Kind         string `yaml:"kind"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	GmailToken   string `yaml:"gmail_token"`
}

type ClientConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	Timeout        time.Duration `yaml:"timeout"`
	SearchDebounce time.Duration `yaml:"search_debounce"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     "127.0.0.1:8080",
			DBPath:   filepath.Join(xdg.DataHome, appName, appName+".db"),
			TokenTTL: 24 * time.Hour,
			Mailer: MailerConfig{
				Kind:     "log",
				SMTPPort: 587,
			},
		},
		Client: ClientConfig{
			BaseURL:        "http://127.0.0.1:8080",
			Timeout:        10 * time.Second,
			SearchDebounce: 275 * time.Millisecond,
		},
		Log: logging.Config{
			Level: "info",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/pipeboard/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Load reads the YAML file at path (DefaultPath when empty). A missing file
// is not an error. Values from .env and PIPEBOARD_* variables win over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer func() { _ = f.Close() }()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}

	// .env in the working directory is optional
	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"PIPEBOARD_ADDR":          &cfg.Server.Addr,
		"PIPEBOARD_DB_PATH":       &cfg.Server.DBPath,
		"PIPEBOARD_JWT_SECRET":    &cfg.Server.JWTSecret,
		"PIPEBOARD_MAILER":        &cfg.Server.Mailer.Kind,
		"PIPEBOARD_SMTP_HOST":     &cfg.Server.Mailer.SMTPHost,
		"PIPEBOARD_SMTP_USER":     &cfg.Server.Mailer.SMTPUser,
		"PIPEBOARD_SMTP_PASSWORD": &cfg.Server.Mailer.SMTPPassword,
		"PIPEBOARD_FROM_EMAIL":    &cfg.Server.Mailer.FromEmail,
		"PIPEBOARD_GMAIL_TOKEN":   &cfg.Server.Mailer.GmailToken,
		"PIPEBOARD_URL":           &cfg.Client.BaseURL,
		"PIPEBOARD_TOKEN":         &cfg.Client.Token,
		"PIPEBOARD_LOG_LEVEL":     &cfg.Log.Level,
		"PIPEBOARD_LOG_FILE":      &cfg.Log.File,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PIPEBOARD_TOKEN_TTL":       &cfg.Server.TokenTTL,
		"PIPEBOARD_TIMEOUT":         &cfg.Client.Timeout,
		"PIPEBOARD_SEARCH_DEBOUNCE": &cfg.Client.SearchDebounce,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("PIPEBOARD_SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PIPEBOARD_SMTP_PORT: %w", err)
		}
		cfg.Server.Mailer.SMTPPort = port
	}
	if v := os.Getenv("PIPEBOARD_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PIPEBOARD_LOG_JSON: %w", err)
		}
		cfg.Log.JSON = b
	}
	return nil
}
