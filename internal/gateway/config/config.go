package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"grantdraft/internal/prompt"
	"grantdraft/internal/session"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8081"`
	Env       string `env:"APP_ENV" envDefault:"local"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Gemini     GeminiConfig
	Credential CredentialConfig
	Prompt     PromptConfig
	Session    SessionConfig
}

type GeminiConfig struct {
	APIKey         string        `env:"GEMINI_API_KEY"`
	FallbackAPIKey string        `env:"API_KEY"`
	BaseURL        string        `env:"GEMINI_BASE_URL"`
	Timeout        time.Duration `env:"GENERATION_TIMEOUT"`
	RPS            float64       `env:"GENERATION_RPS"`
	Burst          int           `env:"GENERATION_BURST" envDefault:"1"`
}

type CredentialConfig struct {
	File        string `env:"CREDENTIAL_FILE" envDefault:"tmp/credential.json"`
	PostgresDSN string `env:"CREDENTIAL_STORE_PG_DSN"`
	Policy      string `env:"CREDENTIAL_POLICY" envDefault:"auth"`
	// AllowOverride lets users replace a configured key. Honored only when
	// APP_ENV is local.
	AllowOverride bool `env:"CREDENTIAL_ALLOW_OVERRIDE"`
}

type PromptConfig struct {
	Style      string `env:"PROMPT_STYLE" envDefault:"standard"`
	Sanitize   bool   `env:"PROMPT_SANITIZE" envDefault:"true"`
	FieldLimit int    `env:"PROMPT_FIELD_LIMIT" envDefault:"2000"`
}

type SessionConfig struct {
	TTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	Max int           `env:"SESSION_MAX" envDefault:"1024"`
}

// Load reads .env (if present), then the process environment, then args.
// The -port flag wins over PORT.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", "", "server port (overrides PORT)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Port = normalizePort(firstNonEmpty(*port, cfg.Port))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := prompt.Lookup(c.Prompt.Style); err != nil {
		return err
	}
	if _, err := session.ParsePolicy(c.Credential.Policy); err != nil {
		return err
	}
	if c.Prompt.FieldLimit < 0 {
		return fmt.Errorf("PROMPT_FIELD_LIMIT must not be negative")
	}
	return nil
}

// APIKey returns the configured Gemini key. API_KEY is accepted as a
// fallback name.
func (c *Config) APIKey() string {
	return strings.TrimSpace(firstNonEmpty(c.Gemini.APIKey, c.Gemini.FallbackAPIKey))
}

func (c *Config) IsLocal() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "local")
}

// CredentialOverridable reports whether a user-entered key may replace the
// configured one.
func (c *Config) CredentialOverridable() bool {
	return c.Credential.AllowOverride && c.IsLocal()
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
