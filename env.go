package susi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lborres/susi/core"
)

const envPrefix = "SUSI_"

type envConfig struct {
	TokenSecret string        `env:"TOKEN_SECRET,required,notEmpty"`
	TokenIssuer string        `env:"TOKEN_ISSUER"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `env:"GITHUB_CALLBACK_URL"`
	GitHubScopes       []string      `env:"GITHUB_SCOPES" envSeparator:","`
	GitHubTimeout      time.Duration `env:"GITHUB_TIMEOUT" envDefault:"10s"`
	GitHubFetchEmails  bool          `env:"GITHUB_FETCH_EMAILS"`
	GitHubAuthURL      string        `env:"GITHUB_AUTH_URL"`
	GitHubTokenURL     string        `env:"GITHUB_TOKEN_URL"`
	GitHubAPIURL       string        `env:"GITHUB_API_URL"`

	BasePath          string `env:"BASE_PATH" envDefault:"/api/auth"`
	PasswordMinLength int    `env:"PASSWORD_MIN_LENGTH"`
	PasswordMaxLength int    `env:"PASSWORD_MAX_LENGTH" envDefault:"128"`
}

// LoadConfigFromEnv reads the SUSI_* environment variables into a Config.
// Database, HTTP and Logger are left for the caller to set.
func LoadConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %w", core.ErrConfiguration, err)
	}

	return Config{
		Secret:   raw.TokenSecret,
		Issuer:   raw.TokenIssuer,
		TokenTTL: raw.TokenTTL,
		Provider: core.ProviderConfig{
			ClientID:     raw.GitHubClientID,
			ClientSecret: raw.GitHubClientSecret,
			CallbackURL:  raw.GitHubCallbackURL,
			Scopes:       raw.GitHubScopes,
			Timeout:      raw.GitHubTimeout,
			FetchEmails:  raw.GitHubFetchEmails,
			AuthURL:      raw.GitHubAuthURL,
			TokenURL:     raw.GitHubTokenURL,
			APIURL:       raw.GitHubAPIURL,
		},
		BasePath:          raw.BasePath,
		PasswordMinLength: raw.PasswordMinLength,
		PasswordMaxLength: raw.PasswordMaxLength,
	}, nil
}
