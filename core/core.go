package core

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ProviderConfig holds the OAuth2 client registration for the provider.
// ClientSecret is only ever sent to the token endpoint.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	// Timeout bounds each outbound provider call. Zero uses the client default.
	Timeout time.Duration

	// FetchEmails also reads /user/emails; needs the user:email scope.
	FetchEmails bool

	// Endpoint overrides, for GitHub Enterprise or tests
	AuthURL  string
	TokenURL string
	APIURL   string
}

type Config struct {
	Secret string

	Database UserStorage

	// Optional config
	Issuer string

	// TokenTTL bounds session tokens. Zero uses 24h; negative disables exp.
	TokenTTL time.Duration

	Provider          ProviderConfig
	ProviderClient    ProviderClient
	PasswordHasher    PasswordHandler
	PasswordMinLength int
	PasswordMaxLength int
	HTTP              HTTPAdapter
	BasePath          string
	Logger            logrus.FieldLogger
}
