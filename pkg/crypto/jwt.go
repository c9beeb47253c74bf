package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lborres/susi/core"
)

var _ core.TokenSigner = (*JWTSigner)(nil)

// JWTConfig configures session token signing.
type JWTConfig struct {
	Secret string
	Issuer string
	// TTL sets the exp claim. Zero issues tokens without expiry.
	TTL time.Duration
	Now func() time.Time
}

// JWTSigner issues HS256 session tokens.
//
// The signature covers the whole claim set: the subject claims from
// core.SessionClaims plus iat, jti and, when configured, exp and iss.
type JWTSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// sessionClaims is the internal claims type used for JWT signing and parsing.
type sessionClaims struct {
	core.SessionClaims
	jwt.RegisteredClaims
}

func NewJWTSigner(cfg JWTConfig) *JWTSigner {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JWTSigner{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    now,
	}
}

func (s *JWTSigner) Issue(claims core.SessionClaims) (string, error) {
	if len(s.secret) == 0 {
		return "", core.ErrSecretRequired
	}

	now := s.now()
	registered := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Issuer:   s.issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		registered.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionClaims:    claims,
		RegisteredClaims: registered,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTSigner) Parse(token string) (*core.SessionClaims, error) {
	if len(s.secret) == 0 {
		return nil, core.ErrSecretRequired
	}
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}

	claims := parsed.SessionClaims
	if claims.ProviderID == "" && claims.Username == "" {
		return nil, core.ErrInvalidToken
	}
	return &claims, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return core.ErrSessionExpired
	}
	return core.ErrInvalidToken
}
