package core

import "time"

// User represents an account in the system
//
// This is the "identity" - who someone is. A user is known by a local
// username, a provider account id, or both; each is unique on its own.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username,omitempty"`
	Emails   []string `json:"emails"`

	ProviderID         string `json:"providerId,omitempty"`
	ProviderLogin      string `json:"providerLogin,omitempty"`
	ProviderEmail      string `json:"providerEmail,omitempty"`
	ProviderProfileURL string `json:"providerProfileUrl,omitempty"`

	PasswordHash string `json:"-"` // Never expose in JSON

	// ProviderToken caches the access token from the latest provider
	// exchange so it can be embedded in the session token. It is not a
	// credential store and is never refreshed on its own.
	ProviderToken string `json:"-"` // Never expose in JSON

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasEmail reports whether email is already in the user's email set.
func (u *User) HasEmail(email string) bool {
	for _, e := range u.Emails {
		if e == email {
			return true
		}
	}
	return false
}

// AddEmails appends the non-empty addresses that are not already present.
func (u *User) AddEmails(emails ...string) {
	for _, e := range emails {
		if e == "" || u.HasEmail(e) {
			continue
		}
		u.Emails = append(u.Emails, e)
	}
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Emails != nil {
		c.Emails = append([]string(nil), u.Emails...)
	}
	return &c
}

// ProviderGrant is the result of trading an authorization code
type ProviderGrant struct {
	AccessToken string `json:"-"`
	TokenType   string `json:"tokenType"`
	Scope       string `json:"scope"`
}

// ProviderProfile is the validated account profile reported by the provider.
// Only Account ID and Login are guaranteed to be set.
type ProviderProfile struct {
	AccountID  string
	Login      string
	Email      string
	Emails     []string
	ProfileURL string

	AccessToken string `json:"-"`
}

// SessionClaims are the subject claims embedded in a session token.
//
// Provider logins carry ProviderID and ProviderToken; local logins carry
// UserID and Username.
type SessionClaims struct {
	UserID        string `json:"id,omitempty"`
	Username      string `json:"username,omitempty"`
	ProviderID    string `json:"providerId,omitempty"`
	ProviderToken string `json:"providerToken,omitempty"`
}

// RegisterInput contains the credentials for a new local account
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginInput contains the credentials for a local login
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthorizeInput carries the authorization code from the provider callback
type AuthorizeInput struct {
	Code string `json:"code"`
}

// AuthResult is the model returned to clients after authenticating
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
