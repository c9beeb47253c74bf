package services

import (
	"github.com/lborres/susi/core"
)

// SessionManager turns a resolved identity into a signed session token.
// Tokens are stateless; nothing is persisted here.
type SessionManager struct {
	signer core.TokenSigner
}

func NewSessionManager(signer core.TokenSigner) *SessionManager {
	return &SessionManager{signer: signer}
}

// IssueForProvider embeds the provider account id and cached access token.
func (sm *SessionManager) IssueForProvider(user *core.User) (string, error) {
	return sm.signer.Issue(core.SessionClaims{
		ProviderID:    user.ProviderID,
		ProviderToken: user.ProviderToken,
	})
}

// IssueForLocal embeds the identity id and username.
func (sm *SessionManager) IssueForLocal(user *core.User) (string, error) {
	return sm.signer.Issue(core.SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
	})
}

func (sm *SessionManager) Verify(token string) (*core.SessionClaims, error) {
	return sm.signer.Parse(token)
}
