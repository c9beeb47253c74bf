package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lborres/susi/core"
)

// FakeUserStorage is a test-only fake implementing core.UserStorage.
// It enforces the same uniqueness rules as the real adapters and exposes
// error fields and hooks for behavior injection.
type FakeUserStorage struct {
	mu         sync.RWMutex
	users      map[string]*core.User
	byUsername map[string]string
	byProvider map[string]string

	findErr   error
	insertErr error
	updateErr error

	// beforeInsert runs outside the lock just before an insert is applied,
	// letting a test slip a competing record in.
	beforeInsert func(u *core.User)

	inserts atomic.Int32
	updates atomic.Int32
}

var _ core.UserStorage = (*FakeUserStorage)(nil)

func NewFakeUserStorage() *FakeUserStorage {
	return &FakeUserStorage{
		users:      make(map[string]*core.User),
		byUsername: make(map[string]string),
		byProvider: make(map[string]string),
	}
}

func (f *FakeUserStorage) FindUserByProviderID(_ context.Context, providerID string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	id, ok := f.byProvider[providerID]
	if !ok || providerID == "" {
		return nil, core.ErrUserNotFound
	}
	return f.users[id].Clone(), nil
}

func (f *FakeUserStorage) FindUserByUsername(_ context.Context, username string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	id, ok := f.byUsername[username]
	if !ok || username == "" {
		return nil, core.ErrUserNotFound
	}
	return f.users[id].Clone(), nil
}

func (f *FakeUserStorage) InsertUser(_ context.Context, u *core.User) error {
	if hook := f.takeBeforeInsert(); hook != nil {
		hook(u)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if u.Username == "" && u.ProviderID == "" {
		return core.ErrUserIdentifierRequired
	}
	if u.Username != "" {
		if _, exists := f.byUsername[u.Username]; exists {
			return core.ErrUsernameConflict
		}
	}
	if u.ProviderID != "" {
		if _, exists := f.byProvider[u.ProviderID]; exists {
			return core.ErrProviderIDConflict
		}
	}
	f.put(u)
	f.inserts.Add(1)
	return nil
}

func (f *FakeUserStorage) UpdateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if u.Username == "" && u.ProviderID == "" {
		return core.ErrUserIdentifierRequired
	}
	if _, exists := f.users[u.ID]; !exists {
		return core.ErrUserNotFound
	}
	f.put(u)
	f.updates.Add(1)
	return nil
}

func (f *FakeUserStorage) put(u *core.User) {
	f.users[u.ID] = u.Clone()
	if u.Username != "" {
		f.byUsername[u.Username] = u.ID
	}
	if u.ProviderID != "" {
		f.byProvider[u.ProviderID] = u.ID
	}
}

// takeBeforeInsert returns the hook once, so a forced race happens a single time.
func (f *FakeUserStorage) takeBeforeInsert() func(*core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hook := f.beforeInsert
	f.beforeInsert = nil
	return hook
}

// Seed stores a user directly, bypassing uniqueness checks and counters.
func (f *FakeUserStorage) Seed(u *core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(u)
}

func (f *FakeUserStorage) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.users)
}

func (f *FakeUserStorage) Inserts() int { return int(f.inserts.Load()) }
func (f *FakeUserStorage) Updates() int { return int(f.updates.Load()) }

// FakeProviderClient is a test-only fake implementing core.ProviderClient.
// Codes and tokens map to canned grants and profiles.
type FakeProviderClient struct {
	mu       sync.RWMutex
	grants   map[string]*core.ProviderGrant
	profiles map[string]*core.ProviderProfile

	loginURL    string
	loginURLErr error
	exchangeErr error
	profileErr  error

	exchangeCalls atomic.Int32
	profileCalls  atomic.Int32
}

var _ core.ProviderClient = (*FakeProviderClient)(nil)

func NewFakeProviderClient() *FakeProviderClient {
	return &FakeProviderClient{
		grants:   make(map[string]*core.ProviderGrant),
		profiles: make(map[string]*core.ProviderProfile),
		loginURL: "https://github.com/login/oauth/authorize?client_id=test",
	}
}

// AddGrant makes code exchange to accessToken and accessToken resolve to profile.
func (f *FakeProviderClient) AddGrant(code, accessToken string, profile core.ProviderProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[code] = &core.ProviderGrant{AccessToken: accessToken, TokenType: "bearer"}
	profile.AccessToken = accessToken
	f.profiles[accessToken] = &profile
}

func (f *FakeProviderClient) LoginURL() (string, error) {
	if f.loginURLErr != nil {
		return "", f.loginURLErr
	}
	return f.loginURL, nil
}

func (f *FakeProviderClient) ExchangeCode(_ context.Context, code string) (*core.ProviderGrant, error) {
	f.exchangeCalls.Add(1)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	grant, ok := f.grants[code]
	if !ok {
		return nil, core.ErrInvalidGrant
	}
	g := *grant
	return &g, nil
}

func (f *FakeProviderClient) FetchProfile(_ context.Context, accessToken string) (*core.ProviderProfile, error) {
	f.profileCalls.Add(1)
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	profile, ok := f.profiles[accessToken]
	if !ok {
		return nil, core.ErrInvalidGrant
	}
	p := *profile
	p.Emails = append([]string(nil), profile.Emails...)
	return &p, nil
}

func (f *FakeProviderClient) ExchangeCalls() int { return int(f.exchangeCalls.Load()) }
func (f *FakeProviderClient) ProfileCalls() int  { return int(f.profileCalls.Load()) }
