// Package github implements delegated authentication against GitHub's
// OAuth2 web application flow.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/lborres/susi/core"
)

const (
	providerName = "github"

	DefaultAPIURL  = "https://api.github.com"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 1 << 20

	// oauth2MissingToken is the text golang.org/x/oauth2 (v0.30.0,
	// internal/token.go) returns for a 200 token response with no
	// access_token. oauth2 exposes no typed error for it.
	oauth2MissingToken = "server response missing access_token"
)

var _ core.ProviderClient = (*Client)(nil)

// Client performs the code exchange and profile fetch against GitHub.
// It returns identity facts only; no user or session decisions are made here.
type Client struct {
	oauth       *oauth2.Config
	apiURL      string
	timeout     time.Duration
	fetchEmails bool
	httpClient  *http.Client
	log         logrus.FieldLogger
}

type Option func(*Client)

// WithHTTPClient sets the base client used for every outbound call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a client from the provider configuration. Missing credentials
// are reported when the flow that needs them runs, not here.
func New(cfg core.ProviderConfig, opts ...Option) *Client {
	endpoint := oauthgithub.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		apiURL:      apiURL,
		timeout:     timeout,
		fetchEmails: cfg.FetchEmails,
		httpClient:  http.DefaultClient,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("provider", providerName)
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// LoginURL builds the authorization URL the user agent is sent to. It
// carries no state parameter; callers that bind the flow to a browser
// session use LoginURLWithState.
func (c *Client) LoginURL() (string, error) {
	return c.LoginURLWithState("")
}

// LoginURLWithState builds the authorization URL with an opaque state value
// that GitHub echoes back to the callback. Generating and checking the value
// is up to the caller.
func (c *Client) LoginURLWithState(state string) (string, error) {
	if c.oauth.ClientID == "" || c.oauth.RedirectURL == "" {
		return "", fmt.Errorf("%w: github client id or callback url not set", core.ErrConfiguration)
	}
	return c.oauth.AuthCodeURL(state), nil
}

// ExchangeCode trades a one-time authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*core.ProviderGrant, error) {
	if code == "" {
		return nil, core.ErrMissingCredential
	}
	if c.oauth.ClientID == "" || c.oauth.ClientSecret == "" {
		return nil, fmt.Errorf("%w: github client id or secret not set", core.ErrConfiguration)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, c.exchangeError(err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access token", core.ErrInvalidGrant)
	}

	scope, _ := token.Extra("scope").(string)
	return &core.ProviderGrant{
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
		Scope:       scope,
	}, nil
}

type githubUser struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	Email   string `json:"email"`
	HTMLURL string `json:"html_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// FetchProfile reads the authenticated user's profile with the access token
// as a bearer credential and validates its shape.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*core.ProviderProfile, error) {
	if accessToken == "" {
		return nil, core.ErrInvalidGrant
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	api := c.bearerClient(ctx, accessToken)

	var user githubUser
	if err := c.getJSON(ctx, api, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID <= 0 || user.Login == "" {
		return nil, fmt.Errorf("%w: profile is missing id or login", core.ErrUpstreamProtocol)
	}

	profile := &core.ProviderProfile{
		AccountID:   strconv.FormatInt(user.ID, 10),
		Login:       user.Login,
		Email:       user.Email,
		ProfileURL:  user.HTMLURL,
		AccessToken: accessToken,
	}
	if user.Email != "" {
		profile.Emails = []string{user.Email}
	}

	if c.fetchEmails {
		c.addVerifiedEmails(ctx, api, profile)
	}

	return profile, nil
}

// addVerifiedEmails is best effort; the profile is already trusted.
func (c *Client) addVerifiedEmails(ctx context.Context, api *http.Client, profile *core.ProviderProfile) {
	var emails []githubEmail
	if err := c.getJSON(ctx, api, "/user/emails", &emails); err != nil {
		c.log.WithFields(logrus.Fields{
			"account_id": profile.AccountID,
			"error":      err.Error(),
		}).Warn("could not list provider emails")
		return
	}

	for _, e := range emails {
		if !e.Verified || e.Email == "" {
			continue
		}
		if e.Primary && profile.Email == "" {
			profile.Email = e.Email
		}
		if !contains(profile.Emails, e.Email) {
			profile.Emails = append(profile.Emails, e.Email)
		}
	}
}

func (c *Client) getJSON(ctx context.Context, api *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", core.ErrUpstreamProtocol, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := api.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"path": path, "error": scrub(err)}).Warn("provider request failed")
		return fmt.Errorf("%w: %s", core.ErrUpstreamUnavailable, scrub(err))
	}
	defer resp.Body.Close()

	switch {
	case rateLimited(resp):
		c.log.WithFields(logrus.Fields{
			"path":        path,
			"status":      resp.StatusCode,
			"retry_after": resp.Header.Get("Retry-After"),
		}).Warn("provider rate limit reached")
		return fmt.Errorf("%w: rate limited (%d)", core.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: provider rejected access token (%d)", core.ErrInvalidGrant, resp.StatusCode)
	case resp.StatusCode >= 500:
		c.log.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Warn("provider returned server error")
		return fmt.Errorf("%w: status %d", core.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", core.ErrUpstreamProtocol, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", core.ErrUpstreamUnavailable, ctx.Err())
		}
		return fmt.Errorf("%w: decode %s: %v", core.ErrUpstreamProtocol, path, err)
	}
	return nil
}

// rateLimited reports a primary or secondary GitHub rate limit. Both come
// back as 429, or as 403 with an exhausted quota or a Retry-After header.
func rateLimited(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
	}
	return false
}

// bearerClient returns an HTTP client that sends the access token as
// "Authorization: Bearer <token>" over the configured base client.
func (c *Client) bearerClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return oauth2.NewClient(ctx, src)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), cancel
}

// exchangeError classifies a token endpoint failure. GitHub reports a bad
// or reused code with status 200 and an "error" field, which oauth2 turns
// into a RetrieveError.
func (c *Client) exchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		c.log.WithFields(logrus.Fields{
			"status":     status,
			"error_code": rerr.ErrorCode,
		}).Warn("provider token exchange rejected")

		if status >= 500 || status == http.StatusTooManyRequests {
			return fmt.Errorf("%w: token endpoint status %d", core.ErrUpstreamUnavailable, status)
		}
		if rerr.ErrorCode != "" {
			return fmt.Errorf("%w: %s", core.ErrInvalidGrant, rerr.ErrorCode)
		}
		return fmt.Errorf("%w: token endpoint status %d", core.ErrInvalidGrant, status)
	}

	if strings.Contains(err.Error(), oauth2MissingToken) {
		return fmt.Errorf("%w: token response has no access token", core.ErrInvalidGrant)
	}

	c.log.WithField("error", scrub(err)).Warn("provider token exchange failed")
	return fmt.Errorf("%w: %s", core.ErrUpstreamUnavailable, scrub(err))
}

// scrub drops the request URL from transport errors; the token endpoint
// URL can carry the code and client secret when params are sent in the query.
func scrub(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}
	var uerr interface{ Unwrap() error }
	if errors.As(err, &uerr) {
		if inner := uerr.Unwrap(); inner != nil {
			return inner.Error()
		}
	}
	return "transport error"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
