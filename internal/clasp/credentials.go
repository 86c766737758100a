// pattern: Imperative Shell

package clasp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNotLoggedIn is returned when clasp credentials are missing or unusable.
var ErrNotLoggedIn = errors.New("clasp authentication failed (try `clasp login`)")

// Scopes requested for the Apps Script and Drive listing calls. The token
// clasp stores already carries them; they are only used on refresh.
var Scopes = []string{
	"https://www.googleapis.com/auth/script.projects",
	"https://www.googleapis.com/auth/script.deployments",
	"https://www.googleapis.com/auth/drive.metadata.readonly",
}

// Credential file layouts.
const (
	LayoutLegacy  = "legacy"
	LayoutProfile = "profile"
)

// Credentials are the OAuth client settings and token clasp stores after login.
type Credentials struct {
	Path         string
	Layout       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Token        *oauth2.Token
}

// clasprcFile covers both the single-token layout written by older clasp
// releases and the per-profile layout ("tokens.default") of newer ones.
type clasprcFile struct {
	Token                *clasprcToken            `json:"token"`
	OAuth2ClientSettings *clasprcClientSettings   `json:"oauth2ClientSettings"`
	Tokens               map[string]*clasprcToken `json:"tokens"`
}

type clasprcClientSettings struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
}

type clasprcToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiryDate   int64  `json:"expiry_date"` // milliseconds since epoch
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (t *clasprcToken) oauth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiryDate > 0 {
		tok.Expiry = time.UnixMilli(t.ExpiryDate)
	}
	return tok
}

// LoadCredentials reads the clasp credentials file at path.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	return ParseCredentials(path, data)
}

// ParseCredentials decodes clasprc content. path is recorded for display only.
func ParseCredentials(path string, data []byte) (*Credentials, error) {
	var file clasprcFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrNotLoggedIn, path, err)
	}

	creds := &Credentials{Path: path}
	switch {
	case file.Tokens != nil && file.Tokens["default"] != nil:
		tok := file.Tokens["default"]
		creds.Layout = LayoutProfile
		creds.ClientID = tok.ClientID
		creds.ClientSecret = tok.ClientSecret
		creds.Token = tok.oauth2Token()
	case file.Token != nil:
		creds.Layout = LayoutLegacy
		creds.Token = file.Token.oauth2Token()
		if s := file.OAuth2ClientSettings; s != nil {
			creds.ClientID = s.ClientID
			creds.ClientSecret = s.ClientSecret
			creds.RedirectURL = s.RedirectURI
		}
	default:
		return nil, fmt.Errorf("%w: no token in %s", ErrNotLoggedIn, path)
	}

	if creds.Token.AccessToken == "" && creds.Token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: empty token in %s", ErrNotLoggedIn, path)
	}
	return creds, nil
}

// OAuthConfig returns the OAuth2 client configuration for refreshing the token.
func (c *Credentials) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// TokenSource returns a token source that refreshes the stored token as needed.
func (c *Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	return c.OAuthConfig().TokenSource(ctx, c.Token)
}

// ReloadableTokenSource serves tokens from the clasp credentials file and
// swaps in new ones when Reload is called, so a `clasp login` in another
// terminal takes effect without restarting.
type ReloadableTokenSource struct {
	ctx  context.Context
	path string

	mu    sync.Mutex
	creds *Credentials
	src   oauth2.TokenSource
}

// NewReloadableTokenSource loads the credentials at path.
func NewReloadableTokenSource(ctx context.Context, path string) (*ReloadableTokenSource, error) {
	r := &ReloadableTokenSource{ctx: ctx, path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the credentials file. On failure the previous token stays
// in use.
func (r *ReloadableTokenSource) Reload() error {
	creds, err := LoadCredentials(r.path)
	if err != nil {
		return err
	}
	src := creds.TokenSource(r.ctx)

	r.mu.Lock()
	r.creds = creds
	r.src = src
	r.mu.Unlock()
	return nil
}

// Credentials returns the credentials currently in use.
func (r *ReloadableTokenSource) Credentials() *Credentials {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creds
}

// Token implements oauth2.TokenSource.
func (r *ReloadableTokenSource) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	src := r.src
	r.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	return tok, nil
}
