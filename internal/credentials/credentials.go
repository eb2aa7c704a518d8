// Package credentials resolves which credential material is available in the
// installation directory and turns it into an OAuth2 token source for the
// Cloud Identity client.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GroupsScope is the OAuth scope required to manage Cloud Identity groups.
const GroupsScope = "https://www.googleapis.com/auth/cloud-identity.groups"

// Well-known file names inside the installation directory.
const (
	APIKeyFile             = "api_key.txt"
	ClientSecretFile       = "client_secret_oauth.json"
	TokenFile              = "token.json"
	ServiceAccountFile     = "service_account_credentials.json"
	DelegatedEmailFile     = "delegated_email.txt"
	serviceAccountKindName = "service-account"
	storedTokenKindName    = "oauth-token"
)

// Paths locates the local credential files.
type Paths struct {
	APIKey         string
	ClientSecret   string
	Token          string
	ServiceAccount string
	DelegatedEmail string
}

// DefaultPaths returns the well-known file locations inside home.
func DefaultPaths(home string) Paths {
	return Paths{
		APIKey:         filepath.Join(home, APIKeyFile),
		ClientSecret:   filepath.Join(home, ClientSecretFile),
		Token:          filepath.Join(home, TokenFile),
		ServiceAccount: filepath.Join(home, ServiceAccountFile),
		DelegatedEmail: filepath.Join(home, DelegatedEmailFile),
	}
}

// FatalError reports missing local configuration. The CLI aborts on it
// instead of rendering it as a command result.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string { return e.Msg }

// IsFatal reports whether err is, or wraps, a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Provider produces the bearer credential used for every API request.
// Implementations are ServiceAccount and StoredToken.
type Provider interface {
	// Kind names the credential source, for logging.
	Kind() string
	// APIKey returns the developer key attached to every request.
	APIKey() string
	// TokenSource returns the source of access tokens.
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// Resolve inspects the files named by paths and returns the provider to use.
// A service account wins when both its key and the delegated-email file are
// present; otherwise a previously stored OAuth token is required.
// Only local files are read; no network call is made.
func Resolve(paths Paths) (Provider, error) {
	if !exists(paths.APIKey) {
		return nil, &FatalError{Msg: fmt.Sprintf("Please create a file with your API key at %s", paths.APIKey)}
	}
	apiKey, err := readLine(paths.APIKey)
	if err != nil {
		return nil, fmt.Errorf("read api key: %w", err)
	}

	if exists(paths.ServiceAccount) && exists(paths.DelegatedEmail) {
		subject, err := readLine(paths.DelegatedEmail)
		if err != nil {
			return nil, fmt.Errorf("read delegated email: %w", err)
		}
		if subject == "" {
			return nil, &FatalError{Msg: fmt.Sprintf("Delegated email file %s is empty", paths.DelegatedEmail)}
		}
		key, err := os.ReadFile(paths.ServiceAccount)
		if err != nil {
			return nil, fmt.Errorf("read service account credentials: %w", err)
		}
		return &ServiceAccount{apiKey: apiKey, key: key, subject: subject}, nil
	}

	if !exists(paths.ClientSecret) {
		return nil, &FatalError{Msg: fmt.Sprintf("Please download your OAuth client file (%s) to %s",
			ClientSecretFile, paths.ClientSecret)}
	}
	if !exists(paths.Token) {
		return nil, &FatalError{Msg: "Please run `cigroups login` to set up authentication"}
	}

	secret, err := os.ReadFile(paths.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("read oauth client secret: %w", err)
	}
	tok, err := LoadToken(paths.Token)
	if err != nil {
		return nil, err
	}
	return &StoredToken{apiKey: apiKey, clientSecret: secret, token: tok}, nil
}

// ServiceAccount impersonates a user through domain-wide delegation.
type ServiceAccount struct {
	apiKey  string
	key     []byte
	subject string
}

func (s *ServiceAccount) Kind() string   { return serviceAccountKindName }
func (s *ServiceAccount) APIKey() string { return s.apiKey }

// Subject returns the delegated email the service account acts as.
func (s *ServiceAccount) Subject() string { return s.subject }

func (s *ServiceAccount) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(s.key, GroupsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	cfg.Subject = s.subject
	return cfg.TokenSource(ctx), nil
}

// StoredToken uses a token saved by the login flow, refreshing it with the
// OAuth client it was issued to.
type StoredToken struct {
	apiKey       string
	clientSecret []byte
	token        *oauth2.Token
}

func (s *StoredToken) Kind() string   { return storedTokenKindName }
func (s *StoredToken) APIKey() string { return s.apiKey }

func (s *StoredToken) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := google.ConfigFromJSON(s.clientSecret, GroupsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client secret: %w", err)
	}
	return cfg.TokenSource(ctx, s.token), nil
}

// LoadToken reads a JSON-encoded oauth2.Token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, &FatalError{Msg: fmt.Sprintf("Token file %s holds no token; run `cigroups login` again", path)}
	}
	return tok, nil
}

// SaveToken writes tok as JSON, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
