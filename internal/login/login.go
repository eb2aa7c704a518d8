// Package login runs the interactive OAuth2 flow that creates the token file
// used by the stored-token credential provider.
package login

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/int128/oauth2cli"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"cigroups/internal/credentials"
)

// GoogleIssuer is the OpenID Connect issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// Config holds login flow configuration.
type Config struct {
	ClientSecretPath string
	TokenPath        string

	// BindAddress is where the local callback server listens.
	// Empty lets oauth2cli pick a free port on 127.0.0.1.
	BindAddress []string

	// Issuer verifies the returned ID token. Empty skips verification.
	Issuer string

	// OpenBrowser opens the consent URL. Defaults to the system browser.
	OpenBrowser func(url string) error

	Logger *slog.Logger
}

// Result describes a completed login.
type Result struct {
	Email     string
	TokenPath string
	Expiry    time.Time
}

// OAuthConfig loads the OAuth client from a client-secret JSON file and
// requests the groups scope plus the identity scopes used to report who
// logged in.
func OAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientSecretPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &credentials.FatalError{Msg: fmt.Sprintf(
				"Please download your OAuth client file (%s) to %s", credentials.ClientSecretFile, clientSecretPath)}
		}
		return nil, fmt.Errorf("read oauth client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, credentials.GroupsScope, oidc.ScopeOpenID, "email")
	if err != nil {
		return nil, fmt.Errorf("parse oauth client secret: %w", err)
	}
	return cfg, nil
}

// Run performs the authorization code flow with PKCE: it starts a local
// callback server, opens the browser on it, waits for the code exchange and
// saves the resulting token to cfg.TokenPath.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	open := cfg.OpenBrowser
	if open == nil {
		open = browser.OpenURL
	}

	oauthCfg, err := OAuthConfig(cfg.ClientSecretPath)
	if err != nil {
		return nil, err
	}

	// Desktop client secrets list a port-less http://localhost; oauth2cli
	// only derives the redirect from the bound listener when this is empty.
	oauthCfg.RedirectURL = ""

	verifier := oauth2.GenerateVerifier()
	ready := make(chan string, 1)
	defer close(ready)

	cliCfg := oauth2cli.Config{
		OAuth2Config: *oauthCfg,
		AuthCodeOptions: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce, // Google only returns a refresh token on consent
			oauth2.S256ChallengeOption(verifier),
		},
		TokenRequestOptions:    []oauth2.AuthCodeOption{oauth2.VerifierOption(verifier)},
		LocalServerBindAddress: cfg.BindAddress,
		LocalServerReadyChan:   ready,
		Logf: func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	}

	var token *oauth2.Token
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		select {
		case url := <-ready:
			logger.Info("opening browser for authentication", "url", url)
			if err := open(url); err != nil {
				fmt.Fprintf(os.Stderr, "Could not open a browser. Visit %s to continue.\n", url)
			}
			return nil
		case <-egCtx.Done():
			return fmt.Errorf("context done while waiting for authorization: %w", egCtx.Err())
		}
	})
	eg.Go(func() error {
		tok, err := oauth2cli.GetToken(egCtx, cliCfg)
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		token = tok
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	email := ""
	if cfg.Issuer != "" {
		email, err = verifiedEmail(ctx, cfg.Issuer, oauthCfg.ClientID, token)
		if err != nil {
			// The token is still usable for the groups API.
			logger.Warn("could not verify identity token", "error", err)
		}
	}

	if err := credentials.SaveToken(cfg.TokenPath, token); err != nil {
		return nil, err
	}
	logger.Debug("token saved", "path", cfg.TokenPath, "expiry", token.Expiry)

	return &Result{Email: email, TokenPath: cfg.TokenPath, Expiry: token.Expiry}, nil
}

// verifiedEmail checks the ID token returned alongside tok and returns its
// email claim. A token without an ID token yields "".
func verifiedEmail(ctx context.Context, issuer, clientID string, tok *oauth2.Token) (string, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", nil
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("create OIDC provider: %w", err)
	}
	idToken, err := provider.Verifier(&oidc.Config{ClientID: clientID}).Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("decode id token claims: %w", err)
	}
	return claims.Email, nil
}
