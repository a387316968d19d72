package calnet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Authenticator runs the authorization code flow against the identity
// provider and resolves the signed-in CalNet UID.
type Authenticator interface {
	AuthCodeURL(state string, nonce string) string
	Exchange(ctx context.Context, code string, nonce string) (string, error)
}

// OIDCConfig configures the OpenID Connect client.
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// UIDClaim names the ID token claim holding the CalNet UID. Empty means
	// the subject.
	UIDClaim string
}

// OIDCAuthenticator is the OpenID Connect Authenticator.
type OIDCAuthenticator struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	uidClaim string
}

// NewOIDCAuthenticator discovers the provider at cfg.IssuerURL.
func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig) (*OIDCAuthenticator, error) {
	if strings.TrimSpace(cfg.IssuerURL) == "" {
		return nil, errors.New("oidc issuer url is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oidc client id is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("oidc redirect url is required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	return &OIDCAuthenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		uidClaim: strings.TrimSpace(cfg.UIDClaim),
	}, nil
}

// AuthCodeURL returns the provider URL that starts sign-in.
func (a *OIDCAuthenticator) AuthCodeURL(state string, nonce string) string {
	return a.oauth.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange trades code for an ID token, verifies it, and returns the UID claim.
func (a *OIDCAuthenticator) Exchange(ctx context.Context, code string, nonce string) (string, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", errors.New("token response has no id_token")
	}
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}
	if idToken.Nonce != nonce {
		return "", errors.New("id token nonce mismatch")
	}
	if a.uidClaim == "" || a.uidClaim == "sub" {
		return idToken.Subject, nil
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("parse claims: %w", err)
	}
	return uidFromClaims(claims, a.uidClaim)
}

// uidFromClaims reads a UID claim that providers may encode as a string or a
// JSON number.
func uidFromClaims(claims map[string]any, claim string) (string, error) {
	switch v := claims[claim].(type) {
	case string:
		if uid := strings.TrimSpace(v); uid != "" {
			return uid, nil
		}
	case float64:
		if v > 0 && v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return "", fmt.Errorf("id token has no usable %q claim", claim)
}
