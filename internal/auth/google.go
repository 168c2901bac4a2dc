package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const (
	googleIssuer      = "https://accounts.google.com"
	googleUserinfoURL = "https://openidconnect.googleapis.com"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Profile is what sign-in learns about the user from Google.
type Profile struct {
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier drives the OAuth code flow against Google and validates the
// resulting ID token through OIDC discovery.
type GoogleVerifier struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	rest     *resty.Client
}

func NewGoogleVerifier(ctx context.Context, cfg GoogleConfig) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}

	return &GoogleVerifier{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		rest:     resty.New().SetBaseURL(googleUserinfoURL),
	}, nil
}

// AuthCodeURL builds the consent page redirect for the given anti-forgery
// state.
func (g *GoogleVerifier) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for tokens, verifies the ID token, and
// extracts the user's profile. Claims missing from the ID token are filled
// from the userinfo endpoint.
func (g *GoogleVerifier) Exchange(ctx context.Context, code string) (Profile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Profile{}, fmt.Errorf("token response carried no id_token")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Profile{}, fmt.Errorf("id token verification failed: %w", err)
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Profile{}, fmt.Errorf("could not decode id token claims: %w", err)
	}

	profile := Profile{Email: claims.Email, Name: claims.Name, Picture: claims.Picture}
	if profile.Email == "" || profile.Name == "" {
		if err := g.fillFromUserinfo(ctx, token.AccessToken, &profile); err != nil && profile.Email == "" {
			return Profile{}, err
		}
	}
	if profile.Email == "" {
		return Profile{}, fmt.Errorf("google account has no email claim")
	}
	return profile, nil
}

func (g *GoogleVerifier) fillFromUserinfo(ctx context.Context, accessToken string, profile *Profile) error {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	res, err := g.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&info).
		Get("/v1/userinfo")
	if err != nil {
		return fmt.Errorf("userinfo request failed: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("userinfo request failed with status %d", res.StatusCode())
	}

	if profile.Email == "" {
		profile.Email = info.Email
	}
	if profile.Name == "" {
		profile.Name = info.Name
	}
	if profile.Picture == "" {
		profile.Picture = info.Picture
	}
	return nil
}
