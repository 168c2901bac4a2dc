package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/Adi4512/careercounselor/internal/auth"
	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/pkg/api"
)

const stateCookie = "oauth_state"

type AuthService struct {
	db     *gorm.DB
	google *auth.GoogleVerifier
	tokens *auth.TokenIssuer
}

func NewAuthService(db *gorm.DB, google *auth.GoogleVerifier, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{db: db, google: google, tokens: tokens}
}

// AddRoutes mounts the sign-in flow. These endpoints are unauthenticated.
func (s *AuthService) AddRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.Login)
		r.Get("/callback", RestHandler(s.Callback))
	})
}

// AddUserRoutes mounts the endpoints that require a session token.
func (s *AuthService) AddUserRoutes(r chi.Router) {
	r.Get("/auth/me", RestHandler(s.Me))
}

// Login redirects the browser to the Google consent page, pinning an
// anti-forgery state value in a short-lived cookie.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		writeError(w, CodedError(http.StatusInternalServerError, err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusFound)
}

func (s *AuthService) Callback(r *http.Request) (any, error) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing state or code query parameter")
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value != state {
		return nil, CodedErrorf(http.StatusBadRequest, "oauth state mismatch")
	}

	ctx := r.Context()

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		slog.Error("google sign-in failed", "error", err)
		return nil, CodedErrorf(http.StatusUnauthorized, "sign-in failed")
	}

	user, err := database.UpsertUser(ctx, s.db, profile.Email, profile.Name, profile.Picture)
	if err != nil {
		slog.Error("error upserting user", "email", profile.Email, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "could not create user record")
	}

	token, err := s.tokens.Issue(user.Id, user.Email)
	if err != nil {
		slog.Error("error issuing session token", "user_id", user.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "could not issue session token")
	}

	return api.SignInResponse{
		Token: token,
		User:  api.User{Id: user.Id, Email: user.Email, Name: user.Name, Image: user.Image},
	}, nil
}

func (s *AuthService) Me(r *http.Request) (any, error) {
	userId, ok := auth.UserID(r.Context())
	if !ok {
		return nil, CodedErrorf(http.StatusUnauthorized, "Unauthorized")
	}

	user, err := database.GetUser(r.Context(), s.db, userId)
	if err != nil {
		return nil, CodedErrorf(http.StatusUnauthorized, "Unauthorized")
	}

	return api.User{Id: user.Id, Email: user.Email, Name: user.Name, Image: user.Image}, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
