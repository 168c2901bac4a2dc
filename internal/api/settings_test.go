package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adi4512/careercounselor/pkg/api"
)

func TestSettingsDefaults(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})
	_, token := env.signIn(t, "amu@example.com")

	rec := env.do(t, http.MethodGet, "/settings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	settings := decodeBody[api.Settings](t, rec)
	assert.Equal(t, DefaultSettings, settings)
}

func TestSettingsPartialUpdate(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})
	_, token := env.signIn(t, "amu@example.com")

	theme := "light"
	notifications := false
	rec := env.do(t, http.MethodPut, "/settings", token, api.UpdateSettingsRequest{
		Theme:               &theme,
		EnableNotifications: &notifications,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeBody[api.Settings](t, rec)
	assert.Equal(t, "light", updated.Theme)
	assert.False(t, updated.EnableNotifications)
	// Untouched fields keep their defaults.
	assert.Equal(t, "professional", updated.AIPersonality)
	assert.True(t, updated.AutoSave)

	rec = env.do(t, http.MethodGet, "/settings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decodeBody[api.Settings](t, rec))
}

func TestSettingsReset(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})
	_, token := env.signIn(t, "amu@example.com")

	personality := "casual"
	rec := env.do(t, http.MethodPut, "/settings", token, api.UpdateSettingsRequest{AIPersonality: &personality})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/settings/reset", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultSettings, decodeBody[api.Settings](t, rec))

	rec = env.do(t, http.MethodGet, "/settings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultSettings, decodeBody[api.Settings](t, rec))
}

func TestSettingsAreScopedPerUser(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})
	_, firstToken := env.signIn(t, "first@example.com")
	_, secondToken := env.signIn(t, "second@example.com")

	theme := "light"
	rec := env.do(t, http.MethodPut, "/settings", firstToken, api.UpdateSettingsRequest{Theme: &theme})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/settings", secondToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", decodeBody[api.Settings](t, rec).Theme)
}
