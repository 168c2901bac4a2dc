package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/pkg/api"
)

// DefaultSettings are applied to users who have never saved any.
var DefaultSettings = api.Settings{
	AIPersonality:       "professional",
	ResponseLength:      "detailed",
	EnableNotifications: true,
	AutoSave:            true,
	Theme:               "dark",
}

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// AddRoutes mounts the per-user settings endpoints. The caller is expected to
// wrap them in the session token middleware.
func (s *SettingsService) AddRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", RestHandler(s.Get))
		r.Put("/", RestHandler(s.Update))
		r.Post("/reset", RestHandler(s.Reset))
	})
}

func (s *SettingsService) load(r *http.Request) (api.Settings, error) {
	userId, err := requireUser(r)
	if err != nil {
		return api.Settings{}, err
	}

	raw, err := database.GetSettings(r.Context(), s.db, userId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultSettings, nil
	}
	if err != nil {
		slog.Error("error loading settings", "user_id", userId, "error", err)
		return api.Settings{}, CodedErrorf(http.StatusInternalServerError, "could not load settings")
	}

	settings := DefaultSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		slog.Error("error decoding stored settings", "user_id", userId, "error", err)
		return DefaultSettings, nil
	}
	return settings, nil
}

func (s *SettingsService) save(r *http.Request, settings api.Settings) error {
	userId, err := requireUser(r)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return CodedError(http.StatusInternalServerError, err)
	}

	if err := database.SaveSettings(r.Context(), s.db, userId, datatypes.JSON(raw)); err != nil {
		slog.Error("error saving settings", "user_id", userId, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "could not save settings")
	}
	return nil
}

func (s *SettingsService) Get(r *http.Request) (any, error) {
	return s.load(r)
}

func (s *SettingsService) Update(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UpdateSettingsRequest](r)
	if err != nil {
		return nil, err
	}

	settings, err := s.load(r)
	if err != nil {
		return nil, err
	}

	if req.AIPersonality != nil {
		settings.AIPersonality = *req.AIPersonality
	}
	if req.ResponseLength != nil {
		settings.ResponseLength = *req.ResponseLength
	}
	if req.EnableNotifications != nil {
		settings.EnableNotifications = *req.EnableNotifications
	}
	if req.AutoSave != nil {
		settings.AutoSave = *req.AutoSave
	}
	if req.Theme != nil {
		settings.Theme = *req.Theme
	}

	if err := s.save(r, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *SettingsService) Reset(r *http.Request) (any, error) {
	if err := s.save(r, DefaultSettings); err != nil {
		return nil, err
	}
	return DefaultSettings, nil
}
