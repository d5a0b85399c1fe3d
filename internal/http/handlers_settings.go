package http

import (
	"net/http"

	"esuvi/internal/log"
	"esuvi/internal/settings"
)

type settingResponse struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    any    `json:"value"`
}

type warningsResponse struct {
	Warnings []string `json:"warnings"`
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.settings.Snapshot()).Write(w)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	category, key := r.PathValue("category"), r.PathValue("key")
	v, err := s.settings.Get(category, key)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(settingResponse{Category: category, Key: key, Value: v}).Write(w)
}

// handleSetSetting replaces an existing value. The body is {"value": ...}.
// Writes need an identity unless "settings" is a public feature.
func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, settings.FeatureSettings, log.OpUpdate) {
		return
	}
	category, key := r.PathValue("category"), r.PathValue("key")

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	v, ok, err := p.Value("value")
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if !ok {
		MessageResponse(http.StatusBadRequest, `Body must be a JSON object with a "value" field.`).Write(w)
		return
	}
	if err := s.settings.Set(category, key, v); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	for _, warn := range s.settings.Validate() {
		s.logger.WarnContext(r.Context(), "Settings warning", "warning", warn.String())
	}
	current, _ := s.settings.Get(category, key)
	NewJSONResponse().Body(settingResponse{Category: category, Key: key, Value: current}).Write(w)
}

func (s *Server) handleSettingsWarnings(w http.ResponseWriter, r *http.Request) {
	resp := warningsResponse{Warnings: []string{}}
	for _, warn := range s.settings.Validate() {
		resp.Warnings = append(resp.Warnings, warn.String())
	}
	NewJSONResponse().Body(resp).Write(w)
}

