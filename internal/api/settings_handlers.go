package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// listSettingsHandler returns all settings, optionally one category
func (s *Server) listSettingsHandler(w http.ResponseWriter, r *http.Request) {
	values, err := s.settingsService.ListSettings(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, values)
}

// getSettingHandler returns one setting by key
func (s *Server) getSettingHandler(w http.ResponseWriter, r *http.Request) {
	value, err := s.settingsService.GetSetting(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, value)
}

// putSettingsHandler applies a batch of setting updates. Validation failure
// returns 400 with a per-key error map and writes nothing. A store failure
// mid-batch returns 207 with per-key results.
func (s *Server) putSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if !s.decodeJSON(w, r, &updates) {
		return
	}

	outcome, err := s.settingsService.PutSettings(r.Context(), updates)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	switch {
	case len(outcome.ValidationErrors) > 0:
		s.respondWithJSON(w, http.StatusBadRequest, outcome)
	case outcome.Partial:
		s.respondWithJSON(w, http.StatusMultiStatus, outcome)
	default:
		s.respondWithData(w, http.StatusOK, outcome)
	}
}
