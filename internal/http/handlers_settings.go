package http

import (
	"encoding/json"
	"net/http"

	"moneta/internal/core"
)

type settingsResponse struct {
	DefaultCurrency string `json:"defaultCurrency"`
	Premium         bool   `json:"premium"`
}

type updateSettingsRequest struct {
	DefaultCurrency string `json:"defaultCurrency"`
	Premium         bool   `json:"premium"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	settings, err := s.services.Settings.GetSettings(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		DefaultCurrency: string(settings.DefaultCurrency),
		Premium:         settings.Premium,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	currency, err := core.ParseCurrency(req.DefaultCurrency)
	if err != nil {
		writeError(w, err)
		return
	}

	settings := core.UserSettings{
		Owner:           owner,
		DefaultCurrency: currency,
		Premium:         req.Premium,
	}
	if err := s.services.Settings.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}

	// the default currency steers conversion, so cached aggregations are stale
	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, settingsResponse{
		DefaultCurrency: string(settings.DefaultCurrency),
		Premium:         settings.Premium,
	})
}
