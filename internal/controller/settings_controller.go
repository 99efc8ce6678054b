// internal/controller/settings_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/service"
)

type SettingsController struct {
	SettingsService *service.SettingsService
}

func (c *SettingsController) GetSettings(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(chi.URLParam(r, "accountID"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	settings, err := c.SettingsService.Get(accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(settings)
}

// UpdateSettings applies a partial update. An invalid field anywhere rejects
// the whole update with per-field messages and nothing is persisted.
func (c *SettingsController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(chi.URLParam(r, "accountID"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	var upd service.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	settings, err := c.SettingsService.Apply(accountID, &upd)
	if err != nil {
		if ve, ok := appErrors.AsValidation(err); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":  "validation failed",
				"fields": ve.Fields,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(settings)
}
