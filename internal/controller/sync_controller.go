// internal/controller/sync_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paynudge/reminder-backend/internal/repository"
	"github.com/paynudge/reminder-backend/internal/service"
)

type SyncController struct {
	SyncService      *service.SyncService
	ProcessorService *service.ProcessorService
	AccountRepo      repository.AccountRepositoryInterface
}

// SyncAccount runs an on-demand sync for one account, inline.
func (c *SyncController) SyncAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(chi.URLParam(r, "accountID"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	account, err := c.AccountRepo.GetByID(accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	result, err := c.SyncService.SyncInvoicesForUser(r.Context(), account.ID, account.OrgID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(result)
}

// TriggerSync is the daily scheduled entry point; it fans sync jobs out per
// account and is idempotent under duplicate invocation.
func (c *SyncController) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := c.SyncService.SyncAllAccounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(result)
}

// TriggerProcess is the 30-minute scheduled entry point. A duplicate tick
// finds reminders already claimed and does nothing.
func (c *SyncController) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	result, err := c.ProcessorService.ProcessReminders(r.Context(), time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(result)
}
