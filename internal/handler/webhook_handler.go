// internal/handler/webhook_handler.go
package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/service"
)

// SignatureHeader carries the provider's hex-encoded HMAC-SHA256 over the
// raw request body.
const SignatureHeader = "X-Provider-Signature"

type WebhookHandler struct {
	OutcomeService *service.OutcomeService
	Secret         string
	Log            *zap.Logger
}

// HandleProviderCallback verifies the callback signature before touching any
// state, then drives the reminder state machine. Unknown event types are a
// caller-visible error, not a silent drop.
func (h *WebhookHandler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		h.Log.Warn("rejected callback with invalid signature",
			zap.String("remote_addr", r.RemoteAddr))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var ev model.ProviderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.OutcomeService.HandleEvent(r.Context(), &ev); err != nil {
		switch {
		case appErrors.IsUnknownEventType(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case isNotFound(err):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func isNotFound(err error) bool {
	var nf *appErrors.ErrReminderNotFound
	return errors.As(err, &nf)
}
