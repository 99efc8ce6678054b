// internal/provider/http.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
)

// HTTPVoiceProvider posts call requests to the telephony gateway. Timeouts
// and 5xx responses classify as transient; 429 as rate-limited; 4xx as
// permanent.
type HTTPVoiceProvider struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

func NewHTTPVoiceProvider(url, apiKey string, timeout time.Duration) *HTTPVoiceProvider {
	return &HTTPVoiceProvider{URL: url, APIKey: apiKey, HTTP: &http.Client{Timeout: timeout}}
}

func (p *HTTPVoiceProvider) PlaceCall(ctx context.Context, req *VoiceCallRequest) (string, error) {
	var out struct {
		CallID string `json:"call_id"`
	}
	if err := postJSON(ctx, p.HTTP, p.URL+"/calls", p.APIKey, req, &out); err != nil {
		return "", err
	}
	if out.CallID == "" {
		return "", appErrors.NewTransientDelivery("voice provider returned no call id")
	}
	return out.CallID, nil
}

// HTTPSMSProvider posts messages to the SMS gateway.
type HTTPSMSProvider struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

func NewHTTPSMSProvider(url, apiKey string, timeout time.Duration) *HTTPSMSProvider {
	return &HTTPSMSProvider{URL: url, APIKey: apiKey, HTTP: &http.Client{Timeout: timeout}}
}

func (p *HTTPSMSProvider) SendSMS(ctx context.Context, phoneE164, body string) (string, error) {
	payload := map[string]string{"to": phoneE164, "body": body}
	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := postJSON(ctx, p.HTTP, p.URL+"/messages", p.APIKey, payload, &out); err != nil {
		return "", err
	}
	if out.MessageID == "" {
		return "", appErrors.NewTransientDelivery("sms provider returned no message id")
	}
	return out.MessageID, nil
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return appErrors.NewTransientDelivery("provider request timed out")
		}
		return appErrors.NewTransientDelivery(err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusTooManyRequests:
		return appErrors.NewRateLimited("provider rate limit")
	case resp.StatusCode >= 500:
		return appErrors.NewTransientDelivery(fmt.Sprintf("provider returned %d", resp.StatusCode))
	default:
		return appErrors.NewPermanentDelivery(fmt.Sprintf("provider rejected request with %d", resp.StatusCode))
	}
}

var (
	_ VoiceProvider = (*HTTPVoiceProvider)(nil)
	_ SMSProvider   = (*HTTPSMSProvider)(nil)
)
