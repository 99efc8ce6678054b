// internal/model/callback.go
package model

// Provider callback event types. Unknown values are rejected, not dropped,
// so a protocol mismatch with the provider surfaces immediately.
const (
	EventCallAnswered  = "call_answered"
	EventCallCompleted = "call_completed"
	EventCallFailed    = "call_failed"
	EventSMSStatus     = "sms_status"
)

// Provider-side SMS delivery receipt states.
const (
	SMSStatusQueued      = "queued"
	SMSStatusSent        = "sent"
	SMSStatusDelivered   = "delivered"
	SMSStatusFailed      = "failed"
	SMSStatusUndelivered = "undelivered"
)

// CustomerResponseNoAnswer is the call outcome that loops a reminder back to
// pending for a retry instead of completing it.
const CustomerResponseNoAnswer = "no_answer"

// ProviderEvent is one inbound delivery-status callback. The reminder is
// resolved by ReminderID when present, otherwise by the provider tracking id.
type ProviderEvent struct {
	EventType   string       `json:"event_type"`
	ReminderID  int          `json:"reminder_id,omitempty"`
	ExternalID  string       `json:"external_id,omitempty"`
	SMSStatus   string       `json:"sms_status,omitempty"`
	Outcome     *CallOutcome `json:"outcome,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	RateLimited bool         `json:"rate_limited,omitempty"`
}
