// internal/provider/provider.go
package provider

import (
	"context"
	"time"
)

// VoiceCallRequest carries the customer, invoice and business context a voice
// provider needs to run an outbound collection call.
type VoiceCallRequest struct {
	PhoneE164     string    `json:"phone"`
	CustomerName  string    `json:"customer_name"`
	BusinessName  string    `json:"business_name"`
	InvoiceNumber string    `json:"invoice_number"`
	AmountDue     float64   `json:"amount_due"`
	Currency      string    `json:"currency"`
	DueDate       time.Time `json:"due_date"`
	Language      string    `json:"language"`
	VoiceGender   string    `json:"voice_gender"`
	Script        string    `json:"script"`
}

// VoiceProvider initiates outbound calls. The call resolves asynchronously:
// the returned id keys later status callbacks.
type VoiceProvider interface {
	PlaceCall(ctx context.Context, req *VoiceCallRequest) (callID string, err error)
}

// SMSProvider sends a templated text. Submission failures resolve
// synchronously; delivery receipts arrive later as callbacks.
type SMSProvider interface {
	SendSMS(ctx context.Context, phoneE164, body string) (messageID string, err error)
}
