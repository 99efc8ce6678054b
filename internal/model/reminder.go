// internal/model/reminder.go
package model

import "time"

type ReminderStatus string

const (
	ReminderPending    ReminderStatus = "pending"
	ReminderInProgress ReminderStatus = "in_progress"
	ReminderProcessing ReminderStatus = "processing"
	ReminderCompleted  ReminderStatus = "completed"
	ReminderFailed     ReminderStatus = "failed"
	ReminderSkipped    ReminderStatus = "skipped"
)

// IsTerminal reports whether a reminder in this status will never be dispatched again.
func (s ReminderStatus) IsTerminal() bool {
	return s == ReminderCompleted || s == ReminderFailed || s == ReminderSkipped
}

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
)

// CallOutcome is the structured result of a dispatched voice reminder.
// Stored as jsonb; serialized only at the repository boundary.
type CallOutcome struct {
	Connected        bool   `json:"connected"`
	DurationSeconds  int    `json:"duration_seconds"`
	CustomerResponse string `json:"customer_response"`
	Notes            string `json:"notes,omitempty"`
}

type PaymentReminder struct {
	ID            int            `db:"id" json:"id"`
	AccountID     int            `db:"account_id" json:"account_id"`
	InvoiceID     int            `db:"invoice_id" json:"invoice_id"`
	ReminderType  string         `db:"reminder_type" json:"reminder_type"`
	ScheduledDate time.Time      `db:"scheduled_date" json:"scheduled_date"`
	Channel       Channel        `db:"channel" json:"channel"`
	Status        ReminderStatus `db:"status" json:"status"`
	AttemptCount  int            `db:"attempt_count" json:"attempt_count"`
	LastAttemptAt *time.Time     `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	ExternalID    string         `db:"external_id" json:"external_id,omitempty"`
	CallOutcome   *CallOutcome   `db:"call_outcome" json:"call_outcome,omitempty"`
	SkipReason    string         `db:"skip_reason" json:"skip_reason,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
