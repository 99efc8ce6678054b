// internal/model/settings.go
package model

import "time"

// ReminderSettings is the validated per-account configuration driving the
// reminder schedule, channel choice, call window and retry policy.
// One row per account; invalid partial updates are rejected wholesale.
type ReminderSettings struct {
	AccountID int `db:"account_id" json:"account_id"`

	// Standard cadence flags, days relative to the invoice due date.
	Reminder30DaysBefore bool `db:"reminder_30_days_before" json:"reminder_30_days_before"`
	Reminder15DaysBefore bool `db:"reminder_15_days_before" json:"reminder_15_days_before"`
	Reminder7DaysBefore  bool `db:"reminder_7_days_before" json:"reminder_7_days_before"`
	Reminder5DaysBefore  bool `db:"reminder_5_days_before" json:"reminder_5_days_before"`
	Reminder3DaysBefore  bool `db:"reminder_3_days_before" json:"reminder_3_days_before"`
	Reminder1DayBefore   bool `db:"reminder_1_day_before" json:"reminder_1_day_before"`
	ReminderOnDueDate    bool `db:"reminder_on_due_date" json:"reminder_on_due_date"`
	Reminder1DayOverdue  bool `db:"reminder_1_day_overdue" json:"reminder_1_day_overdue"`
	Reminder3DaysOverdue bool `db:"reminder_3_days_overdue" json:"reminder_3_days_overdue"`
	Reminder7DaysOverdue bool `db:"reminder_7_days_overdue" json:"reminder_7_days_overdue"`

	// CustomReminderDays holds signed day offsets: positive = before due,
	// negative = overdue, zero = on due date.
	CustomReminderDays []int `db:"custom_reminder_days" json:"custom_reminder_days"`

	// Channel strategy.
	SmartMode     bool    `db:"smart_mode" json:"smart_mode"`
	ManualChannel Channel `db:"manual_channel" json:"manual_channel"`

	// Call window, in the account's local timezone.
	Timezone        string `db:"timezone" json:"timezone"`
	CallWindowStart string `db:"call_window_start" json:"call_window_start"` // "HH:MM"
	CallWindowEnd   string `db:"call_window_end" json:"call_window_end"`     // "HH:MM"
	DaysOfWeek      []int  `db:"days_of_week" json:"days_of_week"`           // 0=Sunday .. 6=Saturday

	// Voice persona.
	Language    string `db:"language" json:"language"`
	VoiceGender string `db:"voice_gender" json:"voice_gender"`

	// Retry policy.
	MaxRetryAttempts int `db:"max_retry_attempts" json:"max_retry_attempts"` // 0..10
	RetryDelayHours  int `db:"retry_delay_hours" json:"retry_delay_hours"`   // 1..48

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
