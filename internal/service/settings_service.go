// internal/service/settings_service.go
package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/repository"
	"github.com/paynudge/reminder-backend/internal/schedule"
)

// Settings defaults. Applied once here, never at call sites.
const (
	DefaultTimezone         = "UTC"
	DefaultCallWindowStart  = "09:00"
	DefaultCallWindowEnd    = "18:00"
	DefaultLanguage         = "en"
	DefaultVoiceGender      = "female"
	DefaultMaxRetryAttempts = 3
	DefaultRetryDelayHours  = 24

	MinRetryAttempts = 0
	MaxRetryAttempts = 10
	MinRetryDelay    = 1
	MaxRetryDelay    = 48

	// Custom offsets are bounded to keep the sync window sane.
	MinCustomOffsetDays = -90
	MaxCustomOffsetDays = 90
)

var defaultDaysOfWeek = []int{1, 2, 3, 4, 5} // Monday..Friday

type SettingsService struct {
	Repo repository.SettingsRepositoryInterface
	Log  *zap.Logger
}

// SettingsUpdate is a partial update: nil pointers leave the current value
// untouched. The merged candidate is validated as a whole before persistence.
type SettingsUpdate struct {
	Reminder30DaysBefore *bool `json:"reminder_30_days_before,omitempty"`
	Reminder15DaysBefore *bool `json:"reminder_15_days_before,omitempty"`
	Reminder7DaysBefore  *bool `json:"reminder_7_days_before,omitempty"`
	Reminder5DaysBefore  *bool `json:"reminder_5_days_before,omitempty"`
	Reminder3DaysBefore  *bool `json:"reminder_3_days_before,omitempty"`
	Reminder1DayBefore   *bool `json:"reminder_1_day_before,omitempty"`
	ReminderOnDueDate    *bool `json:"reminder_on_due_date,omitempty"`
	Reminder1DayOverdue  *bool `json:"reminder_1_day_overdue,omitempty"`
	Reminder3DaysOverdue *bool `json:"reminder_3_days_overdue,omitempty"`
	Reminder7DaysOverdue *bool `json:"reminder_7_days_overdue,omitempty"`

	CustomReminderDays *[]int `json:"custom_reminder_days,omitempty"`

	SmartMode     *bool   `json:"smart_mode,omitempty"`
	ManualChannel *string `json:"manual_channel,omitempty"`

	Timezone        *string `json:"timezone,omitempty"`
	CallWindowStart *string `json:"call_window_start,omitempty"`
	CallWindowEnd   *string `json:"call_window_end,omitempty"`
	DaysOfWeek      *[]int  `json:"days_of_week,omitempty"`

	Language    *string `json:"language,omitempty"`
	VoiceGender *string `json:"voice_gender,omitempty"`

	MaxRetryAttempts *int `json:"max_retry_attempts,omitempty"`
	RetryDelayHours  *int `json:"retry_delay_hours,omitempty"`
}

// DefaultSettings returns the explicit defaults for an account with no stored
// configuration.
func DefaultSettings(accountID int) *model.ReminderSettings {
	return &model.ReminderSettings{
		AccountID:           accountID,
		Reminder7DaysBefore: true,
		ReminderOnDueDate:   true,
		CustomReminderDays:  []int{},
		SmartMode:           true,
		ManualChannel:       model.ChannelSMS,
		Timezone:            DefaultTimezone,
		CallWindowStart:     DefaultCallWindowStart,
		CallWindowEnd:       DefaultCallWindowEnd,
		DaysOfWeek:          append([]int{}, defaultDaysOfWeek...),
		Language:            DefaultLanguage,
		VoiceGender:         DefaultVoiceGender,
		MaxRetryAttempts:    DefaultMaxRetryAttempts,
		RetryDelayHours:     DefaultRetryDelayHours,
	}
}

// Get returns stored settings, falling back to defaults when none exist.
func (s *SettingsService) Get(accountID int) (*model.ReminderSettings, error) {
	stored, err := s.Repo.GetByAccountID(accountID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return DefaultSettings(accountID), nil
	}
	return stored, nil
}

// Apply merges a partial update into the current settings, validates the
// complete candidate and persists it atomically. Any invalid field rejects
// the entire update; nothing is written.
func (s *SettingsService) Apply(accountID int, upd *SettingsUpdate) (*model.ReminderSettings, error) {
	current, err := s.Get(accountID)
	if err != nil {
		return nil, err
	}

	candidate := *current
	candidate.CustomReminderDays = append([]int{}, current.CustomReminderDays...)
	candidate.DaysOfWeek = append([]int{}, current.DaysOfWeek...)
	mergeUpdate(&candidate, upd)

	if fields := ValidateSettings(&candidate); len(fields) > 0 {
		return nil, appErrors.NewValidationError(fields)
	}

	if err := s.Repo.Upsert(&candidate); err != nil {
		return nil, err
	}
	s.Log.Info("settings updated",
		zap.Int("account_id", accountID),
		zap.Int("max_reminder_days", schedule.MaxReminderDays(&candidate)))
	return &candidate, nil
}

func mergeUpdate(c *model.ReminderSettings, u *SettingsUpdate) {
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setBool(&c.Reminder30DaysBefore, u.Reminder30DaysBefore)
	setBool(&c.Reminder15DaysBefore, u.Reminder15DaysBefore)
	setBool(&c.Reminder7DaysBefore, u.Reminder7DaysBefore)
	setBool(&c.Reminder5DaysBefore, u.Reminder5DaysBefore)
	setBool(&c.Reminder3DaysBefore, u.Reminder3DaysBefore)
	setBool(&c.Reminder1DayBefore, u.Reminder1DayBefore)
	setBool(&c.ReminderOnDueDate, u.ReminderOnDueDate)
	setBool(&c.Reminder1DayOverdue, u.Reminder1DayOverdue)
	setBool(&c.Reminder3DaysOverdue, u.Reminder3DaysOverdue)
	setBool(&c.Reminder7DaysOverdue, u.Reminder7DaysOverdue)
	setBool(&c.SmartMode, u.SmartMode)

	if u.CustomReminderDays != nil {
		c.CustomReminderDays = append([]int{}, (*u.CustomReminderDays)...)
	}
	if u.ManualChannel != nil {
		c.ManualChannel = model.Channel(*u.ManualChannel)
	}
	if u.Timezone != nil {
		c.Timezone = *u.Timezone
	}
	if u.CallWindowStart != nil {
		c.CallWindowStart = *u.CallWindowStart
	}
	if u.CallWindowEnd != nil {
		c.CallWindowEnd = *u.CallWindowEnd
	}
	if u.DaysOfWeek != nil {
		c.DaysOfWeek = append([]int{}, (*u.DaysOfWeek)...)
	}
	if u.Language != nil {
		c.Language = *u.Language
	}
	if u.VoiceGender != nil {
		c.VoiceGender = *u.VoiceGender
	}
	if u.MaxRetryAttempts != nil {
		c.MaxRetryAttempts = *u.MaxRetryAttempts
	}
	if u.RetryDelayHours != nil {
		c.RetryDelayHours = *u.RetryDelayHours
	}
}

// ValidateSettings checks a complete candidate and returns per-field error
// messages. Empty map means valid.
func ValidateSettings(c *model.ReminderSettings) map[string]string {
	fields := map[string]string{}

	if c.ManualChannel != model.ChannelSMS && c.ManualChannel != model.ChannelVoice {
		fields["manual_channel"] = fmt.Sprintf("must be %q or %q", model.ChannelSMS, model.ChannelVoice)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		fields["timezone"] = "unknown timezone"
	}

	start, startErr := schedule.ParseClock(c.CallWindowStart)
	if startErr != nil {
		fields["call_window_start"] = "must be HH:MM"
	}
	end, endErr := schedule.ParseClock(c.CallWindowEnd)
	if endErr != nil {
		fields["call_window_end"] = "must be HH:MM"
	}
	if startErr == nil && endErr == nil && start >= end {
		fields["call_window_end"] = "must be after call_window_start"
	}

	if len(c.DaysOfWeek) == 0 {
		fields["days_of_week"] = "at least one day is required"
	}
	for _, d := range c.DaysOfWeek {
		if d < 0 || d > 6 {
			fields["days_of_week"] = "days must be in 0..6"
			break
		}
	}

	for _, offset := range c.CustomReminderDays {
		if offset < MinCustomOffsetDays || offset > MaxCustomOffsetDays {
			fields["custom_reminder_days"] = fmt.Sprintf("offsets must be in %d..%d", MinCustomOffsetDays, MaxCustomOffsetDays)
			break
		}
	}

	if c.MaxRetryAttempts < MinRetryAttempts || c.MaxRetryAttempts > MaxRetryAttempts {
		fields["max_retry_attempts"] = fmt.Sprintf("must be in %d..%d", MinRetryAttempts, MaxRetryAttempts)
	}
	if c.RetryDelayHours < MinRetryDelay || c.RetryDelayHours > MaxRetryDelay {
		fields["retry_delay_hours"] = fmt.Sprintf("must be in %d..%d", MinRetryDelay, MaxRetryDelay)
	}

	if c.Language == "" {
		fields["language"] = "is required"
	}
	if c.VoiceGender != "female" && c.VoiceGender != "male" {
		fields["voice_gender"] = `must be "female" or "male"`
	}

	return fields
}
