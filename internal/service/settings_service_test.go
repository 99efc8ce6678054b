package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
)

func newSettingsService(repo *mockSettingsRepo) *SettingsService {
	return &SettingsService{Repo: repo, Log: zap.NewNop()}
}

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
func intsPtr(v []int) *[]int  { return &v }

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := newSettingsService(newMockSettingsRepo())

	s, err := svc.Get(42)
	require.NoError(t, err)

	assert.Equal(t, 42, s.AccountID)
	assert.True(t, s.Reminder7DaysBefore)
	assert.True(t, s.ReminderOnDueDate)
	assert.False(t, s.Reminder30DaysBefore)
	assert.True(t, s.SmartMode)
	assert.Equal(t, model.ChannelSMS, s.ManualChannel)
	assert.Equal(t, "UTC", s.Timezone)
	assert.Equal(t, "09:00", s.CallWindowStart)
	assert.Equal(t, "18:00", s.CallWindowEnd)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, s.DaysOfWeek)
	assert.Equal(t, 3, s.MaxRetryAttempts)
	assert.Equal(t, 24, s.RetryDelayHours)
}

func TestApplyMergesPartialUpdate(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := newSettingsService(repo)

	updated, err := svc.Apply(1, &SettingsUpdate{
		Reminder30DaysBefore: boolPtr(true),
		CustomReminderDays:   intsPtr([]int{14, -2}),
		Timezone:             strPtr("America/New_York"),
	})
	require.NoError(t, err)

	// Changed fields take the new value, the rest keep their defaults.
	assert.True(t, updated.Reminder30DaysBefore)
	assert.Equal(t, []int{14, -2}, updated.CustomReminderDays)
	assert.Equal(t, "America/New_York", updated.Timezone)
	assert.True(t, updated.Reminder7DaysBefore)
	assert.Equal(t, 3, updated.MaxRetryAttempts)

	stored, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestApplyInvalidUpdateRejectedWholesale(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := newSettingsService(repo)

	// One valid change bundled with two invalid ones: nothing may persist.
	_, err := svc.Apply(1, &SettingsUpdate{
		Reminder30DaysBefore: boolPtr(true),
		RetryDelayHours:      intPtr(200),
		Timezone:             strPtr("Mars/Olympus_Mons"),
	})
	require.Error(t, err)

	ve, ok := appErrors.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "retry_delay_hours")
	assert.Contains(t, ve.Fields, "timezone")
	assert.NotContains(t, ve.Fields, "reminder_30_days_before")

	assert.Zero(t, repo.upserts, "rejected update must not write")
	current, err := svc.Get(1)
	require.NoError(t, err)
	assert.False(t, current.Reminder30DaysBefore)
	assert.Equal(t, 24, current.RetryDelayHours)
}

func TestValidateSettings(t *testing.T) {
	valid := func() *model.ReminderSettings { return DefaultSettings(1) }

	tests := []struct {
		name     string
		mutate   func(s *model.ReminderSettings)
		badField string
	}{
		{"valid defaults", func(s *model.ReminderSettings) {}, ""},
		{"bad manual channel", func(s *model.ReminderSettings) { s.ManualChannel = "carrier_pigeon" }, "manual_channel"},
		{"unknown timezone", func(s *model.ReminderSettings) { s.Timezone = "Nowhere/Void" }, "timezone"},
		{"bad window start", func(s *model.ReminderSettings) { s.CallWindowStart = "9am" }, "call_window_start"},
		{"bad window end", func(s *model.ReminderSettings) { s.CallWindowEnd = "25:00" }, "call_window_end"},
		{"inverted window", func(s *model.ReminderSettings) { s.CallWindowStart = "18:00"; s.CallWindowEnd = "09:00" }, "call_window_end"},
		{"empty days of week", func(s *model.ReminderSettings) { s.DaysOfWeek = []int{} }, "days_of_week"},
		{"day out of range", func(s *model.ReminderSettings) { s.DaysOfWeek = []int{1, 7} }, "days_of_week"},
		{"custom offset too large", func(s *model.ReminderSettings) { s.CustomReminderDays = []int{120} }, "custom_reminder_days"},
		{"custom offset too small", func(s *model.ReminderSettings) { s.CustomReminderDays = []int{-120} }, "custom_reminder_days"},
		{"negative retries", func(s *model.ReminderSettings) { s.MaxRetryAttempts = -1 }, "max_retry_attempts"},
		{"too many retries", func(s *model.ReminderSettings) { s.MaxRetryAttempts = 11 }, "max_retry_attempts"},
		{"retry delay too short", func(s *model.ReminderSettings) { s.RetryDelayHours = 0 }, "retry_delay_hours"},
		{"retry delay too long", func(s *model.ReminderSettings) { s.RetryDelayHours = 49 }, "retry_delay_hours"},
		{"empty language", func(s *model.ReminderSettings) { s.Language = "" }, "language"},
		{"bad voice gender", func(s *model.ReminderSettings) { s.VoiceGender = "robot" }, "voice_gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			fields := ValidateSettings(s)
			if tt.badField == "" {
				assert.Empty(t, fields)
				return
			}
			assert.Contains(t, fields, tt.badField)
		})
	}
}

func TestZeroMaxRetriesIsValid(t *testing.T) {
	s := DefaultSettings(1)
	s.MaxRetryAttempts = 0
	assert.Empty(t, ValidateSettings(s))
}
