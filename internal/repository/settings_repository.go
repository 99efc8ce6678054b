package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/paynudge/reminder-backend/internal/model"
)

// SettingsRepositoryInterface defines methods used by services
type SettingsRepositoryInterface interface {
	GetByAccountID(accountID int) (*model.ReminderSettings, error)
	Upsert(s *model.ReminderSettings) error
}

type SettingsRepository struct {
	DB *sql.DB
}

const settingsColumns = `
	account_id,
	reminder_30_days_before, reminder_15_days_before, reminder_7_days_before,
	reminder_5_days_before, reminder_3_days_before, reminder_1_day_before,
	reminder_on_due_date,
	reminder_1_day_overdue, reminder_3_days_overdue, reminder_7_days_overdue,
	custom_reminder_days,
	smart_mode, manual_channel,
	timezone, call_window_start, call_window_end, days_of_week,
	language, voice_gender,
	max_retry_attempts, retry_delay_hours,
	created_at, updated_at`

// GetByAccountID returns the account's settings, or nil when none are stored.
func (r *SettingsRepository) GetByAccountID(accountID int) (*model.ReminderSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM reminder_settings WHERE account_id=$1`

	var s model.ReminderSettings
	var customDays, daysOfWeek pq.Int64Array
	err := r.DB.QueryRow(query, accountID).Scan(
		&s.AccountID,
		&s.Reminder30DaysBefore, &s.Reminder15DaysBefore, &s.Reminder7DaysBefore,
		&s.Reminder5DaysBefore, &s.Reminder3DaysBefore, &s.Reminder1DayBefore,
		&s.ReminderOnDueDate,
		&s.Reminder1DayOverdue, &s.Reminder3DaysOverdue, &s.Reminder7DaysOverdue,
		&customDays,
		&s.SmartMode, &s.ManualChannel,
		&s.Timezone, &s.CallWindowStart, &s.CallWindowEnd, &daysOfWeek,
		&s.Language, &s.VoiceGender,
		&s.MaxRetryAttempts, &s.RetryDelayHours,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.CustomReminderDays = int64sToInts(customDays)
	s.DaysOfWeek = int64sToInts(daysOfWeek)
	return &s, nil
}

// Upsert writes the full validated settings row. Partial updates are merged
// and validated in the service layer before this is called.
func (r *SettingsRepository) Upsert(s *model.ReminderSettings) error {
	query := `
		INSERT INTO reminder_settings (` + settingsColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,NOW(),NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			reminder_30_days_before=EXCLUDED.reminder_30_days_before,
			reminder_15_days_before=EXCLUDED.reminder_15_days_before,
			reminder_7_days_before=EXCLUDED.reminder_7_days_before,
			reminder_5_days_before=EXCLUDED.reminder_5_days_before,
			reminder_3_days_before=EXCLUDED.reminder_3_days_before,
			reminder_1_day_before=EXCLUDED.reminder_1_day_before,
			reminder_on_due_date=EXCLUDED.reminder_on_due_date,
			reminder_1_day_overdue=EXCLUDED.reminder_1_day_overdue,
			reminder_3_days_overdue=EXCLUDED.reminder_3_days_overdue,
			reminder_7_days_overdue=EXCLUDED.reminder_7_days_overdue,
			custom_reminder_days=EXCLUDED.custom_reminder_days,
			smart_mode=EXCLUDED.smart_mode,
			manual_channel=EXCLUDED.manual_channel,
			timezone=EXCLUDED.timezone,
			call_window_start=EXCLUDED.call_window_start,
			call_window_end=EXCLUDED.call_window_end,
			days_of_week=EXCLUDED.days_of_week,
			language=EXCLUDED.language,
			voice_gender=EXCLUDED.voice_gender,
			max_retry_attempts=EXCLUDED.max_retry_attempts,
			retry_delay_hours=EXCLUDED.retry_delay_hours,
			updated_at=NOW()
	`
	_, err := r.DB.Exec(query,
		s.AccountID,
		s.Reminder30DaysBefore, s.Reminder15DaysBefore, s.Reminder7DaysBefore,
		s.Reminder5DaysBefore, s.Reminder3DaysBefore, s.Reminder1DayBefore,
		s.ReminderOnDueDate,
		s.Reminder1DayOverdue, s.Reminder3DaysOverdue, s.Reminder7DaysOverdue,
		pq.Array(intsToInt64s(s.CustomReminderDays)),
		s.SmartMode, s.ManualChannel,
		s.Timezone, s.CallWindowStart, s.CallWindowEnd,
		pq.Array(intsToInt64s(s.DaysOfWeek)),
		s.Language, s.VoiceGender,
		s.MaxRetryAttempts, s.RetryDelayHours,
	)
	return err
}

func int64sToInts(in pq.Int64Array) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func intsToInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

var _ SettingsRepositoryInterface = (*SettingsRepository)(nil)
