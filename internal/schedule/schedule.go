// internal/schedule/schedule.go
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/paynudge/reminder-backend/internal/model"
)

// Occurrence is one planned reminder for an invoice. DaysOffset is signed:
// positive = days before the due date, negative = days overdue, zero = on it.
type Occurrence struct {
	ReminderType  string
	ScheduledDate time.Time
	DaysOffset    int
}

type standardEntry struct {
	offset  int
	label   string
	enabled func(s *model.ReminderSettings) bool
}

var standardEntries = []standardEntry{
	{30, "30_days_before", func(s *model.ReminderSettings) bool { return s.Reminder30DaysBefore }},
	{15, "15_days_before", func(s *model.ReminderSettings) bool { return s.Reminder15DaysBefore }},
	{7, "7_days_before", func(s *model.ReminderSettings) bool { return s.Reminder7DaysBefore }},
	{5, "5_days_before", func(s *model.ReminderSettings) bool { return s.Reminder5DaysBefore }},
	{3, "3_days_before", func(s *model.ReminderSettings) bool { return s.Reminder3DaysBefore }},
	{1, "1_day_before", func(s *model.ReminderSettings) bool { return s.Reminder1DayBefore }},
	{0, "on_due_date", func(s *model.ReminderSettings) bool { return s.ReminderOnDueDate }},
	{-1, "1_day_overdue", func(s *model.ReminderSettings) bool { return s.Reminder1DayOverdue }},
	{-3, "3_days_overdue", func(s *model.ReminderSettings) bool { return s.Reminder3DaysOverdue }},
	{-7, "7_days_overdue", func(s *model.ReminderSettings) bool { return s.Reminder7DaysOverdue }},
}

// midnightUTC truncates t to midnight UTC.
func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// customLabel names a custom offset: custom_10_days_before, custom_2_days_overdue,
// custom_on_due_date.
func customLabel(offset int) string {
	switch {
	case offset > 0:
		return fmt.Sprintf("custom_%d_days_before", offset)
	case offset < 0:
		return fmt.Sprintf("custom_%d_days_overdue", -offset)
	default:
		return "custom_on_due_date"
	}
}

// BuildReminderSchedule produces the planned reminder occurrences for an
// invoice due on dueDate under the given settings. Pure: now is injected.
// Occurrences whose date is already past are never emitted; results are
// sorted ascending by scheduled date.
func BuildReminderSchedule(dueDate time.Time, s *model.ReminderSettings, now time.Time) []Occurrence {
	due := midnightUTC(dueDate)
	today := midnightUTC(now)

	occurrences := []Occurrence{}
	add := func(offset int, label string) {
		scheduled := due.AddDate(0, 0, -offset)
		if scheduled.Before(today) {
			return
		}
		occurrences = append(occurrences, Occurrence{
			ReminderType:  label,
			ScheduledDate: scheduled,
			DaysOffset:    offset,
		})
	}

	for _, e := range standardEntries {
		if e.enabled(s) {
			add(e.offset, e.label)
		}
	}
	for _, offset := range s.CustomReminderDays {
		add(offset, customLabel(offset))
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].ScheduledDate.Before(occurrences[j].ScheduledDate)
	})
	return occurrences
}

// MaxReminderDays returns the largest before-due offset among enabled standard
// flags and custom entries. The sync engine uses it to bound how far into the
// future invoices must be fetched.
func MaxReminderDays(s *model.ReminderSettings) int {
	max := 0
	for _, e := range standardEntries {
		if e.offset > max && e.enabled(s) {
			max = e.offset
		}
	}
	for _, offset := range s.CustomReminderDays {
		if offset > max {
			max = offset
		}
	}
	return max
}
