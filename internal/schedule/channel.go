// internal/schedule/channel.go
package schedule

import (
	"strconv"
	"strings"

	"github.com/paynudge/reminder-backend/internal/model"
)

// smartSMSThresholdDays: under smart mode, reminders this many days or more
// before the due date go out as SMS; anything closer (or overdue) gets a call.
const smartSMSThresholdDays = 5

var standardSMSLabels = map[string]bool{
	"30_days_before": true,
	"15_days_before": true,
	"7_days_before":  true,
	"5_days_before":  true,
}

// AssignChannel decides the delivery channel for a reminder type. Evaluated
// once at creation time; the result is stored on the reminder and never
// re-evaluated. Voice is the safe default for anything urgent, overdue or
// unrecognized.
func AssignChannel(reminderType string, s *model.ReminderSettings) model.Channel {
	if !s.SmartMode {
		return s.ManualChannel
	}
	if standardSMSLabels[reminderType] {
		return model.ChannelSMS
	}
	if offset, ok := customBeforeOffset(reminderType); ok && offset >= smartSMSThresholdDays {
		return model.ChannelSMS
	}
	return model.ChannelVoice
}

// customBeforeOffset parses "custom_<N>_days_before" labels. Exact,
// case-sensitive match; anything else reports false.
func customBeforeOffset(reminderType string) (int, bool) {
	rest, ok := strings.CutPrefix(reminderType, "custom_")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "_days_before")
	if !ok {
		return 0, false
	}
	offset, err := strconv.Atoi(rest)
	if err != nil || offset < 0 {
		return 0, false
	}
	return offset, true
}
