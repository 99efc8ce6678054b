// internal/service/retry.go
package service

import (
	"time"

	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/repository"
)

// maxBackoffHours caps rate-limit backoff at the retry-policy upper bound.
const maxBackoffHours = 48

// nextRetryAt computes when a failed reminder becomes due again. Rate-limit
// failures back off exponentially per attempt; everything else waits the flat
// configured delay.
func nextRetryAt(now time.Time, settings *model.ReminderSettings, attemptCount int, rateLimited bool) time.Time {
	hours := settings.RetryDelayHours
	if rateLimited && attemptCount > 1 {
		for i := 1; i < attemptCount && hours < maxBackoffHours; i++ {
			hours *= 2
		}
		if hours > maxBackoffHours {
			hours = maxBackoffHours
		}
	}
	return now.Add(time.Duration(hours) * time.Hour)
}

// retryOrFail applies the retry policy to a failed dispatch or callback.
// countAttempt is true on the dispatch path, where the failure itself is the
// attempt; callbacks report on an attempt already counted at dispatch time.
// Both transitions assert the expected prior status, so a racing writer makes
// this a no-op instead of a double mutation.
func retryOrFail(
	reminders repository.ReminderRepositoryInterface,
	rem *model.PaymentReminder,
	settings *model.ReminderSettings,
	now time.Time,
	from []model.ReminderStatus,
	reason string,
	rateLimited bool,
	countAttempt bool,
) (retried bool, err error) {
	attemptsUsed := rem.AttemptCount
	if countAttempt {
		attemptsUsed++
	}

	if attemptsUsed < settings.MaxRetryAttempts {
		nextAt := nextRetryAt(now, settings, attemptsUsed, rateLimited)
		ok, err := reminders.RetryFrom(rem.ID, from, nextAt, reason, countAttempt)
		return ok, err
	}

	_, err = reminders.FailFrom(rem.ID, from, reason, countAttempt, now)
	return false, err
}
