// internal/service/outcome_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/repository"
)

// OutcomeService drives the reminder state machine from provider callbacks.
// It may race with a processor tick, so every transition asserts the expected
// prior status and treats zero rows affected as "someone else moved first".
type OutcomeService struct {
	Reminders repository.ReminderRepositoryInterface
	Settings  *SettingsService
	Log       *zap.Logger
	Now       func() time.Time
}

func (o *OutcomeService) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// inFlight are the statuses a callback may legitimately find a reminder in.
var inFlight = []model.ReminderStatus{model.ReminderInProgress, model.ReminderProcessing}

// HandleEvent applies one delivery-status callback. Unknown event types are
// rejected so integration bugs surface instead of being masked.
func (o *OutcomeService) HandleEvent(ctx context.Context, ev *model.ProviderEvent) error {
	rem, err := o.resolve(ev)
	if err != nil {
		return err
	}

	switch ev.EventType {
	case model.EventCallAnswered:
		return o.handleCallAnswered(rem)
	case model.EventCallCompleted:
		return o.handleCallCompleted(rem, ev)
	case model.EventCallFailed:
		return o.handleCallFailed(rem, ev)
	case model.EventSMSStatus:
		return o.handleSMSStatus(rem, ev)
	default:
		return appErrors.NewUnknownEventType(ev.EventType)
	}
}

func (o *OutcomeService) resolve(ev *model.ProviderEvent) (*model.PaymentReminder, error) {
	if ev.ReminderID != 0 {
		rem, err := o.Reminders.GetByID(ev.ReminderID)
		if err != nil {
			return nil, err
		}
		if rem == nil {
			return nil, appErrors.NewReminderNotFound(ev.ReminderID)
		}
		return rem, nil
	}
	if ev.ExternalID != "" {
		rem, err := o.Reminders.GetByExternalID(ev.ExternalID)
		if err != nil {
			return nil, err
		}
		if rem == nil {
			return nil, appErrors.NewReminderNotFoundByExternalID(ev.ExternalID)
		}
		return rem, nil
	}
	return nil, fmt.Errorf("callback carries neither reminder_id nor external_id")
}

// handleCallAnswered marks the mid-call state. No terminal decision yet.
func (o *OutcomeService) handleCallAnswered(rem *model.PaymentReminder) error {
	ok, err := o.Reminders.Transition(rem.ID,
		[]model.ReminderStatus{model.ReminderInProgress}, model.ReminderProcessing)
	if err != nil {
		return err
	}
	if !ok {
		o.Log.Warn("call_answered on reminder not in progress, ignoring",
			zap.Int("reminder_id", rem.ID), zap.String("status", string(rem.Status)))
	}
	return nil
}

func (o *OutcomeService) handleCallCompleted(rem *model.PaymentReminder, ev *model.ProviderEvent) error {
	now := o.now()

	if ev.Outcome != nil && ev.Outcome.CustomerResponse == model.CustomerResponseNoAnswer {
		return o.retry(rem, model.CustomerResponseNoAnswer, false)
	}

	ok, err := o.Reminders.CompleteWithOutcome(rem.ID, inFlight, ev.Outcome, now)
	if err != nil {
		return err
	}
	if ok {
		o.Log.Info("reminder completed", zap.Int("reminder_id", rem.ID))
	}
	return nil
}

// handleCallFailed covers connection and technical failures: the reminder
// loops back to pending if retries remain.
func (o *OutcomeService) handleCallFailed(rem *model.PaymentReminder, ev *model.ProviderEvent) error {
	reason := ev.Reason
	if reason == "" {
		reason = "call failed"
	}
	return o.retry(rem, reason, ev.RateLimited)
}

func (o *OutcomeService) handleSMSStatus(rem *model.PaymentReminder, ev *model.ProviderEvent) error {
	now := o.now()
	switch ev.SMSStatus {
	case model.SMSStatusDelivered, model.SMSStatusSent:
		_, err := o.Reminders.CompleteWithOutcome(rem.ID, inFlight, nil, now)
		return err
	case model.SMSStatusFailed, model.SMSStatusUndelivered:
		reason := ev.Reason
		if reason == "" {
			reason = "sms " + ev.SMSStatus
		}
		// Delivery receipts are terminal per provider classification; the
		// number was accepted at submission, so no retry loop here.
		_, err := o.Reminders.FailFrom(rem.ID, inFlight, reason, false, now)
		return err
	case model.SMSStatusQueued:
		// Provider-side queueing; nothing to decide yet.
		if rem.Status == model.ReminderPending {
			_, err := o.Reminders.Transition(rem.ID,
				[]model.ReminderStatus{model.ReminderPending}, model.ReminderInProgress)
			return err
		}
		return nil
	default:
		return appErrors.NewUnknownEventType(fmt.Sprintf("sms_status/%s", ev.SMSStatus))
	}
}

func (o *OutcomeService) retry(rem *model.PaymentReminder, reason string, rateLimited bool) error {
	settings, err := o.Settings.Get(rem.AccountID)
	if err != nil {
		return err
	}
	now := o.now()

	retried, err := retryOrFail(o.Reminders, rem, settings, now, inFlight, reason, rateLimited, false)
	if err != nil {
		return err
	}
	if retried {
		o.Log.Info("reminder rescheduled for retry",
			zap.Int("reminder_id", rem.ID),
			zap.Int("attempt_count", rem.AttemptCount),
			zap.String("reason", reason))
	} else {
		o.Log.Info("reminder retries exhausted",
			zap.Int("reminder_id", rem.ID),
			zap.String("reason", reason))
	}
	return nil
}
