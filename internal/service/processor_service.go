// internal/service/processor_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paynudge/reminder-backend/internal/accounting"
	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/provider"
	"github.com/paynudge/reminder-backend/internal/repository"
	"github.com/paynudge/reminder-backend/internal/schedule"
	"github.com/paynudge/reminder-backend/pkg/logger"
)

// ProcessResult summarizes one processor tick.
type ProcessResult struct {
	Processed  int      `json:"processed"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

type ProcessorService struct {
	Accounts   repository.AccountRepositoryInterface
	Customers  repository.CustomerRepositoryInterface
	Invoices   repository.InvoiceRepositoryInterface
	Reminders  repository.ReminderRepositoryInterface
	Settings   *SettingsService
	Accounting accounting.Client
	Voice      provider.VoiceProvider
	SMS        provider.SMSProvider

	DefaultCountryCode string
	Log                *zap.Logger
}

// ProcessReminders runs one tick: every pending reminder whose scheduled
// date has arrived is window-checked, re-verified against the accounting
// source, atomically claimed and dispatched. Per-reminder failures are
// isolated; a duplicate tick finds reminders already claimed and does
// nothing. Reminder state is always re-read from the store, never cached
// across ticks.
func (p *ProcessorService) ProcessReminders(ctx context.Context, now time.Time) (*ProcessResult, error) {
	due, err := p.Reminders.ListDue(now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}

	result := &ProcessResult{}
	// Per-tick account caches; reminder state itself is never cached.
	settingsByAccount := map[int]*model.ReminderSettings{}
	accountsByID := map[int]*model.Account{}

	for _, rem := range due {
		settings, ok := settingsByAccount[rem.AccountID]
		if !ok {
			settings, err = p.Settings.Get(rem.AccountID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("reminder %d: settings: %v", rem.ID, err))
				continue
			}
			settingsByAccount[rem.AccountID] = settings
		}
		account, ok := accountsByID[rem.AccountID]
		if !ok {
			account, err = p.Accounts.GetByID(rem.AccountID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("reminder %d: account: %v", rem.ID, err))
				continue
			}
			accountsByID[rem.AccountID] = account
		}

		if err := p.processOne(ctx, rem, account, settings, now, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reminder %d: %v", rem.ID, err))
		}
	}

	p.Log.Info("reminder processing tick complete",
		zap.Int("due", len(due)),
		zap.Int("processed", result.Processed),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (p *ProcessorService) processOne(
	ctx context.Context,
	rem *model.PaymentReminder,
	account *model.Account,
	settings *model.ReminderSettings,
	now time.Time,
	result *ProcessResult,
) error {
	// (a) Call window. Outside the window the reminder stays pending and is
	// not counted as an attempt; a later tick picks it up.
	inWindow, err := schedule.WithinCallWindow(now, settings)
	if err != nil {
		return err
	}
	if !inWindow {
		result.Skipped++
		return nil
	}

	invoice, err := p.Invoices.GetByID(rem.InvoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		result.Skipped++
		_, err := p.Reminders.Transition(rem.ID, []model.ReminderStatus{model.ReminderPending}, model.ReminderSkipped)
		return err
	}

	// (b) Pre-dispatch re-verification against the accounting source. A
	// fetch failure leaves the reminder pending for the next tick.
	rec, err := p.Accounting.GetInvoiceByID(ctx, account.OrgID, invoice.ExternalID)
	if err != nil {
		return fmt.Errorf("pre-dispatch verification: %w", err)
	}
	if model.InvoiceStatus(rec.Status).IsResolved() {
		invoice.Status = model.InvoiceStatus(rec.Status)
		if err := p.Invoices.Update(invoice); err != nil {
			return err
		}
		cancelled, err := p.Reminders.CancelPendingForInvoice(invoice.ID, skipReasonInvoiceResolved)
		if err != nil {
			return err
		}
		result.Skipped += cancelled
		return nil
	}

	// (c) Atomic claim. Zero rows means another tick got here first.
	claimed, err := p.Reminders.Claim(rem.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	result.Processed++

	// (d) Dispatch on the channel stored at creation time.
	return p.dispatch(ctx, rem, account, invoice, settings, now, result)
}

func (p *ProcessorService) dispatch(
	ctx context.Context,
	rem *model.PaymentReminder,
	account *model.Account,
	invoice *model.Invoice,
	settings *model.ReminderSettings,
	now time.Time,
	result *ProcessResult,
) error {
	claimedOnly := []model.ReminderStatus{model.ReminderInProgress}

	if invoice.CustomerID == nil {
		result.Failed++
		_, err := p.Reminders.FailFrom(rem.ID, claimedOnly, "customer unresolved", true, now)
		return err
	}
	customer, err := p.Customers.GetByID(*invoice.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil {
		result.Failed++
		_, err := p.Reminders.FailFrom(rem.ID, claimedOnly, "customer unresolved", true, now)
		return err
	}

	// Malformed numbers short-circuit to permanent failure without ever
	// invoking a provider adapter.
	phone, err := provider.NormalizeE164(customer.Phone, p.DefaultCountryCode)
	if err != nil {
		result.Failed++
		_, failErr := p.Reminders.FailFrom(rem.ID, claimedOnly, err.Error(), true, now)
		return failErr
	}

	var externalID string
	var dispatchErr error
	switch rem.Channel {
	case model.ChannelVoice:
		req := &provider.VoiceCallRequest{
			PhoneE164:     phone,
			CustomerName:  customer.Name,
			BusinessName:  account.BusinessName,
			InvoiceNumber: invoice.ExternalID,
			AmountDue:     invoice.AmountDue,
			Currency:      invoice.Currency,
			DueDate:       invoice.DueDate,
			Language:      settings.Language,
			VoiceGender:   settings.VoiceGender,
			Script:        RenderVoiceScript(account, customer, invoice),
		}
		externalID, dispatchErr = p.Voice.PlaceCall(ctx, req)
	case model.ChannelSMS:
		body := RenderSMSBody(account, customer, invoice)
		externalID, dispatchErr = p.SMS.SendSMS(ctx, phone, body)
	default:
		result.Failed++
		_, err := p.Reminders.FailFrom(rem.ID, claimedOnly, fmt.Sprintf("unknown channel %q", rem.Channel), true, now)
		return err
	}

	if dispatchErr != nil {
		return p.classifyDispatchFailure(rem, settings, now, dispatchErr, result)
	}

	if err := p.Reminders.MarkDispatched(rem.ID, externalID, now); err != nil {
		return err
	}
	result.Successful++
	p.Log.Info("reminder dispatched",
		zap.Int("reminder_id", rem.ID),
		zap.String("channel", string(rem.Channel)),
		zap.String("external_id", externalID),
		zap.String("phone", logger.MaskPhone(phone)))
	return nil
}

func (p *ProcessorService) classifyDispatchFailure(
	rem *model.PaymentReminder,
	settings *model.ReminderSettings,
	now time.Time,
	dispatchErr error,
	result *ProcessResult,
) error {
	claimedOnly := []model.ReminderStatus{model.ReminderInProgress}

	if appErrors.IsPermanentDelivery(dispatchErr) {
		result.Failed++
		_, err := p.Reminders.FailFrom(rem.ID, claimedOnly, dispatchErr.Error(), true, now)
		return err
	}

	// Transient (including timeouts and rate limits): retry policy decides.
	result.Failed++
	_, err := retryOrFail(p.Reminders, rem, settings, now, claimedOnly,
		dispatchErr.Error(), appErrors.IsRateLimited(dispatchErr), true)
	return err
}
