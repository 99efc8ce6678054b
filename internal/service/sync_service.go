// internal/service/sync_service.go
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paynudge/reminder-backend/internal/accounting"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/queue"
	"github.com/paynudge/reminder-backend/internal/repository"
	"github.com/paynudge/reminder-backend/internal/schedule"
)

const (
	// syncWindowOverlapDays backfills slightly into the past so invoices
	// that became overdue between runs are still caught.
	syncWindowOverlapDays = 3
	// processingLagDays pads the future bound: a 30-day reminder needs
	// invoices due within ~35 days to allow for processing lag.
	processingLagDays = 5

	skipReasonInvoiceResolved = "invoice_resolved"
)

// SyncResult summarizes one account's sync run. Per-item failures are
// collected, never thrown; only a store-level failure aborts the run.
type SyncResult struct {
	CustomersFetched   int      `json:"customers_fetched"`
	CustomersInserted  int      `json:"customers_inserted"`
	CustomersUpdated   int      `json:"customers_updated"`
	InvoicesFetched    int      `json:"invoices_fetched"`
	InvoicesInserted   int      `json:"invoices_inserted"`
	InvoicesUpdated    int      `json:"invoices_updated"`
	RemindersCreated   int      `json:"reminders_created"`
	RemindersCancelled int      `json:"reminders_cancelled"`
	Warnings           []string `json:"warnings,omitempty"`
	Errors             []string `json:"errors,omitempty"`
}

// FanOutResult summarizes the daily trigger's per-account job publication.
type FanOutResult struct {
	RunID          string   `json:"run_id"`
	AccountsQueued int      `json:"accounts_queued"`
	Errors         []string `json:"errors,omitempty"`
}

type SyncService struct {
	Accounts   repository.AccountRepositoryInterface
	Settings   *SettingsService
	Customers  repository.CustomerRepositoryInterface
	Invoices   repository.InvoiceRepositoryInterface
	Reminders  repository.ReminderRepositoryInterface
	SyncMeta   repository.SyncMetadataRepositoryInterface
	Accounting accounting.Client
	Queue      queue.Queue
	SyncTopic  string
	Log        *zap.Logger
	Now        func() time.Time
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SyncAllAccounts publishes one sync job per account. Accounts fail
// independently; one account's publish error never blocks the rest.
func (s *SyncService) SyncAllAccounts(ctx context.Context) (*FanOutResult, error) {
	accounts, err := s.Accounts.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := &FanOutResult{RunID: uuid.NewString()}
	for _, account := range accounts {
		job := &queue.SyncJob{AccountID: account.ID, OrgID: account.OrgID, RunID: result.RunID}
		if err := s.Queue.Publish(s.SyncTopic, job); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("account %d: %v", account.ID, err))
			continue
		}
		result.AccountsQueued++
	}

	s.Log.Info("sync fan-out complete",
		zap.String("run_id", result.RunID),
		zap.Int("accounts_queued", result.AccountsQueued),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// RunAccountSync adapts SyncInvoicesForUser to the queue subscriber contract.
func (s *SyncService) RunAccountSync(ctx context.Context, accountID int, orgID string) error {
	result, err := s.SyncInvoicesForUser(ctx, accountID, orgID)
	if err != nil {
		return err
	}
	s.Log.Info("account sync complete",
		zap.Int("account_id", accountID),
		zap.Int("customers_fetched", result.CustomersFetched),
		zap.Int("invoices_fetched", result.InvoicesFetched),
		zap.Int("reminders_created", result.RemindersCreated),
		zap.Int("errors", len(result.Errors)))
	return nil
}

// SyncInvoicesForUser runs one account's full sync cycle: customers, then a
// windowed invoice pull with content-hash change detection, then reminder
// materialization, then watermarks. Re-running with unchanged upstream data
// writes nothing but the watermarks.
func (s *SyncService) SyncInvoicesForUser(ctx context.Context, accountID int, orgID string) (*SyncResult, error) {
	settings, err := s.Settings.Get(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	result := &SyncResult{}
	now := s.now()

	// Customer sync failures are recorded but do not abort invoice sync.
	if err := s.syncCustomers(ctx, accountID, orgID, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("customer sync: %v", err))
	}

	if err := s.syncInvoices(ctx, accountID, orgID, settings, now, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("invoice sync: %v", err))
	}

	if err := s.materializeReminders(accountID, settings, now, result); err != nil {
		return result, err
	}

	if err := s.SyncMeta.SetWatermarks(accountID, now, now); err != nil {
		return result, fmt.Errorf("failed to update sync watermarks: %w", err)
	}
	return result, nil
}

func (s *SyncService) syncCustomers(ctx context.Context, accountID int, orgID string, result *SyncResult) error {
	records, err := s.Accounting.ListCustomers(ctx, orgID)
	if err != nil {
		return err
	}
	result.CustomersFetched = len(records)

	for _, rec := range records {
		existing, err := s.Customers.GetByExternalID(accountID, rec.ExternalID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("customer %s: %v", rec.ExternalID, err))
			continue
		}
		if existing == nil {
			c := &model.Customer{
				AccountID:      accountID,
				ExternalID:     rec.ExternalID,
				Name:           rec.Name,
				Phone:          rec.Phone,
				Email:          rec.Email,
				ContactPersons: rec.ContactPersons,
			}
			if err := s.Customers.Insert(c); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("customer %s: %v", rec.ExternalID, err))
				continue
			}
			result.CustomersInserted++
			continue
		}
		if customerChanged(existing, &rec) {
			existing.Name = rec.Name
			existing.Phone = rec.Phone
			existing.Email = rec.Email
			existing.ContactPersons = rec.ContactPersons
			if err := s.Customers.Update(existing); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("customer %s: %v", rec.ExternalID, err))
				continue
			}
			result.CustomersUpdated++
		}
	}
	return nil
}

func customerChanged(existing *model.Customer, rec *accounting.CustomerRecord) bool {
	if existing.Name != rec.Name || existing.Phone != rec.Phone || existing.Email != rec.Email {
		return true
	}
	if len(existing.ContactPersons) != len(rec.ContactPersons) {
		return true
	}
	for i := range rec.ContactPersons {
		if existing.ContactPersons[i] != rec.ContactPersons[i] {
			return true
		}
	}
	return false
}

func (s *SyncService) syncInvoices(ctx context.Context, accountID int, orgID string, settings *model.ReminderSettings, now time.Time, result *SyncResult) error {
	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dueMin := today.AddDate(0, 0, -syncWindowOverlapDays)
	dueMax := today.AddDate(0, 0, schedule.MaxReminderDays(settings)+processingLagDays)

	records, err := s.Accounting.ListInvoices(ctx, orgID, dueMin, dueMax)
	if err != nil {
		return err
	}
	result.InvoicesFetched = len(records)

	for _, rec := range records {
		if err := s.upsertInvoice(accountID, &rec, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", rec.ExternalID, err))
		}
	}
	return nil
}

func (s *SyncService) upsertInvoice(accountID int, rec *accounting.InvoiceRecord, result *SyncResult) error {
	var customerID *int
	if rec.CustomerExternalID != "" {
		customer, err := s.Customers.GetByExternalID(accountID, rec.CustomerExternalID)
		if err != nil {
			return err
		}
		if customer != nil {
			customerID = &customer.ID
		}
	}

	hash := invoiceContentHash(rec, customerID)
	existing, err := s.Invoices.GetByExternalID(accountID, rec.ExternalID)
	if err != nil {
		return err
	}

	status := model.InvoiceStatus(rec.Status)
	if existing == nil {
		inv := &model.Invoice{
			AccountID:        accountID,
			ExternalID:       rec.ExternalID,
			CustomerID:       customerID,
			TotalAmount:      rec.TotalAmount,
			AmountDue:        rec.AmountDue,
			Currency:         rec.Currency,
			DueDate:          rec.DueDate,
			Status:           status,
			ContentHash:      hash,
			RemindersCreated: false,
		}
		if err := s.Invoices.Insert(inv); err != nil {
			return err
		}
		result.InvoicesInserted++
		return nil
	}

	if existing.ContentHash == hash {
		return nil // unchanged, no write
	}

	wasResolved := existing.Status.IsResolved()
	existing.CustomerID = customerID
	existing.TotalAmount = rec.TotalAmount
	existing.AmountDue = rec.AmountDue
	existing.Currency = rec.Currency
	existing.DueDate = rec.DueDate
	existing.Status = status
	existing.ContentHash = hash
	existing.RemindersCreated = false
	if err := s.Invoices.Update(existing); err != nil {
		return err
	}
	result.InvoicesUpdated++

	// Paid or voided invoices cancel their outstanding reminders.
	if status.IsResolved() && !wasResolved {
		cancelled, err := s.Reminders.CancelPendingForInvoice(existing.ID, skipReasonInvoiceResolved)
		if err != nil {
			return err
		}
		result.RemindersCancelled += cancelled
	}
	return nil
}

// materializeReminders runs the schedule builder for every invoice flagged
// for (re)creation. Invoices without a reachable customer phone are flagged
// done anyway so sync does not retry them forever.
func (s *SyncService) materializeReminders(accountID int, settings *model.ReminderSettings, now time.Time, result *SyncResult) error {
	invoices, err := s.Invoices.ListPendingReminderCreation(accountID)
	if err != nil {
		return fmt.Errorf("failed to list invoices pending reminder creation: %w", err)
	}

	for _, inv := range invoices {
		if inv.Status.IsResolved() {
			if err := s.Invoices.SetRemindersCreated(inv.ID, true); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ExternalID, err))
			}
			continue
		}

		phone := ""
		if inv.CustomerID != nil {
			customer, err := s.Customers.GetByID(*inv.CustomerID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ExternalID, err))
				continue
			}
			if customer != nil {
				phone = customer.Phone
			}
		}
		if phone == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("invoice %s: customer unresolved or has no phone, skipping reminders", inv.ExternalID))
			if err := s.Invoices.SetRemindersCreated(inv.ID, true); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ExternalID, err))
			}
			continue
		}

		occurrences := schedule.BuildReminderSchedule(inv.DueDate, settings, now)
		failed := false
		for _, occ := range occurrences {
			rem := &model.PaymentReminder{
				AccountID:     accountID,
				InvoiceID:     inv.ID,
				ReminderType:  occ.ReminderType,
				ScheduledDate: occ.ScheduledDate,
				Channel:       schedule.AssignChannel(occ.ReminderType, settings),
				Status:        model.ReminderPending,
			}
			created, err := s.Reminders.CreateIfAbsent(rem)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ExternalID, err))
				failed = true
				break
			}
			if created {
				result.RemindersCreated++
			}
		}
		if failed {
			continue // leave reminders_created=false so the next run retries
		}
		if err := s.Invoices.SetRemindersCreated(inv.ID, true); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ExternalID, err))
		}
	}
	return nil
}

// invoiceContentHash digests the fields that affect scheduling. A changed
// hash resets reminder materialization for the invoice.
func invoiceContentHash(rec *accounting.InvoiceRecord, customerID *int) string {
	customer := ""
	if customerID != nil {
		customer = fmt.Sprintf("%d", *customerID)
	}
	payload := fmt.Sprintf("%.2f|%s|%s|%s",
		rec.AmountDue,
		rec.DueDate.UTC().Format("2006-01-02"),
		rec.Status,
		customer,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

var _ queue.SyncRunner = (*SyncService)(nil)
