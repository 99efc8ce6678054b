package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paynudge/reminder-backend/internal/accounting"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/queue"
)

// Wednesday, inside the default call window.
var syncNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type syncFixture struct {
	accounts   *mockAccountRepo
	settings   *mockSettingsRepo
	customers  *mockCustomerRepo
	invoices   *mockInvoiceRepo
	reminders  *mockReminderRepo
	syncMeta   *mockSyncMetaRepo
	accounting *mockAccountingClient
	queue      *mockQueue
	svc        *SyncService
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		accounts:   newMockAccountRepo(&model.Account{ID: 1, Name: "Acme", BusinessName: "Acme Corp", OrgID: "org-1"}),
		settings:   newMockSettingsRepo(),
		customers:  newMockCustomerRepo(),
		invoices:   newMockInvoiceRepo(),
		reminders:  newMockReminderRepo(),
		syncMeta:   newMockSyncMetaRepo(),
		accounting: &mockAccountingClient{},
		queue:      &mockQueue{},
	}
	f.svc = &SyncService{
		Accounts:   f.accounts,
		Settings:   newSettingsService(f.settings),
		Customers:  f.customers,
		Invoices:   f.invoices,
		Reminders:  f.reminders,
		SyncMeta:   f.syncMeta,
		Accounting: f.accounting,
		Queue:      f.queue,
		SyncTopic:  "invoice_sync",
		Log:        zap.NewNop(),
		Now:        func() time.Time { return syncNow },
	}
	return f
}

func (f *syncFixture) run(t *testing.T) *SyncResult {
	t.Helper()
	result, err := f.svc.SyncInvoicesForUser(context.Background(), 1, "org-1")
	require.NoError(t, err)
	return result
}

func TestSyncCreatesScheduleForUpcomingInvoice(t *testing.T) {
	f := newSyncFixture()
	f.accounting.customers = []accounting.CustomerRecord{
		{ExternalID: "cust-1", Name: "Jane Doe", Phone: "+4915112345678", Email: "jane@example.com"},
	}
	f.accounting.invoices = []accounting.InvoiceRecord{
		{ExternalID: "inv-1", CustomerExternalID: "cust-1", TotalAmount: 500, AmountDue: 500,
			Currency: "EUR", DueDate: syncNow.AddDate(0, 0, 7), Status: "sent"},
	}

	result := f.run(t)

	assert.Equal(t, 1, result.CustomersInserted)
	assert.Equal(t, 1, result.InvoicesInserted)
	assert.Equal(t, 2, result.RemindersCreated)
	assert.Empty(t, result.Errors)

	// Default cadence: 7 days before (due today, smart mode picks SMS) and
	// on the due date (voice).
	rems, _, err := f.reminders.ListByAccount(1, 0, 10, "")
	require.NoError(t, err)
	require.Len(t, rems, 2)

	byType := map[string]*model.PaymentReminder{}
	for _, r := range rems {
		byType[r.ReminderType] = r
	}
	require.Contains(t, byType, "7_days_before")
	require.Contains(t, byType, "on_due_date")

	week := byType["7_days_before"]
	assert.Equal(t, model.ChannelSMS, week.Channel)
	assert.Equal(t, model.ReminderPending, week.Status)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), week.ScheduledDate)

	due := byType["on_due_date"]
	assert.Equal(t, model.ChannelVoice, due.Channel)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), due.ScheduledDate)

	inv, err := f.invoices.GetByExternalID(1, "inv-1")
	require.NoError(t, err)
	assert.True(t, inv.RemindersCreated)
	assert.NotEmpty(t, inv.ContentHash)
}

func TestSyncIsIdempotentOnUnchangedData(t *testing.T) {
	f := newSyncFixture()
	f.accounting.customers = []accounting.CustomerRecord{
		{ExternalID: "cust-1", Name: "Jane Doe", Phone: "+4915112345678"},
	}
	f.accounting.invoices = []accounting.InvoiceRecord{
		{ExternalID: "inv-1", CustomerExternalID: "cust-1", AmountDue: 500,
			Currency: "EUR", DueDate: syncNow.AddDate(0, 0, 7), Status: "sent"},
	}

	first := f.run(t)
	require.Equal(t, 2, first.RemindersCreated)

	second := f.run(t)
	assert.Zero(t, second.CustomersInserted)
	assert.Zero(t, second.CustomersUpdated)
	assert.Zero(t, second.InvoicesInserted)
	assert.Zero(t, second.InvoicesUpdated)
	assert.Zero(t, second.RemindersCreated)
	assert.Empty(t, second.Errors)

	rems, total, err := f.reminders.ListByAccount(1, 0, 10, "")
	require.NoError(t, err)
	assert.Len(t, rems, 2)
	assert.Equal(t, 2, total)

	// Only the watermark is written again.
	assert.Equal(t, 2, f.syncMeta.writes)
}

func TestSyncManualModeInvoiceDueToday(t *testing.T) {
	f := newSyncFixture()
	manual := DefaultSettings(1)
	manual.SmartMode = false
	manual.ManualChannel = model.ChannelSMS
	require.NoError(t, f.settings.Upsert(manual))

	f.accounting.customers = []accounting.CustomerRecord{
		{ExternalID: "cust-1", Name: "Jane Doe", Phone: "+4915112345678"},
	}
	f.accounting.invoices = []accounting.InvoiceRecord{
		{ExternalID: "inv-1", CustomerExternalID: "cust-1", AmountDue: 120,
			Currency: "EUR", DueDate: syncNow, Status: "sent"},
	}

	result := f.run(t)

	// The 7-days-before slot is already in the past and is never backfilled;
	// only the due-date reminder materializes, on the manual channel.
	require.Equal(t, 1, result.RemindersCreated)
	rems, _, err := f.reminders.ListByAccount(1, 0, 10, "")
	require.NoError(t, err)
	require.Len(t, rems, 1)
	assert.Equal(t, "on_due_date", rems[0].ReminderType)
	assert.Equal(t, model.ChannelSMS, rems[0].Channel)
}

func TestSyncCustomerWithoutPhoneWarnsAndMovesOn(t *testing.T) {
	f := newSyncFixture()
	f.accounting.customers = []accounting.CustomerRecord{
		{ExternalID: "cust-1", Name: "Jane Doe", Phone: ""},
	}
	f.accounting.invoices = []accounting.InvoiceRecord{
		{ExternalID: "inv-1", CustomerExternalID: "cust-1", AmountDue: 500,
			Currency: "EUR", DueDate: syncNow.AddDate(0, 0, 7), Status: "sent"},
	}

	result := f.run(t)

	assert.Zero(t, result.RemindersCreated)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "inv-1")
	assert.Empty(t, result.Errors)

	// Flagged done so the next run does not retry the same invoice forever.
	inv, err := f.invoices.GetByExternalID(1, "inv-1")
	require.NoError(t, err)
	assert.True(t, inv.RemindersCreated)
}

func TestSyncPaidInvoiceCancelsPendingReminders(t *testing.T) {
	f := newSyncFixture()
	f.accounting.customers = []accounting.CustomerRecord{
		{ExternalID: "cust-1", Name: "Jane Doe", Phone: "+4915112345678"},
	}
	f.accounting.invoices = []accounting.InvoiceRecord{
		{ExternalID: "inv-1", CustomerExternalID: "cust-1", AmountDue: 500,
			Currency: "EUR", DueDate: syncNow.AddDate(0, 0, 7), Status: "sent"},
	}
	first := f.run(t)
	require.Equal(t, 2, first.RemindersCreated)

	f.accounting.invoices[0].Status = "paid"
	second := f.run(t)

	assert.Equal(t, 1, second.InvoicesUpdated)
	assert.Equal(t, 2, second.RemindersCancelled)
	assert.Zero(t, second.RemindersCreated)

	rems, _, err := f.reminders.ListByAccount(1, 0, 10, "")
	require.NoError(t, err)
	for _, r := range rems {
		assert.Equal(t, model.ReminderSkipped, r.Status)
		assert.Equal(t, "invoice_resolved", r.SkipReason)
	}
}

func TestSyncAmountChangeRebuildsWithoutDuplicates(t *testing.T) {
	f := newSyncFixture()
	f.accounting.customers = []accounting.CustomerRecord{
		{ExternalID: "cust-1", Name: "Jane Doe", Phone: "+4915112345678"},
	}
	f.accounting.invoices = []accounting.InvoiceRecord{
		{ExternalID: "inv-1", CustomerExternalID: "cust-1", AmountDue: 500,
			Currency: "EUR", DueDate: syncNow.AddDate(0, 0, 7), Status: "sent"},
	}
	f.run(t)

	f.accounting.invoices[0].AmountDue = 250
	second := f.run(t)

	// The hash change resets materialization, but existing pending reminders
	// for the same slots are kept rather than duplicated.
	assert.Equal(t, 1, second.InvoicesUpdated)
	assert.Zero(t, second.RemindersCreated)
	rems, _, err := f.reminders.ListByAccount(1, 0, 10, "")
	require.NoError(t, err)
	assert.Len(t, rems, 2)

	inv, err := f.invoices.GetByExternalID(1, "inv-1")
	require.NoError(t, err)
	assert.True(t, inv.RemindersCreated)
}

func TestSyncAllAccountsPublishesOneJobPerAccount(t *testing.T) {
	f := newSyncFixture()
	f.accounts.accounts[2] = &model.Account{ID: 2, Name: "Beta", BusinessName: "Beta GmbH", OrgID: "org-2"}

	result, err := f.svc.SyncAllAccounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.AccountsQueued)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, f.queue.published, 2)
	for _, payload := range f.queue.published {
		job, ok := payload.(*queue.SyncJob)
		require.True(t, ok)
		assert.Equal(t, result.RunID, job.RunID)
	}
}
