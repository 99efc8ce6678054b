package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paynudge/reminder-backend/internal/accounting"
	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
	"github.com/paynudge/reminder-backend/internal/provider"
	"github.com/paynudge/reminder-backend/internal/queue"
	"github.com/paynudge/reminder-backend/internal/repository"
)

// In-memory repositories mirroring the SQL repos' conditional-update
// semantics, so concurrency behaviors can be exercised without a database.

type mockReminderRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*model.PaymentReminder
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{nextID: 1, byID: map[int]*model.PaymentReminder{}}
}

func (m *mockReminderRepo) clone(r *model.PaymentReminder) *model.PaymentReminder {
	c := *r
	if r.CallOutcome != nil {
		oc := *r.CallOutcome
		c.CallOutcome = &oc
	}
	return &c
}

func (m *mockReminderRepo) GetByID(id int) (*model.PaymentReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return m.clone(r), nil
}

func (m *mockReminderRepo) GetByExternalID(externalID string) (*model.PaymentReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.ExternalID == externalID {
			return m.clone(r), nil
		}
	}
	return nil, nil
}

func (m *mockReminderRepo) CreateIfAbsent(rem *model.PaymentReminder) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.InvoiceID == rem.InvoiceID && r.ReminderType == rem.ReminderType {
			return false, nil
		}
	}
	rem.ID = m.nextID
	rem.CreatedAt = time.Now()
	m.nextID++
	m.byID[rem.ID] = m.clone(rem)
	return true, nil
}

func (m *mockReminderRepo) ListDue(now time.Time) ([]*model.PaymentReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PaymentReminder{}
	for _, r := range m.byID {
		if r.Status == model.ReminderPending && !r.ScheduledDate.After(now) {
			out = append(out, m.clone(r))
		}
	}
	return out, nil
}

func (m *mockReminderRepo) ListByAccount(accountID, offset, limit int, status string) ([]*model.PaymentReminder, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PaymentReminder{}
	for _, r := range m.byID {
		if r.AccountID == accountID && (status == "" || string(r.Status) == status) {
			out = append(out, m.clone(r))
		}
	}
	return out, len(out), nil
}

func (m *mockReminderRepo) Claim(id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || r.Status != model.ReminderPending {
		return false, nil
	}
	r.Status = model.ReminderInProgress
	return true, nil
}

func (m *mockReminderRepo) MarkDispatched(id int, externalID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("reminder %d not found", id)
	}
	r.ExternalID = externalID
	r.AttemptCount++
	r.LastAttemptAt = &at
	return nil
}

func statusIn(s model.ReminderStatus, from []model.ReminderStatus) bool {
	for _, f := range from {
		if s == f {
			return true
		}
	}
	return false
}

func (m *mockReminderRepo) Transition(id int, from []model.ReminderStatus, to model.ReminderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || !statusIn(r.Status, from) {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (m *mockReminderRepo) CompleteWithOutcome(id int, from []model.ReminderStatus, outcome *model.CallOutcome, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || !statusIn(r.Status, from) {
		return false, nil
	}
	r.Status = model.ReminderCompleted
	r.CallOutcome = outcome
	r.LastAttemptAt = &at
	return true, nil
}

func (m *mockReminderRepo) RetryFrom(id int, from []model.ReminderStatus, nextAt time.Time, reason string, incrementAttempt bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || !statusIn(r.Status, from) {
		return false, nil
	}
	r.Status = model.ReminderPending
	r.ScheduledDate = nextAt
	r.SkipReason = reason
	if incrementAttempt {
		r.AttemptCount++
	}
	now := time.Now()
	r.LastAttemptAt = &now
	return true, nil
}

func (m *mockReminderRepo) FailFrom(id int, from []model.ReminderStatus, reason string, incrementAttempt bool, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || !statusIn(r.Status, from) {
		return false, nil
	}
	r.Status = model.ReminderFailed
	r.SkipReason = reason
	if incrementAttempt {
		r.AttemptCount++
	}
	r.LastAttemptAt = &at
	return true, nil
}

func (m *mockReminderRepo) CancelPendingForInvoice(invoiceID int, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancelled := 0
	for _, r := range m.byID {
		if r.InvoiceID == invoiceID && !r.Status.IsTerminal() {
			r.Status = model.ReminderSkipped
			r.SkipReason = reason
			cancelled++
		}
	}
	return cancelled, nil
}

// seed inserts a reminder directly, bypassing the uniqueness check.
func (m *mockReminderRepo) seed(r *model.PaymentReminder) *model.PaymentReminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.nextID
		m.nextID++
	}
	m.byID[r.ID] = m.clone(r)
	return r
}

var _ repository.ReminderRepositoryInterface = (*mockReminderRepo)(nil)

type mockInvoiceRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*model.Invoice
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{nextID: 1, byID: map[int]*model.Invoice{}}
}

func (m *mockInvoiceRepo) clone(inv *model.Invoice) *model.Invoice {
	c := *inv
	if inv.CustomerID != nil {
		id := *inv.CustomerID
		c.CustomerID = &id
	}
	return &c
}

func (m *mockInvoiceRepo) GetByID(id int) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return m.clone(inv), nil
}

func (m *mockInvoiceRepo) GetByExternalID(accountID int, externalID string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.byID {
		if inv.AccountID == accountID && inv.ExternalID == externalID {
			return m.clone(inv), nil
		}
	}
	return nil, nil
}

func (m *mockInvoiceRepo) Insert(inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.nextID
	inv.CreatedAt = time.Now()
	m.nextID++
	m.byID[inv.ID] = m.clone(inv)
	return nil
}

func (m *mockInvoiceRepo) Update(inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[inv.ID]; !ok {
		return fmt.Errorf("invoice %d not found", inv.ID)
	}
	m.byID[inv.ID] = m.clone(inv)
	return nil
}

func (m *mockInvoiceRepo) ListPendingReminderCreation(accountID int) ([]*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Invoice{}
	for _, inv := range m.byID {
		if inv.AccountID == accountID && !inv.RemindersCreated {
			out = append(out, m.clone(inv))
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) SetRemindersCreated(id int, created bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("invoice %d not found", id)
	}
	inv.RemindersCreated = created
	return nil
}

var _ repository.InvoiceRepositoryInterface = (*mockInvoiceRepo)(nil)

type mockCustomerRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*model.Customer
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{nextID: 1, byID: map[int]*model.Customer{}}
}

func (m *mockCustomerRepo) GetByID(id int) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (m *mockCustomerRepo) GetByExternalID(accountID int, externalID string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.AccountID == accountID && c.ExternalID == externalID {
			cc := *c
			return &cc, nil
		}
	}
	return nil, nil
}

func (m *mockCustomerRepo) Insert(c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	cc := *c
	m.byID[c.ID] = &cc
	return nil
}

func (m *mockCustomerRepo) Update(c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc := *c
	m.byID[c.ID] = &cc
	return nil
}

var _ repository.CustomerRepositoryInterface = (*mockCustomerRepo)(nil)

type mockSettingsRepo struct {
	mu        sync.Mutex
	byAccount map[int]*model.ReminderSettings
	upserts   int
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{byAccount: map[int]*model.ReminderSettings{}}
}

func (m *mockSettingsRepo) GetByAccountID(accountID int) (*model.ReminderSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byAccount[accountID]
	if !ok {
		return nil, nil
	}
	cc := *s
	return &cc, nil
}

func (m *mockSettingsRepo) Upsert(s *model.ReminderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc := *s
	m.byAccount[s.AccountID] = &cc
	m.upserts++
	return nil
}

var _ repository.SettingsRepositoryInterface = (*mockSettingsRepo)(nil)

type mockAccountRepo struct {
	accounts map[int]*model.Account
}

func newMockAccountRepo(accounts ...*model.Account) *mockAccountRepo {
	m := &mockAccountRepo{accounts: map[int]*model.Account{}}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountRepo) GetByID(id int) (*model.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, appErrors.NewAccountNotFound(id)
	}
	return a, nil
}

func (m *mockAccountRepo) ListAll() ([]model.Account, error) {
	out := []model.Account{}
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

var _ repository.AccountRepositoryInterface = (*mockAccountRepo)(nil)

type mockSyncMetaRepo struct {
	mu         sync.Mutex
	watermarks map[int]time.Time
	writes     int
}

func newMockSyncMetaRepo() *mockSyncMetaRepo {
	return &mockSyncMetaRepo{watermarks: map[int]time.Time{}}
}

func (m *mockSyncMetaRepo) Get(accountID int) (*model.SyncMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.watermarks[accountID]
	if !ok {
		return nil, nil
	}
	return &model.SyncMetadata{AccountID: accountID, LastCustomerSyncAt: &at, LastIncrementalSyncAt: &at}, nil
}

func (m *mockSyncMetaRepo) SetWatermarks(accountID int, customerSyncAt, incrementalSyncAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermarks[accountID] = incrementalSyncAt
	m.writes++
	return nil
}

var _ repository.SyncMetadataRepositoryInterface = (*mockSyncMetaRepo)(nil)

// mockAccountingClient serves canned customer/invoice lists.
type mockAccountingClient struct {
	customers    []accounting.CustomerRecord
	invoices     []accounting.InvoiceRecord
	customersErr error
	invoicesErr  error
	getInvoice   func(externalID string) (*accounting.InvoiceRecord, error)
}

func (m *mockAccountingClient) ListCustomers(ctx context.Context, orgID string) ([]accounting.CustomerRecord, error) {
	if m.customersErr != nil {
		return nil, m.customersErr
	}
	return m.customers, nil
}

func (m *mockAccountingClient) ListInvoices(ctx context.Context, orgID string, dueDateMin, dueDateMax time.Time) ([]accounting.InvoiceRecord, error) {
	if m.invoicesErr != nil {
		return nil, m.invoicesErr
	}
	return m.invoices, nil
}

func (m *mockAccountingClient) GetInvoiceByID(ctx context.Context, orgID, externalID string) (*accounting.InvoiceRecord, error) {
	if m.getInvoice != nil {
		return m.getInvoice(externalID)
	}
	for i := range m.invoices {
		if m.invoices[i].ExternalID == externalID {
			return &m.invoices[i], nil
		}
	}
	return nil, fmt.Errorf("invoice %s not found upstream", externalID)
}

var _ accounting.Client = (*mockAccountingClient)(nil)

type mockSMSProvider struct {
	mu     sync.Mutex
	calls  int
	phones []string
	err    error
}

func (m *mockSMSProvider) SendSMS(ctx context.Context, phoneE164, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.phones = append(m.phones, phoneE164)
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("sms-%d", m.calls), nil
}

type mockVoiceProvider struct {
	mu       sync.Mutex
	calls    int
	requests []*provider.VoiceCallRequest
	err      error
}

func (m *mockVoiceProvider) PlaceCall(ctx context.Context, req *provider.VoiceCallRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("call-%d", m.calls), nil
}

var _ provider.VoiceProvider = (*mockVoiceProvider)(nil)
var _ provider.SMSProvider = (*mockSMSProvider)(nil)

type mockQueue struct {
	mu        sync.Mutex
	published []any
	err       error
}

func (m *mockQueue) Publish(topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, payload)
	return nil
}

func (m *mockQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

var _ queue.Queue = (*mockQueue)(nil)
