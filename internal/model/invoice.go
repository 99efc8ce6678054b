// internal/model/invoice.go
package model

import "time"

type InvoiceStatus string

const (
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceVoided  InvoiceStatus = "voided"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// IsResolved reports whether the invoice no longer needs reminders.
func (s InvoiceStatus) IsResolved() bool {
	return s == InvoicePaid || s == InvoiceVoided
}

// Invoice is a cached record from the external accounting source. CustomerID
// is nullable because an invoice may arrive before its customer record.
// ContentHash covers the fields that affect scheduling; when it changes,
// RemindersCreated is reset so the schedule is rebuilt.
type Invoice struct {
	ID               int           `db:"id" json:"id"`
	AccountID        int           `db:"account_id" json:"account_id"`
	ExternalID       string        `db:"external_id" json:"external_id"`
	CustomerID       *int          `db:"customer_id" json:"customer_id,omitempty"`
	TotalAmount      float64       `db:"total_amount" json:"total_amount"`
	AmountDue        float64       `db:"amount_due" json:"amount_due"`
	Currency         string        `db:"currency" json:"currency"`
	DueDate          time.Time     `db:"due_date" json:"due_date"`
	Status           InvoiceStatus `db:"status" json:"status"`
	ContentHash      string        `db:"content_hash" json:"content_hash"`
	RemindersCreated bool          `db:"reminders_created" json:"reminders_created"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}
