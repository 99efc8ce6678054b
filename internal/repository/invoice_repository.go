package repository

import (
	"database/sql"

	"github.com/paynudge/reminder-backend/internal/model"
)

// InvoiceRepositoryInterface defines methods used by services
type InvoiceRepositoryInterface interface {
	GetByID(id int) (*model.Invoice, error)
	GetByExternalID(accountID int, externalID string) (*model.Invoice, error)
	Insert(inv *model.Invoice) error
	Update(inv *model.Invoice) error
	ListPendingReminderCreation(accountID int) ([]*model.Invoice, error)
	SetRemindersCreated(id int, created bool) error
}

type InvoiceRepository struct {
	DB *sql.DB
}

const invoiceColumns = `id, account_id, external_id, customer_id, total_amount, amount_due, currency,
	due_date, status, content_hash, reminders_created, created_at, updated_at`

func (r *InvoiceRepository) GetByID(id int) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id=$1`
	return scanInvoice(r.DB.QueryRow(query, id))
}

func (r *InvoiceRepository) GetByExternalID(accountID int, externalID string) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE account_id=$1 AND external_id=$2`
	return scanInvoice(r.DB.QueryRow(query, accountID, externalID))
}

func scanInvoice(row *sql.Row) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID, &inv.AccountID, &inv.ExternalID, &inv.CustomerID,
		&inv.TotalAmount, &inv.AmountDue, &inv.Currency,
		&inv.DueDate, &inv.Status, &inv.ContentHash, &inv.RemindersCreated,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) Insert(inv *model.Invoice) error {
	query := `
        INSERT INTO invoices
        (account_id, external_id, customer_id, total_amount, amount_due, currency, due_date, status, content_hash, reminders_created, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id, created_at
    `
	return r.DB.QueryRow(query,
		inv.AccountID, inv.ExternalID, inv.CustomerID,
		inv.TotalAmount, inv.AmountDue, inv.Currency,
		inv.DueDate, inv.Status, inv.ContentHash, inv.RemindersCreated,
	).Scan(&inv.ID, &inv.CreatedAt)
}

func (r *InvoiceRepository) Update(inv *model.Invoice) error {
	query := `
        UPDATE invoices
        SET customer_id=$1, total_amount=$2, amount_due=$3, currency=$4, due_date=$5,
            status=$6, content_hash=$7, reminders_created=$8, updated_at=NOW()
        WHERE id=$9
    `
	_, err := r.DB.Exec(query,
		inv.CustomerID, inv.TotalAmount, inv.AmountDue, inv.Currency, inv.DueDate,
		inv.Status, inv.ContentHash, inv.RemindersCreated, inv.ID,
	)
	return err
}

// ListPendingReminderCreation returns invoices whose schedule has not been
// materialized for their current content hash.
func (r *InvoiceRepository) ListPendingReminderCreation(accountID int) ([]*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
        WHERE account_id=$1 AND reminders_created=false
        ORDER BY due_date, id`
	rows, err := r.DB.Query(query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*model.Invoice{}
	for rows.Next() {
		inv := &model.Invoice{}
		if err := rows.Scan(
			&inv.ID, &inv.AccountID, &inv.ExternalID, &inv.CustomerID,
			&inv.TotalAmount, &inv.AmountDue, &inv.Currency,
			&inv.DueDate, &inv.Status, &inv.ContentHash, &inv.RemindersCreated,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) SetRemindersCreated(id int, created bool) error {
	query := `UPDATE invoices SET reminders_created=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, created, id)
	return err
}

var _ InvoiceRepositoryInterface = (*InvoiceRepository)(nil)
