package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/paynudge/reminder-backend/internal/model"
)

// ReminderRepositoryInterface defines methods used by services. All status
// transitions out of a non-terminal state are conditional updates: the WHERE
// clause asserts the expected prior status and zero rows affected means
// another writer got there first.
type ReminderRepositoryInterface interface {
	GetByID(id int) (*model.PaymentReminder, error)
	GetByExternalID(externalID string) (*model.PaymentReminder, error)
	CreateIfAbsent(rem *model.PaymentReminder) (bool, error)
	ListDue(now time.Time) ([]*model.PaymentReminder, error)
	ListByAccount(accountID, offset, limit int, status string) ([]*model.PaymentReminder, int, error)

	// Claim atomically moves pending -> in_progress. False means the
	// reminder was already claimed (or left pending) by another tick.
	Claim(id int) (bool, error)
	MarkDispatched(id int, externalID string, at time.Time) error
	Transition(id int, from []model.ReminderStatus, to model.ReminderStatus) (bool, error)
	CompleteWithOutcome(id int, from []model.ReminderStatus, outcome *model.CallOutcome, at time.Time) (bool, error)
	RetryFrom(id int, from []model.ReminderStatus, nextAt time.Time, reason string, incrementAttempt bool) (bool, error)
	FailFrom(id int, from []model.ReminderStatus, reason string, incrementAttempt bool, at time.Time) (bool, error)
	CancelPendingForInvoice(invoiceID int, reason string) (int, error)
}

type ReminderRepository struct {
	DB *sql.DB
}

const reminderColumns = `id, account_id, invoice_id, reminder_type, scheduled_date, channel, status,
	attempt_count, last_attempt_at, external_id, call_outcome, skip_reason, created_at, updated_at`

func (r *ReminderRepository) GetByID(id int) (*model.PaymentReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders WHERE id=$1`
	return scanReminderRow(r.DB.QueryRow(query, id))
}

// GetByExternalID resolves a reminder from the provider's tracking id, the key
// callbacks arrive with.
func (r *ReminderRepository) GetByExternalID(externalID string) (*model.PaymentReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders WHERE external_id=$1`
	return scanReminderRow(r.DB.QueryRow(query, externalID))
}

// CreateIfAbsent inserts a reminder unless one already exists for the same
// (invoice, reminder type). Returns whether a row was created, which keeps
// re-running sync from duplicating schedules.
func (r *ReminderRepository) CreateIfAbsent(rem *model.PaymentReminder) (bool, error) {
	query := `
        INSERT INTO payment_reminders
        (account_id, invoice_id, reminder_type, scheduled_date, channel, status, attempt_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, NOW())
        ON CONFLICT (invoice_id, reminder_type) DO NOTHING
        RETURNING id, created_at
    `
	err := r.DB.QueryRow(query,
		rem.AccountID, rem.InvoiceID, rem.ReminderType, rem.ScheduledDate, rem.Channel, rem.Status,
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil // already exists
		}
		return false, err
	}
	return true, nil
}

// ListDue selects dispatchable reminders across all accounts, ordered so that
// within one invoice the earliest-due reminder goes first.
func (r *ReminderRepository) ListDue(now time.Time) ([]*model.PaymentReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders
        WHERE status=$1 AND scheduled_date <= $2
        ORDER BY account_id, invoice_id, scheduled_date, id`
	rows, err := r.DB.Query(query, model.ReminderPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

func (r *ReminderRepository) ListByAccount(accountID, offset, limit int, status string) ([]*model.PaymentReminder, int, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders WHERE account_id=$1`
	args := []interface{}{accountID}
	argPos := 2

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY scheduled_date DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	reminders, err := collectReminders(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM payment_reminders WHERE account_id=$1`
	countArgs := []interface{}{accountID}
	if status != "" {
		countQuery += " AND status=$2"
		countArgs = append(countArgs, status)
	}
	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return reminders, total, nil
}

func (r *ReminderRepository) Claim(id int) (bool, error) {
	query := `UPDATE payment_reminders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, model.ReminderInProgress, id, model.ReminderPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkDispatched records a successful provider submission on a claimed
// reminder: tracking id, attempt count, attempt time. Status stays
// in_progress until the provider reports an outcome.
func (r *ReminderRepository) MarkDispatched(id int, externalID string, at time.Time) error {
	query := `
        UPDATE payment_reminders
        SET external_id=$1, attempt_count=attempt_count+1, last_attempt_at=$2, updated_at=NOW()
        WHERE id=$3
    `
	_, err := r.DB.Exec(query, externalID, at, id)
	return err
}

func (r *ReminderRepository) Transition(id int, from []model.ReminderStatus, to model.ReminderStatus) (bool, error) {
	query := `UPDATE payment_reminders SET status=$1, updated_at=NOW() WHERE id=$2 AND status = ANY($3)`
	res, err := r.DB.Exec(query, to, id, statusArray(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ReminderRepository) CompleteWithOutcome(id int, from []model.ReminderStatus, outcome *model.CallOutcome, at time.Time) (bool, error) {
	var outcomeJSON []byte
	if outcome != nil {
		var err error
		outcomeJSON, err = json.Marshal(outcome)
		if err != nil {
			return false, err
		}
	}
	query := `
        UPDATE payment_reminders
        SET status=$1, call_outcome=$2, last_attempt_at=$3, updated_at=NOW()
        WHERE id=$4 AND status = ANY($5)
    `
	res, err := r.DB.Exec(query, model.ReminderCompleted, outcomeJSON, at, id, statusArray(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RetryFrom pushes a reminder back to pending with a forward scheduled date.
// The attempt increment is optional because dispatch-time failures have
// already counted the attempt via MarkDispatched's bookkeeping path.
func (r *ReminderRepository) RetryFrom(id int, from []model.ReminderStatus, nextAt time.Time, reason string, incrementAttempt bool) (bool, error) {
	bump := 0
	if incrementAttempt {
		bump = 1
	}
	query := `
        UPDATE payment_reminders
        SET status=$1, scheduled_date=$2, skip_reason=$3,
            attempt_count=attempt_count+$4, last_attempt_at=NOW(), updated_at=NOW()
        WHERE id=$5 AND status = ANY($6)
    `
	res, err := r.DB.Exec(query, model.ReminderPending, nextAt, reason, bump, id, statusArray(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ReminderRepository) FailFrom(id int, from []model.ReminderStatus, reason string, incrementAttempt bool, at time.Time) (bool, error) {
	bump := 0
	if incrementAttempt {
		bump = 1
	}
	query := `
        UPDATE payment_reminders
        SET status=$1, skip_reason=$2, attempt_count=attempt_count+$3, last_attempt_at=$4, updated_at=NOW()
        WHERE id=$5 AND status = ANY($6)
    `
	res, err := r.DB.Exec(query, model.ReminderFailed, reason, bump, at, id, statusArray(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CancelPendingForInvoice skips every non-terminal reminder of a resolved
// invoice. Returns the number of reminders cancelled.
func (r *ReminderRepository) CancelPendingForInvoice(invoiceID int, reason string) (int, error) {
	query := `
        UPDATE payment_reminders
        SET status=$1, skip_reason=$2, updated_at=NOW()
        WHERE invoice_id=$3 AND status = ANY($4)
    `
	res, err := r.DB.Exec(query, model.ReminderSkipped, reason, invoiceID,
		statusArray([]model.ReminderStatus{model.ReminderPending, model.ReminderInProgress, model.ReminderProcessing}))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func statusArray(statuses []model.ReminderStatus) pq.StringArray {
	arr := make(pq.StringArray, len(statuses))
	for i, s := range statuses {
		arr[i] = string(s)
	}
	return arr
}

func scanReminderRow(row *sql.Row) (*model.PaymentReminder, error) {
	var rem model.PaymentReminder
	var externalID, skipReason sql.NullString
	var outcome []byte
	err := row.Scan(
		&rem.ID, &rem.AccountID, &rem.InvoiceID, &rem.ReminderType, &rem.ScheduledDate,
		&rem.Channel, &rem.Status, &rem.AttemptCount, &rem.LastAttemptAt,
		&externalID, &outcome, &skipReason, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rem.ExternalID = externalID.String
	rem.SkipReason = skipReason.String
	if len(outcome) > 0 {
		if err := json.Unmarshal(outcome, &rem.CallOutcome); err != nil {
			return nil, err
		}
	}
	return &rem, nil
}

func collectReminders(rows *sql.Rows) ([]*model.PaymentReminder, error) {
	reminders := []*model.PaymentReminder{}
	for rows.Next() {
		var rem model.PaymentReminder
		var externalID, skipReason sql.NullString
		var outcome []byte
		if err := rows.Scan(
			&rem.ID, &rem.AccountID, &rem.InvoiceID, &rem.ReminderType, &rem.ScheduledDate,
			&rem.Channel, &rem.Status, &rem.AttemptCount, &rem.LastAttemptAt,
			&externalID, &outcome, &skipReason, &rem.CreatedAt, &rem.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rem.ExternalID = externalID.String
		rem.SkipReason = skipReason.String
		if len(outcome) > 0 {
			if err := json.Unmarshal(outcome, &rem.CallOutcome); err != nil {
				return nil, err
			}
		}
		reminders = append(reminders, &rem)
	}
	return reminders, rows.Err()
}

var _ ReminderRepositoryInterface = (*ReminderRepository)(nil)
