package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/paynudge/reminder-backend/internal/model"
)

// CustomerRepositoryInterface defines methods used by services
type CustomerRepositoryInterface interface {
	GetByID(id int) (*model.Customer, error)
	GetByExternalID(accountID int, externalID string) (*model.Customer, error)
	Insert(c *model.Customer) error
	Update(c *model.Customer) error
}

// CustomerRepository is the concrete implementation
type CustomerRepository struct {
	DB *sql.DB
}

func (r *CustomerRepository) GetByID(id int) (*model.Customer, error) {
	query := `
        SELECT id, account_id, external_id, name, phone, email, contact_persons, created_at, updated_at
        FROM customers
        WHERE id = $1
    `
	return r.scanOne(r.DB.QueryRow(query, id))
}

// GetByExternalID looks a customer up by its (account, external source) key.
func (r *CustomerRepository) GetByExternalID(accountID int, externalID string) (*model.Customer, error) {
	query := `
        SELECT id, account_id, external_id, name, phone, email, contact_persons, created_at, updated_at
        FROM customers
        WHERE account_id = $1 AND external_id = $2
    `
	return r.scanOne(r.DB.QueryRow(query, accountID, externalID))
}

func (r *CustomerRepository) scanOne(row *sql.Row) (*model.Customer, error) {
	var c model.Customer
	var contacts []byte
	err := row.Scan(&c.ID, &c.AccountID, &c.ExternalID, &c.Name, &c.Phone, &c.Email, &contacts, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &c.ContactPersons); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (r *CustomerRepository) Insert(c *model.Customer) error {
	contacts, err := json.Marshal(c.ContactPersons)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO customers (account_id, external_id, name, phone, email, contact_persons, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at
    `
	return r.DB.QueryRow(query, c.AccountID, c.ExternalID, c.Name, c.Phone, c.Email, contacts).Scan(&c.ID, &c.CreatedAt)
}

func (r *CustomerRepository) Update(c *model.Customer) error {
	contacts, err := json.Marshal(c.ContactPersons)
	if err != nil {
		return err
	}
	query := `
        UPDATE customers
        SET name=$1, phone=$2, email=$3, contact_persons=$4, updated_at=NOW()
        WHERE id=$5
    `
	_, err = r.DB.Exec(query, c.Name, c.Phone, c.Email, contacts, c.ID)
	return err
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
