package repository

import (
	"database/sql"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
	"github.com/paynudge/reminder-backend/internal/model"
)

// AccountRepositoryInterface defines methods used by services
type AccountRepositoryInterface interface {
	GetByID(id int) (*model.Account, error)
	ListAll() ([]model.Account, error)
}

type AccountRepository struct {
	DB *sql.DB
}

func (r *AccountRepository) GetByID(id int) (*model.Account, error) {
	query := `SELECT id, name, business_name, org_id, created_at FROM accounts WHERE id=$1`
	var a model.Account
	err := r.DB.QueryRow(query, id).Scan(&a.ID, &a.Name, &a.BusinessName, &a.OrgID, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewAccountNotFound(id)
		}
		return nil, err
	}
	return &a, nil
}

// ListAll returns every account, used by the daily sync fan-out.
func (r *AccountRepository) ListAll() ([]model.Account, error) {
	query := `SELECT id, name, business_name, org_id, created_at FROM accounts ORDER BY id`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.BusinessName, &a.OrgID, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
