// internal/model/customer.go
package model

import "time"

// ContactPerson is one entry of the raw contact list carried by the external
// accounting source. Stored as jsonb; structured in Go.
type ContactPerson struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Customer is a cached record from the external accounting source, owned by
// one account and looked up by (account_id, external_id).
type Customer struct {
	ID             int             `db:"id" json:"id"`
	AccountID      int             `db:"account_id" json:"account_id"`
	ExternalID     string          `db:"external_id" json:"external_id"`
	Name           string          `db:"name" json:"name"`
	Phone          string          `db:"phone" json:"phone"`
	Email          string          `db:"email" json:"email"`
	ContactPersons []ContactPerson `db:"contact_persons" json:"contact_persons,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}
