// internal/model/account.go
package model

import "time"

// Account links a local tenant to its organization in the external
// accounting source.
type Account struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	BusinessName string    `db:"business_name" json:"business_name"`
	OrgID        string    `db:"org_id" json:"org_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
