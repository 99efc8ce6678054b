// internal/model/sync_metadata.go
package model

import "time"

// SyncMetadata holds per-account watermarks bounding the next sync's window.
type SyncMetadata struct {
	AccountID             int        `db:"account_id" json:"account_id"`
	LastCustomerSyncAt    *time.Time `db:"last_customer_sync_at" json:"last_customer_sync_at,omitempty"`
	LastIncrementalSyncAt *time.Time `db:"last_incremental_sync_at" json:"last_incremental_sync_at,omitempty"`
}
