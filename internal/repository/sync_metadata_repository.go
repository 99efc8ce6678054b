package repository

import (
	"database/sql"
	"time"

	"github.com/paynudge/reminder-backend/internal/model"
)

// SyncMetadataRepositoryInterface defines methods used by services
type SyncMetadataRepositoryInterface interface {
	Get(accountID int) (*model.SyncMetadata, error)
	SetWatermarks(accountID int, customerSyncAt, incrementalSyncAt time.Time) error
}

type SyncMetadataRepository struct {
	DB *sql.DB
}

func (r *SyncMetadataRepository) Get(accountID int) (*model.SyncMetadata, error) {
	query := `SELECT account_id, last_customer_sync_at, last_incremental_sync_at FROM sync_metadata WHERE account_id=$1`
	var m model.SyncMetadata
	err := r.DB.QueryRow(query, accountID).Scan(&m.AccountID, &m.LastCustomerSyncAt, &m.LastIncrementalSyncAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *SyncMetadataRepository) SetWatermarks(accountID int, customerSyncAt, incrementalSyncAt time.Time) error {
	query := `
        INSERT INTO sync_metadata (account_id, last_customer_sync_at, last_incremental_sync_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (account_id) DO UPDATE SET
            last_customer_sync_at=EXCLUDED.last_customer_sync_at,
            last_incremental_sync_at=EXCLUDED.last_incremental_sync_at
    `
	_, err := r.DB.Exec(query, accountID, customerSyncAt, incrementalSyncAt)
	return err
}

var _ SyncMetadataRepositoryInterface = (*SyncMetadataRepository)(nil)
