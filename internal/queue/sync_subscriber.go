package queue

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// SyncRunner is the slice of the sync service the subscriber needs.
type SyncRunner interface {
	RunAccountSync(ctx context.Context, accountID int, orgID string) error
}

// StartInvoiceSyncSubscriber wires the per-account sync jobs published by the
// daily trigger into the sync engine. Handler errors propagate so the queue's
// retry policy applies.
func StartInvoiceSyncSubscriber(q Queue, topic string, runner SyncRunner, log *zap.Logger) {
	go func() {
		err := q.Subscribe(topic, func(payload any) error {
			job, ok := decodeSyncJob(payload)
			if !ok {
				log.Warn("invalid sync job payload, dropping", zap.Any("payload", payload))
				return nil // no retry for garbage
			}

			log.Info("processing queued account sync",
				zap.Int("account_id", job.AccountID),
				zap.String("run_id", job.RunID))

			if err := runner.RunAccountSync(context.Background(), job.AccountID, job.OrgID); err != nil {
				log.Error("account sync failed",
					zap.Int("account_id", job.AccountID),
					zap.Error(err))
				return err // triggers retry in queue
			}
			return nil
		})
		if err != nil {
			log.Error("failed to start sync subscriber", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

func decodeSyncJob(payload any) (*SyncJob, bool) {
	switch v := payload.(type) {
	case *SyncJob:
		return v, true
	case SyncJob:
		return &v, true
	case []byte:
		var job SyncJob
		if err := json.Unmarshal(v, &job); err != nil {
			return nil, false
		}
		return &job, true
	}
	return nil, false
}
