// Package gormadapter is the durable storage engine: gorm over sqlite,
// one on-disk file per broker instance.
// Claim still serialises through gorm's transaction, mirroring the single
// mutex of the reference engine rather than fighting sqlite's own writer
// lock.
package gormadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"orderbridge/contexts/order-broker/domain/entities"
	domainerrors "orderbridge/contexts/order-broker/domain/errors"
	"orderbridge/contexts/order-broker/ports"
)

// encodePayload serialises the event payload as JSON text. Malformed input
// never reaches here: Ingest only receives maps built by the application
// layer's sanitizeFields.
func encodePayload(fields map[string]string) string {
	if len(fields) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func decodePayload(raw string) map[string]string {
	fields := make(map[string]string)
	if raw == "" {
		return fields
	}
	_ = json.Unmarshal([]byte(raw), &fields)
	return fields
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&eventModel{})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Ingest(ctx context.Context, input ports.IngestInput) (string, bool, error) {
	id := uuid.NewString()
	row := eventModel{
		ID:        id,
		SourceID:  input.SourceID,
		EventType: input.EventType,
		Timestamp: input.Timestamp.UTC(),
		Payload:   encodePayload(input.Payload),
		CreatedAt: time.Now().UTC(),
		State:     string(entities.StatePending),
	}

	result := r.db.WithContext(ctx).Create(&row)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			var existing eventModel
			err := r.db.WithContext(ctx).
				Where("source_id = ? AND event_type = ?", strings.TrimSpace(input.SourceID), strings.TrimSpace(input.EventType)).
				First(&existing).Error
			if err != nil {
				return "", false, err
			}
			return existing.ID, true, nil
		}
		return "", false, result.Error
	}
	return id, false, nil
}

func (r *Repository) Claim(ctx context.Context, maxCount int, consumerID string, leaseDuration time.Duration, maxRetries int) ([]entities.Event, error) {
	var claimed []entities.Event
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []eventModel
		err := tx.
			Where("state = ? AND retry_count < ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
				string(entities.StatePending), maxRetries, now).
			Order("timestamp ASC").
			Limit(maxCount).
			Find(&rows).Error
		if err != nil {
			return err
		}

		for _, row := range rows {
			claimedAt := now
			result := tx.Model(&eventModel{}).
				Where("id = ? AND state = ?", row.ID, string(entities.StatePending)).
				Updates(map[string]any{
					"state":       string(entities.StateClaimed),
					"claim_owner": consumerID,
					"claimed_at":  claimedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}
			row.State = string(entities.StateClaimed)
			row.ClaimOwner = consumerID
			row.ClaimedAt = &claimedAt
			claimed = append(claimed, row.toEntity())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = leaseDuration // expiry enforced by ReapStale against claimed_at
	return claimed, nil
}

func (r *Repository) MarkDone(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&eventModel{}).
		Where("id = ? AND state <> ?", strings.TrimSpace(id), string(entities.StateDone)).
		Updates(map[string]any{
			"state":         string(entities.StateDone),
			"processed_at":  now,
			"claim_owner":   "",
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ScheduleRetry(ctx context.Context, id string, delay time.Duration) (bool, error) {
	var transitioned bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row eventModel
		if err := tx.Where("id = ?", strings.TrimSpace(id)).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if row.State == string(entities.StateDone) {
			return nil
		}
		now := time.Now().UTC()
		nextRetry := now.Add(delay)
		result := tx.Model(&eventModel{}).Where("id = ?", row.ID).Updates(map[string]any{
			"state":         string(entities.StatePending),
			"next_retry_at": nextRetry,
			"retry_count":   row.RetryCount + 1,
			"last_retry_at": now,
			"claim_owner":   "",
		})
		if result.Error != nil {
			return result.Error
		}
		transitioned = result.RowsAffected > 0
		return nil
	})
	return transitioned, err
}

func (r *Repository) ReapStale(ctx context.Context, leaseDuration time.Duration, maxRetries int, shortBackoff time.Duration) (int, error) {
	count := 0
	now := time.Now().UTC()
	cutoff := now.Add(-leaseDuration)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []eventModel
		if err := tx.
			Where("state = ? AND claimed_at IS NOT NULL AND claimed_at < ?", string(entities.StateClaimed), cutoff).
			Find(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			updates := map[string]any{
				"state":       string(entities.StatePending),
				"claim_owner": "",
				"claimed_at":  nil,
			}
			if row.RetryCount < maxRetries {
				updates["retry_count"] = row.RetryCount + 1
				updates["next_retry_at"] = now.Add(shortBackoff)
			} else {
				updates["next_retry_at"] = nil
			}
			if err := tx.Model(&eventModel{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *Repository) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result := r.db.WithContext(ctx).
		Where("state = ? AND processed_at IS NOT NULL AND processed_at < ?", string(entities.StateDone), cutoff).
		Delete(&eventModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) Get(ctx context.Context, id string) (entities.Event, error) {
	var row eventModel
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Event{}, domainerrors.ErrNotFound
		}
		return entities.Event{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListStats(ctx context.Context, maxRetries int) (ports.Stats, error) {
	return countStats(r.db.WithContext(ctx), maxRetries)
}

func (r *Repository) ListFallow(ctx context.Context, maxRetries int, limit int) ([]entities.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND retry_count >= ?", string(entities.StatePending), maxRetries).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) ListPending(ctx context.Context, limit int) ([]entities.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("state = ?", string(entities.StatePending)).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func toEntities(rows []eventModel) []entities.Event {
	out := make([]entities.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out
}

func countStats(db *gorm.DB, maxRetries int) (ports.Stats, error) {
	stats := ports.Stats{}
	var total, pending, done, fallow, scheduled, recent int64

	if err := db.Model(&eventModel{}).Count(&total).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&eventModel{}).
		Where("state = ? AND retry_count < ?", string(entities.StatePending), maxRetries).
		Count(&pending).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&eventModel{}).
		Where("state = ?", string(entities.StateDone)).
		Count(&done).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&eventModel{}).
		Where("state = ? AND retry_count >= ?", string(entities.StatePending), maxRetries).
		Count(&fallow).Error; err != nil {
		return stats, err
	}
	now := time.Now().UTC()
	if err := db.Model(&eventModel{}).
		Where("state = ? AND retry_count < ? AND next_retry_at > ?", string(entities.StatePending), maxRetries, now).
		Count(&scheduled).Error; err != nil {
		return stats, err
	}
	cutoff := now.Add(-5 * time.Minute)
	if err := db.Model(&eventModel{}).
		Where("timestamp >= ?", cutoff).
		Count(&recent).Error; err != nil {
		return stats, err
	}

	stats.Total = int(total)
	stats.Pending = int(pending)
	stats.Done = int(done)
	stats.Fallow = int(fallow)
	stats.Scheduled = int(scheduled)
	stats.RecentCount = int(recent)
	return stats, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

type eventModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	SourceID    string     `gorm:"column:source_id;uniqueIndex:idx_source_event_type"`
	EventType   string     `gorm:"column:event_type;uniqueIndex:idx_source_event_type"`
	Timestamp   time.Time  `gorm:"column:timestamp;index"`
	Payload     string     `gorm:"column:payload"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	State       string     `gorm:"column:state;index"`
	ClaimOwner  string     `gorm:"column:claim_owner"`
	ClaimedAt   *time.Time `gorm:"column:claimed_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	RetryCount  int        `gorm:"column:retry_count"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastRetryAt *time.Time `gorm:"column:last_retry_at"`
}

func (eventModel) TableName() string {
	return "order_events"
}

func (m eventModel) toEntity() entities.Event {
	return entities.Event{
		ID:          m.ID,
		SourceID:    m.SourceID,
		EventType:   m.EventType,
		Timestamp:   m.Timestamp.UTC(),
		Payload:     decodePayload(m.Payload),
		CreatedAt:   m.CreatedAt.UTC(),
		State:       entities.State(m.State),
		ClaimOwner:  m.ClaimOwner,
		ClaimedAt:   m.ClaimedAt,
		ProcessedAt: m.ProcessedAt,
		RetryCount:  m.RetryCount,
		NextRetryAt: m.NextRetryAt,
		LastRetryAt: m.LastRetryAt,
	}
}
