// Package gormadapter is the durable ticket mapping store, sharing the
// broker's sqlite file.
package gormadapter

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orderbridge/contexts/ticket-mapping/domain/entities"
	domainerrors "orderbridge/contexts/ticket-mapping/domain/errors"
	"orderbridge/contexts/ticket-mapping/ports"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&mappingModel{})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) PutMapping(ctx context.Context, input ports.PutMappingInput) error {
	row := mappingModel{
		SourceTicket: input.SourceTicket,
		SlaveTicket:  input.SlaveTicket,
		Symbol:       input.Symbol,
		Size:         input.Size,
		UpdatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_ticket"}},
			DoUpdates: clause.AssignmentColumns([]string{"slave_ticket", "symbol", "size", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *Repository) GetMapping(ctx context.Context, sourceTicket string) (entities.Mapping, error) {
	var row mappingModel
	err := r.db.WithContext(ctx).Where("source_ticket = ?", sourceTicket).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Mapping{}, domainerrors.ErrNotFound
		}
		return entities.Mapping{}, err
	}
	return row.toEntity(), nil
}

type mappingModel struct {
	SourceTicket string    `gorm:"column:source_ticket;primaryKey"`
	SlaveTicket  string    `gorm:"column:slave_ticket"`
	Symbol       string    `gorm:"column:symbol"`
	Size         string    `gorm:"column:size"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (mappingModel) TableName() string {
	return "ticket_map"
}

func (m mappingModel) toEntity() entities.Mapping {
	return entities.Mapping{
		SourceTicket: m.SourceTicket,
		SlaveTicket:  m.SlaveTicket,
		Symbol:       m.Symbol,
		Size:         m.Size,
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}
