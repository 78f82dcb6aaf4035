package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// EnsureDefaults inserts the singleton row unless it already exists.
	EnsureDefaults(ctx context.Context, db *gorm.DB, defaults Settings) error
	Find(ctx context.Context, db *gorm.DB) (*Settings, error)
	// FindForUpdate reads the row with a row lock on dialects that support
	// one, so the value is current even under a snapshot isolation level.
	FindForUpdate(ctx context.Context, db *gorm.DB) (*Settings, error)
	// Update writes every mutable column. The write is skipped (0 rows) when
	// the stored counter is already above settings.QuotationNextNumber.
	Update(ctx context.Context, db *gorm.DB, settings *Settings) (int64, error)
	// CompareAndSetNextNumber moves the counter from expected to next and
	// reports whether this caller won.
	CompareAndSetNextNumber(ctx context.Context, db *gorm.DB, expected, next int64, updatedAt time.Time) (bool, error)
	NumberInUse(ctx context.Context, db *gorm.DB, number string) (bool, error)
}
