package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListQuery filters and bounds Repository.List. A zero CompanyID, an empty
// Search and a zero Limit each disable their restriction.
type ListQuery struct {
	CompanyID snowflake.ID
	Search    string
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quotation *Quotation) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	DeleteItems(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) error
	// FindByID loads the quotation, its items and the joined company fields.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quotation, error)
	// List orders by date, newest first.
	List(ctx context.Context, db *gorm.DB, query ListQuery) ([]*Quotation, error)
	// Update writes the mutable columns only while the stored status still
	// equals expected.
	Update(ctx context.Context, db *gorm.DB, quotation *Quotation, expected Status) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, updatedAt time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	DeleteByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error)
	Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// Count counts quotations, restricted to statuses when any are given.
	Count(ctx context.Context, db *gorm.DB, statuses ...Status) (int64, error)
	// ForeignItemIDs returns the subset of ids that belong to a quotation
	// other than quotationID.
	ForeignItemIDs(ctx context.Context, db *gorm.DB, quotationID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]struct{}, error)
}
