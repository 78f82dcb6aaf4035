package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/quoteflow/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) EnsureDefaults(ctx context.Context, db *gorm.DB, defaults domain.Settings) error {
	row := defaults
	row.ID = domain.SingletonID
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Select("*").
		Create(&row).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	return findSettings(ctx, db, false)
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	return findSettings(ctx, db, true)
}

func findSettings(ctx context.Context, db *gorm.DB, forUpdate bool) (*domain.Settings, error) {
	query := `SELECT id, name, address, email, phone, logo_url, website, quotation_prefix,
		        quotation_next_number, created_at, updated_at
		 FROM my_company_settings WHERE id = ?`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var settings domain.Settings
	err := db.WithContext(ctx).Raw(query, domain.SingletonID).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, settings *domain.Settings) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE my_company_settings
		 SET name = ?, address = ?, email = ?, phone = ?, logo_url = ?, website = ?,
		     quotation_prefix = ?, quotation_next_number = ?, updated_at = ?
		 WHERE id = ? AND quotation_next_number <= ?`,
		settings.Name,
		settings.Address,
		settings.Email,
		settings.Phone,
		settings.LogoURL,
		settings.Website,
		settings.QuotationPrefix,
		settings.QuotationNextNumber,
		settings.UpdatedAt,
		domain.SingletonID,
		settings.QuotationNextNumber,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CompareAndSetNextNumber(ctx context.Context, db *gorm.DB, expected, next int64, updatedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE my_company_settings
		 SET quotation_next_number = ?, updated_at = ?
		 WHERE id = ? AND quotation_next_number = ?`,
		next,
		updatedAt,
		domain.SingletonID,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) NumberInUse(ctx context.Context, db *gorm.DB, number string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM quotations WHERE quotation_number = ?`,
		number,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
