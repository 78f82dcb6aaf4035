package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/company/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const companyColumns = `id, name, address, contact_person, contact_email, contact_phone, gstin, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, company *domain.Company) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO companies (`+companyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		company.ID,
		company.Name,
		company.Address,
		company.ContactPerson,
		company.ContactEmail,
		company.ContactPhone,
		company.GSTIN,
		company.Metadata,
		company.CreatedAt,
		company.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := db.WithContext(ctx).Raw(
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`,
		id,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Company, error) {
	var companies []*domain.Company
	stmt := db.WithContext(ctx).
		Model(&domain.Company{}).
		Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, company *domain.Company) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE companies
		 SET name = ?, address = ?, contact_person = ?, contact_email = ?, contact_phone = ?,
		     gstin = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		company.Name,
		company.Address,
		company.ContactPerson,
		company.ContactEmail,
		company.ContactPhone,
		company.GSTIN,
		company.Metadata,
		company.UpdatedAt,
		company.ID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM companies WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Company{}).Count(&count).Error
	return count, err
}
