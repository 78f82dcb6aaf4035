package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/quotation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// selectQuotations joins the live company row so display fields can never
// go stale.
const selectQuotations = `SELECT q.id, q.quotation_number, q.company_id,
	c.name AS company_name, c.contact_email AS company_email,
	q.date, q.valid_until, q.notes, q.status, q.created_by, q.created_at, q.updated_at
	FROM quotations q
	JOIN companies c ON c.id = q.company_id`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quotation *domain.Quotation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quotations (id, quotation_number, company_id, date, valid_until, notes, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quotation.ID,
		quotation.QuotationNumber,
		quotation.CompanyID,
		quotation.Date,
		quotation.ValidUntil,
		quotation.Notes,
		quotation.Status,
		quotation.CreatedBy,
		quotation.CreatedAt,
		quotation.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO quotation_items (id, quotation_id, position, hsn, name, description, image_url, quantity, unit_type, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.QuotationID,
			item.Position,
			item.HSN,
			item.Name,
			item.Description,
			item.ImageURL,
			item.Quantity,
			item.UnitType,
			item.UnitPrice,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM quotation_items WHERE quotation_id = ?`, quotationID).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := db.WithContext(ctx).Raw(selectQuotations+` WHERE q.id = ?`, id).Scan(&quotation).Error
	if err != nil {
		return nil, err
	}
	if quotation.ID == 0 {
		return nil, nil
	}
	if err := r.loadItems(ctx, db, []*domain.Quotation{&quotation}); err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, query domain.ListQuery) ([]*domain.Quotation, error) {
	var (
		where []string
		args  []interface{}
	)
	if query.CompanyID != 0 {
		where = append(where, `q.company_id = ?`)
		args = append(args, query.CompanyID)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := likePattern(search)
		where = append(where, `(LOWER(q.quotation_number) LIKE ? ESCAPE '!'
			OR LOWER(c.name) LIKE ? ESCAPE '!'
			OR LOWER(c.contact_email) LIKE ? ESCAPE '!'
			OR LOWER(q.status) LIKE ? ESCAPE '!')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	stmt := selectQuotations
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, ` AND `)
	}
	stmt += ` ORDER BY q.date DESC, q.created_at DESC, q.id DESC`
	if query.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, query.Limit)
	}

	var quotations []*domain.Quotation
	if err := db.WithContext(ctx).Raw(stmt, args...).Scan(&quotations).Error; err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, db, quotations); err != nil {
		return nil, err
	}
	return quotations, nil
}

// likePattern lowercases term and escapes LIKE wildcards with '!'.
func likePattern(term string) string {
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}

func (r *repo) loadItems(ctx context.Context, db *gorm.DB, quotations []*domain.Quotation) error {
	if len(quotations) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(quotations))
	byID := make(map[snowflake.ID]*domain.Quotation, len(quotations))
	for _, q := range quotations {
		ids = append(ids, q.ID)
		byID[q.ID] = q
		q.Items = []domain.Item{}
	}

	var items []domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, quotation_id, position, hsn, name, description, image_url, quantity, unit_type, unit_price
		 FROM quotation_items
		 WHERE quotation_id IN ?
		 ORDER BY quotation_id, position`,
		ids,
	).Scan(&items).Error
	if err != nil {
		return err
	}

	for _, item := range items {
		if q, ok := byID[item.QuotationID]; ok {
			q.Items = append(q.Items, item)
		}
	}
	for _, q := range quotations {
		q.ComputeTotals()
	}
	return nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, quotation *domain.Quotation, expected domain.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE quotations
		 SET quotation_number = ?, company_id = ?, date = ?, valid_until = ?, notes = ?, status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		quotation.QuotationNumber,
		quotation.CompanyID,
		quotation.Date,
		quotation.ValidUntil,
		quotation.Notes,
		quotation.Status,
		quotation.UpdatedAt,
		quotation.ID,
		expected,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, updatedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE quotations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		updatedAt,
		id,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	if err := r.DeleteItems(ctx, db, id); err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM quotations WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error) {
	err := db.WithContext(ctx).Exec(
		`DELETE FROM quotation_items
		 WHERE quotation_id IN (SELECT id FROM quotations WHERE company_id = ?)`,
		companyID,
	).Error
	if err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM quotations WHERE company_id = ?`, companyID)
	return result.RowsAffected, result.Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM quotations WHERE id = ?`, id).Scan(&count).Error
	return count > 0, err
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, statuses ...domain.Status) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Table("quotations")
	if len(statuses) > 0 {
		stmt = stmt.Where("status IN ?", statuses)
	}
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) ForeignItemIDs(ctx context.Context, db *gorm.DB, quotationID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]struct{}, error) {
	taken := map[snowflake.ID]struct{}{}
	if len(ids) == 0 {
		return taken, nil
	}

	var rows []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM quotation_items WHERE id IN ? AND quotation_id <> ?`,
		ids,
		quotationID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range rows {
		taken[snowflake.ID(id)] = struct{}{}
	}
	return taken, nil
}
