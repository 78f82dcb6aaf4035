package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/clock"
	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	"github.com/smallbiznis/quoteflow/internal/observability/metrics"
	"github.com/smallbiznis/quoteflow/internal/quotation/domain"
	settingsdomain "github.com/smallbiznis/quoteflow/internal/settings/domain"
	"github.com/smallbiznis/quoteflow/internal/validation"
	"github.com/smallbiznis/quoteflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Companies companydomain.Repository
	Numbering settingsdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
	Clock     clock.Clock      `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	companies companydomain.Repository
	numbering settingsdomain.Service
	metrics   *metrics.Metrics
	clock     clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("quotation.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		companies: p.Companies,
		numbering: p.Numbering,
		metrics:   p.Metrics,
		clock:     clock.OrSystem(p.Clock),
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Quotation, error) {
	query := domain.ListQuery{Search: strings.TrimSpace(filter.Search)}
	if companyID := strings.TrimSpace(filter.CompanyID); companyID != "" {
		id, err := snowflake.ParseString(companyID)
		if err != nil || id == 0 {
			var verrs validation.Errors
			verrs.Add("company_id", "invalid_id", "company_id must be a company id")
			return nil, verrs
		}
		query.CompanyID = id
	}
	return s.list(ctx, query)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Quotation, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.list(ctx, domain.ListQuery{Limit: limit})
}

func (s *Service) list(ctx context.Context, query domain.ListQuery) ([]domain.Quotation, error) {
	items, err := s.repo.List(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	quotations := make([]domain.Quotation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		quotations = append(quotations, *item)
	}
	return quotations, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Quotation, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return domain.Quotation{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, quotationID)
	if err != nil {
		return domain.Quotation{}, err
	}
	if item == nil {
		return domain.Quotation{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateQuotationRequest) (domain.Quotation, error) {
	req = trimCreate(req)
	if err := validation.Struct(req); err != nil {
		return domain.Quotation{}, err
	}
	if err := checkValidity(req.Date, req.ValidUntil); err != nil {
		return domain.Quotation{}, err
	}

	companyID, err := snowflake.ParseString(req.CompanyID)
	if err != nil || companyID == 0 {
		return domain.Quotation{}, domain.ErrCompanyNotFound
	}

	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}

	now := s.clock.Now()
	quotation := domain.Quotation{
		ID:         s.genID.Generate(),
		CompanyID:  companyID,
		Date:       req.Date.UTC(),
		ValidUntil: utcPtr(req.ValidUntil),
		Notes:      req.Notes,
		Status:     status,
		CreatedBy:  req.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var (
		created    *domain.Quotation
		allocation settingsdomain.Allocation
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := s.companies.FindByID(ctx, tx, companyID)
		if err != nil {
			return err
		}
		if company == nil {
			return domain.ErrCompanyNotFound
		}

		// The counter update shares this transaction, so any later failure
		// rolls the sequence back with the insert.
		allocation, err = s.numbering.Allocate(ctx, tx, req.QuotationNumber)
		if err != nil {
			return err
		}
		quotation.QuotationNumber = allocation.Number

		items, err := s.buildItems(ctx, tx, quotation.ID, req.Items)
		if err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &quotation); err != nil {
			return s.translateWriteErr(err)
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		created, err = s.repo.FindByID(ctx, tx, quotation.ID)
		return err
	})
	if err != nil {
		return domain.Quotation{}, err
	}
	if created == nil {
		return domain.Quotation{}, domain.ErrNotFound
	}

	source := metrics.NumberSourceManual
	if allocation.Consumed {
		source = metrics.NumberSourceSequence
	}
	s.metrics.IncQuotationCreated(source)
	s.log.Info("quotation created",
		zap.String("quotation_id", created.ID.String()),
		zap.String("quotation_number", created.QuotationNumber),
		zap.String("company_id", created.CompanyID.String()),
		zap.Bool("sequence_consumed", allocation.Consumed),
	)
	return *created, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateQuotationRequest) (domain.Quotation, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return domain.Quotation{}, err
	}

	req = trimUpdate(req)
	if err := validation.Struct(req); err != nil {
		return domain.Quotation{}, err
	}
	if req.Items != nil && len(req.Items) == 0 {
		var verrs validation.Errors
		verrs.Add("items", "min", "must contain at least 1 entries")
		return domain.Quotation{}, verrs
	}

	var updated *domain.Quotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, quotationID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		next := *current
		if req.CompanyID != nil {
			companyID, err := snowflake.ParseString(*req.CompanyID)
			if err != nil || companyID == 0 {
				return domain.ErrCompanyNotFound
			}
			if companyID != current.CompanyID {
				company, err := s.companies.FindByID(ctx, tx, companyID)
				if err != nil {
					return err
				}
				if company == nil {
					return domain.ErrCompanyNotFound
				}
			}
			next.CompanyID = companyID
		}
		if req.QuotationNumber != nil {
			next.QuotationNumber = *req.QuotationNumber
		}
		if req.Date != nil {
			next.Date = req.Date.UTC()
		}
		if req.ValidUntil != nil {
			next.ValidUntil = utcPtr(req.ValidUntil)
		}
		if req.Notes != nil {
			next.Notes = *req.Notes
		}
		if req.Status != nil {
			if err := domain.Transition(current.Status, *req.Status); err != nil {
				return err
			}
			next.Status = *req.Status
		}
		if err := checkValidity(next.Date, next.ValidUntil); err != nil {
			return err
		}
		next.UpdatedAt = s.clock.Now()

		rows, err := s.repo.Update(ctx, tx, &next, current.Status)
		if err != nil {
			return s.translateWriteErr(err)
		}
		if rows == 0 {
			return domain.ErrStatusConflict
		}

		if req.Items != nil {
			items, err := s.buildItems(ctx, tx, quotationID, req.Items)
			if err != nil {
				return err
			}
			if err := s.repo.DeleteItems(ctx, tx, quotationID); err != nil {
				return err
			}
			if err := s.repo.InsertItems(ctx, tx, items); err != nil {
				return err
			}
		}

		updated, err = s.repo.FindByID(ctx, tx, quotationID)
		return err
	})
	if err != nil {
		return domain.Quotation{}, err
	}
	if updated == nil {
		return domain.Quotation{}, domain.ErrNotFound
	}
	return *updated, nil
}

func (s *Service) ToggleStatus(ctx context.Context, id string, current domain.Status) (domain.Status, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return "", err
	}

	if current == "" {
		stored, err := s.repo.FindByID(ctx, s.db, quotationID)
		if err != nil {
			return "", err
		}
		if stored == nil {
			return "", domain.ErrNotFound
		}
		current = stored.Status
	}
	if !current.Valid() {
		return "", domain.ErrInvalidStatus
	}

	next, err := domain.Toggle(current)
	if err != nil {
		return current, err
	}
	if err := domain.Transition(current, next); err != nil {
		return current, err
	}

	rows, err := s.repo.UpdateStatus(ctx, s.db, quotationID, current, next, s.clock.Now())
	if err != nil {
		return "", err
	}
	if rows == 0 {
		exists, err := s.repo.Exists(ctx, s.db, quotationID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrStatusConflict
	}

	s.metrics.IncStatusToggle(next.String())
	s.log.Info("quotation status toggled",
		zap.String("quotation_id", quotationID.String()),
		zap.String("from", current.String()),
		zap.String("to", next.String()),
	)
	return next, nil
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return false, nil
	}

	var rows int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err = s.repo.Delete(ctx, tx, quotationID)
		return err
	})
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Service) Count(ctx context.Context, statuses ...domain.Status) (int64, error) {
	return s.repo.Count(ctx, s.db, statuses...)
}

// buildItems assigns positions and ids. A submitted id is kept when it
// parses and is not owned by another quotation.
func (s *Service) buildItems(ctx context.Context, tx *gorm.DB, quotationID snowflake.ID, inputs []domain.ItemInput) ([]domain.Item, error) {
	requested := make([]snowflake.ID, 0, len(inputs))
	for _, input := range inputs {
		if id, err := snowflake.ParseString(input.ID); err == nil && id != 0 {
			requested = append(requested, id)
		}
	}
	taken, err := s.repo.ForeignItemIDs(ctx, tx, quotationID, requested)
	if err != nil {
		return nil, err
	}

	seen := make(map[snowflake.ID]struct{}, len(inputs))
	items := make([]domain.Item, 0, len(inputs))
	for i, input := range inputs {
		id, err := snowflake.ParseString(input.ID)
		_, foreign := taken[id]
		_, dup := seen[id]
		if err != nil || id == 0 || foreign || dup {
			id = s.genID.Generate()
		}
		seen[id] = struct{}{}

		items = append(items, domain.Item{
			ID:          id,
			QuotationID: quotationID,
			Position:    i,
			HSN:         input.HSN,
			Name:        input.Name,
			Description: input.Description,
			ImageURL:    input.ImageURL,
			Quantity:    input.Quantity,
			UnitType:    input.UnitType,
			UnitPrice:   input.UnitPrice,
		})
	}
	return items, nil
}

func (s *Service) translateWriteErr(err error) error {
	if db.IsDuplicateKeyErr(err) {
		s.metrics.IncDuplicateNumber()
		return domain.ErrDuplicateNumber
	}
	if db.IsForeignKeyErr(err) {
		return domain.ErrCompanyNotFound
	}
	return err
}

func checkValidity(date time.Time, validUntil *time.Time) error {
	if validUntil == nil || !validUntil.Before(date) {
		return nil
	}
	var verrs validation.Errors
	verrs.Add("valid_until", "gtefield", "must not precede date")
	return verrs
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func trimCreate(req domain.CreateQuotationRequest) domain.CreateQuotationRequest {
	req.QuotationNumber = strings.TrimSpace(req.QuotationNumber)
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	req.CreatedBy = strings.TrimSpace(req.CreatedBy)
	req.Items = trimItems(req.Items)
	return req
}

func trimUpdate(req domain.UpdateQuotationRequest) domain.UpdateQuotationRequest {
	if req.QuotationNumber != nil {
		v := strings.TrimSpace(*req.QuotationNumber)
		req.QuotationNumber = &v
	}
	if req.CompanyID != nil {
		v := strings.TrimSpace(*req.CompanyID)
		req.CompanyID = &v
	}
	req.Items = trimItems(req.Items)
	return req
}

func trimItems(items []domain.ItemInput) []domain.ItemInput {
	if items == nil {
		return nil
	}
	out := make([]domain.ItemInput, len(items))
	for i, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		item.HSN = strings.TrimSpace(item.HSN)
		item.Name = strings.TrimSpace(item.Name)
		item.ImageURL = strings.TrimSpace(item.ImageURL)
		item.UnitType = strings.TrimSpace(item.UnitType)
		out[i] = item
	}
	return out
}
