package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/company/domain"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
	"github.com/smallbiznis/quoteflow/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Quotations quotationdomain.Repository
	Clock      clock.Clock `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	quotations quotationdomain.Repository
	clock      clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("company.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		quotations: p.Quotations,
		clock:      clock.OrSystem(p.Clock),
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Company, error) {
	return s.list(ctx, 0)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Company, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.list(ctx, limit)
}

func (s *Service) list(ctx context.Context, limit int) ([]domain.Company, error) {
	items, err := s.repo.List(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	companies := make([]domain.Company, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		companies = append(companies, *item)
	}
	return companies, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Company, error) {
	companyID, err := s.parseID(id)
	if err != nil {
		return domain.Company{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return domain.Company{}, err
	}
	if item == nil {
		return domain.Company{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateCompanyRequest) (domain.Company, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	req.ContactPerson = strings.TrimSpace(req.ContactPerson)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.GSTIN = strings.ToUpper(strings.TrimSpace(req.GSTIN))
	if err := validation.Struct(req); err != nil {
		return domain.Company{}, err
	}

	now := s.clock.Now()
	company := domain.Company{
		ID:            s.genID.Generate(),
		Name:          req.Name,
		Address:       req.Address,
		ContactPerson: req.ContactPerson,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		GSTIN:         req.GSTIN,
		Metadata:      metadataOf(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &company); err != nil {
		return domain.Company{}, err
	}

	s.log.Info("company created", zap.String("company_id", company.ID.String()))
	return company, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateCompanyRequest) (domain.Company, error) {
	companyID, err := s.parseID(id)
	if err != nil {
		return domain.Company{}, err
	}

	trim(req.Name, req.Address, req.ContactPerson, req.ContactEmail, req.ContactPhone)
	if req.GSTIN != nil {
		v := strings.ToUpper(strings.TrimSpace(*req.GSTIN))
		req.GSTIN = &v
	}
	if err := validation.Struct(req); err != nil {
		return domain.Company{}, err
	}

	var updated domain.Company
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, companyID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		next := *current
		assign(&next.Name, req.Name)
		assign(&next.Address, req.Address)
		assign(&next.ContactPerson, req.ContactPerson)
		assign(&next.ContactEmail, req.ContactEmail)
		assign(&next.ContactPhone, req.ContactPhone)
		assign(&next.GSTIN, req.GSTIN)
		if req.Metadata != nil {
			next.Metadata = metadataOf(req.Metadata)
		}
		if next.Metadata == nil {
			next.Metadata = datatypes.JSONMap{}
		}
		next.UpdatedAt = s.clock.Now()

		rows, err := s.repo.Update(ctx, tx, &next)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrNotFound
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Company{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	companyID, err := s.parseID(id)
	if err != nil {
		return false, nil
	}

	var (
		deleted    int64
		quotations int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotations, err = s.quotations.DeleteByCompany(ctx, tx, companyID)
		if err != nil {
			return err
		}
		deleted, err = s.repo.Delete(ctx, tx, companyID)
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted == 0 {
		return false, nil
	}

	s.log.Info("company deleted",
		zap.String("company_id", companyID.String()),
		zap.Int64("quotations_deleted", quotations),
	)
	return true, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func metadataOf(values map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range values {
		out[k] = v
	}
	return out
}

func trim(fields ...*string) {
	for _, field := range fields {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}

func assign(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}
