package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/observability/metrics"
	"github.com/smallbiznis/quoteflow/internal/settings/domain"
	"github.com/smallbiznis/quoteflow/internal/settings/format"
	"github.com/smallbiznis/quoteflow/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxAllocationAttempts bounds both the scan over numbers already taken by
// manual entries and the compare-and-swap retries.
const maxAllocationAttempts = 64

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Defaults *config.SettingsDefaultsHolder `optional:"true"`
	Metrics  *metrics.Metrics               `optional:"true"`
	Clock    clock.Clock                    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	defaults *config.SettingsDefaultsHolder
	metrics  *metrics.Metrics
	clock    clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		repo:     p.Repo,
		defaults: p.Defaults,
		metrics:  p.Metrics,
		clock:    clock.OrSystem(p.Clock),
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	settings, err := s.load(ctx, s.db)
	if err != nil {
		return domain.Settings{}, err
	}
	return *settings, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	req = trimUpdate(req)
	if err := validation.Struct(req); err != nil {
		return domain.Settings{}, err
	}

	var updated domain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		next := *current
		applyUpdate(&next, req)
		if next.QuotationNextNumber < current.QuotationNextNumber {
			return numberDecrease(current.QuotationNextNumber)
		}
		next.UpdatedAt = s.clock.Now()

		rows, err := s.repo.Update(ctx, tx, &next)
		if err != nil {
			return err
		}
		if rows == 0 {
			// a concurrent allocation moved the counter past the requested value
			latest, err := s.repo.Find(ctx, tx)
			if err != nil {
				return err
			}
			if latest == nil {
				return errors.New("settings row disappeared")
			}
			return numberDecrease(latest.QuotationNextNumber)
		}

		found, err := s.repo.Find(ctx, tx)
		if err != nil {
			return err
		}
		updated = *found
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}

	s.log.Info("settings updated",
		zap.String("quotation_prefix", updated.QuotationPrefix),
		zap.Int64("quotation_next_number", updated.QuotationNextNumber),
	)
	return updated, nil
}

func (s *Service) Candidate(ctx context.Context) (domain.NextNumber, error) {
	settings, err := s.load(ctx, s.db)
	if err != nil {
		return domain.NextNumber{}, err
	}
	return domain.NextNumber{
		QuotationNumber: format.FormatQuotationNumber(settings.QuotationPrefix, settings.QuotationNextNumber),
		Prefix:          settings.QuotationPrefix,
		Sequence:        settings.QuotationNextNumber,
	}, nil
}

func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, submitted string) (domain.Allocation, error) {
	submitted = strings.TrimSpace(submitted)

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		settings, err := s.loadForUpdate(ctx, tx)
		if err != nil {
			return domain.Allocation{}, err
		}
		next := settings.QuotationNextNumber

		if submitted != "" {
			if submitted != format.FormatQuotationNumber(settings.QuotationPrefix, next) {
				return domain.Allocation{Number: submitted}, nil
			}
			won, err := s.repo.CompareAndSetNextNumber(ctx, tx, next, next+1, s.clock.Now())
			if err != nil {
				return domain.Allocation{}, err
			}
			if won {
				s.metrics.IncNumberAllocated()
				return domain.Allocation{Number: submitted, Consumed: true, Sequence: next}, nil
			}
			// Someone else consumed this candidate first. Keep the caller's
			// number as a manual one and let the unique index decide.
			s.metrics.IncAllocationRetry()
			s.log.Debug("candidate consumed concurrently", zap.String("quotation_number", submitted))
			return domain.Allocation{Number: submitted}, nil
		}

		number, seq, err := s.firstFree(ctx, tx, settings)
		if err != nil {
			return domain.Allocation{}, err
		}
		won, err := s.repo.CompareAndSetNextNumber(ctx, tx, next, seq+1, s.clock.Now())
		if err != nil {
			return domain.Allocation{}, err
		}
		if won {
			s.metrics.IncNumberAllocated()
			return domain.Allocation{Number: number, Consumed: true, Sequence: seq}, nil
		}
		s.metrics.IncAllocationRetry()
	}

	return domain.Allocation{}, domain.ErrAllocationExhausted
}

// load returns the singleton row, inserting the configured defaults first
// when it does not exist yet.
func (s *Service) load(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	settings, err := s.repo.Find(ctx, db)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	if err := s.repo.EnsureDefaults(ctx, db, s.defaultRow()); err != nil {
		return nil, err
	}
	settings, err = s.repo.Find(ctx, db)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, errors.New("settings row missing after insert")
	}
	s.log.Info("default settings created", zap.String("name", settings.Name))
	return settings, nil
}

// loadForUpdate makes sure the row exists, then re-reads it with a locking
// read so the counter reflects the latest commit rather than the
// transaction snapshot.
func (s *Service) loadForUpdate(ctx context.Context, tx *gorm.DB) (*domain.Settings, error) {
	if _, err := s.load(ctx, tx); err != nil {
		return nil, err
	}
	settings, err := s.repo.FindForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, errors.New("settings row missing")
	}
	return settings, nil
}

// firstFree walks forward from the stored counter past numbers already
// taken by manually numbered quotations. Only sequence-assigned creates use
// it; an explicit submission is compared against the exact candidate.
func (s *Service) firstFree(ctx context.Context, db *gorm.DB, settings *domain.Settings) (string, int64, error) {
	seq := settings.QuotationNextNumber
	for i := 0; i < maxAllocationAttempts; i++ {
		number := format.FormatQuotationNumber(settings.QuotationPrefix, seq)
		inUse, err := s.repo.NumberInUse(ctx, db, number)
		if err != nil {
			return "", 0, err
		}
		if !inUse {
			return number, seq, nil
		}
		seq++
	}
	return "", 0, domain.ErrAllocationExhausted
}

func (s *Service) defaultRow() domain.Settings {
	defaults := config.DefaultSettingsDefaults()
	if s.defaults != nil {
		defaults = s.defaults.Get()
	}
	now := s.clock.Now()
	return domain.Settings{
		ID:                  domain.SingletonID,
		Name:                defaults.Name,
		Address:             defaults.Address,
		Email:               defaults.Email,
		Phone:               defaults.Phone,
		LogoURL:             defaults.LogoURL,
		Website:             defaults.Website,
		QuotationPrefix:     defaults.QuotationPrefix,
		QuotationNextNumber: defaults.QuotationNextNumber,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func numberDecrease(current int64) error {
	var verrs validation.Errors
	verrs.Add("quotation_next_number", "no_decrease",
		fmt.Sprintf("must not be lower than the current value %d", current))
	return fmt.Errorf("%w: %w", domain.ErrNumberDecrease, verrs)
}

func trimUpdate(req domain.UpdateSettingsRequest) domain.UpdateSettingsRequest {
	for _, field := range []*string{req.Name, req.Address, req.Email, req.Phone, req.LogoURL, req.Website, req.QuotationPrefix} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	return req
}

func applyUpdate(settings *domain.Settings, req domain.UpdateSettingsRequest) {
	if req.Name != nil {
		settings.Name = *req.Name
	}
	if req.Address != nil {
		settings.Address = *req.Address
	}
	if req.Email != nil {
		settings.Email = *req.Email
	}
	if req.Phone != nil {
		settings.Phone = *req.Phone
	}
	if req.LogoURL != nil {
		settings.LogoURL = *req.LogoURL
	}
	if req.Website != nil {
		settings.Website = *req.Website
	}
	if req.QuotationPrefix != nil {
		settings.QuotationPrefix = *req.QuotationPrefix
	}
	if req.QuotationNextNumber != nil {
		settings.QuotationNextNumber = *req.QuotationNextNumber
	}
}
