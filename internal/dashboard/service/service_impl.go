package service

import (
	"context"

	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	dashboarddomain "github.com/smallbiznis/quoteflow/internal/dashboard/domain"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Companies  companydomain.Service
	Quotations quotationdomain.Service
}

type Service struct {
	log        *zap.Logger
	companies  companydomain.Service
	quotations quotationdomain.Service
}

func NewService(p Params) dashboarddomain.Service {
	return &Service{
		log:        p.Log.Named("dashboard.service"),
		companies:  p.Companies,
		quotations: p.Quotations,
	}
}

// Summary counts pending work as quotations still in draft or sent.
func (s *Service) Summary(ctx context.Context) (dashboarddomain.Summary, error) {
	var (
		out dashboarddomain.Summary
		err error
	)

	if out.TotalCompanies, err = s.companies.Count(ctx); err != nil {
		return dashboarddomain.Summary{}, err
	}
	if out.TotalQuotations, err = s.quotations.Count(ctx); err != nil {
		return dashboarddomain.Summary{}, err
	}
	if out.PendingQuotations, err = s.quotations.Count(ctx, quotationdomain.StatusDraft, quotationdomain.StatusSent); err != nil {
		return dashboarddomain.Summary{}, err
	}
	if out.RecentCompanies, err = s.companies.Recent(ctx, dashboarddomain.RecentLimit); err != nil {
		return dashboarddomain.Summary{}, err
	}
	if out.RecentQuotations, err = s.quotations.Recent(ctx, dashboarddomain.RecentLimit); err != nil {
		return dashboarddomain.Summary{}, err
	}
	return out, nil
}
