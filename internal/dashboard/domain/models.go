package domain

import (
	"context"

	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
)

// RecentLimit is how many companies and quotations the summary lists.
const RecentLimit = 3

type Summary struct {
	TotalCompanies    int64                       `json:"total_companies"`
	TotalQuotations   int64                       `json:"total_quotations"`
	PendingQuotations int64                       `json:"pending_quotations"`
	RecentCompanies   []companydomain.Company     `json:"recent_companies"`
	RecentQuotations  []quotationdomain.Quotation `json:"recent_quotations"`
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}
