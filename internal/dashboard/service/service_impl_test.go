package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	companyrepository "github.com/smallbiznis/quoteflow/internal/company/repository"
	companyservice "github.com/smallbiznis/quoteflow/internal/company/service"
	"github.com/smallbiznis/quoteflow/internal/config"
	dashboarddomain "github.com/smallbiznis/quoteflow/internal/dashboard/domain"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
	quotationrepository "github.com/smallbiznis/quoteflow/internal/quotation/repository"
	quotationservice "github.com/smallbiznis/quoteflow/internal/quotation/service"
	settingsrepository "github.com/smallbiznis/quoteflow/internal/settings/repository"
	settingsservice "github.com/smallbiznis/quoteflow/internal/settings/service"
	"github.com/smallbiznis/quoteflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSummary(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	log := zap.NewNop()
	ctx := context.Background()

	quotationRepo := quotationrepository.Provide()
	companyRepo := companyrepository.Provide()
	companies := companyservice.New(companyservice.Params{
		DB: db, Log: log, GenID: node, Repo: companyRepo, Quotations: quotationRepo,
	})
	quotations := quotationservice.New(quotationservice.Params{
		DB: db, Log: log, GenID: node, Repo: quotationRepo, Companies: companyRepo,
		Numbering: settingsservice.New(settingsservice.Params{
			DB: db, Log: log, Repo: settingsrepository.Provide(),
			Defaults: config.NewStaticSettingsDefaults(config.DefaultSettingsDefaults()),
		}),
	})
	svc := NewService(Params{Log: log, Companies: companies, Quotations: quotations})

	empty, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCompanies)
	assert.Empty(t, empty.RecentQuotations)

	var companyID string
	for i := 0; i < 7; i++ {
		c, err := companies.Create(ctx, companydomain.CreateCompanyRequest{
			Name:          fmt.Sprintf("Company %d", i),
			Address:       "1 Infinite Loop",
			ContactPerson: "Jane Doe",
			ContactEmail:  fmt.Sprintf("jane%d@example.com", i),
			ContactPhone:  "4085550100",
		})
		require.NoError(t, err)
		companyID = c.ID.String()
	}

	statuses := []quotationdomain.Status{
		quotationdomain.StatusDraft,
		quotationdomain.StatusSent,
		quotationdomain.StatusAccepted,
		quotationdomain.StatusRejected,
		quotationdomain.StatusArchived,
		quotationdomain.StatusDraft,
	}
	for i, status := range statuses {
		_, err := quotations.Create(ctx, quotationdomain.CreateQuotationRequest{
			CompanyID: companyID,
			Date:      time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Status:    status,
			CreatedBy: "bob",
			Items:     []quotationdomain.ItemInput{{HSN: "9983", Name: "Consulting", Quantity: 1, UnitPrice: 100}},
		})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalCompanies)
	assert.Equal(t, int64(6), summary.TotalQuotations)
	assert.Equal(t, int64(3), summary.PendingQuotations)
	assert.Len(t, summary.RecentCompanies, dashboarddomain.RecentLimit)
	assert.Equal(t, "Company 6", summary.RecentCompanies[0].Name)
	assert.Len(t, summary.RecentQuotations, 3)
	assert.Equal(t, "QTN-006", summary.RecentQuotations[0].QuotationNumber)
}
