package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	companyrepository "github.com/smallbiznis/quoteflow/internal/company/repository"
	companyservice "github.com/smallbiznis/quoteflow/internal/company/service"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/quotation/domain"
	"github.com/smallbiznis/quoteflow/internal/quotation/repository"
	settingsdomain "github.com/smallbiznis/quoteflow/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/quoteflow/internal/settings/repository"
	settingsservice "github.com/smallbiznis/quoteflow/internal/settings/service"
	"github.com/smallbiznis/quoteflow/internal/testutil"
	"github.com/smallbiznis/quoteflow/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	quotations domain.Service
	companies  companydomain.Service
	settings   settingsdomain.Service
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	return setupFixtureWithSettings(t, settingsrepository.Provide())
}

func setupFixtureWithSettings(t *testing.T, settingsRepo settingsdomain.Repository) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	log := zap.NewNop()

	quotationRepo := repository.Provide()
	companyRepo := companyrepository.Provide()
	settingsSvc := settingsservice.New(settingsservice.Params{
		DB:       db,
		Log:      log,
		Repo:     settingsRepo,
		Defaults: config.NewStaticSettingsDefaults(config.DefaultSettingsDefaults()),
	})

	return fixture{
		db: db,
		quotations: New(Params{
			DB:        db,
			Log:       log,
			GenID:     node,
			Repo:      quotationRepo,
			Companies: companyRepo,
			Numbering: settingsSvc,
		}),
		companies: companyservice.New(companyservice.Params{
			DB:         db,
			Log:        log,
			GenID:      node,
			Repo:       companyRepo,
			Quotations: quotationRepo,
		}),
		settings: settingsSvc,
	}
}

func (f fixture) company(t *testing.T, name string) companydomain.Company {
	t.Helper()
	c, err := f.companies.Create(context.Background(), companydomain.CreateCompanyRequest{
		Name:          name,
		Address:       "221B Baker Street",
		ContactPerson: "Sherlock Holmes",
		ContactEmail:  "contact@" + name + ".test",
		ContactPhone:  "+44 20 7946 0000",
	})
	require.NoError(t, err)
	return c
}

func newRequest(companyID, number string) domain.CreateQuotationRequest {
	return domain.CreateQuotationRequest{
		QuotationNumber: number,
		CompanyID:       companyID,
		Date:            time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:       "alice",
		Items: []domain.ItemInput{
			{HSN: "8471", Name: "Laptop", Quantity: 2, UnitType: "pcs", UnitPrice: 899.5},
		},
	}
}

func (f fixture) nextNumber(t *testing.T) int64 {
	t.Helper()
	s, err := f.settings.Get(context.Background())
	require.NoError(t, err)
	return s.QuotationNextNumber
}

func TestCreateConsumesCandidateOnlyOnce(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	candidate, err := f.settings.Candidate(ctx)
	require.NoError(t, err)
	require.Equal(t, "QTN-001", candidate.QuotationNumber)

	first, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), candidate.QuotationNumber))
	require.NoError(t, err)
	assert.Equal(t, "QTN-001", first.QuotationNumber)
	assert.Equal(t, domain.StatusDraft, first.Status)
	assert.Equal(t, int64(2), f.nextNumber(t))

	manual, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), "SPECIAL-1"))
	require.NoError(t, err)
	assert.Equal(t, "SPECIAL-1", manual.QuotationNumber)
	assert.Equal(t, int64(2), f.nextNumber(t))

	candidate, err = f.settings.Candidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "QTN-002", candidate.QuotationNumber)

	auto, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), ""))
	require.NoError(t, err)
	assert.Equal(t, "QTN-002", auto.QuotationNumber)
	assert.Equal(t, int64(3), f.nextNumber(t))
}

func TestManualNumberNeverConsumesSequence(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	create := func(number string) (domain.Quotation, error) {
		return f.quotations.Create(ctx, newRequest(acme.ID.String(), number))
	}

	_, err := create("QTN-001")
	require.NoError(t, err)
	_, err = create("QTN-003")
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.nextNumber(t))

	_, err = create("QTN-002")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.nextNumber(t))

	// the candidate is now QTN-003 even though a manual entry holds it
	candidate, err := f.settings.Candidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "QTN-003", candidate.QuotationNumber)

	_, err = create("QTN-004")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.nextNumber(t))

	_, err = create("QTN-003")
	require.ErrorIs(t, err, domain.ErrDuplicateNumber)
	assert.Equal(t, int64(3), f.nextNumber(t))

	auto, err := create("")
	require.NoError(t, err)
	assert.Equal(t, "QTN-005", auto.QuotationNumber)
	assert.Equal(t, int64(6), f.nextNumber(t))
}

// racingSettings loses the first compare-and-set to a competing create that
// takes the candidate inside the same transaction.
type racingSettings struct {
	settingsdomain.Repository
	compete func(tx *gorm.DB, number string) error
	prefix  string
	lost    int
}

func (r *racingSettings) CompareAndSetNextNumber(ctx context.Context, tx *gorm.DB, expected, next int64, updatedAt time.Time) (bool, error) {
	if r.lost > 0 {
		return r.Repository.CompareAndSetNextNumber(ctx, tx, expected, next, updatedAt)
	}
	r.lost++
	won, err := r.Repository.CompareAndSetNextNumber(ctx, tx, expected, expected+1, updatedAt)
	if err != nil || !won {
		return false, err
	}
	if err := r.compete(tx, fmt.Sprintf("%s%03d", r.prefix, expected)); err != nil {
		return false, err
	}
	return false, nil
}

func setupRacingFixture(t *testing.T) (fixture, *racingSettings, companydomain.Company) {
	t.Helper()
	racer := &racingSettings{Repository: settingsrepository.Provide(), prefix: "QTN-"}
	f := setupFixtureWithSettings(t, racer)
	acme := f.company(t, "acme")
	racer.compete = func(tx *gorm.DB, number string) error {
		now := time.Now().UTC()
		return tx.Exec(
			`INSERT INTO quotations (id, quotation_number, company_id, date, notes, status, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, '', 'draft', 'rival', ?, ?)`,
			int64(7), number, acme.ID, now, now, now,
		).Error
	}
	return f, racer, acme
}

func TestCreateRetriesAfterLostAllocation(t *testing.T) {
	f, racer, acme := setupRacingFixture(t)
	ctx := context.Background()

	q, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), ""))
	require.NoError(t, err)
	assert.Equal(t, 1, racer.lost)
	assert.Equal(t, "QTN-002", q.QuotationNumber)
	assert.Equal(t, int64(3), f.nextNumber(t))

	total, err := f.quotations.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestCreateWithCandidateLostToRivalIsDuplicate(t *testing.T) {
	f, racer, acme := setupRacingFixture(t)
	ctx := context.Background()

	_, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), "QTN-001"))
	require.ErrorIs(t, err, domain.ErrDuplicateNumber)
	assert.Equal(t, 1, racer.lost)

	// the rival shared the rolled back transaction
	assert.Equal(t, int64(1), f.nextNumber(t))
	total, err := f.quotations.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListFilters(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")
	globex := f.company(t, "globex")

	_, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), ""))
	require.NoError(t, err)
	sent, err := f.quotations.Create(ctx, newRequest(globex.ID.String(), ""))
	require.NoError(t, err)
	_, err = f.quotations.Create(ctx, newRequest(acme.ID.String(), "SPECIAL_1"))
	require.NoError(t, err)
	_, err = f.quotations.ToggleStatus(ctx, sent.ID.String(), domain.StatusDraft)
	require.NoError(t, err)

	numbers := func(filter domain.ListFilter) []string {
		t.Helper()
		list, err := f.quotations.List(ctx, filter)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, q := range list {
			out = append(out, q.QuotationNumber)
		}
		return out
	}

	assert.Len(t, numbers(domain.ListFilter{}), 3)
	assert.ElementsMatch(t, []string{"QTN-001", "SPECIAL_1"}, numbers(domain.ListFilter{CompanyID: acme.ID.String()}))
	assert.Equal(t, []string{"QTN-002"}, numbers(domain.ListFilter{Search: "GLOBEX"}))
	assert.Equal(t, []string{"QTN-002"}, numbers(domain.ListFilter{Search: "contact@globex"}))
	assert.Equal(t, []string{"QTN-002"}, numbers(domain.ListFilter{Search: "sent"}))
	assert.Equal(t, []string{"SPECIAL_1"}, numbers(domain.ListFilter{Search: "l_1"}))
	assert.Empty(t, numbers(domain.ListFilter{Search: "%"}))
	assert.Equal(t, []string{"QTN-001"}, numbers(domain.ListFilter{CompanyID: acme.ID.String(), Search: "qtn"}))
	assert.Empty(t, numbers(domain.ListFilter{CompanyID: "42"}))

	_, err = f.quotations.List(ctx, domain.ListFilter{CompanyID: "acme"})
	verrs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "company_id", verrs[0].Field)
}

func TestCreateWithUnknownCompanyLeavesCounter(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.quotations.Create(ctx, newRequest("1234567890", ""))
	require.ErrorIs(t, err, domain.ErrCompanyNotFound)

	_, err = f.quotations.Create(ctx, newRequest("not-an-id", ""))
	require.ErrorIs(t, err, domain.ErrCompanyNotFound)

	assert.Equal(t, int64(1), f.nextNumber(t))
}

func TestCreateDuplicateNumber(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	_, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), "SPECIAL-1"))
	require.NoError(t, err)

	_, err = f.quotations.Create(ctx, newRequest(acme.ID.String(), "SPECIAL-1"))
	require.ErrorIs(t, err, domain.ErrDuplicateNumber)

	total, err := f.quotations.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), f.nextNumber(t))
}

func TestCreateValidation(t *testing.T) {
	f := setupFixture(t)
	acme := f.company(t, "acme")

	req := newRequest(acme.ID.String(), "")
	req.Items = []domain.ItemInput{{HSN: "", Name: "X", Quantity: 0, UnitPrice: 0, ImageURL: "nope"}}
	req.CreatedBy = ""
	_, err := f.quotations.Create(context.Background(), req)

	verrs, ok := validation.AsErrors(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field] = fe.Code
	}
	assert.Equal(t, map[string]string{
		"created_by":          "required",
		"items[0].hsn":        "required",
		"items[0].name":       "min",
		"items[0].image_url":  "url",
		"items[0].quantity":   "gte",
		"items[0].unit_price": "gte",
	}, fields)

	req = newRequest(acme.ID.String(), "")
	before := req.Date.AddDate(0, 0, -1)
	req.ValidUntil = &before
	_, err = f.quotations.Create(context.Background(), req)
	verrs, ok = validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "valid_until", verrs[0].Field)

	req = newRequest(acme.ID.String(), "")
	req.Items = nil
	_, err = f.quotations.Create(context.Background(), req)
	_, ok = validation.AsErrors(err)
	assert.True(t, ok)

	assert.Equal(t, int64(1), f.nextNumber(t))
}

func TestConcurrentCreatesReceiveDistinctNumbers(t *testing.T) {
	f := setupFixture(t)
	acme := f.company(t, "acme")

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]struct{}{}
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := f.quotations.Create(context.Background(), newRequest(acme.ID.String(), ""))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[q.QuotationNumber] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, n)
	assert.Equal(t, int64(n+1), f.nextNumber(t))
}

func TestConcurrentCreatesWithSameCandidate(t *testing.T) {
	f := setupFixture(t)
	acme := f.company(t, "acme")

	const n = 5
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		duplicates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.quotations.Create(context.Background(), newRequest(acme.ID.String(), "QTN-001"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrDuplicateNumber):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, duplicates)
	assert.Equal(t, int64(2), f.nextNumber(t))
}

func TestCompanyFieldsFollowCompanyEdits(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")
	globex := f.company(t, "globex")

	q, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), ""))
	require.NoError(t, err)
	assert.Equal(t, "acme", q.CompanyName)
	assert.Equal(t, "contact@acme.test", q.CompanyEmail)

	name := "Acme Holdings"
	email := "sales@acme.test"
	_, err = f.companies.Update(ctx, acme.ID.String(), companydomain.UpdateCompanyRequest{Name: &name, ContactEmail: &email})
	require.NoError(t, err)

	got, err := f.quotations.GetByID(ctx, q.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", got.CompanyName)
	assert.Equal(t, "sales@acme.test", got.CompanyEmail)

	list, err := f.quotations.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme Holdings", list[0].CompanyName)

	target := globex.ID.String()
	moved, err := f.quotations.Update(ctx, q.ID.String(), domain.UpdateQuotationRequest{CompanyID: &target})
	require.NoError(t, err)
	assert.Equal(t, "globex", moved.CompanyName)
	assert.Equal(t, "contact@globex.test", moved.CompanyEmail)

	missing := "987654321"
	_, err = f.quotations.Update(ctx, q.ID.String(), domain.UpdateQuotationRequest{CompanyID: &missing})
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
}

func TestItemsRoundTrip(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")
	node := testutil.MustNode(t)
	keepID := node.Generate()

	req := newRequest(acme.ID.String(), "")
	validUntil := req.Date.AddDate(0, 1, 0)
	req.ValidUntil = &validUntil
	req.Notes = "Delivery within 2 weeks"
	req.Items = []domain.ItemInput{
		{ID: keepID.String(), HSN: "8471", Name: "Laptop", Description: "14 inch", ImageURL: "https://cdn.test/laptop.png", Quantity: 2, UnitType: "pcs", UnitPrice: 899.5},
		{ID: "client-temp-id", HSN: "9403", Name: "Desk", Quantity: 1, UnitPrice: 120.25},
		{HSN: "4820", Name: "Notebook", Quantity: 10, UnitType: "box", UnitPrice: 0.01},
	}

	created, err := f.quotations.Create(ctx, req)
	require.NoError(t, err)

	got, err := f.quotations.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Items, 3)

	assert.Equal(t, keepID, got.Items[0].ID)
	assert.NotZero(t, got.Items[1].ID)
	assert.NotZero(t, got.Items[2].ID)
	for i, in := range req.Items {
		item := got.Items[i]
		assert.Equal(t, in.HSN, item.HSN)
		assert.Equal(t, in.Name, item.Name)
		assert.Equal(t, in.Description, item.Description)
		assert.Equal(t, in.ImageURL, item.ImageURL)
		assert.Equal(t, in.Quantity, item.Quantity)
		assert.Equal(t, in.UnitType, item.UnitType)
		assert.Equal(t, in.UnitPrice, item.UnitPrice)
	}
	assert.Equal(t, 1799.0, got.Items[0].LineTotal)
	assert.Equal(t, 1919.35, got.Subtotal)
	assert.Equal(t, "Delivery within 2 weeks", got.Notes)
	require.NotNil(t, got.ValidUntil)
	assert.True(t, validUntil.Equal(*got.ValidUntil))
	assert.True(t, req.Date.Equal(got.Date))

	// an id owned by another quotation is never reused
	other := newRequest(acme.ID.String(), "")
	other.Items[0].ID = keepID.String()
	second, err := f.quotations.Create(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, keepID, second.Items[0].ID)
}

func TestUpdateReplacesItems(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	q, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), ""))
	require.NoError(t, err)
	originalID := q.Items[0].ID

	notes := "revised"
	updated, err := f.quotations.Update(ctx, q.ID.String(), domain.UpdateQuotationRequest{
		Notes: &notes,
		Items: []domain.ItemInput{
			{ID: originalID.String(), HSN: "8471", Name: "Laptop Pro", Quantity: 1, UnitPrice: 1500},
			{HSN: "8528", Name: "Monitor", Quantity: 2, UnitPrice: 200},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, originalID, updated.Items[0].ID)
	assert.Equal(t, "Laptop Pro", updated.Items[0].Name)
	assert.Equal(t, "revised", updated.Notes)
	assert.Equal(t, q.QuotationNumber, updated.QuotationNumber)

	_, err = f.quotations.Update(ctx, q.ID.String(), domain.UpdateQuotationRequest{Items: []domain.ItemInput{}})
	_, ok := validation.AsErrors(err)
	assert.True(t, ok)

	_, err = f.quotations.Update(ctx, "123", domain.UpdateQuotationRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateDuplicateNumber(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	_, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), "A-1"))
	require.NoError(t, err)
	second, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), "A-2"))
	require.NoError(t, err)

	taken := "A-1"
	_, err = f.quotations.Update(ctx, second.ID.String(), domain.UpdateQuotationRequest{QuotationNumber: &taken})
	require.ErrorIs(t, err, domain.ErrDuplicateNumber)

	got, err := f.quotations.GetByID(ctx, second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "A-2", got.QuotationNumber)
}

func TestStatusLifecycle(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	q, err := f.quotations.Create(ctx, newRequest(acme.ID.String(), ""))
	require.NoError(t, err)
	id := q.ID.String()

	next, err := f.quotations.ToggleStatus(ctx, id, domain.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, next)

	next, err = f.quotations.ToggleStatus(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, next)

	// stale view of the current status
	_, err = f.quotations.ToggleStatus(ctx, id, domain.StatusSent)
	require.ErrorIs(t, err, domain.ErrStatusConflict)

	accepted := domain.StatusAccepted
	_, err = f.quotations.Update(ctx, id, domain.UpdateQuotationRequest{Status: &accepted})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.quotations.ToggleStatus(ctx, id, domain.StatusDraft)
	require.NoError(t, err)
	updated, err := f.quotations.Update(ctx, id, domain.UpdateQuotationRequest{Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, updated.Status)

	_, err = f.quotations.ToggleStatus(ctx, id, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.quotations.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, got.Status)

	_, err = f.quotations.ToggleStatus(ctx, "42", domain.StatusDraft)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.company(t, "acme")

	older := newRequest(acme.ID.String(), "")
	newer := newRequest(acme.ID.String(), "")
	newer.Date = older.Date.AddDate(0, 0, 7)

	a, err := f.quotations.Create(ctx, older)
	require.NoError(t, err)
	b, err := f.quotations.Create(ctx, newer)
	require.NoError(t, err)

	list, err := f.quotations.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)

	deleted, err := f.quotations.Delete(ctx, a.ID.String())
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.quotations.Delete(ctx, a.ID.String())
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.quotations.GetByID(ctx, a.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var items int64
	require.NoError(t, f.db.Table("quotation_items").Where("quotation_id = ?", a.ID).Count(&items).Error)
	assert.Zero(t, items)
}
