package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name      string  `json:"name" validate:"min=2"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0.01"`
}

type testRequest struct {
	Name    string     `json:"name" validate:"required,min=2"`
	Email   string     `json:"contact_email" validate:"required,email"`
	GSTIN   string     `json:"gstin" validate:"gstin"`
	LogoURL string     `json:"logo_url" validate:"omitempty,url"`
	Items   []testItem `json:"items" validate:"min=1,dive"`
	Notes   *string    `json:"notes" validate:"omitnil,min=2"`
}

func TestStructReportsJSONFieldPaths(t *testing.T) {
	err := Struct(testRequest{
		Name:  "A",
		Email: "not-an-email",
		GSTIN: "27AAPFU0939F1ZV",
		Items: []testItem{{Name: "x", UnitPrice: 0}},
	})
	verrs, ok := AsErrors(err)
	require.True(t, ok)

	got := map[string]string{}
	for _, fe := range verrs {
		got[fe.Field] = fe.Code
	}
	assert.Equal(t, map[string]string{
		"name":                "min",
		"contact_email":       "email",
		"items[0].name":       "min",
		"items[0].unit_price": "gte",
	}, got)
}

func TestGSTINRule(t *testing.T) {
	assert.True(t, IsGSTIN(""))
	assert.True(t, IsGSTIN("27AAPFU0939F1ZV"))
	assert.False(t, IsGSTIN("27aapfu0939f1zv"))
	assert.False(t, IsGSTIN("27AAPFU0939F0ZV"))

	err := Struct(testRequest{Name: "Acme", Email: "a@b.co", GSTIN: "BAD", Items: []testItem{{Name: "ok", UnitPrice: 1}}})
	verrs, ok := AsErrors(err)
	require.True(t, ok)
	require.Len(t, verrs, 1)
	assert.Equal(t, FieldError{Field: "gstin", Code: "gstin", Message: "must be a valid GSTIN"}, verrs[0])
}

func TestOptionalFields(t *testing.T) {
	short := "x"
	base := testRequest{Name: "Acme", Email: "a@b.co", Items: []testItem{{Name: "ok", UnitPrice: 1}}}
	require.NoError(t, Struct(base))

	base.Notes = &short
	base.LogoURL = "not a url"
	verrs, ok := AsErrors(Struct(base))
	require.True(t, ok)
	assert.Len(t, verrs, 2)
}

func TestErrorsWrapping(t *testing.T) {
	var verrs Errors
	assert.NoError(t, verrs.Err())

	verrs.Add("valid_until", "gtefield", "must not precede date")
	err := fmt.Errorf("create quotation: %w", verrs.Err())

	got, ok := AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "valid_until", got[0].Field)
	assert.Contains(t, err.Error(), "valid_until: must not precede date")
}
