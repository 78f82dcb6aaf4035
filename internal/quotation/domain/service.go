package domain

import (
	"context"
	"errors"
	"time"
)

type ItemInput struct {
	ID          string  `json:"id"`
	HSN         string  `json:"hsn" validate:"required"`
	Name        string  `json:"name" validate:"required,min=2"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
	Quantity    float64 `json:"quantity" validate:"gte=1"`
	UnitType    string  `json:"unit_type" validate:"max=32"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0.01"`
}

type CreateQuotationRequest struct {
	// QuotationNumber may be left empty to take the next sequence number.
	QuotationNumber string      `json:"quotation_number" validate:"max=64"`
	CompanyID       string      `json:"company_id" validate:"required"`
	Date            time.Time   `json:"date" validate:"required"`
	ValidUntil      *time.Time  `json:"valid_until"`
	Items           []ItemInput `json:"items" validate:"min=1,dive"`
	Notes           string      `json:"notes"`
	Status          Status      `json:"status" validate:"omitempty,oneof=draft sent accepted rejected archived"`
	CreatedBy       string      `json:"created_by" validate:"required"`
}

// UpdateQuotationRequest is a partial update. A nil Items slice keeps the
// current items; a non-nil one replaces them.
type UpdateQuotationRequest struct {
	QuotationNumber *string     `json:"quotation_number" validate:"omitnil,min=1,max=64"`
	CompanyID       *string     `json:"company_id" validate:"omitnil,min=1"`
	Date            *time.Time  `json:"date"`
	ValidUntil      *time.Time  `json:"valid_until"`
	Items           []ItemInput `json:"items" validate:"omitempty,dive"`
	Notes           *string     `json:"notes"`
	Status          *Status     `json:"status" validate:"omitnil,oneof=draft sent accepted rejected archived"`
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	CompanyID string
	// Search is a case-insensitive substring of the quotation number, the
	// company name, the company email or the status.
	Search string
}

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Quotation, error)
	Recent(ctx context.Context, limit int) ([]Quotation, error)
	GetByID(ctx context.Context, id string) (Quotation, error)
	Create(ctx context.Context, req CreateQuotationRequest) (Quotation, error)
	Update(ctx context.Context, id string, req UpdateQuotationRequest) (Quotation, error)
	// ToggleStatus flips draft and sent. current is the status the caller
	// last saw; an empty value uses the stored status.
	ToggleStatus(ctx context.Context, id string, current Status) (Status, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, statuses ...Status) (int64, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrCompanyNotFound = errors.New("company_not_found")
	ErrDuplicateNumber = errors.New("duplicate_quotation_number")
	ErrStatusConflict  = errors.New("status_conflict")
)
