package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type UpdateSettingsRequest struct {
	Name                *string `json:"name" validate:"omitnil,min=2"`
	Address             *string `json:"address" validate:"omitnil,min=5"`
	Email               *string `json:"email" validate:"omitnil,email"`
	Phone               *string `json:"phone" validate:"omitnil,min=10"`
	LogoURL             *string `json:"logo_url" validate:"omitempty,url"`
	Website             *string `json:"website" validate:"omitempty,url"`
	QuotationPrefix     *string `json:"quotation_prefix" validate:"omitnil,max=32"`
	QuotationNextNumber *int64  `json:"quotation_next_number" validate:"omitnil,gte=1"`
}

type Service interface {
	// Get returns the settings, creating the default row on first use.
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (Settings, error)
	// Candidate returns prefix + zero padded next number. It never advances
	// the counter.
	Candidate(ctx context.Context) (NextNumber, error)
	// Allocate resolves the number for a new quotation inside tx. A value
	// equal to the candidate consumes it; any other non-empty value is manual
	// and leaves the counter alone. An empty value takes the first sequence
	// number not already used by a manual entry.
	Allocate(ctx context.Context, tx *gorm.DB, submitted string) (Allocation, error)
}

var (
	ErrNumberDecrease      = errors.New("quotation_next_number_decrease")
	ErrAllocationExhausted = errors.New("quotation_number_allocation_exhausted")
)
