package domain

import (
	"context"
	"errors"
)

type CreateCompanyRequest struct {
	Name          string         `json:"name" validate:"required,min=2"`
	Address       string         `json:"address" validate:"required,min=5"`
	ContactPerson string         `json:"contact_person" validate:"required,min=2"`
	ContactEmail  string         `json:"contact_email" validate:"required,email"`
	ContactPhone  string         `json:"contact_phone" validate:"required,min=10"`
	GSTIN         string         `json:"gstin" validate:"gstin"`
	Metadata      map[string]any `json:"metadata"`
}

// UpdateCompanyRequest is a partial update; nil fields keep their value.
type UpdateCompanyRequest struct {
	Name          *string        `json:"name" validate:"omitnil,min=2"`
	Address       *string        `json:"address" validate:"omitnil,min=5"`
	ContactPerson *string        `json:"contact_person" validate:"omitnil,min=2"`
	ContactEmail  *string        `json:"contact_email" validate:"omitnil,email"`
	ContactPhone  *string        `json:"contact_phone" validate:"omitnil,min=10"`
	GSTIN         *string        `json:"gstin" validate:"omitnil,gstin"`
	Metadata      map[string]any `json:"metadata"`
}

type Service interface {
	List(ctx context.Context) ([]Company, error)
	Recent(ctx context.Context, limit int) ([]Company, error)
	GetByID(ctx context.Context, id string) (Company, error)
	Create(ctx context.Context, req CreateCompanyRequest) (Company, error)
	Update(ctx context.Context, id string, req UpdateCompanyRequest) (Company, error)
	// Delete removes the company and every quotation referencing it. It
	// reports false when no such company exists.
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
