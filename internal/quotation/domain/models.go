package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
)

// Quotation is a priced proposal to a company. CompanyName and CompanyEmail
// are never stored; every read joins them from the live company row.
type Quotation struct {
	ID              snowflake.ID           `gorm:"primaryKey" json:"id"`
	QuotationNumber string                 `gorm:"not null;size:64;uniqueIndex:ux_quotations_quotation_number" json:"quotation_number"`
	CompanyID       snowflake.ID           `gorm:"not null;index" json:"company_id"`
	Company         *companydomain.Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
	CompanyName     string                 `gorm:"->;-:migration" json:"company_name"`
	CompanyEmail    string                 `gorm:"->;-:migration" json:"company_email"`
	Date            time.Time              `gorm:"not null;index" json:"date"`
	ValidUntil      *time.Time             `json:"valid_until,omitempty"`
	Items           []Item                 `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"items"`
	Notes           string                 `gorm:"not null;default:''" json:"notes"`
	Status          Status                 `gorm:"size:16;not null;default:'draft';index" json:"status"`
	CreatedBy       string                 `gorm:"not null" json:"created_by"`
	Subtotal        float64                `gorm:"-" json:"subtotal"`
	CreatedAt       time.Time              `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"not null" json:"updated_at"`
}

// Item is one priced line of a quotation, kept in submission order.
type Item struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	QuotationID snowflake.ID `gorm:"not null;index:idx_quotation_items_position,priority:1" json:"-"`
	Position    int          `gorm:"not null;index:idx_quotation_items_position,priority:2" json:"-"`
	HSN         string       `gorm:"column:hsn;not null" json:"hsn"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description"`
	ImageURL    string       `gorm:"not null;default:''" json:"image_url"`
	Quantity    float64      `gorm:"not null" json:"quantity"`
	UnitType    string       `gorm:"not null;default:''" json:"unit_type"`
	UnitPrice   float64      `gorm:"not null" json:"unit_price"`
	LineTotal   float64      `gorm:"-" json:"line_total"`
}

func (Item) TableName() string {
	return "quotation_items"
}

// ComputeTotals fills the derived line totals and the subtotal.
func (q *Quotation) ComputeTotals() {
	var subtotal float64
	for i := range q.Items {
		q.Items[i].LineTotal = roundCents(q.Items[i].Quantity * q.Items[i].UnitPrice)
		subtotal += q.Items[i].LineTotal
	}
	q.Subtotal = roundCents(subtotal)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
