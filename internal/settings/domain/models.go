package domain

import "time"

// SingletonID is the fixed primary key of the only settings row.
const SingletonID int64 = 1

// Settings is the issuer identity printed on quotations together with the
// quotation numbering sequence.
type Settings struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement:false;check:chk_my_company_settings_singleton,id = 1" json:"-"`
	Name                string    `gorm:"not null" json:"name"`
	Address             string    `gorm:"not null" json:"address"`
	Email               string    `gorm:"not null" json:"email"`
	Phone               string    `gorm:"not null" json:"phone"`
	LogoURL             string    `gorm:"not null;default:''" json:"logo_url"`
	Website             string    `gorm:"not null;default:''" json:"website"`
	QuotationPrefix     string    `gorm:"not null;default:'QTN-'" json:"quotation_prefix"`
	QuotationNextNumber int64     `gorm:"not null;default:1;check:chk_my_company_settings_next_number,quotation_next_number > 0" json:"quotation_next_number"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string {
	return "my_company_settings"
}

// NextNumber is the number the next sequenced quotation will receive.
type NextNumber struct {
	QuotationNumber string `json:"quotation_number"`
	Prefix          string `json:"prefix"`
	Sequence        int64  `json:"sequence"`
}

// Allocation is the outcome of reserving a quotation number.
type Allocation struct {
	Number string
	// Consumed is true when the number came from the sequence and the
	// counter was advanced in the caller's transaction.
	Consumed bool
	Sequence int64
}
