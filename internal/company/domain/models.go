package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Company struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name          string            `gorm:"not null" json:"name"`
	Address       string            `gorm:"not null" json:"address"`
	ContactPerson string            `gorm:"not null" json:"contact_person"`
	ContactEmail  string            `gorm:"not null" json:"contact_email"`
	ContactPhone  string            `gorm:"not null" json:"contact_phone"`
	GSTIN         string            `gorm:"column:gstin;not null;default:''" json:"gstin,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"not null" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}
