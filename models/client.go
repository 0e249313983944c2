package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Billing directions.
const (
	DirectionReceivable = "receivable"
	DirectionPayable    = "payable"
)

type Client struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	MerchantID uuid.UUID      `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Email      string         `gorm:"size:255" json:"email"`
	Direction  string         `gorm:"size:20;default:'receivable'" json:"direction"` // receivable, payable
	Address    string         `gorm:"type:text" json:"address"`
	Notes      string         `gorm:"type:text" json:"notes"`
}

// TableName overrides the table name
func (Client) TableName() string {
	return "clients"
}
