package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Item struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
	MerchantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	TaxRateID  uuid.UUID       `gorm:"type:uuid;not null" json:"tax_rate_id"`
	Unit       string          `gorm:"size:50" json:"unit"` // e.g. "hour", "piece"
}

// TableName overrides the table name
func (Item) TableName() string {
	return "items"
}
