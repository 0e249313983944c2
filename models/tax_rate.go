package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TaxRate struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
	MerchantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	Rate       decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"rate"` // e.g. 0.1000 for 10%
}

// TableName overrides the table name
func (TaxRate) TableName() string {
	return "tax_rates"
}
