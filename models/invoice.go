package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice statuses.
const (
	InvoiceStatusDraft  = "draft"
	InvoiceStatusIssued = "issued"
	InvoiceStatusPaid   = "paid"
	InvoiceStatusVoid   = "void"
)

type Invoice struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
	MerchantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"merchant_id"`
	ClientID   uuid.UUID       `gorm:"type:uuid;not null" json:"client_id"`
	ScheduleID *uuid.UUID      `gorm:"type:uuid;index" json:"schedule_id,omitempty"` // nil for manually created invoices
	InvoiceNo  string          `gorm:"uniqueIndex;size:50;not null" json:"invoice_no"`
	Currency   string          `gorm:"size:10;not null" json:"currency"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	TaxTotal   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"tax_total"`
	Total      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	Status     string          `gorm:"size:20;default:'issued'" json:"status"` // draft, issued, paid, void
	IssuedAt   time.Time       `gorm:"not null" json:"issued_at"`
	Lines      []InvoiceLine   `gorm:"foreignKey:InvoiceID" json:"lines"`
}

// InvoiceLine snapshots the item description, unit price and tax rate
// as they were at issuance time.
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ItemID      uuid.UUID       `gorm:"type:uuid;not null" json:"item_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"tax_rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`     // quantity x unit price
	TaxAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"tax_amount"` // rounded half up per line
	SortOrder   int             `gorm:"default:0" json:"sort_order"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// TableName overrides the table name
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}
