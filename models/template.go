package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template is a reusable invoice definition. Lines reference catalog
// items by id only; unit prices and tax rates are resolved from the
// catalogs at issuance time, never copied onto the template.
type Template struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	MerchantID uuid.UUID      `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Currency   string         `gorm:"size:10;not null;default:'JPY'" json:"currency"`
	Lines      []TemplateLine `gorm:"foreignKey:TemplateID" json:"lines"`
}

type TemplateLine struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"template_id"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null" json:"item_id"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	SortOrder  int       `gorm:"default:0" json:"sort_order"`
}

// TableName overrides the table name
func (Template) TableName() string {
	return "templates"
}

// TableName overrides the table name
func (TemplateLine) TableName() string {
	return "template_lines"
}
