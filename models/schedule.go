package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/recurrence"
)

// Schedule is a persisted recurrence definition driving automatic
// invoice issuance. NextIssuanceDate is nil once the rule is exhausted
// (every remaining occurrence would fall past EndDate); the driver's
// due query never matches a nil date.
type Schedule struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	MerchantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"merchant_id"`
	ClientID         uuid.UUID      `gorm:"type:uuid;not null" json:"client_id"`
	TemplateID       uuid.UUID      `gorm:"type:uuid;not null" json:"template_id"`
	IntervalType     string         `gorm:"size:20;not null" json:"interval_type"` // daily, weekly, monthly, yearly
	IntervalValue    int            `gorm:"not null" json:"interval_value"`
	StartDate        time.Time      `gorm:"not null" json:"start_date"`
	EndDate          *time.Time     `json:"end_date"`
	NextIssuanceDate *time.Time     `gorm:"index" json:"next_issuance_date"`
	LastIssuedAt     *time.Time     `json:"last_issued_at"`
	Enabled          bool           `gorm:"default:true" json:"enabled"`
	DisabledReason   string         `gorm:"size:255" json:"disabled_reason,omitempty"`
	FailureCount     int            `gorm:"default:0" json:"failure_count"`
}

// TableName overrides the table name
func (Schedule) TableName() string {
	return "schedules"
}

// Rule assembles the schedule's embedded recurrence rule.
func (s *Schedule) Rule() recurrence.Rule {
	return recurrence.Rule{
		IntervalType:  s.IntervalType,
		IntervalValue: s.IntervalValue,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
	}
}

// Exhausted reports whether the schedule has no further occurrences.
func (s *Schedule) Exhausted() bool {
	return s.NextIssuanceDate == nil
}
