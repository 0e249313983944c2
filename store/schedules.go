package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/models"
	"github.com/wbsdickson/bpsp-portal-sub002/recurrence"
)

// ScheduleStore persists issuance schedules. The id generator is a
// field so tests can pin it.
type ScheduleStore struct {
	db    *gorm.DB
	NewID func() uuid.UUID
}

func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{
		db:    db,
		NewID: uuid.New,
	}
}

type CreateScheduleInput struct {
	MerchantID    uuid.UUID
	ClientID      uuid.UUID
	TemplateID    uuid.UUID
	IntervalType  string
	IntervalValue int
	StartDate     time.Time
	EndDate       *time.Time
}

// UpdateScheduleInput patches a schedule. Nil fields are left
// untouched; ClearEndDate removes an existing end date.
type UpdateScheduleInput struct {
	ClientID      *uuid.UUID
	TemplateID    *uuid.UUID
	IntervalType  *string
	IntervalValue *int
	StartDate     *time.Time
	EndDate       *time.Time
	ClearEndDate  bool
}

type ListFilter struct {
	Enabled    *bool
	ClientName string // substring match on the client's name
	Direction  string // receivable or payable
}

// Create validates the rule and its references, seeds NextIssuanceDate
// from the start date, and persists the schedule enabled.
func (s *ScheduleStore) Create(ctx context.Context, in CreateScheduleInput) (*models.Schedule, error) {
	rule := recurrence.Rule{
		IntervalType:  in.IntervalType,
		IntervalValue: in.IntervalValue,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
	}
	if err := rule.Validate(); err != nil {
		return nil, &ValidationError{Field: "rule", Reason: err.Error()}
	}
	if err := s.checkClient(ctx, in.MerchantID, in.ClientID); err != nil {
		return nil, err
	}
	if err := s.checkTemplate(ctx, in.MerchantID, in.TemplateID); err != nil {
		return nil, err
	}

	// First firing is the start date itself.
	next, ok := recurrence.NextOccurrence(rule, rule.StartDate.AddDate(0, 0, -1))
	var nextPtr *time.Time
	if ok {
		nextPtr = &next
	}

	schedule := models.Schedule{
		ID:               s.NewID(),
		MerchantID:       in.MerchantID,
		ClientID:         in.ClientID,
		TemplateID:       in.TemplateID,
		IntervalType:     in.IntervalType,
		IntervalValue:    in.IntervalValue,
		StartDate:        recurrence.DateOnly(in.StartDate),
		EndDate:          datePtr(in.EndDate),
		NextIssuanceDate: nextPtr,
		Enabled:          true,
	}
	if err := s.db.WithContext(ctx).Create(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Update applies a patch. Whenever any rule field changes, the next
// issuance date is recomputed from the new rule instead of trusting
// the stale value.
func (s *ScheduleStore) Update(ctx context.Context, merchantID, id uuid.UUID, in UpdateScheduleInput) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}

	ruleChanged := false
	if in.IntervalType != nil {
		schedule.IntervalType = *in.IntervalType
		ruleChanged = true
	}
	if in.IntervalValue != nil {
		schedule.IntervalValue = *in.IntervalValue
		ruleChanged = true
	}
	if in.StartDate != nil {
		schedule.StartDate = recurrence.DateOnly(*in.StartDate)
		ruleChanged = true
	}
	if in.ClearEndDate {
		schedule.EndDate = nil
		ruleChanged = true
	} else if in.EndDate != nil {
		schedule.EndDate = datePtr(in.EndDate)
		ruleChanged = true
	}
	if in.ClientID != nil {
		schedule.ClientID = *in.ClientID
	}
	if in.TemplateID != nil {
		schedule.TemplateID = *in.TemplateID
	}

	rule := schedule.Rule()
	if err := rule.Validate(); err != nil {
		return nil, &ValidationError{Field: "rule", Reason: err.Error()}
	}
	if err := s.checkClient(ctx, merchantID, schedule.ClientID); err != nil {
		return nil, err
	}
	if err := s.checkTemplate(ctx, merchantID, schedule.TemplateID); err != nil {
		return nil, err
	}

	if ruleChanged {
		next, ok := recurrence.NextOccurrence(rule, rule.StartDate.AddDate(0, 0, -1))
		if ok {
			schedule.NextIssuanceDate = &next
		} else {
			schedule.NextIssuanceDate = nil
		}
	}

	if err := s.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

// Delete soft-deletes a schedule. Invoices generated from it keep
// their back-reference.
func (s *ScheduleStore) Delete(ctx context.Context, merchantID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Delete(&models.Schedule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ScheduleStore) Get(ctx context.Context, merchantID, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	err := s.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListByMerchant returns the merchant's schedules, optionally filtered
// by enabled flag, client name substring and client direction.
func (s *ScheduleStore) ListByMerchant(ctx context.Context, merchantID uuid.UUID, filter ListFilter) ([]models.Schedule, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("schedules.merchant_id = ?", merchantID)

	if filter.Enabled != nil {
		q = q.Where("schedules.enabled = ?", *filter.Enabled)
	}
	if filter.ClientName != "" || filter.Direction != "" {
		q = q.Joins("JOIN clients ON clients.id = schedules.client_id AND clients.deleted_at IS NULL")
		if filter.ClientName != "" {
			q = q.Where("clients.name LIKE ?", "%"+filter.ClientName+"%")
		}
		if filter.Direction != "" {
			q = q.Where("clients.direction = ?", filter.Direction)
		}
	}

	var schedules []models.Schedule
	if err := q.Order("schedules.created_at").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListDue returns enabled, non-exhausted schedules whose next issuance
// date has been reached, across all merchants.
func (s *ScheduleStore) ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := s.db.WithContext(ctx).
		Where("enabled = ? AND next_issuance_date IS NOT NULL AND next_issuance_date <= ?", true, now).
		Order("next_issuance_date").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// AdvanceAfterIssue moves the schedule past a fired occurrence inside
// the caller's transaction. The update is keyed on the occurrence that
// fired, so a concurrent runner that already advanced the schedule
// makes this a no-op and the caller gets ErrConflict to roll back on.
func (s *ScheduleStore) AdvanceAfterIssue(tx *gorm.DB, schedule *models.Schedule, next *time.Time, issuedAt time.Time) error {
	if schedule.NextIssuanceDate == nil {
		return ErrConflict
	}
	res := tx.Model(&models.Schedule{}).
		Where("id = ? AND next_issuance_date = ?", schedule.ID, *schedule.NextIssuanceDate).
		Updates(map[string]interface{}{
			"next_issuance_date": next,
			"last_issued_at":     issuedAt,
			"failure_count":      0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// RecordFailure bumps the consecutive-failure counter and disables the
// schedule once the threshold is hit. Returns the updated schedule and
// whether this call disabled it.
func (s *ScheduleStore) RecordFailure(ctx context.Context, id uuid.UUID, reason string, threshold int) (*models.Schedule, bool, error) {
	var schedule models.Schedule
	if err := s.db.WithContext(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	schedule.FailureCount++
	disabled := false
	if schedule.FailureCount >= threshold && schedule.Enabled {
		schedule.Enabled = false
		schedule.DisabledReason = reason
		disabled = true
	}
	if err := s.db.WithContext(ctx).Save(&schedule).Error; err != nil {
		return nil, false, err
	}
	return &schedule, disabled, nil
}

// SetEnabled toggles a schedule. Re-enabling clears the failure
// counter and the auto-disable reason.
func (s *ScheduleStore) SetEnabled(ctx context.Context, merchantID, id uuid.UUID, enabled bool) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	schedule.Enabled = enabled
	if enabled {
		schedule.FailureCount = 0
		schedule.DisabledReason = ""
	}
	if err := s.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *ScheduleStore) checkClient(ctx context.Context, merchantID, clientID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ? AND merchant_id = ?", clientID, merchantID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Field: "client_id", Reason: "client does not exist"}
	}
	return nil
}

func (s *ScheduleStore) checkTemplate(ctx context.Context, merchantID, templateID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Template{}).
		Where("id = ? AND merchant_id = ?", templateID, merchantID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Field: "template_id", Reason: "template does not exist"}
	}
	return nil
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := recurrence.DateOnly(*t)
	return &d
}
