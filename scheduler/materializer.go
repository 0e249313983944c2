package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/models"
)

// MaterializationError means a reference the schedule depends on
// (client, template, item, tax rate) is missing or deleted at fire
// time. The driver counts these toward auto-disable.
type MaterializationError struct {
	ScheduleID uuid.UUID
	Ref        string
	Err        error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("schedule %s: cannot materialize, %s: %v", e.ScheduleID, e.Ref, e.Err)
}

func (e *MaterializationError) Unwrap() error {
	return e.Err
}

// Materializer builds invoices from schedule templates. Unit prices
// and tax rates are resolved from the catalogs at fire time, never
// cached on the schedule, so price and tax changes apply to the next
// issuance automatically.
type Materializer struct {
	NewID func() uuid.UUID
	Now   func() time.Time
}

func NewMaterializer() *Materializer {
	return &Materializer{
		NewID: uuid.New,
		Now:   time.Now,
	}
}

// Materialize builds an unsaved invoice for one firing of the
// schedule. Reads go through db so the driver can hand in its
// per-schedule transaction; persisting the result is the caller's job.
func (m *Materializer) Materialize(db *gorm.DB, schedule *models.Schedule) (*models.Invoice, error) {
	var client models.Client
	err := db.Where("id = ? AND merchant_id = ?", schedule.ClientID, schedule.MerchantID).First(&client).Error
	if err != nil {
		return nil, m.refErr(schedule, fmt.Sprintf("client %s", schedule.ClientID), err)
	}

	var template models.Template
	err = db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Where("id = ? AND merchant_id = ?", schedule.TemplateID, schedule.MerchantID).
		First(&template).Error
	if err != nil {
		return nil, m.refErr(schedule, fmt.Sprintf("template %s", schedule.TemplateID), err)
	}
	if len(template.Lines) == 0 {
		return nil, &MaterializationError{
			ScheduleID: schedule.ID,
			Ref:        fmt.Sprintf("template %s", template.ID),
			Err:        errors.New("template has no lines"),
		}
	}

	issuedAt := m.Now()
	invoiceID := m.NewID()
	invoice := models.Invoice{
		ID:         invoiceID,
		MerchantID: schedule.MerchantID,
		ClientID:   client.ID,
		ScheduleID: &schedule.ID,
		InvoiceNo:  invoiceNo(invoiceID, issuedAt),
		Currency:   template.Currency,
		Subtotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
		Status:     models.InvoiceStatusIssued,
		IssuedAt:   issuedAt,
	}

	for i, tl := range template.Lines {
		var item models.Item
		err = db.Where("id = ? AND merchant_id = ?", tl.ItemID, schedule.MerchantID).First(&item).Error
		if err != nil {
			return nil, m.refErr(schedule, fmt.Sprintf("item %s", tl.ItemID), err)
		}

		var rate models.TaxRate
		err = db.Where("id = ? AND merchant_id = ?", item.TaxRateID, schedule.MerchantID).First(&rate).Error
		if err != nil {
			return nil, m.refErr(schedule, fmt.Sprintf("tax rate %s", item.TaxRateID), err)
		}

		amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(tl.Quantity)))
		// Tax is rounded half up per line before summation.
		tax := amount.Mul(rate.Rate).Round(2)

		invoice.Lines = append(invoice.Lines, models.InvoiceLine{
			ID:          m.NewID(),
			InvoiceID:   invoiceID,
			ItemID:      item.ID,
			Description: item.Name,
			Quantity:    tl.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     rate.Rate,
			Amount:      amount,
			TaxAmount:   tax,
			SortOrder:   i,
		})
		invoice.Subtotal = invoice.Subtotal.Add(amount)
		invoice.TaxTotal = invoice.TaxTotal.Add(tax)
	}
	invoice.Total = invoice.Subtotal.Add(invoice.TaxTotal)

	return &invoice, nil
}

// refErr classifies a lookup failure. Only a missing row becomes a
// MaterializationError; anything else (timeout, connection loss) is
// transient and passes through so the driver retries it next tick.
func (m *Materializer) refErr(schedule *models.Schedule, ref string, err error) error {
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("schedule %s: load %s: %w", schedule.ID, ref, err)
	}
	return &MaterializationError{
		ScheduleID: schedule.ID,
		Ref:        ref,
		Err:        errors.New("not found or deleted"),
	}
}

func invoiceNo(id uuid.UUID, issuedAt time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", issuedAt.Format("20060102"), short)
}
