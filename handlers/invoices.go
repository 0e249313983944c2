package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/middleware"
	"github.com/wbsdickson/bpsp-portal-sub002/models"
	"github.com/wbsdickson/bpsp-portal-sub002/scheduler"
)

type InvoiceHandler struct {
	db     *gorm.DB
	driver *scheduler.Driver
	log    *logrus.Entry
}

func NewInvoiceHandler(db *gorm.DB, driver *scheduler.Driver, log *logrus.Entry) *InvoiceHandler {
	return &InvoiceHandler{db: db, driver: driver, log: log}
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var invoice models.Invoice
	err := h.db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Where("merchant_id = ?", merchantID).
		First(&invoice, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	q := h.db.Where("merchant_id = ?", merchantID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	if scheduleID := c.Query("schedule_id"); scheduleID != "" {
		q = q.Where("schedule_id = ?", scheduleID)
	}

	var invoices []models.Invoice
	if err := q.Order("issued_at DESC").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// MarkPaid transitions an issued invoice to paid.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	h.transition(c, models.InvoiceStatusIssued, models.InvoiceStatusPaid)
}

// Void cancels an invoice that has not been paid.
func (h *InvoiceHandler) Void(c *gin.Context) {
	h.transition(c, models.InvoiceStatusIssued, models.InvoiceStatusVoid)
}

func (h *InvoiceHandler) transition(c *gin.Context, from, to string) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var invoice models.Invoice
	if err := h.db.Where("merchant_id = ?", merchantID).First(&invoice, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	if invoice.Status != from {
		c.JSON(http.StatusConflict, gin.H{"error": "Invoice is " + invoice.Status + ", expected " + from})
		return
	}

	invoice.Status = to
	if err := h.db.Save(&invoice).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoice"})
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// RunScheduler triggers an issuance tick outside the cron cadence.
// Operator console only.
func (h *InvoiceHandler) RunScheduler(c *gin.Context) {
	if err := h.driver.RunTick(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("manual issuance tick failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tick failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issuance tick completed"})
}
