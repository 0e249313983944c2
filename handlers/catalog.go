package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/middleware"
	"github.com/wbsdickson/bpsp-portal-sub002/models"
)

// CatalogHandler manages the item and tax rate catalogs the
// materializer resolves line prices from.
type CatalogHandler struct {
	db *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

type ItemRequest struct {
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
	TaxRateID uuid.UUID       `json:"tax_rate_id" binding:"required"`
	Unit      string          `json:"unit"`
}

type TaxRateRequest struct {
	Name string          `json:"name" binding:"required"`
	Rate decimal.Decimal `json:"rate" binding:"required"`
}

func (h *CatalogHandler) CreateItem(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UnitPrice.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit_price must not be negative"})
		return
	}

	var count int64
	h.db.Model(&models.TaxRate{}).Where("id = ? AND merchant_id = ?", req.TaxRateID, merchantID).Count(&count)
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tax_rate_id does not exist"})
		return
	}

	item := models.Item{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Name:       req.Name,
		UnitPrice:  req.UnitPrice,
		TaxRateID:  req.TaxRateID,
		Unit:       req.Unit,
	}
	if err := h.db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create item"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var item models.Item
	if err := h.db.Where("merchant_id = ?", merchantID).First(&item, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UnitPrice.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit_price must not be negative"})
		return
	}

	item.Name = req.Name
	item.UnitPrice = req.UnitPrice
	item.TaxRateID = req.TaxRateID
	item.Unit = req.Unit

	if err := h.db.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *CatalogHandler) ListItems(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var items []models.Item
	if err := h.db.Where("merchant_id = ?", merchantID).Order("name").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res := h.db.Where("merchant_id = ?", merchantID).Delete(&models.Item{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) CreateTaxRate(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req TaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rate.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate must not be negative"})
		return
	}

	rate := models.TaxRate{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Name:       req.Name,
		Rate:       req.Rate,
	}
	if err := h.db.Create(&rate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tax rate"})
		return
	}

	c.JSON(http.StatusCreated, rate)
}

func (h *CatalogHandler) ListTaxRates(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var rates []models.TaxRate
	if err := h.db.Where("merchant_id = ?", merchantID).Order("rate").Find(&rates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tax rates"})
		return
	}

	c.JSON(http.StatusOK, rates)
}
