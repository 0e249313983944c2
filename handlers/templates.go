package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/middleware"
	"github.com/wbsdickson/bpsp-portal-sub002/models"
)

type TemplateHandler struct {
	db *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{db: db}
}

type TemplateLineRequest struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,gte=1"`
}

type TemplateRequest struct {
	Name     string                `json:"name" binding:"required"`
	Currency string                `json:"currency"`
	Lines    []TemplateLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (h *TemplateHandler) Create(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Currency == "" {
		req.Currency = "JPY"
	}

	for _, line := range req.Lines {
		var count int64
		h.db.Model(&models.Item{}).Where("id = ? AND merchant_id = ?", line.ItemID, merchantID).Count(&count)
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "item " + line.ItemID.String() + " does not exist"})
			return
		}
	}

	template := models.Template{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Name:       req.Name,
		Currency:   req.Currency,
	}
	for i, line := range req.Lines {
		template.Lines = append(template.Lines, models.TemplateLine{
			ID:         uuid.New(),
			TemplateID: template.ID,
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			SortOrder:  i,
		})
	}

	if err := h.db.Create(&template).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, template)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var template models.Template
	err := h.db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Where("merchant_id = ?", merchantID).
		First(&template, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	c.JSON(http.StatusOK, template)
}

func (h *TemplateHandler) List(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var templates []models.Template
	err := h.db.Preload("Lines").Where("merchant_id = ?", merchantID).Order("name").Find(&templates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates"})
		return
	}

	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res := h.db.Where("merchant_id = ?", merchantID).Delete(&models.Template{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
