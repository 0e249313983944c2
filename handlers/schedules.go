package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wbsdickson/bpsp-portal-sub002/middleware"
	"github.com/wbsdickson/bpsp-portal-sub002/store"
)

type ScheduleHandler struct {
	store *store.ScheduleStore
}

func NewScheduleHandler(s *store.ScheduleStore) *ScheduleHandler {
	return &ScheduleHandler{store: s}
}

type CreateScheduleRequest struct {
	ClientID      uuid.UUID  `json:"client_id" binding:"required"`
	TemplateID    uuid.UUID  `json:"template_id" binding:"required"`
	IntervalType  string     `json:"interval_type" binding:"required,oneof=daily weekly monthly yearly"`
	IntervalValue int        `json:"interval_value" binding:"required,gte=1"`
	StartDate     time.Time  `json:"start_date" binding:"required" time_format:"2006-01-02"`
	EndDate       *time.Time `json:"end_date"`
}

type UpdateScheduleRequest struct {
	ClientID      *uuid.UUID `json:"client_id"`
	TemplateID    *uuid.UUID `json:"template_id"`
	IntervalType  *string    `json:"interval_type"`
	IntervalValue *int       `json:"interval_value"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	ClearEndDate  bool       `json:"clear_end_date"`
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.store.Create(c.Request.Context(), store.CreateScheduleInput{
		MerchantID:    merchantID,
		ClientID:      req.ClientID,
		TemplateID:    req.TemplateID,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule id"})
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.store.Update(c.Request.Context(), merchantID, id, store.UpdateScheduleInput{
		ClientID:      req.ClientID,
		TemplateID:    req.TemplateID,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		ClearEndDate:  req.ClearEndDate,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func (h *ScheduleHandler) Get(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule id"})
		return
	}

	schedule, err := h.store.Get(c.Request.Context(), merchantID, id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func (h *ScheduleHandler) List(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	filter := store.ListFilter{
		ClientName: c.Query("client_name"),
		Direction:  c.Query("direction"),
	}
	if v := c.Query("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid enabled filter"})
			return
		}
		filter.Enabled = &enabled
	}

	schedules, err := h.store.ListByMerchant(c.Request.Context(), merchantID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule id"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), merchantID, id); err != nil {
		respondStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

func (h *ScheduleHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *ScheduleHandler) setEnabled(c *gin.Context, enabled bool) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule id"})
		return
	}

	schedule, err := h.store.SetEnabled(c.Request.Context(), merchantID, id, enabled)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func respondStoreError(c *gin.Context, err error) {
	var validationErr *store.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
