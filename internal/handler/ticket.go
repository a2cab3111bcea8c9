package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/complaint-service/internal/middleware"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/service"
	"github.com/psds-microservice/complaint-service/internal/store"
)

type TicketHandler struct {
	lifecycle *service.Lifecycle
}

func NewTicketHandler(lifecycle *service.Lifecycle) *TicketHandler {
	return &TicketHandler{lifecycle: lifecycle}
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type createTicketRequest struct {
	Problem         string   `json:"problem" binding:"required"`
	Priority        string   `json:"priority"`
	CustomerID      uint64   `json:"customer_id" binding:"required"`
	MachineID       uint64   `json:"machine_id" binding:"required"`
	IssueCategories []string `json:"issue_categories"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	t, err := h.lifecycle.Create(c.Request.Context(), service.CreateTicketInput{
		Problem:         req.Problem,
		Priority:        model.TicketPriority(req.Priority),
		CustomerID:      req.CustomerID,
		MachineID:       req.MachineID,
		IssueCategories: req.IssueCategories,
	}, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.lifecycle.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) List(c *gin.Context) {
	filter := make(store.TicketFilter)
	if v := c.Query("status"); v != "" {
		filter["status = ?"] = v
	}
	if v := c.Query("priority"); v != "" {
		filter["priority = ?"] = v
	}
	if v := c.Query("customer_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			filter["customer_id = ?"] = id
		}
	}
	if v := c.Query("engineer_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			filter["assigned_engineer_id = ?"] = id
		}
	}
	limit, offset := 0, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	items, total, err := h.lifecycle.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tickets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets": items,
		"total":   total,
	})
}

type assignRequest struct {
	EngineerID uint64 `json:"engineer_id" binding:"required"`
}

func (h *TicketHandler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	t, err := h.lifecycle.Assign(c.Request.Context(), id, req.EngineerID, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Unassign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.lifecycle.Unassign(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type statusRequest struct {
	Status      string `json:"status" binding:"required"`
	Description string `json:"description"`
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	t, err := h.lifecycle.TransitionStatus(c.Request.Context(), id, model.TicketStatus(req.Status), req.Description, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type completeRequest struct {
	WorkPerformed string               `json:"work_performed"`
	SolutionNotes string               `json:"solution_notes"`
	SparesUsed    model.SpareUsageList `json:"spares_used"`
}

func (h *TicketHandler) Complete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	t, err := h.lifecycle.Complete(c.Request.Context(), id, req.WorkPerformed, req.SolutionNotes, req.SparesUsed, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type closeRequest struct {
	SolutionNotes string `json:"solution_notes"`
}

func (h *TicketHandler) Close(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	t, err := h.lifecycle.Close(c.Request.Context(), id, req.SolutionNotes, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) AutoAssign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.lifecycle.AutoAssign(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TicketHandler) SuggestedEngineers(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	suggestions, err := h.lifecycle.Suggest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *TicketHandler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	items, err := h.lifecycle.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": items})
}
