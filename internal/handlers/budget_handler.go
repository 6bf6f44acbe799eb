package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// BudgetHandler handles budget-related requests
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{
		budgetService: budgetService,
		auditService:  auditService,
	}
}

// CreateBudgetRequest represents the budget creation payload. MonthlyLimit is
// in minor currency units (cents).
type CreateBudgetRequest struct {
	CategoryID   uint   `json:"category_id" binding:"required"`
	Name         string `json:"name" binding:"required,min=1,max=100"`
	Month        int    `json:"month" binding:"required,min=1,max=12"`
	Year         int    `json:"year" binding:"required,min=2000,max=2200"`
	MonthlyLimit int64  `json:"monthly_limit" binding:"required,gt=0"`
}

// UpdateBudgetRequest represents the budget update payload
type UpdateBudgetRequest struct {
	Name         string `json:"name" binding:"omitempty,min=1,max=100"`
	MonthlyLimit *int64 `json:"monthly_limit" binding:"omitempty,gt=0"`
	IsActive     *bool  `json:"is_active"`
}

// Create handles budget creation
// @Summary     Create a budget
// @Description Create a monthly budget for an expense category
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget data"
// @Success     201 {object} models.Budget
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Budget already exists for category and month"
// @Router      /budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(userID, req.CategoryID, req.Name, req.Month, req.Year, req.MonthlyLimit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "budget", budget.ID, c.ClientIP(), map[string]interface{}{
		"name":          budget.Name,
		"month":         budget.Month,
		"year":          budget.Year,
		"monthly_limit": budget.MonthlyLimit,
	})

	c.JSON(http.StatusCreated, budget)
}

// List handles listing the user's budgets
// @Summary     List budgets
// @Description List the user's budgets with optional filters
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       is_active query bool false "Filter by active flag"
// @Param       month query int false "Filter by month"
// @Param       year query int false "Filter by year"
// @Success     200 {object} pagination.PageResponse[models.Budget]
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	page.Defaults()

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid is_active"))
			return
		}
		isActive = &v
	}

	var month, year *int
	if raw := c.Query("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month"))
			return
		}
		month = &v
	}
	if raw := c.Query("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year"))
			return
		}
		year = &v
	}

	resp, err := h.budgetService.GetUserBudgets(userID, page, isActive, month, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles fetching a single budget
// @Summary     Get a budget
// @Description Get one of the user's budgets by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     200 {object} models.Budget
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, budget)
}

// Update handles budget updates
// @Summary     Update a budget
// @Description Update one of the user's budgets
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} models.Budget
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(userID, budgetID, req.Name, req.MonthlyLimit, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "budget", budget.ID, c.ClientIP(), map[string]interface{}{
		"monthly_limit": budget.MonthlyLimit,
		"is_active":     budget.IsActive,
	})

	c.JSON(http.StatusOK, budget)
}

// Delete handles budget deletion
// @Summary     Delete a budget
// @Description Delete one of the user's budgets, detaching its transactions
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     200 {object} MessageResponse
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Budget deleted"})
}

// Recompute handles recomputing a budget's spent total from its transactions
// @Summary     Recompute a budget
// @Description Recompute the budget's spent total from the expense transactions referencing it
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     200 {object} models.Budget
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /budgets/{id}/recompute [post]
func (h *BudgetHandler) Recompute(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.Recompute(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "recompute", "budget", budget.ID, c.ClientIP(), map[string]interface{}{
		"spent": budget.Spent,
	})

	c.JSON(http.StatusOK, budget)
}

// Progress handles fetching a budget's spending progress
// @Summary     Get budget progress
// @Description Get spending vs limit for one of the user's budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     200 {object} services.BudgetProgress
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /budgets/{id}/progress [get]
func (h *BudgetHandler) Progress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
