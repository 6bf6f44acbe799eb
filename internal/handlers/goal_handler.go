package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// GoalHandler handles savings goal requests
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{
		goalService:  goalService,
		auditService: auditService,
	}
}

// CreateGoalRequest represents the goal creation payload. TargetAmount is in
// minor currency units (cents).
type CreateGoalRequest struct {
	Title        string    `json:"title" binding:"required,min=1,max=200"`
	Description  string    `json:"description" binding:"max=1000"`
	TargetAmount int64     `json:"target_amount" binding:"required,gt=0"`
	StartDate    time.Time `json:"start_date" binding:"required"`
	EndDate      time.Time `json:"end_date" binding:"required"`
	CategoryID   *uint     `json:"category_id"`
}

// UpdateGoalRequest represents the goal update payload. Status accepts only
// the user-driven states (active/paused); completion is derived from the
// accumulated amount.
type UpdateGoalRequest struct {
	Title        *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description  *string    `json:"description" binding:"omitempty,max=1000"`
	TargetAmount *int64     `json:"target_amount" binding:"omitempty,gt=0"`
	EndDate      *time.Time `json:"end_date"`
	CategoryID   *uint      `json:"category_id"`
	Status       *string    `json:"status" binding:"omitempty,goal_status"`
}

// AddAmountRequest represents a contribution to a goal
type AddAmountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Create handles goal creation
// @Summary     Create a goal
// @Description Create a savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal data"
// @Success     201 {object} models.Goal
// @Failure     400 {object} ErrorResponse "Invalid input or date range"
// @Router      /goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.CreateGoal(userID, req.Title, req.Description, req.TargetAmount, req.StartDate, req.EndDate, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "goal", goal.ID, c.ClientIP(), map[string]interface{}{
		"title":         goal.Title,
		"target_amount": goal.TargetAmount,
	})

	c.JSON(http.StatusCreated, goal)
}

// List handles listing the user's own goals
// @Summary     List goals
// @Description List the goals owned by the user
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Goal]
// @Router      /goals [get]
func (h *GoalHandler) List(c *gin.Context) {
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

	resp, err := h.goalService.GetUserGoals(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListShared handles listing goals shared with the user
// @Summary     List shared goals
// @Description List goals other users have shared with the authenticated user
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Goal]
// @Router      /goals/shared [get]
func (h *GoalHandler) ListShared(c *gin.Context) {
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

	resp, err := h.goalService.GetSharedGoals(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles fetching a goal with its projection and the caller's permissions
// @Summary     Get a goal
// @Description Get a goal with derived progress and the caller's effective permissions
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Goal ID"
// @Success     200 {object} services.GoalView
// @Failure     403 {object} ErrorResponse "No access"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.goalService.GetGoalByID(goalID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Update handles goal updates
// @Summary     Update a goal
// @Description Update a goal; requires edit permission
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Goal ID"
// @Param       request body UpdateGoalRequest true "Fields to update"
// @Success     200 {object} models.Goal
// @Failure     403 {object} ErrorResponse "No edit permission"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.GoalUpdate{
		Title:        req.Title,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		EndDate:      req.EndDate,
		CategoryID:   req.CategoryID,
	}
	if req.Status != nil {
		status := models.GoalStatus(*req.Status)
		update.Status = &status
	}

	goal, err := h.goalService.UpdateGoal(goalID, userID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "goal", goal.ID, c.ClientIP(), map[string]interface{}{
		"status": goal.Status,
	})

	c.JSON(http.StatusOK, goal)
}

// Delete handles goal deletion
// @Summary     Delete a goal
// @Description Delete a goal and its shares; owner only
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Goal ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(goalID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Goal deleted"})
}

// AddAmount handles contributing to a goal
// @Summary     Add to a goal
// @Description Add an amount to a goal's progress; requires contribute permission
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Goal ID"
// @Param       request body AddAmountRequest true "Contribution"
// @Success     200 {object} models.Goal
// @Failure     403 {object} ErrorResponse "No contribute permission"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /goals/{id}/amount [post]
func (h *GoalHandler) AddAmount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.AddAmount(goalID, userID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "add_amount", "goal", goal.ID, c.ClientIP(), map[string]interface{}{
		"amount":         req.Amount,
		"current_amount": goal.CurrentAmount,
		"status":         goal.Status,
	})

	c.JSON(http.StatusOK, goal)
}
