package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		auditService:    auditService,
	}
}

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Type        string `json:"type" binding:"required,category_type"`
	Description string `json:"description" binding:"max=500"`
	Icon        string `json:"icon" binding:"max=50"`
	Color       string `json:"color" binding:"omitempty,hex_color"`
}

// UpdateCategoryRequest represents the category update payload
type UpdateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	Icon        string `json:"icon" binding:"max=50"`
	Color       string `json:"color" binding:"omitempty,hex_color"`
}

// Create handles category creation
// @Summary     Create a category
// @Description Create a user-owned category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category data"
// @Success     201 {object} models.Category
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.CreateCategory(userID, req.Name, models.CategoryType(req.Type), req.Description, req.Icon, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "category", category.ID, c.ClientIP(), map[string]interface{}{
		"name": category.Name,
		"type": category.Type,
	})

	c.JSON(http.StatusCreated, category)
}

// List handles listing the categories visible to the user
// @Summary     List categories
// @Description List the user's categories plus the system defaults
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       type query string false "Filter by type (income/expense)"
// @Success     200 {object} pagination.PageResponse[models.Category]
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
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

	var (
		resp *pagination.PageResponse[models.Category]
	)
	if categoryType := c.Query("type"); categoryType != "" {
		if categoryType != string(models.CategoryTypeIncome) && categoryType != string(models.CategoryTypeExpense) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category type"))
			return
		}
		resp, err = h.categoryService.GetVisibleCategoriesByType(userID, models.CategoryType(categoryType), page)
	} else {
		resp, err = h.categoryService.GetVisibleCategories(userID, page)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles fetching a single category
// @Summary     Get a category
// @Description Get a category visible to the user by ID
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} models.Category
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// Update handles category updates
// @Summary     Update a category
// @Description Update a user-owned category; system defaults are immutable
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Param       request body UpdateCategoryRequest true "Category data"
// @Success     200 {object} models.Category
// @Failure     403 {object} ErrorResponse "Category is a system default"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.UpdateCategory(userID, categoryID, req.Name, req.Description, req.Icon, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "category", category.ID, c.ClientIP(), map[string]interface{}{
		"name": category.Name,
	})

	c.JSON(http.StatusOK, category)
}

// Delete handles category deletion
// @Summary     Delete a category
// @Description Delete a user-owned category that is not referenced by any transaction or budget
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Category is a system default"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     409 {object} ErrorResponse "Category in use"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(userID, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "category", categoryID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}
