package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		auditService:       auditService,
	}
}

// CreateTransactionRequest represents the transaction creation payload.
// Amount is in minor currency units (cents). Setting is_recurring marks the
// transaction as a template: recurring_day becomes required and the template
// is materialized once per matching calendar day.
type CreateTransactionRequest struct {
	CategoryID   uint      `json:"category_id" binding:"required"`
	BudgetID     *uint     `json:"budget_id"`
	Type         string    `json:"type" binding:"required,transaction_type"`
	Amount       int64     `json:"amount" binding:"required,gt=0"`
	Description  string    `json:"description" binding:"max=500"`
	Date         time.Time `json:"date" binding:"required"`
	IsRecurring  bool      `json:"is_recurring"`
	RecurringDay *int      `json:"recurring_day" binding:"omitempty,min=1,max=31"`
}

// UpdateTransactionRequest represents the transaction update payload. Omitted
// fields are left unchanged; clear_budget detaches the transaction from its
// budget.
type UpdateTransactionRequest struct {
	Description *string    `json:"description" binding:"omitempty,max=500"`
	Amount      *int64     `json:"amount" binding:"omitempty,gt=0"`
	CategoryID  *uint      `json:"category_id"`
	BudgetID    *uint      `json:"budget_id"`
	ClearBudget bool       `json:"clear_budget"`
	Date        *time.Time `json:"date"`
}

// Create handles transaction creation
// @Summary     Create a transaction
// @Description Create a transaction or a recurring template
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction data"
// @Success     201 {object} models.Transaction
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category or budget not found"
// @Router      /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(
		userID,
		req.CategoryID,
		req.BudgetID,
		models.TransactionType(req.Type),
		req.Amount,
		req.Description,
		req.Date,
		req.IsRecurring,
		req.RecurringDay,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "transaction", transaction.ID, c.ClientIP(), map[string]interface{}{
		"type":         transaction.Type,
		"amount":       transaction.Amount,
		"is_recurring": transaction.IsRecurring,
	})

	c.JSON(http.StatusCreated, transaction)
}

// List handles listing the user's transactions
// @Summary     List transactions
// @Description List the user's transactions with optional filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       from query string false "Start date (RFC 3339)"
// @Param       to query string false "End date (RFC 3339)"
// @Param       type query string false "Filter by type (income/expense)"
// @Param       category_id query int false "Filter by category"
// @Param       budget_id query int false "Filter by budget"
// @Param       is_recurring query bool false "Filter templates vs concrete transactions"
// @Success     200 {object} pagination.PageResponse[models.Transaction]
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles fetching a single transaction
// @Summary     Get a transaction
// @Description Get one of the user's transactions by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} models.Transaction
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// Update handles transaction updates
// @Summary     Update a transaction
// @Description Update one of the user's transactions
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, services.TransactionUpdate{
		Description: req.Description,
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		BudgetID:    req.BudgetID,
		ClearBudget: req.ClearBudget,
		Date:        req.Date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "transaction", transaction.ID, c.ClientIP(), map[string]interface{}{
		"amount": transaction.Amount,
	})

	c.JSON(http.StatusOK, transaction)
}

// Delete handles transaction deletion
// @Summary     Delete a transaction
// @Description Delete one of the user's transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} MessageResponse
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted"})
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid from date")
		}
		filter.FromDate = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid to date")
		}
		filter.ToDate = &t
	}
	if transactionType := c.Query("type"); transactionType != "" {
		if transactionType != string(models.TransactionTypeIncome) && transactionType != string(models.TransactionTypeExpense) {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid transaction type")
		}
		tt := models.TransactionType(transactionType)
		filter.Type = &tt
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category_id")
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}
	if raw := c.Query("budget_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid budget_id")
		}
		budgetID := uint(id)
		filter.BudgetID = &budgetID
	}
	if raw := c.Query("is_recurring"); raw != "" {
		isRecurring, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid is_recurring")
		}
		filter.IsRecurring = &isRecurring
	}

	return filter, nil
}
