package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic. Each write
// that touches a budget-linked expense feeds the budget ledger after the
// transaction write has succeeded; a failed ledger adjustment never fails
// the write that triggered it.
type transactionService struct {
	db     *gorm.DB
	ledger BudgetLedgerServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, ledger BudgetLedgerServicer) TransactionServicer {
	return &transactionService{db: db, ledger: ledger}
}

// CreateTransaction creates a new transaction for a user. A transaction with
// isRecurring set is a template and requires a recurring day in [1,31];
// non-recurring transactions must not carry one.
func (s *transactionService) CreateTransaction(
	userID, categoryID uint,
	budgetID *uint,
	transactionType models.TransactionType,
	amount int64,
	description string,
	date time.Time,
	isRecurring bool,
	recurringDay *int,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if transactionType != models.TransactionTypeIncome && transactionType != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if err := validateRecurring(isRecurring, recurringDay); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now()
	}

	if err := s.checkCategory(userID, categoryID); err != nil {
		return nil, err
	}
	if budgetID != nil {
		if err := s.checkBudget(userID, *budgetID); err != nil {
			return nil, err
		}
	}

	transaction := &models.Transaction{
		UserID:       userID,
		CategoryID:   categoryID,
		BudgetID:     budgetID,
		Type:         transactionType,
		Amount:       amount,
		Description:  description,
		Date:         date,
		IsRecurring:  isRecurring,
		RecurringDay: recurringDay,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.ledger.ApplyCreate(transaction)

	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.BudgetID != nil {
		q = q.Where("budget_id = ?", *f.BudgetID)
	}
	if f.IsRecurring != nil {
		q = q.Where("is_recurring = ?", *f.IsRecurring)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction edits a transaction and reconciles both the old and the
// new budget references through the ledger.
func (s *transactionService) UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	old := *transaction

	updates := make(map[string]interface{})
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Amount != nil {
		if *update.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
		transaction.Amount = *update.Amount
	}
	if update.CategoryID != nil {
		if err := s.checkCategory(userID, *update.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *update.CategoryID
		transaction.CategoryID = *update.CategoryID
	}
	if update.ClearBudget {
		updates["budget_id"] = nil
		transaction.BudgetID = nil
	} else if update.BudgetID != nil {
		if err := s.checkBudget(userID, *update.BudgetID); err != nil {
			return nil, err
		}
		updates["budget_id"] = *update.BudgetID
		transaction.BudgetID = update.BudgetID
	}
	if update.Date != nil {
		updates["date"] = *update.Date
		transaction.Date = *update.Date
	}

	if len(updates) == 0 {
		return transaction, nil
	}

	if err := s.db.Model(&models.Transaction{}).
		Where("id = ?", transaction.ID).
		Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.ledger.ApplyUpdate(&old, transaction)

	return transaction, nil
}

// DeleteTransaction deletes a transaction and reverses its budget effect.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.ledger.ApplyDelete(transaction)

	return nil
}

// validateRecurring enforces the template invariant: a recurring day in
// [1,31] iff the transaction is recurring.
func validateRecurring(isRecurring bool, recurringDay *int) error {
	if isRecurring {
		if recurringDay == nil || *recurringDay < 1 || *recurringDay > 31 {
			return apperrors.ErrInvalidRecurringDay
		}
		return nil
	}
	if recurringDay != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring day is only valid for recurring transactions")
	}
	return nil
}

// checkCategory verifies the category exists and is visible to the user.
func (s *transactionService) checkCategory(userID, categoryID uint) error {
	var category models.Category
	if err := s.db.Scopes(models.CategoriesVisibleTo(userID)).
		Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// checkBudget verifies the budget exists and belongs to the user.
func (s *transactionService) checkBudget(userID, budgetID uint) error {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBudgetNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
