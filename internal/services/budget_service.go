package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// budgetService handles budget-related business logic. Spent maintenance
// lives in the budget ledger; this service covers the CRUD surface around it.
type budgetService struct {
	db     *gorm.DB
	ledger BudgetLedgerServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, ledger BudgetLedgerServicer) BudgetServicer {
	return &budgetService{db: db, ledger: ledger}
}

// CreateBudget creates a new monthly budget for an expense category. At most
// one budget may exist per (user, category, month, year).
func (s *budgetService) CreateBudget(
	userID, categoryID uint,
	name string,
	month, year int,
	monthlyLimit int64,
) (*models.Budget, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	if year < 1970 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid year")
	}
	if monthlyLimit <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly limit must be greater than zero")
	}

	var category models.Category
	if err := s.db.Scopes(models.CategoriesVisibleTo(userID)).
		Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budgets require an expense category")
	}

	var count int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND month = ? AND year = ?", userID, categoryID, month, year).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateBudget
	}

	budget := &models.Budget{
		UserID:       userID,
		CategoryID:   categoryID,
		Name:         name,
		Month:        month,
		Year:         year,
		MonthlyLimit: monthlyLimit,
		IsActive:     true,
	}
	if err := s.db.Create(budget).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(
	userID uint,
	page pagination.PageRequest,
	isActive *bool,
	month, year *int,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if month != nil {
		base = base.Where("month = ?", *month)
	}
	if year != nil {
		base = base.Where("year = ?", *year)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).
		Order("year DESC, month DESC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields. The period and category
// are fixed at creation.
func (s *budgetService) UpdateBudget(
	userID, budgetID uint,
	name string,
	monthlyLimit *int64,
	isActive *bool,
) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if monthlyLimit != nil {
		if *monthlyLimit <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly limit must be greater than zero")
		}
		updates["monthly_limit"] = *monthlyLimit
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return budget, nil
}

// DeleteBudget soft-deletes a budget and detaches all referencing
// transactions instead of cascading into them.
func (s *budgetService) DeleteBudget(userID, budgetID uint) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.Detach(tx, budget.ID); err != nil {
			return err
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Recompute repairs the budget's spent total from the transaction set and
// returns the refreshed budget.
func (s *budgetService) Recompute(userID, budgetID uint) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	total, err := s.ledger.Recompute(budget.ID)
	if err != nil {
		return nil, err
	}

	budget.Spent = total
	return budget, nil
}

// GetBudgetProgress reports spending against the monthly limit.
func (s *budgetService) GetBudgetProgress(userID, budgetID uint) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	remaining := budget.MonthlyLimit - budget.Spent
	var percentage float64
	if budget.MonthlyLimit > 0 {
		percentage = float64(budget.Spent) / float64(budget.MonthlyLimit) * 100
	}

	return &BudgetProgress{
		BudgetID:     budget.ID,
		MonthlyLimit: budget.MonthlyLimit,
		Spent:        budget.Spent,
		Remaining:    remaining,
		Percentage:   percentage,
	}, nil
}
