package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"moneta/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a user-owned category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: &userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateSystemCategory creates a system default category visible to all users.
func CreateSystemCategory(t *testing.T, db *gorm.DB, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name: fmt.Sprintf("Default Category %d", nextID()),
		Type: categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create system category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount (in cents).
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID uint, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Type:       txType,
		Amount:     amount,
		Date:       time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestExpenseForBudget creates an expense transaction linked to a budget,
// dated inside the budget's month. It writes the row directly; the budget's
// spent total is not adjusted.
func CreateTestExpenseForBudget(t *testing.T, db *gorm.DB, userID, categoryID uint, budget *models.Budget, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		BudgetID:   &budget.ID,
		Type:       models.TransactionTypeExpense,
		Amount:     amount,
		Date:       time.Date(budget.Year, time.Month(budget.Month), 10, 12, 0, 0, 0, time.UTC),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return tx
}

// CreateTestTemplate creates a recurring template transaction due on the given day.
func CreateTestTemplate(t *testing.T, db *gorm.DB, userID, categoryID uint, budgetID *uint, amount int64, day int) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:       userID,
		CategoryID:   categoryID,
		BudgetID:     budgetID,
		Type:         models.TransactionTypeExpense,
		Amount:       amount,
		Description:  fmt.Sprintf("Template %d", nextID()),
		Date:         time.Now(),
		IsRecurring:  true,
		RecurringDay: &day,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	return tx
}

// CreateTestBudget creates a budget for the given category and month (in cents).
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID uint, month, year int, limit int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:       userID,
		CategoryID:   categoryID,
		Name:         fmt.Sprintf("Test Budget %d", nextID()),
		Month:        month,
		Year:         year,
		MonthlyLimit: limit,
		IsActive:     true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates an active goal with the given target (in cents).
func CreateTestGoal(t *testing.T, db *gorm.DB, userID uint, target int64) *models.Goal {
	t.Helper()

	now := time.Now()
	goal := &models.Goal{
		UserID:       userID,
		Title:        fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount: target,
		StartDate:    now,
		EndDate:      now.AddDate(1, 0, 0),
		Status:       models.GoalStatusActive,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// CreateTestShare creates a goal share in the given role and status.
func CreateTestShare(t *testing.T, db *gorm.DB, goal *models.Goal, sharedWithID uint, role models.ShareRole, status models.ShareStatus) *models.GoalShare {
	t.Helper()

	share := &models.GoalShare{
		GoalID:       goal.ID,
		OwnerID:      goal.UserID,
		SharedWithID: sharedWithID,
		InvitedByID:  goal.UserID,
		Role:         role,
		Status:       status,
	}
	if status == models.ShareStatusAccepted {
		now := time.Now()
		share.AcceptedAt = &now
	}
	if err := db.Create(share).Error; err != nil {
		t.Fatalf("failed to create test share: %v", err)
	}
	return share
}
