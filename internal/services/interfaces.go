package services

import (
	"time"

	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
// Listing operations return the categories visible to the user: their own
// plus the system defaults.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetVisibleCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetVisibleCategoriesByType(userID uint, categoryType models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID uint) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	Type        *models.TransactionType
	CategoryID  *uint
	BudgetID    *uint
	IsRecurring *bool
}

// TransactionUpdate holds the mutable fields of a transaction. Nil pointers
// leave the field unchanged; ClearBudget detaches the transaction from its
// budget explicitly.
type TransactionUpdate struct {
	Description *string
	Amount      *int64
	CategoryID  *uint
	BudgetID    *uint
	ClearBudget bool
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, categoryID uint, budgetID *uint, transactionType models.TransactionType, amount int64, description string, date time.Time, isRecurring bool, recurringDay *int) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}

// BudgetLedgerServicer keeps each budget's spent total consistent with the
// expense transactions referencing it. Apply* adjustments are fire-and-forget
// relative to the transaction write that triggered them: a failed adjustment
// is logged as drift and repaired by Recompute, never retried and never
// surfaced to the caller.
type BudgetLedgerServicer interface {
	ApplyCreate(tx *models.Transaction)
	ApplyUpdate(oldTx, newTx *models.Transaction)
	ApplyDelete(tx *models.Transaction)
	Recompute(budgetID uint) (int64, error)
	Detach(db *gorm.DB, budgetID uint) error
}

// BudgetProgress contains spending vs limit data for a budget's month.
type BudgetProgress struct {
	BudgetID     uint    `json:"budget_id"`
	MonthlyLimit int64   `json:"monthly_limit"`
	Spent        int64   `json:"spent"`
	Remaining    int64   `json:"remaining"`
	Percentage   float64 `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, categoryID uint, name string, month, year int, monthlyLimit int64) (*models.Budget, error)
	GetUserBudgets(userID uint, page pagination.PageRequest, isActive *bool, month, year *int) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID uint) (*models.Budget, error)
	UpdateBudget(userID, budgetID uint, name string, monthlyLimit *int64, isActive *bool) (*models.Budget, error)
	DeleteBudget(userID, budgetID uint) error
	Recompute(userID, budgetID uint) (*models.Budget, error)
	GetBudgetProgress(userID, budgetID uint) (*BudgetProgress, error)
}

// RecurringRunDetail records the outcome for one due template in a run.
type RecurringRunDetail struct {
	TemplateID    uint   `json:"template_id"`
	TransactionID *uint  `json:"transaction_id,omitempty"`
	Skipped       bool   `json:"skipped,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RecurringRunResult aggregates the outcomes of one engine run.
type RecurringRunResult struct {
	RunDate   string               `json:"run_date"`
	Processed int                  `json:"processed"`
	Skipped   int                  `json:"skipped"`
	Errored   int                  `json:"errored"`
	Details   []RecurringRunDetail `json:"details"`
}

// RecurringServicer materializes concrete transactions from recurring
// templates due on the current calendar day, exactly once per template per
// day.
type RecurringServicer interface {
	ProcessDueTemplates(now time.Time) (*RecurringRunResult, error)
}

// GoalUpdate holds the mutable fields of a goal. Status accepts the
// user-driven states only (active/paused); completed is derived.
type GoalUpdate struct {
	Title        *string
	Description  *string
	TargetAmount *int64
	EndDate      *time.Time
	CategoryID   *uint
	Status       *models.GoalStatus
}

// GoalView is a goal together with its derived progress and the requesting
// user's effective permissions.
type GoalView struct {
	Goal        *models.Goal         `json:"goal"`
	Progress    models.GoalProgress  `json:"progress"`
	Permissions models.PermissionSet `json:"permissions"`
}

// GoalServicer defines the contract for goal-related business logic.
// Every mutating operation authorizes through the goal share servicer first.
type GoalServicer interface {
	CreateGoal(userID uint, title, description string, targetAmount int64, startDate, endDate time.Time, categoryID *uint) (*models.Goal, error)
	GetUserGoals(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetSharedGoals(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(goalID, userID uint) (*GoalView, error)
	UpdateGoal(goalID, userID uint, update GoalUpdate) (*models.Goal, error)
	DeleteGoal(goalID, userID uint) error
	AddAmount(goalID, userID uint, amount int64) (*models.Goal, error)
}

// ShareDecision is a response to a pending goal share invitation.
type ShareDecision string

const (
	ShareDecisionAccept ShareDecision = "accept"
	ShareDecisionReject ShareDecision = "reject"
)

// GoalShareServicer manages the goal invitation lifecycle and derives the
// effective permission set gating goal mutations.
type GoalShareServicer interface {
	Invite(goalID, inviterUserID uint, inviteeEmail string, role models.ShareRole) (*models.GoalShare, error)
	Respond(shareID, respondingUserID uint, decision ShareDecision) (*models.GoalShare, error)
	UpdateRole(shareID, actingUserID uint, newRole models.ShareRole) (*models.GoalShare, error)
	Remove(shareID, actingUserID uint) error
	Authorize(goalID, userID uint) (models.PermissionSet, error)
	ListGoalShares(goalID, actingUserID uint) ([]models.GoalShare, error)
	ListPendingInvites(userID uint) ([]models.GoalShare, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
