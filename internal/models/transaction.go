package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// RecurringSuffix is appended to the description of transactions materialized
// from a recurring template.
const RecurringSuffix = " (Recurring)"

// Transaction represents a single money movement. A transaction with
// IsRecurring set is a template: it is never counted as spending itself, and
// the recurring engine materializes a concrete copy of it once per calendar
// day matching RecurringDay.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	CategoryID  uint            `gorm:"not null" json:"category_id"`
	BudgetID    *uint           `gorm:"index" json:"budget_id,omitempty"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`

	IsRecurring  bool `gorm:"default:false;index" json:"is_recurring"`
	RecurringDay *int `json:"recurring_day,omitempty"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Budget   *Budget  `gorm:"foreignKey:BudgetID" json:"budget,omitempty"`
}

// CountsAgainstBudget reports whether the transaction contributes to a
// budget's spent total. Templates and income movements never do.
func (t *Transaction) CountsAgainstBudget() bool {
	return t.Type == TransactionTypeExpense && t.BudgetID != nil && !t.IsRecurring
}
