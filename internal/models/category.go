package models

import "gorm.io/gorm"

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category. A category with a nil UserID is
// a system default visible to every user; user-owned categories are visible to
// their owner only.
type Category struct {
	Base
	UserID      *uint        `gorm:"index" json:"user_id,omitempty"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
	Budgets      []Budget      `gorm:"foreignKey:CategoryID" json:"budgets,omitempty"`
}

// IsSystemDefault reports whether the category belongs to the global default
// taxonomy rather than to a single user.
func (c *Category) IsSystemDefault() bool {
	return c.UserID == nil
}

// OwnedBy reports whether the category is user-owned by the given user.
func (c *Category) OwnedBy(userID uint) bool {
	return c.UserID != nil && *c.UserID == userID
}

// CategoriesVisibleTo returns a GORM scope selecting the categories a user can
// see: their own plus the system defaults.
func CategoriesVisibleTo(userID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? OR user_id IS NULL", userID)
	}
}
