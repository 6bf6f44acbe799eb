package models

import "time"

// Budget represents a monthly spending cap for one expense category.
// Spent is a denormalized running total maintained by the budget ledger; the
// source of truth is the set of expense transactions referencing the budget,
// and Recompute restores Spent from it.
type Budget struct {
	Base
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	CategoryID   uint   `gorm:"not null" json:"category_id"`
	Name         string `gorm:"not null" json:"name"`
	Month        int    `gorm:"not null" json:"month"`
	Year         int    `gorm:"not null" json:"year"`
	MonthlyLimit int64  `gorm:"type:bigint;not null" json:"monthly_limit"`
	Spent        int64  `gorm:"type:bigint;not null;default:0" json:"spent"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// Window returns the budget's period as [first of month, last nanosecond of
// month] in the given location.
func (b *Budget) Window(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(b.Year, time.Month(b.Month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
