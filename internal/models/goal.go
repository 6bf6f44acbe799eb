package models

import (
	"math"
	"time"
)

// GoalStatus represents the lifecycle state of a savings goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
)

// Goal represents a savings target with a time window. Status flips to
// completed the moment CurrentAmount reaches TargetAmount while active, and
// never auto-reverts; paused/active changes are user-driven only.
type Goal struct {
	Base
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Title         string     `gorm:"not null" json:"title"`
	Description   string     `json:"description"`
	TargetAmount  int64      `gorm:"type:bigint;not null" json:"target_amount"`
	CurrentAmount int64      `gorm:"type:bigint;not null;default:0" json:"current_amount"`
	StartDate     time.Time  `gorm:"not null" json:"start_date"`
	EndDate       time.Time  `gorm:"not null" json:"end_date"`
	CategoryID    *uint      `json:"category_id,omitempty"`
	Status        GoalStatus `gorm:"not null;default:active" json:"status"`

	Category *Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Shares   []GoalShare `gorm:"foreignKey:GoalID" json:"shares,omitempty"`
}

// GoalProgress is a pure projection of a goal against the current time.
// It is computed on demand and never persisted.
type GoalProgress struct {
	Percentage             float64 `json:"percentage"`
	DaysTotal              int     `json:"days_total"`
	DaysPassed             int     `json:"days_passed"`
	DaysRemaining          int     `json:"days_remaining"`
	MonthlyTarget          int64   `json:"monthly_target"`
	MonthlyTargetRemaining int64   `json:"monthly_target_remaining"`
}

// ProgressAt computes the goal's derived progress fields as of now.
func (g *Goal) ProgressAt(now time.Time) GoalProgress {
	var pct float64
	if g.TargetAmount > 0 {
		pct = math.Min(float64(g.CurrentAmount)/float64(g.TargetAmount)*100, 100)
	}

	daysTotal := daysBetween(g.StartDate, g.EndDate)
	daysPassed := clampInt(daysBetween(g.StartDate, now), 0, daysTotal)
	daysRemaining := daysTotal - daysPassed

	totalMonths := monthsBetween(g.StartDate, g.EndDate)
	monthlyTarget := g.TargetAmount / int64(totalMonths)

	var monthlyRemaining int64
	if g.Status != GoalStatusCompleted && now.Before(g.EndDate) {
		remaining := g.TargetAmount - g.CurrentAmount
		if remaining > 0 {
			monthsLeft := monthsBetween(now, g.EndDate)
			monthlyRemaining = remaining / int64(monthsLeft)
		}
	}

	return GoalProgress{
		Percentage:             pct,
		DaysTotal:              daysTotal,
		DaysPassed:             daysPassed,
		DaysRemaining:          daysRemaining,
		MonthlyTarget:          monthlyTarget,
		MonthlyTargetRemaining: monthlyRemaining,
	}
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// monthsBetween returns the number of whole-or-partial months between two
// dates, never less than 1.
func monthsBetween(from, to time.Time) int {
	m := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if m < 1 {
		return 1
	}
	return m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
