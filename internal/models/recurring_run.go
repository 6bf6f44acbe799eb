package models

import "time"

// RecurringRun marks one materialization of a recurring template on one
// calendar day. The (template, run date) uniqueness constraint is the
// idempotency guarantee for the recurring engine: a run claims the day by
// inserting the marker before creating the concrete transaction, so two
// concurrent runs cannot both materialize the same template.
//
// Rows are hard-deleted (no soft delete) so the constraint always holds.
type RecurringRun struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	TemplateID uint `gorm:"not null;uniqueIndex:idx_recurring_runs_template_date" json:"template_id"`
	// RunDate is a civil date (YYYY-MM-DD) in the fixed processing timezone.
	RunDate       string    `gorm:"size:10;not null;uniqueIndex:idx_recurring_runs_template_date" json:"run_date"`
	TransactionID *uint     `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
