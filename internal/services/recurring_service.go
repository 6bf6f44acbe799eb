package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// recurringService materializes concrete transactions from recurring
// templates. A run claims each (template, day) by inserting a RecurringRun
// marker before creating the transaction; the marker's uniqueness constraint
// makes re-runs and concurrent runs skip already-claimed templates instead of
// duplicating them.
type recurringService struct {
	db     *gorm.DB
	ledger BudgetLedgerServicer
	loc    *time.Location
}

// NewRecurringService creates a new RecurringServicer pinned to the fixed
// processing timezone.
func NewRecurringService(db *gorm.DB, ledger BudgetLedgerServicer, loc *time.Location) RecurringServicer {
	return &recurringService{db: db, ledger: ledger, loc: loc}
}

// ProcessDueTemplates materializes one concrete transaction per active
// recurring template whose recurring day equals the current day of month.
// Per-template failures are recorded and do not abort the batch.
func (s *recurringService) ProcessDueTemplates(now time.Time) (*RecurringRunResult, error) {
	now = now.In(s.loc)
	runDate := now.Format("2006-01-02")

	// On the last day of a short month, templates nominally due on later
	// days are clamped in, so a day-31 template still fires in February.
	query := s.db.Where("is_recurring = ?", true)
	if now.Day() == lastDayOfMonth(now) {
		query = query.Where("recurring_day >= ?", now.Day())
	} else {
		query = query.Where("recurring_day = ?", now.Day())
	}

	var templates []models.Transaction
	if err := query.Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RecurringRunResult{
		RunDate: runDate,
		Details: make([]RecurringRunDetail, 0, len(templates)),
	}

	for i := range templates {
		detail := s.processTemplate(&templates[i], now, runDate)
		switch {
		case detail.Error != "":
			result.Errored++
		case detail.Skipped:
			result.Skipped++
		default:
			result.Processed++
		}
		result.Details = append(result.Details, detail)
	}

	logger.Get().Infow("recurring run finished",
		"run_date", runDate,
		"due", len(templates),
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errored", result.Errored,
	)

	return result, nil
}

// processTemplate handles one due template: claim the day, materialize the
// transaction, feed the budget ledger. Each template is its own unit of work.
func (s *recurringService) processTemplate(template *models.Transaction, now time.Time, runDate string) RecurringRunDetail {
	detail := RecurringRunDetail{TemplateID: template.ID}

	run := &models.RecurringRun{TemplateID: template.ID, RunDate: runDate}
	if err := s.db.Create(run).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Already materialized today, possibly by a concurrent run.
			detail.Skipped = true
			return detail
		}
		detail.Error = "failed to claim run: " + err.Error()
		return detail
	}

	tx := &models.Transaction{
		UserID:      template.UserID,
		CategoryID:  template.CategoryID,
		BudgetID:    template.BudgetID,
		Type:        template.Type,
		Amount:      template.Amount,
		Description: template.Description + models.RecurringSuffix,
		Date:        now,
		IsRecurring: false,
	}
	if err := s.db.Create(tx).Error; err != nil {
		// Release the claim so a later run can retry this template today.
		if delErr := s.db.Delete(run).Error; delErr != nil {
			logger.Get().Errorw("failed to release recurring run claim; template is blocked until tomorrow",
				"template_id", template.ID,
				"run_date", runDate,
				"error", delErr.Error(),
			)
		}
		detail.Error = "failed to create transaction: " + err.Error()
		return detail
	}

	if err := s.db.Model(run).Update("transaction_id", tx.ID).Error; err != nil {
		logger.Get().Warnw("failed to link recurring run to transaction",
			"template_id", template.ID,
			"transaction_id", tx.ID,
			"error", err.Error(),
		)
	}

	s.ledger.ApplyCreate(tx)

	detail.TransactionID = &tx.ID
	return detail
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).
		AddDate(0, 1, -1).Day()
}
