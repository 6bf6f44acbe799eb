package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// budgetLedger maintains Budget.Spent against the expense transactions
// referencing each budget. Incremental adjustments are the fast path;
// Recompute from the transaction set is the correctness backstop.
type budgetLedger struct {
	db  *gorm.DB
	loc *time.Location
}

// NewBudgetLedger creates a new BudgetLedgerServicer. All month-window
// arithmetic uses loc, the fixed processing timezone.
func NewBudgetLedger(db *gorm.DB, loc *time.Location) BudgetLedgerServicer {
	return &budgetLedger{db: db, loc: loc}
}

// ApplyCreate adjusts the referenced budget for a newly created transaction.
// No-op unless the transaction counts against a budget.
func (l *budgetLedger) ApplyCreate(tx *models.Transaction) {
	if tx.CountsAgainstBudget() {
		l.adjust(*tx.BudgetID, tx.Amount, tx.ID)
	}
}

// ApplyUpdate adjusts budgets for an edited transaction: the old snapshot's
// budget is decremented and the new snapshot's budget incremented. The two
// adjustments are independent; a reassignment targets two different budgets.
func (l *budgetLedger) ApplyUpdate(oldTx, newTx *models.Transaction) {
	if oldTx.CountsAgainstBudget() {
		l.adjust(*oldTx.BudgetID, -oldTx.Amount, oldTx.ID)
	}
	if newTx.CountsAgainstBudget() {
		l.adjust(*newTx.BudgetID, newTx.Amount, newTx.ID)
	}
}

// ApplyDelete reverses the effect of a deleted transaction on its budget.
func (l *budgetLedger) ApplyDelete(tx *models.Transaction) {
	if tx.CountsAgainstBudget() {
		l.adjust(*tx.BudgetID, -tx.Amount, tx.ID)
	}
}

// adjust applies a single-statement atomic increment to a budget's spent
// total. The triggering transaction write has already succeeded, so failures
// here leave drift: they are logged loudly and repaired by Recompute, never
// retried and never propagated.
func (l *budgetLedger) adjust(budgetID uint, delta int64, transactionID uint) {
	res := l.db.Model(&models.Budget{}).
		Where("id = ?", budgetID).
		UpdateColumn("spent", gorm.Expr("spent + ?", delta))

	if res.Error != nil {
		logger.Get().Errorw("budget ledger adjustment failed; spent total has drifted and needs recompute",
			"budget_id", budgetID,
			"transaction_id", transactionID,
			"delta", delta,
			"error", res.Error.Error(),
		)
		return
	}
	if res.RowsAffected == 0 {
		// Dangling budget reference: tolerated, not fatal.
		logger.Get().Warnw("budget missing for ledger adjustment",
			"budget_id", budgetID,
			"transaction_id", transactionID,
			"delta", delta,
		)
	}
}

// Recompute sets the budget's spent total to the exact sum of expense
// transactions referencing it whose date falls inside the budget's month.
// Idempotent; safe to call any number of times.
func (l *budgetLedger) Recompute(budgetID uint) (int64, error) {
	var budget models.Budget
	if err := l.db.First(&budget, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrBudgetNotFound
		}
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	start, end := budget.Window(l.loc)

	var total int64
	err := l.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("budget_id = ? AND type = ? AND is_recurring = ? AND date BETWEEN ? AND ?",
			budgetID, models.TransactionTypeExpense, false, start, end).
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := l.db.Model(&budget).UpdateColumn("spent", total).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return total, nil
}

// Detach clears the budget reference on all transactions pointing at the
// budget. Called on budget deletion; the transactions themselves survive.
func (l *budgetLedger) Detach(db *gorm.DB, budgetID uint) error {
	if err := db.Model(&models.Transaction{}).
		Where("budget_id = ?", budgetID).
		Update("budget_id", nil).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
