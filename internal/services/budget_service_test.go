package services

import (
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func TestCreateBudget(t *testing.T) {
	t.Run("creates_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		budget, err := svc.CreateBudget(user.ID, category.ID, "Groceries June", 6, 2026, 50000)
		testutil.AssertNoError(t, err)

		if budget.Spent != 0 {
			t.Errorf("expected zero spent on fresh budget, got %d", budget.Spent)
		}
		if !budget.IsActive {
			t.Error("expected new budget to be active")
		}
	})

	t.Run("duplicate_period_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(user.ID, category.ID, "First", 6, 2026, 50000)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateBudget(user.ID, category.ID, "Second", 6, 2026, 30000)
		testutil.AssertAppError(t, err, "DUPLICATE_BUDGET")
	})

	t.Run("same_category_different_month_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(user.ID, category.ID, "June", 6, 2026, 50000)
		testutil.AssertNoError(t, err)
		_, err = svc.CreateBudget(user.ID, category.ID, "July", 7, 2026, 50000)
		testutil.AssertNoError(t, err)
	})

	t.Run("income_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)

		_, err := svc.CreateBudget(user.ID, category.ID, "Salary?", 6, 2026, 50000)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("system_category_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		system := testutil.CreateSystemCategory(t, db, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(user.ID, system.ID, "Defaults", 6, 2026, 50000)
		testutil.AssertNoError(t, err)
	})

	t.Run("invalid_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(user.ID, category.ID, "Bad", 13, 2026, 50000)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteBudget(t *testing.T) {
	t.Run("detaches_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewBudgetService(db, ledger)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, category.ID, 6, 2026, 50000)
		tx := testutil.CreateTestExpenseForBudget(t, db, user.ID, category.ID, budget, 6000)

		testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))

		// The transaction survives, detached.
		var kept models.Transaction
		testutil.AssertNoError(t, db.First(&kept, tx.ID).Error)
		if kept.BudgetID != nil {
			t.Error("expected detached transaction")
		}

		_, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("foreign_budget_invisible", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, owner.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, owner.ID, category.ID, 6, 2026, 50000)

		err := svc.DeleteBudget(other.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestBudgetRecomputeAndProgress(t *testing.T) {
	t.Run("recompute_refreshes_spent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewBudgetService(db, ledger)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, category.ID, 6, 2026, 50000)
		testutil.CreateTestExpenseForBudget(t, db, user.ID, category.ID, budget, 15000)

		refreshed, err := svc.Recompute(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if refreshed.Spent != 15000 {
			t.Errorf("expected spent 15000, got %d", refreshed.Spent)
		}
	})

	t.Run("progress_from_stored_total", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, category.ID, 6, 2026, 50000)
		testutil.AssertNoError(t, db.Model(budget).UpdateColumn("spent", 20000).Error)

		progress, err := svc.GetBudgetProgress(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if progress.Remaining != 30000 {
			t.Errorf("expected remaining 30000, got %d", progress.Remaining)
		}
		if progress.Percentage != 40 {
			t.Errorf("expected 40%%, got %f", progress.Percentage)
		}
	})
}

func TestGetUserBudgets(t *testing.T) {
	t.Run("filters_by_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewBudgetLedger(db, time.UTC))
		user := testutil.CreateTestUser(t, db)
		catA := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		catB := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, catA.ID, 6, 2026, 50000)
		testutil.CreateTestBudget(t, db, user.ID, catB.ID, 7, 2026, 50000)

		month := 6
		resp, err := svc.GetUserBudgets(user.ID, pagination.PageRequest{}, nil, &month, nil)
		testutil.AssertNoError(t, err)
		if resp.TotalItems != 1 {
			t.Errorf("expected one June budget, got %d", resp.TotalItems)
		}
	})
}
