package services

import (
	"strings"
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestProcessDueTemplates(t *testing.T) {
	t.Run("materializes_due_template", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, category.ID, 6, 2026, 50000)
		template := testutil.CreateTestTemplate(t, db, user.ID, category.ID, &budget.ID, 8000, 15)

		now := time.Date(2026, 6, 15, 0, 1, 0, 0, time.UTC)
		result, err := svc.ProcessDueTemplates(now)
		testutil.AssertNoError(t, err)

		if result.Processed != 1 || result.Skipped != 0 || result.Errored != 0 {
			t.Fatalf("expected 1 processed, got %+v", result)
		}

		var tx models.Transaction
		testutil.AssertNoError(t, db.First(&tx, *result.Details[0].TransactionID).Error)
		if tx.IsRecurring {
			t.Error("materialized transaction must not be a template")
		}
		if tx.Amount != template.Amount {
			t.Errorf("expected amount %d, got %d", template.Amount, tx.Amount)
		}
		if !strings.HasSuffix(tx.Description, models.RecurringSuffix) {
			t.Errorf("expected description with recurring suffix, got %q", tx.Description)
		}
		if tx.BudgetID == nil || *tx.BudgetID != budget.ID {
			t.Error("expected materialized transaction to keep the template's budget")
		}

		// The materialized expense feeds the budget ledger.
		var updated models.Budget
		testutil.AssertNoError(t, db.First(&updated, budget.ID).Error)
		if updated.Spent != 8000 {
			t.Errorf("expected spent 8000, got %d", updated.Spent)
		}
	})

	t.Run("second_run_same_day_skips", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		template := testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 20)

		now := time.Date(2026, 6, 20, 0, 1, 0, 0, time.UTC)

		first, err := svc.ProcessDueTemplates(now)
		testutil.AssertNoError(t, err)
		if first.Processed != 1 {
			t.Fatalf("expected 1 processed on first run, got %+v", first)
		}

		second, err := svc.ProcessDueTemplates(now)
		testutil.AssertNoError(t, err)
		if second.Processed != 0 || second.Skipped != 1 {
			t.Fatalf("expected 1 skipped on second run, got %+v", second)
		}

		var count int64
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("is_recurring = ? AND user_id = ? AND id <> ?", false, user.ID, template.ID).
			Count(&count).Error)
		if count != 1 {
			t.Errorf("expected exactly one materialized transaction, got %d", count)
		}
	})

	t.Run("next_day_materializes_again", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 31)

		// Day 31 of July and August both trigger the same template.
		july, err := svc.ProcessDueTemplates(time.Date(2026, 7, 31, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		august, err := svc.ProcessDueTemplates(time.Date(2026, 8, 31, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		if july.Processed != 1 || august.Processed != 1 {
			t.Errorf("expected both days processed, got july=%+v august=%+v", july, august)
		}
	})

	t.Run("short_month_clamps_late_days", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 31)
		testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 3000, 30)
		testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 2000, 15)

		// February 28th is the last day of the month: the day-30 and day-31
		// templates fire, the day-15 one does not.
		result, err := svc.ProcessDueTemplates(time.Date(2026, 2, 28, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if result.Processed != 2 {
			t.Fatalf("expected 2 clamped templates processed, got %+v", result)
		}

		// April 30th fires the day-30 and day-31 templates; April 15th only
		// the day-15 one.
		april30, err := svc.ProcessDueTemplates(time.Date(2026, 4, 30, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if april30.Processed != 2 {
			t.Errorf("expected day-30 and day-31 templates on April 30th, got %+v", april30)
		}
		april15, err := svc.ProcessDueTemplates(time.Date(2026, 4, 15, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if april15.Processed != 1 {
			t.Errorf("expected only the day-15 template on April 15th, got %+v", april15)
		}
	})

	t.Run("ignores_non_matching_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 15)

		result, err := svc.ProcessDueTemplates(time.Date(2026, 6, 16, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if len(result.Details) != 0 {
			t.Errorf("expected no due templates, got %+v", result)
		}
	})

	t.Run("preclaimed_day_skips", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		template := testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 10)

		// A concurrent run already claimed the day.
		claim := &models.RecurringRun{TemplateID: template.ID, RunDate: "2026-06-10"}
		testutil.AssertNoError(t, db.Create(claim).Error)

		result, err := svc.ProcessDueTemplates(time.Date(2026, 6, 10, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if result.Skipped != 1 || result.Processed != 0 {
			t.Fatalf("expected pre-claimed template to be skipped, got %+v", result)
		}
	})

	t.Run("failure_releases_claim_and_spares_siblings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		failing := testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 666, 5)
		healthy := testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 5)

		// Make the insert for the failing template's amount abort.
		testutil.AssertNoError(t, db.Exec(`
			CREATE TRIGGER fail_tx BEFORE INSERT ON transactions
			WHEN NEW.amount = 666 AND NEW.is_recurring = 0
			BEGIN SELECT RAISE(ABORT, 'boom'); END
		`).Error)

		result, err := svc.ProcessDueTemplates(time.Date(2026, 6, 5, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		if result.Errored != 1 || result.Processed != 1 {
			t.Fatalf("expected one errored and one processed, got %+v", result)
		}
		for _, d := range result.Details {
			if d.TemplateID == failing.ID && d.Error == "" {
				t.Error("expected error recorded for failing template")
			}
			if d.TemplateID == healthy.ID && d.TransactionID == nil {
				t.Error("expected healthy template to be materialized")
			}
		}

		// The failed claim is released so a later run can retry today.
		var claims int64
		testutil.AssertNoError(t, db.Model(&models.RecurringRun{}).
			Where("template_id = ?", failing.ID).Count(&claims).Error)
		if claims != 0 {
			t.Errorf("expected released claim, found %d", claims)
		}

		testutil.AssertNoError(t, db.Exec("DROP TRIGGER fail_tx").Error)
	})

	t.Run("marker_links_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewBudgetLedger(db, time.UTC)
		svc := NewRecurringService(db, ledger, time.UTC)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		template := testutil.CreateTestTemplate(t, db, user.ID, category.ID, nil, 5000, 25)

		result, err := svc.ProcessDueTemplates(time.Date(2026, 6, 25, 0, 1, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		var run models.RecurringRun
		testutil.AssertNoError(t, db.Where("template_id = ? AND run_date = ?", template.ID, "2026-06-25").
			First(&run).Error)
		if run.TransactionID == nil || *run.TransactionID != *result.Details[0].TransactionID {
			t.Error("expected run marker linked to the materialized transaction")
		}
	})
}
