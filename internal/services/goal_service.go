package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// goalService handles goal-related business logic. All mutations are gated
// by the goal share servicer's derived permissions.
type goalService struct {
	db     *gorm.DB
	shares GoalShareServicer
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, shares GoalShareServicer) GoalServicer {
	return &goalService{db: db, shares: shares}
}

// CreateGoal creates a new savings goal owned by the user.
func (s *goalService) CreateGoal(
	userID uint,
	title, description string,
	targetAmount int64,
	startDate, endDate time.Time,
	categoryID *uint,
) (*models.Goal, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal title is required")
	}
	if targetAmount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}
	if !endDate.After(startDate) {
		return nil, apperrors.ErrInvalidGoalDate
	}

	if categoryID != nil {
		var category models.Category
		if err := s.db.Scopes(models.CategoriesVisibleTo(userID)).
			Where("id = ?", *categoryID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	goal := &models.Goal{
		UserID:       userID,
		Title:        title,
		Description:  description,
		TargetAmount: targetAmount,
		StartDate:    startDate,
		EndDate:      endDate,
		CategoryID:   categoryID,
		Status:       models.GoalStatusActive,
	}
	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals returns a paginated list of the goals the user owns.
func (s *goalService) GetUserGoals(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	page.Defaults()

	base := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.Goal
	if err := base.Scopes(pagination.Paginate(page)).Order("end_date").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetSharedGoals returns a paginated list of goals shared with the user
// through an accepted share.
func (s *goalService) GetSharedGoals(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	page.Defaults()

	base := s.db.Model(&models.Goal{}).
		Joins("JOIN goal_shares ON goal_shares.goal_id = goals.id").
		Where("goal_shares.shared_with_id = ? AND goal_shares.status = ? AND goal_shares.deleted_at IS NULL",
			userID, models.ShareStatusAccepted)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.Goal
	if err := base.Scopes(pagination.Paginate(page)).Order("goals.end_date").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGoalByID returns a goal with derived progress and the requesting user's
// effective permissions. Owners and accepted collaborators of any role may
// view.
func (s *goalService) GetGoalByID(goalID, userID uint) (*GoalView, error) {
	goal, err := s.getGoal(goalID)
	if err != nil {
		return nil, err
	}

	perms := models.PermissionSet{}
	if goal.UserID == userID {
		perms = models.OwnerPermissions
	} else {
		perms, err = s.shares.Authorize(goalID, userID)
		if err != nil {
			return nil, err
		}
	}

	return &GoalView{
		Goal:        goal,
		Progress:    goal.ProgressAt(time.Now()),
		Permissions: perms,
	}, nil
}

// UpdateGoal edits a goal. Requires the edit capability (owner or co-owner).
// Status accepts user-driven paused/active changes only; completion is
// derived and applied automatically when the target is reached.
func (s *goalService) UpdateGoal(goalID, userID uint, update GoalUpdate) (*models.Goal, error) {
	goal, err := s.getGoal(goalID)
	if err != nil {
		return nil, err
	}

	perms, err := s.shares.Authorize(goalID, userID)
	if err != nil {
		return nil, err
	}
	if !perms.CanEdit {
		return nil, apperrors.ErrForbidden
	}

	updates := make(map[string]interface{})
	if update.Title != nil {
		if *update.Title == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal title is required")
		}
		updates["title"] = *update.Title
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.TargetAmount != nil {
		if *update.TargetAmount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
		}
		updates["target_amount"] = *update.TargetAmount
	}
	if update.EndDate != nil {
		if !update.EndDate.After(goal.StartDate) {
			return nil, apperrors.ErrInvalidGoalDate
		}
		updates["end_date"] = *update.EndDate
	}
	if update.CategoryID != nil {
		updates["category_id"] = *update.CategoryID
	}
	if update.Status != nil {
		switch *update.Status {
		case models.GoalStatusActive, models.GoalStatusPaused:
			// Completed never auto-reverts; resuming a completed goal is a no-op.
			if goal.Status != models.GoalStatusCompleted {
				updates["status"] = *update.Status
			}
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be 'active' or 'paused'")
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.First(goal, goalID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	// A lowered target can complete the goal immediately.
	s.completeIfReached(goal)

	return goal, nil
}

// DeleteGoal removes a goal and all of its shares. Owner-only: delete is the
// one capability no role derives.
func (s *goalService) DeleteGoal(goalID, userID uint) error {
	goal, err := s.getGoal(goalID)
	if err != nil {
		return err
	}
	if goal.UserID != userID {
		return apperrors.ErrForbidden
	}

	// Shares cascade with the goal so no orphaned invitations survive.
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", goalID).Delete(&models.GoalShare{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// AddAmount contributes to a goal. Requires the add-amount capability.
// The moment the running total reaches the target while the goal is active,
// status flips to completed and never auto-reverts.
func (s *goalService) AddAmount(goalID, userID uint, amount int64) (*models.Goal, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	goal, err := s.getGoal(goalID)
	if err != nil {
		return nil, err
	}

	perms, err := s.shares.Authorize(goalID, userID)
	if err != nil {
		return nil, err
	}
	if !perms.CanAddAmount {
		return nil, apperrors.ErrForbidden
	}

	// Atomic increment; concurrent contributions must not lose updates.
	if err := s.db.Model(goal).
		UpdateColumn("current_amount", gorm.Expr("current_amount + ?", amount)).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if goal.UserID != userID {
		if err := s.db.Model(&models.GoalShare{}).
			Where("goal_id = ? AND shared_with_id = ?", goalID, userID).
			UpdateColumn("contributed", gorm.Expr("contributed + ?", amount)).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := s.db.First(goal, goalID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.completeIfReached(goal)

	return goal, nil
}

// completeIfReached applies the monotonic active→completed transition.
func (s *goalService) completeIfReached(goal *models.Goal) {
	if goal.Status != models.GoalStatusActive || goal.CurrentAmount < goal.TargetAmount {
		return
	}
	if err := s.db.Model(goal).Update("status", models.GoalStatusCompleted).Error; err != nil {
		// The completion flag will be re-derived on the next mutation.
		return
	}
	goal.Status = models.GoalStatusCompleted
}

func (s *goalService) getGoal(goalID uint) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.First(&goal, goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}
