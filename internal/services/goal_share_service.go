package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
)

// goalShareService handles the goal invitation lifecycle and authorization.
type goalShareService struct {
	db *gorm.DB
}

// NewGoalShareService creates a new GoalShareServicer.
func NewGoalShareService(db *gorm.DB) GoalShareServicer {
	return &goalShareService{db: db}
}

// Invite creates a pending share of a goal with another user. The inviter
// must be the goal owner or hold an accepted share with invite permission.
func (s *goalShareService) Invite(goalID, inviterUserID uint, inviteeEmail string, role models.ShareRole) (*models.GoalShare, error) {
	if !models.ValidShareRole(role) {
		return nil, apperrors.ErrInvalidShareRole
	}

	goal, err := s.getGoal(goalID)
	if err != nil {
		return nil, err
	}

	perms, err := s.permissionsOn(goal, inviterUserID)
	if err != nil {
		return nil, err
	}
	if !perms.CanInviteOthers {
		return nil, apperrors.ErrForbidden
	}

	var invitee models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(inviteeEmail), true).
		First(&invitee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if invitee.ID == inviterUserID || invitee.ID == goal.UserID {
		return nil, apperrors.ErrSelfShare
	}

	// One share per (goal, invitee), whatever its status.
	var count int64
	if err := s.db.Model(&models.GoalShare{}).
		Where("goal_id = ? AND shared_with_id = ?", goalID, invitee.ID).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateShare
	}

	share := &models.GoalShare{
		GoalID:       goalID,
		OwnerID:      goal.UserID,
		SharedWithID: invitee.ID,
		InvitedByID:  inviterUserID,
		Role:         role,
		Status:       models.ShareStatusPending,
	}
	if err := s.db.Create(share).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateShare
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	share.Permissions = models.PermissionsFor(share.Role)
	return share, nil
}

// Respond resolves a pending invitation. Only the invited user may respond,
// and exactly once.
func (s *goalShareService) Respond(shareID, respondingUserID uint, decision ShareDecision) (*models.GoalShare, error) {
	share, err := s.getShare(shareID)
	if err != nil {
		return nil, err
	}
	if share.SharedWithID != respondingUserID {
		return nil, apperrors.ErrForbidden
	}
	if share.Status != models.ShareStatusPending {
		return nil, apperrors.ErrShareAlreadyResolved
	}

	updates := map[string]interface{}{}
	switch decision {
	case ShareDecisionAccept:
		now := time.Now()
		updates["status"] = models.ShareStatusAccepted
		updates["accepted_at"] = &now
		share.Status = models.ShareStatusAccepted
		share.AcceptedAt = &now
	case ShareDecisionReject:
		updates["status"] = models.ShareStatusRejected
		share.Status = models.ShareStatusRejected
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "decision must be 'accept' or 'reject'")
	}

	if err := s.db.Model(share).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return share, nil
}

// UpdateRole changes a collaborator's role. The share's own user can never
// change their role, whatever permissions they hold.
func (s *goalShareService) UpdateRole(shareID, actingUserID uint, newRole models.ShareRole) (*models.GoalShare, error) {
	if !models.ValidShareRole(newRole) {
		return nil, apperrors.ErrInvalidShareRole
	}

	share, err := s.getShare(shareID)
	if err != nil {
		return nil, err
	}

	// Self-escalation is forbidden before any permission check.
	if share.SharedWithID == actingUserID {
		return nil, apperrors.ErrForbidden
	}

	goal, err := s.getGoal(share.GoalID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsOn(goal, actingUserID)
	if err != nil {
		return nil, err
	}
	if !perms.CanInviteOthers {
		return nil, apperrors.ErrForbidden
	}

	if err := s.db.Model(share).Update("role", newRole).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	share.Role = newRole
	share.Permissions = models.PermissionsFor(newRole)
	return share, nil
}

// Remove deletes a share. Permitted for the goal owner, for the shared user
// removing themself at any status, and for a different accepted co-owner
// with invite permission.
func (s *goalShareService) Remove(shareID, actingUserID uint) error {
	share, err := s.getShare(shareID)
	if err != nil {
		return err
	}

	allowed := actingUserID == share.OwnerID || actingUserID == share.SharedWithID
	if !allowed {
		goal, err := s.getGoal(share.GoalID)
		if err != nil {
			return err
		}
		perms, err := s.permissionsOn(goal, actingUserID)
		if err != nil {
			return err
		}
		allowed = perms.CanInviteOthers
	}
	if !allowed {
		return apperrors.ErrForbidden
	}

	if err := s.db.Delete(share).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Authorize returns the effective permission set a user holds on a goal.
// The owner implicitly holds every capability, including owner-only delete;
// collaborators hold their accepted share's derived permissions.
func (s *goalShareService) Authorize(goalID, userID uint) (models.PermissionSet, error) {
	goal, err := s.getGoal(goalID)
	if err != nil {
		return models.PermissionSet{}, err
	}
	return s.permissionsOn(goal, userID)
}

// ListGoalShares lists every share of a goal. Visible to the owner and to
// accepted collaborators.
func (s *goalShareService) ListGoalShares(goalID, actingUserID uint) ([]models.GoalShare, error) {
	goal, err := s.getGoal(goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != actingUserID {
		if _, err := s.acceptedShare(goalID, actingUserID); err != nil {
			return nil, err
		}
	}

	var shares []models.GoalShare
	if err := s.db.Where("goal_id = ?", goalID).Order("created_at").Find(&shares).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shares, nil
}

// ListPendingInvites lists invitations awaiting the user's response.
func (s *goalShareService) ListPendingInvites(userID uint) ([]models.GoalShare, error) {
	var shares []models.GoalShare
	if err := s.db.Preload("Goal").
		Where("shared_with_id = ? AND status = ?", userID, models.ShareStatusPending).
		Order("created_at").Find(&shares).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shares, nil
}

func (s *goalShareService) getGoal(goalID uint) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.First(&goal, goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

func (s *goalShareService) getShare(shareID uint) (*models.GoalShare, error) {
	var share models.GoalShare
	if err := s.db.First(&share, shareID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShareNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &share, nil
}

// acceptedShare returns the user's accepted share on a goal, or Forbidden.
func (s *goalShareService) acceptedShare(goalID, userID uint) (*models.GoalShare, error) {
	var share models.GoalShare
	if err := s.db.
		Where("goal_id = ? AND shared_with_id = ? AND status = ?", goalID, userID, models.ShareStatusAccepted).
		First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrForbidden
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &share, nil
}

// permissionsOn derives the permission set for a user on a loaded goal.
func (s *goalShareService) permissionsOn(goal *models.Goal, userID uint) (models.PermissionSet, error) {
	if goal.UserID == userID {
		return models.OwnerPermissions, nil
	}
	share, err := s.acceptedShare(goal.ID, userID)
	if err != nil {
		return models.PermissionSet{}, err
	}
	return models.PermissionsFor(share.Role), nil
}
