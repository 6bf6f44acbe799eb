package models

import (
	"time"

	"gorm.io/gorm"
)

// ShareRole is the role assigned to a goal collaborator. Permissions are
// derived from the role alone; they are never stored or settable directly.
type ShareRole string

const (
	ShareRoleViewer      ShareRole = "viewer"
	ShareRoleContributor ShareRole = "contributor"
	ShareRoleCoOwner     ShareRole = "co-owner"
)

// ValidShareRole reports whether r is one of the known roles.
func ValidShareRole(r ShareRole) bool {
	switch r {
	case ShareRoleViewer, ShareRoleContributor, ShareRoleCoOwner:
		return true
	}
	return false
}

// ShareStatus is the invitation lifecycle state of a goal share.
type ShareStatus string

const (
	ShareStatusPending  ShareStatus = "pending"
	ShareStatusAccepted ShareStatus = "accepted"
	ShareStatusRejected ShareStatus = "rejected"
)

// PermissionSet is the capability set a user holds on a goal.
type PermissionSet struct {
	CanAddAmount    bool `json:"can_add_amount"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanInviteOthers bool `json:"can_invite_others"`
}

// OwnerPermissions is the full capability set held implicitly by a goal's
// owner. Delete is owner-only: no role ever derives it.
var OwnerPermissions = PermissionSet{
	CanAddAmount:    true,
	CanEdit:         true,
	CanDelete:       true,
	CanInviteOthers: true,
}

// PermissionsFor derives the permission set for a collaborator role.
// Unknown roles derive no permissions.
func PermissionsFor(role ShareRole) PermissionSet {
	switch role {
	case ShareRoleContributor:
		return PermissionSet{CanAddAmount: true}
	case ShareRoleCoOwner:
		return PermissionSet{CanAddAmount: true, CanEdit: true, CanInviteOthers: true}
	default:
		return PermissionSet{}
	}
}

// GoalShare is an edge recording one collaborator's access to one goal.
// At most one share exists per (goal, shared-with user) pair, whatever its
// status.
type GoalShare struct {
	Base
	GoalID       uint        `gorm:"not null;index" json:"goal_id"`
	OwnerID      uint        `gorm:"not null" json:"owner_id"`
	SharedWithID uint        `gorm:"not null;index" json:"shared_with_id"`
	InvitedByID  uint        `gorm:"not null" json:"invited_by_id"`
	Role         ShareRole   `gorm:"not null" json:"role"`
	Status       ShareStatus `gorm:"not null;default:pending" json:"status"`
	Contributed  int64       `gorm:"type:bigint;not null;default:0" json:"contributed"`
	AcceptedAt   *time.Time  `json:"accepted_at,omitempty"`

	// Derived from Role on every load, never persisted.
	Permissions PermissionSet `gorm:"-" json:"permissions"`

	Goal       Goal `gorm:"foreignKey:GoalID" json:"goal,omitempty"`
	SharedWith User `gorm:"foreignKey:SharedWithID" json:"shared_with,omitempty"`
}

// AfterFind recomputes the derived permission set whenever a share is loaded.
func (s *GoalShare) AfterFind(*gorm.DB) error {
	s.Permissions = PermissionsFor(s.Role)
	return nil
}
