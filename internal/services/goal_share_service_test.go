package services

import (
	"testing"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestDerivedPermissions(t *testing.T) {
	cases := []struct {
		role models.ShareRole
		want models.PermissionSet
	}{
		{models.ShareRoleViewer, models.PermissionSet{}},
		{models.ShareRoleContributor, models.PermissionSet{CanAddAmount: true}},
		{models.ShareRoleCoOwner, models.PermissionSet{CanAddAmount: true, CanEdit: true, CanInviteOthers: true}},
		{models.ShareRole("bogus"), models.PermissionSet{}},
	}

	for _, tc := range cases {
		got := models.PermissionsFor(tc.role)
		if got != tc.want {
			t.Errorf("PermissionsFor(%q) = %+v, want %+v", tc.role, got, tc.want)
		}
		if got.CanDelete {
			t.Errorf("role %q must never derive delete", tc.role)
		}
	}

	if !models.OwnerPermissions.CanDelete {
		t.Error("owner must hold delete")
	}
}

func TestInvite(t *testing.T) {
	t.Run("owner_invites", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)

		share, err := svc.Invite(goal.ID, owner.ID, invitee.Email, models.ShareRoleContributor)
		testutil.AssertNoError(t, err)

		if share.Status != models.ShareStatusPending {
			t.Errorf("expected pending status, got %s", share.Status)
		}
		if !share.Permissions.CanAddAmount || share.Permissions.CanEdit {
			t.Errorf("unexpected derived permissions: %+v", share.Permissions)
		}
	})

	t.Run("invalid_role", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)

		_, err := svc.Invite(goal.ID, owner.ID, invitee.Email, models.ShareRole("admin"))
		testutil.AssertAppError(t, err, "INVALID_SHARE_ROLE")
	})

	t.Run("self_share_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)

		_, err := svc.Invite(goal.ID, owner.ID, owner.Email, models.ShareRoleViewer)
		testutil.AssertAppError(t, err, "SELF_SHARE")
	})

	t.Run("duplicate_share_rejected_even_after_rejection", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, invitee.ID, models.ShareRoleViewer, models.ShareStatusRejected)

		_, err := svc.Invite(goal.ID, owner.ID, invitee.Email, models.ShareRoleContributor)
		testutil.AssertAppError(t, err, "DUPLICATE_SHARE")
	})

	t.Run("viewer_cannot_invite", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		viewer := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, viewer.ID, models.ShareRoleViewer, models.ShareStatusAccepted)

		_, err := svc.Invite(goal.ID, viewer.ID, other.Email, models.ShareRoleViewer)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("accepted_co_owner_can_invite", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		coOwner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, coOwner.ID, models.ShareRoleCoOwner, models.ShareStatusAccepted)

		share, err := svc.Invite(goal.ID, coOwner.ID, other.Email, models.ShareRoleContributor)
		testutil.AssertNoError(t, err)
		if share.InvitedByID != coOwner.ID {
			t.Errorf("expected inviter %d, got %d", coOwner.ID, share.InvitedByID)
		}
	})

	t.Run("pending_co_owner_cannot_invite", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		coOwner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, coOwner.ID, models.ShareRoleCoOwner, models.ShareStatusPending)

		_, err := svc.Invite(goal.ID, coOwner.ID, other.Email, models.ShareRoleViewer)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("unknown_invitee", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)

		_, err := svc.Invite(goal.ID, owner.ID, "nobody@test.com", models.ShareRoleViewer)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestRespond(t *testing.T) {
	t.Run("accept_sets_accepted_at", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, invitee.ID, models.ShareRoleContributor, models.ShareStatusPending)

		updated, err := svc.Respond(share.ID, invitee.ID, ShareDecisionAccept)
		testutil.AssertNoError(t, err)
		if updated.Status != models.ShareStatusAccepted {
			t.Errorf("expected accepted, got %s", updated.Status)
		}
		if updated.AcceptedAt == nil {
			t.Error("expected accepted_at to be set")
		}
	})

	t.Run("reject", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, invitee.ID, models.ShareRoleContributor, models.ShareStatusPending)

		updated, err := svc.Respond(share.ID, invitee.ID, ShareDecisionReject)
		testutil.AssertNoError(t, err)
		if updated.Status != models.ShareStatusRejected {
			t.Errorf("expected rejected, got %s", updated.Status)
		}
	})

	t.Run("only_invitee_may_respond", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, invitee.ID, models.ShareRoleContributor, models.ShareStatusPending)

		_, err := svc.Respond(share.ID, owner.ID, ShareDecisionAccept)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("resolved_share_cannot_be_responded_again", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, invitee.ID, models.ShareRoleContributor, models.ShareStatusAccepted)

		_, err := svc.Respond(share.ID, invitee.ID, ShareDecisionReject)
		testutil.AssertAppError(t, err, "SHARE_ALREADY_RESOLVED")
	})
}

func TestUpdateRole(t *testing.T) {
	t.Run("owner_changes_role", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		collaborator := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, collaborator.ID, models.ShareRoleViewer, models.ShareStatusAccepted)

		updated, err := svc.UpdateRole(share.ID, owner.ID, models.ShareRoleCoOwner)
		testutil.AssertNoError(t, err)
		if updated.Role != models.ShareRoleCoOwner {
			t.Errorf("expected co-owner role, got %s", updated.Role)
		}
		if !updated.Permissions.CanInviteOthers {
			t.Error("expected re-derived permissions after role change")
		}
	})

	t.Run("self_escalation_forbidden_even_for_co_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		coOwner := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, coOwner.ID, models.ShareRoleCoOwner, models.ShareStatusAccepted)

		_, err := svc.UpdateRole(share.ID, coOwner.ID, models.ShareRoleCoOwner)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("contributor_cannot_change_roles", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		contributor := testutil.CreateTestUser(t, db)
		viewer := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, contributor.ID, models.ShareRoleContributor, models.ShareStatusAccepted)
		viewerShare := testutil.CreateTestShare(t, db, goal, viewer.ID, models.ShareRoleViewer, models.ShareStatusAccepted)

		_, err := svc.UpdateRole(viewerShare.ID, contributor.ID, models.ShareRoleCoOwner)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestRemoveShare(t *testing.T) {
	t.Run("owner_revokes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		collaborator := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, collaborator.ID, models.ShareRoleContributor, models.ShareStatusAccepted)

		testutil.AssertNoError(t, svc.Remove(share.ID, owner.ID))

		_, err := svc.Authorize(goal.ID, collaborator.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("invitee_leaves", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		collaborator := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, collaborator.ID, models.ShareRoleViewer, models.ShareStatusPending)

		testutil.AssertNoError(t, svc.Remove(share.ID, collaborator.ID))
	})

	t.Run("unrelated_user_cannot_remove", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		collaborator := testutil.CreateTestUser(t, db)
		stranger := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		share := testutil.CreateTestShare(t, db, goal, collaborator.ID, models.ShareRoleViewer, models.ShareStatusAccepted)

		err := svc.Remove(share.ID, stranger.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestAuthorize(t *testing.T) {
	t.Run("owner_gets_full_set", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)

		perms, err := svc.Authorize(goal.ID, owner.ID)
		testutil.AssertNoError(t, err)
		if perms != models.OwnerPermissions {
			t.Errorf("expected owner permissions, got %+v", perms)
		}
	})

	t.Run("accepted_contributor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		contributor := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, contributor.ID, models.ShareRoleContributor, models.ShareStatusAccepted)

		perms, err := svc.Authorize(goal.ID, contributor.ID)
		testutil.AssertNoError(t, err)
		if !perms.CanAddAmount || perms.CanEdit || perms.CanDelete || perms.CanInviteOthers {
			t.Errorf("unexpected contributor permissions: %+v", perms)
		}
	})

	t.Run("pending_share_grants_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, owner.ID, 100000)
		testutil.CreateTestShare(t, db, goal, invitee.ID, models.ShareRoleCoOwner, models.ShareStatusPending)

		_, err := svc.Authorize(goal.ID, invitee.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("missing_goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalShareService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Authorize(99999, user.ID)
		testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
	})
}
