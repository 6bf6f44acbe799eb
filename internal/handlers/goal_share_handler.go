package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/services"
)

// GoalShareHandler handles goal sharing requests
type GoalShareHandler struct {
	shareService services.GoalShareServicer
	auditService services.AuditServicer
}

// NewGoalShareHandler creates a new GoalShareHandler
func NewGoalShareHandler(shareService services.GoalShareServicer, auditService services.AuditServicer) *GoalShareHandler {
	return &GoalShareHandler{
		shareService: shareService,
		auditService: auditService,
	}
}

// InviteRequest represents a goal share invitation payload
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,share_role"`
}

// RespondRequest represents a response to a pending invitation
type RespondRequest struct {
	Decision string `json:"decision" binding:"required,share_decision"`
}

// UpdateRoleRequest represents a share role change payload
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,share_role"`
}

// Invite handles inviting another user to a goal
// @Summary     Invite to a goal
// @Description Invite another user to a goal by email; requires invite permission
// @Tags        shares
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Goal ID"
// @Param       request body InviteRequest true "Invitee and role"
// @Success     201 {object} models.GoalShare
// @Failure     400 {object} ErrorResponse "Invalid role or self-share"
// @Failure     403 {object} ErrorResponse "No invite permission"
// @Failure     404 {object} ErrorResponse "Goal or user not found"
// @Failure     409 {object} ErrorResponse "Already shared with this user"
// @Router      /goals/{id}/shares [post]
func (h *GoalShareHandler) Invite(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	share, err := h.shareService.Invite(goalID, userID, req.Email, models.ShareRole(req.Role))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "invite", "goal_share", share.ID, c.ClientIP(), map[string]interface{}{
		"goal_id": goalID,
		"role":    share.Role,
	})

	c.JSON(http.StatusCreated, share)
}

// ListForGoal handles listing a goal's shares
// @Summary     List goal shares
// @Description List the shares of a goal; requires access to the goal
// @Tags        shares
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Goal ID"
// @Success     200 {object} map[string]interface{} "Shares"
// @Failure     403 {object} ErrorResponse "No access"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/shares [get]
func (h *GoalShareHandler) ListForGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	shares, err := h.shareService.ListGoalShares(goalID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shares": shares})
}

// ListPending handles listing the user's pending invitations
// @Summary     List pending invitations
// @Description List invitations awaiting the authenticated user's response
// @Tags        shares
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Invitations"
// @Router      /shares/pending [get]
func (h *GoalShareHandler) ListPending(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	invites, err := h.shareService.ListPendingInvites(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invites})
}

// Respond handles accepting or rejecting a pending invitation
// @Summary     Respond to an invitation
// @Description Accept or reject a pending goal share invitation
// @Tags        shares
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Share ID"
// @Param       request body RespondRequest true "Decision (accept/reject)"
// @Success     200 {object} models.GoalShare
// @Failure     403 {object} ErrorResponse "Not the invitee"
// @Failure     404 {object} ErrorResponse "Share not found"
// @Failure     409 {object} ErrorResponse "Invitation already resolved"
// @Router      /shares/{id}/respond [post]
func (h *GoalShareHandler) Respond(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	shareID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	share, err := h.shareService.Respond(shareID, userID, services.ShareDecision(req.Decision))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, req.Decision, "goal_share", share.ID, c.ClientIP(), map[string]interface{}{
		"goal_id": share.GoalID,
	})

	c.JSON(http.StatusOK, share)
}

// UpdateRole handles changing a share's role
// @Summary     Change a share's role
// @Description Change the role of an existing share; requires invite permission, no self-escalation
// @Tags        shares
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Share ID"
// @Param       request body UpdateRoleRequest true "New role"
// @Success     200 {object} models.GoalShare
// @Failure     403 {object} ErrorResponse "No permission or self-escalation"
// @Failure     404 {object} ErrorResponse "Share not found"
// @Router      /shares/{id}/role [put]
func (h *GoalShareHandler) UpdateRole(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	shareID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	share, err := h.shareService.UpdateRole(shareID, userID, models.ShareRole(req.Role))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update_role", "goal_share", share.ID, c.ClientIP(), map[string]interface{}{
		"goal_id": share.GoalID,
		"role":    share.Role,
	})

	c.JSON(http.StatusOK, share)
}

// Remove handles revoking a share or leaving a goal
// @Summary     Remove a share
// @Description Revoke a share (owner or inviter) or leave a shared goal (invitee)
// @Tags        shares
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Share ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "No permission"
// @Failure     404 {object} ErrorResponse "Share not found"
// @Router      /shares/{id} [delete]
func (h *GoalShareHandler) Remove(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	shareID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.shareService.Remove(shareID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "remove", "goal_share", shareID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Share removed"})
}
