package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lockedin-service/internal/repositories"
	"lockedin-service/internal/telemetry"
)

// GroupHandler manages group endpoints and the leaderboard view.
type GroupHandler struct {
	groupRepo  repositories.GroupRepository
	streakRepo repositories.StreakRepository
	audit      *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, streakRepo repositories.StreakRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groupRepo: groupRepo, streakRepo: streakRepo, audit: audit}
}

// CreateGroup handles POST /groups. The creator becomes the first member
// and gets their initial streak in the same transaction.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name   string   `json:"name" binding:"required"`
		UserID string   `json:"userId" binding:"required"`
		Sites  []string `json:"sites"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), req.Name, req.UserID, req.Sites)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", req.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "Group created", req.UserID)
	c.JSON(http.StatusCreated, gin.H{"id": group.ID, "name": group.Name, "invite_code": group.InviteCode})
}

// JoinGroup handles POST /groups/join. Joining twice is harmless: the
// duplicate membership is swallowed and the group returned unchanged.
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	var req struct {
		Code   string `json:"code" binding:"required"`
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupRepo.JoinByCode(c.Request.Context(), req.Code, req.UserID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid code"})
		return
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", req.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join group"})
		return
	}

	h.emitAudit(c, "INFO", "Group joined", req.UserID)
	c.JSON(http.StatusOK, group)
}

// ListGroups handles GET /groups/:user_id.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.Param("user_id")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Leaderboard handles GET /leaderboard/:group_id: members with their
// streaks, active before broken, plus the group's tracked sites.
func (h *GroupHandler) Leaderboard(c *gin.Context) {
	groupID := c.Param("group_id")

	members, err := h.streakRepo.Leaderboard(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}

	trackedSites, err := h.groupRepo.TrackedSites(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tracked sites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members, "sites": trackedSites})
}

// ResetStreak handles POST /reset-streak: starts a fresh clean interval
// for the member.
func (h *GroupHandler) ResetStreak(c *gin.Context) {
	var req struct {
		UserID  string `json:"userId" binding:"required"`
		GroupID string `json:"groupId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.streakRepo.Reset(c.Request.Context(), req.GroupID, req.UserID); err != nil {
		h.emitAudit(c, "ERROR", "internal error", req.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset streak"})
		return
	}

	h.emitAudit(c, "INFO", "Streak reset", req.UserID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text, userID string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDPtr(userID))
}
