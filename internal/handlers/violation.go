package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lockedin-service/internal/models"
	"lockedin-service/internal/observability"
	"lockedin-service/internal/repositories"
	"lockedin-service/internal/sites"
	"lockedin-service/internal/telemetry"
)

// Notifier delivers violation events to group subscribers.
type Notifier interface {
	BroadcastViolation(groupID string, event models.ViolationEvent)
}

// ViolationHandler is the detection endpoint invoked by the browser
// extension on every reported page visit.
type ViolationHandler struct {
	userRepo      repositories.UserRepository
	groupRepo     repositories.GroupRepository
	violationRepo repositories.ViolationRepository
	notifier      Notifier
	audit         *telemetry.AuditEmitter
}

// NewViolationHandler constructs a ViolationHandler.
func NewViolationHandler(userRepo repositories.UserRepository, groupRepo repositories.GroupRepository, violationRepo repositories.ViolationRepository, notifier Notifier, audit *telemetry.AuditEmitter) *ViolationHandler {
	return &ViolationHandler{
		userRepo:      userRepo,
		groupRepo:     groupRepo,
		violationRepo: violationRepo,
		notifier:      notifier,
		audit:         audit,
	}
}

// ReportVisit handles POST /violation. Every group the user belongs to
// that tracks the visited domain gets its own violation row, streak break,
// and broadcast. Groups are processed independently: one group's failure
// does not stop the rest.
func (h *ViolationHandler) ReportVisit(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Domain string `json:"domain" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	domain := sites.Normalize(req.Domain)
	if domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid domain"})
		return
	}

	groups, err := h.groupRepo.MatchingGroups(c.Request.Context(), req.UserID, domain)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", req.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not match groups"})
		return
	}
	if len(groups) == 0 {
		c.JSON(http.StatusOK, gin.H{"busted": false, "groups": 0})
		return
	}

	user, err := h.userRepo.GetUser(c.Request.Context(), req.UserID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", req.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve user"})
		return
	}

	now := time.Now().UTC()
	recorded := 0
	for _, group := range groups {
		if _, err := h.violationRepo.RecordAndBreakStreak(c.Request.Context(), group.ID, req.UserID, domain, now); err != nil {
			log.Printf("violation record failed group=%s user=%s: %v", group.ID, req.UserID, err)
			h.emitAudit(c, "ERROR", "violation record failed", req.UserID)
			continue
		}
		recorded++
		observability.IncViolationDetected()

		h.notifier.BroadcastViolation(group.ID, models.ViolationEvent{
			Username:  user.Username,
			Domain:    domain,
			GroupName: group.Name,
			GroupID:   group.ID,
		})
	}

	if recorded > 0 {
		h.emitAudit(c, "INFO", "Violation recorded", req.UserID)
	}
	// busted reflects the match: even if every group's write failed the
	// visit was still to a tracked domain. groups counts what persisted.
	c.JSON(http.StatusOK, gin.H{"busted": true, "groups": recorded})
}

func (h *ViolationHandler) emitAudit(c *gin.Context, level, text, userID string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDPtr(userID))
}
