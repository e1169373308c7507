package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lockedin-service/internal/repositories"
	"lockedin-service/internal/telemetry"
)

// AuthHandler manages registration and username login. There are no
// passwords or tokens in this scope.
type AuthHandler struct {
	userRepo repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, audit: audit}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username too short"})
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), username)
	if errors.Is(err, repositories.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
		return
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", "")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
		return
	}

	h.emitAudit(c, "INFO", "User registered", user.ID)
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

// Login handles POST /login: a bare username lookup.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", "")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log in"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) emitAudit(c *gin.Context, level, text, userID string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDPtr(userID))
}
