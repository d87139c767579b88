package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/service"
	"github.com/gin-gonic/gin"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// SignUp handles email/password registration
func (h *AuthHandlers) SignUp(c *gin.Context) {
	var req core.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.authService.SignUp(c.Request.Context(), req)
	if err != nil {
		if validationFailed(c, err) {
			return
		}
		switch {
		case errors.Is(err, core.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "User already registered"})
		default:
			backendFailed(c, err, "Failed to sign up")
		}
		return
	}

	body := gin.H{
		"user":                  res.User,
		"confirmation_required": res.Session == nil,
	}
	if res.Session != nil {
		body["session"] = sessionBody(res.Session)
	}
	c.JSON(http.StatusCreated, body)
}

// Login handles the email/password login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req core.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.authService.SignIn(c.Request.Context(), req)
	if err != nil {
		if validationFailed(c, err) {
			return
		}
		switch {
		case errors.Is(err, core.ErrInvalidCredential):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login credentials"})
		case errors.Is(err, core.ErrEmailNotConfirmed):
			c.JSON(http.StatusForbidden, gin.H{"error": "Email not confirmed"})
		default:
			backendFailed(c, err, "Authentication failed")
		}
		return
	}

	c.JSON(http.StatusOK, sessionBody(session))
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		var backendErr *core.BackendError
		if errors.As(err, &backendErr) && backendErr.Status < http.StatusInternalServerError {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		backendFailed(c, err, "Failed to refresh tokens")
		return
	}

	c.JSON(http.StatusOK, sessionBody(session))
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}

	err := h.authService.SignOut(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired), errors.Is(err, core.ErrTokenInvalidated):
			// Nothing left to end
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
		case errors.Is(err, core.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		default:
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	// Session is set by the auth middleware
	session, ok := currentSession(c)
	if !ok || session.User == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             session.User.ID,
		"email":          session.User.Email,
		"full_name":      session.User.FullName,
		"wallet_address": session.User.WalletAddress(),
		"session_id":     session.ID,
		"expires_at":     session.ExpiresAt,
	})
}

// LeadHandlers contains HTTP handlers for the contact form and its admin views
type LeadHandlers struct {
	leadService *service.LeadService
}

// NewLeadHandlers creates new lead handlers
func NewLeadHandlers(leadService *service.LeadService) *LeadHandlers {
	return &LeadHandlers{leadService: leadService}
}

// Submit stores a contact form submission
func (h *LeadHandlers) Submit(c *gin.Context) {
	var in core.LeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	lead, err := h.leadService.Submit(c.Request.Context(), in)
	if err != nil {
		if validationFailed(c, err) {
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit the form"})
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// List returns every lead, newest first
func (h *LeadHandlers) List(c *gin.Context) {
	leads, err := h.leadService.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list leads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// Get returns one lead
func (h *LeadHandlers) Get(c *gin.Context) {
	lead, err := h.leadService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		leadFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// MarkRead flags a lead as read
func (h *LeadHandlers) MarkRead(c *gin.Context) {
	if err := h.leadService.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		leadFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// Delete removes a lead
func (h *LeadHandlers) Delete(c *gin.Context) {
	if err := h.leadService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		leadFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats returns the read/unread counters
func (h *LeadHandlers) Stats(c *gin.Context) {
	stats, err := h.leadService.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Health reports that the process is serving
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func sessionBody(session *core.Session) gin.H {
	return gin.H{
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"token_type":    "bearer",
		"expires_in":    int(time.Until(session.ExpiresAt).Seconds()),
		"expires_at":    session.ExpiresAt.Unix(),
		"user":          session.User,
	}
}

func validationFailed(c *gin.Context, err error) bool {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": verr.Fields})
	case errors.Is(err, core.ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
	default:
		return false
	}
	return true
}

func backendFailed(c *gin.Context, err error, msg string) {
	c.Error(err)
	c.JSON(http.StatusBadGateway, gin.H{"error": msg})
}

func leadFailed(c *gin.Context, err error) {
	if errors.Is(err, core.ErrLeadNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}
	c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Lead operation failed"})
}
