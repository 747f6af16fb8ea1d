package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const sessionAuthKey = "authenticated"

// CodeVerifier checks a caller-supplied access code.
type CodeVerifier interface {
	Verify(ctx context.Context, code string) bool
}

// AuthHandler exchanges the shared access code for a session cookie.
type AuthHandler struct {
	verifier CodeVerifier
	logger   *zap.Logger
}

// NewAuthHandler constructs the authentication handler.
func NewAuthHandler(verifier CodeVerifier, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{verifier: verifier, logger: logger}
}

type verifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// Verify checks the submitted code and marks the session authenticated.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]gin.H, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, gin.H{"field": "code", "message": fe.Tag()})
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "code is required", "details": details})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session := sessions.Default(c)
	if !h.verifier.Verify(c.Request.Context(), req.Code) {
		h.logger.Warn("access code rejected", zap.String("client_ip", c.ClientIP()))
		session.Clear()
		_ = session.Save()
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid access code"})
		return
	}

	session.Set(sessionAuthKey, true)
	if err := session.Save(); err != nil {
		h.logger.Error("failed saving session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to start session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Status reports whether the caller holds an authenticated session.
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": isAuthenticated(sessions.Default(c))})
}

// Logout clears the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.logger.Error("failed clearing session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to end session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequireAuth aborts with 401 unless the session is authenticated.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAuthenticated(sessions.Default(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func isAuthenticated(session sessions.Session) bool {
	ok, _ := session.Get(sessionAuthKey).(bool)
	return ok
}
