package handler

import (
	"net/http"

	"pats-cloud/internal/auth"
	"pats-cloud/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	sessions *auth.Manager
}

func NewAuthHandler(sessions *auth.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	// An empty body is fine when no password is configured.
	_ = c.ShouldBindJSON(&req)

	token, err := h.sessions.Login(req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(h.sessions.TTL().Seconds()), "/", "", false, true)

	if !h.sessions.PasswordRequired() {
		c.JSON(http.StatusOK, gin.H{"ok": true, "warning": "No APP_PASSWORD set. Please configure .env"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(auth.CookieName); err == nil {
		h.sessions.Logout(token)
	}
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
