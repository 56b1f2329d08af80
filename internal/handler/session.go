package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/account"
	"schoolattendance/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.Accounts.Login(req.Username, req.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	tokens, err := h.Signer.Issue(u.ID, u.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Log.WithField("user_id", u.ID).Info("login")
	c.JSON(http.StatusOK, gin.H{"user": u.Public(), "tokens": tokens})
}

// Refresh trades a refresh token for a new pair. The account must still exist.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := h.Signer.Parse(req.RefreshToken, auth.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	u, ok := h.State.User(claims.UserID())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
		return
	}
	tokens, err := h.Signer.Issue(u.ID, u.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (h *Handler) Me(c *gin.Context) {
	u, ok := h.State.User(h.userID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u.Public())
}
