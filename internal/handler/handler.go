// Package handler exposes the attendance service over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"schoolattendance/internal/account"
	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/cloudinary"
	"schoolattendance/internal/notify"
	"schoolattendance/internal/recap"
	"schoolattendance/internal/state"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) bool

// Deps are the collaborators the handlers call into.
type Deps struct {
	State      *state.State
	Accounts   *account.Service
	Attendance *attendance.Service
	Gateway    *notify.Gateway
	Summarizer recap.Generator
	Cloud      *cloudinary.Client
	Signer     *auth.Signer
	Location   *time.Location
	Log        *logrus.Entry
	Checks     map[string]Check
}

type Handler struct {
	Deps
	now func() time.Time
}

func New(d Deps) *Handler {
	if d.Location == nil {
		d.Location = time.Local
	}
	d.Log = d.Log.WithField("component", "http")
	return &Handler{Deps: d, now: time.Now}
}

func (h *Handler) clock() time.Time {
	return h.now().In(h.Location)
}

// Healthz reports every configured dependency check.
func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// respond writes body on success. A persistence failure still succeeds
// because the in-memory change is kept; the client gets a Warning header.
func (h *Handler) respond(c *gin.Context, status int, body any, err error) {
	if err != nil {
		if !errors.Is(err, state.ErrPersistenceUnavailable) {
			h.fail(c, err)
			return
		}
		h.Log.WithError(err).Warn("change kept in memory only")
		c.Header("Warning", `199 - "change not persisted"`)
	}
	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, state.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, state.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) userID(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.UserID()
}
