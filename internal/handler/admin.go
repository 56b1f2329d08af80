package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"schoolattendance/internal/account"
	"schoolattendance/internal/messaging"
	"schoolattendance/internal/model"
	"schoolattendance/internal/recap"
	"schoolattendance/internal/state"
)

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students := h.Accounts.ListStudents(c.Query("q"), account.SortKey(c.DefaultQuery("sort", "name")), c.Query("order") == "desc")
	out := make([]model.User, len(students))
	for i, u := range students {
		out[i] = u.Public()
	}
	c.JSON(http.StatusOK, out)
}

type studentRequest struct {
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password"`
	Name          string `json:"name" binding:"required"`
	ClassName     string `json:"className"`
	ParentContact string `json:"parentContact"`
}

func (r studentRequest) input() account.Input {
	return account.Input{
		Username:      r.Username,
		Password:      r.Password,
		Name:          r.Name,
		ClassName:     r.ClassName,
		ParentContact: r.ParentContact,
	}
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.Accounts.Create(c.Request.Context(), req.input())
	h.respond(c, http.StatusCreated, u.Public(), err)
}

// UpdateStudent keeps the current password when none is given.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.Accounts.Update(c.Request.Context(), c.Param("id"), req.input())
	h.respond(c, http.StatusOK, u.Public(), err)
}

// DeleteStudent cascades to the student's records and queued messages.
func (h *Handler) DeleteStudent(c *gin.Context) {
	id := c.Param("id")
	if id == h.userID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}
	deleted, err := h.Accounts.Delete(c.Request.Context(), id)
	if !deleted && err == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err == nil || errors.Is(err, state.ErrPersistenceUnavailable) {
		h.Log.WithField("user_id", id).Info("account deleted")
	}
	h.respond(c, http.StatusNoContent, nil, err)
}

// ---------- Attendance & recap ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	records := h.State.Records()
	if id := c.Query("studentId"); id != "" {
		records = slices.DeleteFunc(records, func(r model.AttendanceRecord) bool { return r.StudentID != id })
	}
	if st := c.Query("status"); st != "" {
		records = slices.DeleteFunc(records, func(r model.AttendanceRecord) bool { return string(r.Status) != st })
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) period(c *gin.Context) (recap.Period, bool) {
	p, err := recap.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

func (h *Handler) Recap(c *gin.Context) {
	p, ok := h.period(c)
	if !ok {
		return
	}
	now := h.clock()
	c.JSON(http.StatusOK, gin.H{
		"period":      p,
		"windowStart": recap.WindowStart(p, now).UnixMilli(),
		"generatedAt": now.UnixMilli(),
		"rows":        recap.Aggregate(h.State.Records(), h.State.Students(), p, now),
	})
}

func (h *Handler) ExportRecap(c *gin.Context) {
	p, ok := h.period(c)
	if !ok {
		return
	}
	now := h.clock()
	rows := recap.Aggregate(h.State.Records(), h.State.Students(), p, now)
	c.Header("Content-Disposition", `attachment; filename="`+recap.FileName(p, now)+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := recap.WriteCSV(c.Writer, rows); err != nil {
		h.Log.WithError(err).Warn("recap export interrupted")
	}
}

// RecapSummary asks for a narrative over the whole history. Generation
// failures return the fixed fallback text with generated=false.
func (h *Handler) RecapSummary(c *gin.Context) {
	text, generated := recap.Summarize(c.Request.Context(), h.Summarizer, h.State.Records(), h.State.Students())
	c.JSON(http.StatusOK, gin.H{"summary": text, "generated": generated})
}

// ---------- Message queue ----------

func (h *Handler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, h.State.Queue())
}

// SendMessage dispatches and removes a queued item. An id that is no longer
// queued answers sent=false.
func (h *Handler) SendMessage(c *gin.Context) {
	link, sent, err := h.Gateway.Send(c.Request.Context(), c.Param("id"))
	switch {
	case sent:
		h.respond(c, http.StatusOK, gin.H{"link": link, "sent": true}, err)
	case errors.Is(err, messaging.ErrNoContact):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case err != nil:
		h.Log.WithError(err).WithField("item_id", c.Param("id")).Warn("message dispatch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "message dispatch failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"sent": false})
	}
}

// DiscardMessage removes a queued item. Unknown ids are a no-op.
func (h *Handler) DiscardMessage(c *gin.Context) {
	_, err := h.Gateway.Discard(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusNoContent, nil, err)
}

// ---------- School config ----------

func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.State.Config())
}

func (h *Handler) PutConfig(c *gin.Context) {
	var cfg model.SchoolConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.State.SetConfig(c.Request.Context(), cfg)
	if err != nil && !errors.Is(err, state.ErrPersistenceUnavailable) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Log.WithFields(logrus.Fields{"entrance": cfg.EntranceTime, "radius": cfg.RadiusLimit}).Info("school config updated")
	h.respond(c, http.StatusOK, cfg, err)
}
