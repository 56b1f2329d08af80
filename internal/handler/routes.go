package handler

import (
	"github.com/gin-gonic/gin"

	"schoolattendance/internal/auth"
	"schoolattendance/internal/model"
)

// Register mounts all routes on r. mw runs on every authenticated route
// after the token check.
func (h *Handler) Register(r gin.IRouter, mw ...gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	authed := r.Group("/v1", append([]gin.HandlerFunc{auth.RequireAuth(h.Signer)}, mw...)...)
	authed.GET("/me", h.Me)
	authed.GET("/school/distance", h.Distance)

	student := authed.Group("", auth.RequireRole(model.RoleStudent))
	student.POST("/attendance", h.SubmitAttendance)
	student.GET("/attendance/me", h.MyAttendance)
	student.POST("/proofs", h.UploadProof)

	admin := authed.Group("/admin", auth.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.ListStudents)
	admin.POST("/users", h.CreateStudent)
	admin.PUT("/users/:id", h.UpdateStudent)
	admin.DELETE("/users/:id", h.DeleteStudent)
	admin.GET("/attendance", h.ListAttendance)
	admin.GET("/recap", h.Recap)
	admin.GET("/recap/export", h.ExportRecap)
	admin.POST("/recap/summary", h.RecapSummary)
	admin.GET("/messages", h.ListMessages)
	admin.POST("/messages/:id/send", h.SendMessage)
	admin.DELETE("/messages/:id", h.DiscardMessage)
	admin.GET("/config", h.GetConfig)
	admin.PUT("/config", h.PutConfig)
}
