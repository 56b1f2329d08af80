package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/cloudinary"
	"schoolattendance/internal/geo"
	"schoolattendance/internal/model"
	"schoolattendance/internal/recap"
)

// Distance measures a position sample against the school geofence.
func (h *Handler) Distance(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}
	cfg := h.State.Config()
	d := geo.DistanceMeters(lat, lng, cfg.Coordinates.Lat, cfg.Coordinates.Lng)
	c.JSON(http.StatusOK, gin.H{
		"distance":     d,
		"formatted":    geo.FormatDistance(d),
		"withinRadius": geo.WithinRadius(d, cfg.RadiusLimit),
		"radiusLimit":  cfg.RadiusLimit,
	})
}

type submitRequest struct {
	Status   model.Status       `json:"status" binding:"required"`
	Location *model.Coordinates `json:"location"`
	Note     string             `json:"note"`
	ProofURL string             `json:"proofUrl"`
}

func (h *Handler) SubmitAttendance(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.Attendance.Submit(c.Request.Context(), attendance.Request{
		StudentID: h.userID(c),
		Status:    req.Status,
		Position:  req.Location,
		Note:      req.Note,
		ProofURL:  req.ProofURL,
	})
	var re *attendance.ResolveError
	if errors.As(err, &re) {
		body := gin.H{"error": re.Error(), "kind": re.Kind}
		if re.Distance != nil {
			body["distance"] = *re.Distance
		}
		if re.Radius > 0 {
			body["radiusLimit"] = re.Radius
		}
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// MyAttendance is the student dashboard: own history and counters.
func (h *Handler) MyAttendance(c *gin.Context) {
	c.JSON(http.StatusOK, recap.ForStudent(h.State.Records(), h.userID(c), h.clock()))
}

// UploadProof stores a sick/permission proof image and returns its URL. It
// accepts a multipart "file" field or JSON {"data": "<data URL>"}.
func (h *Handler) UploadProof(c *gin.Context) {
	if !h.Cloud.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	ctx := c.Request.Context()

	var (
		result *cloudinary.UploadResult
		err    error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		result, err = h.Cloud.UploadFile(ctx, file, header.Filename)
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `provide {"data": "<base64 data URL>"}`})
			return
		}
		result, err = h.Cloud.UploadDataURL(ctx, body.Data)
	}
	if err != nil {
		h.Log.WithError(err).WithField("student_id", h.userID(c)).Warn("proof upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "publicId": result.PublicID})
}
