package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/heartline-cc/HeartLine/internal/directory"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/response"
	"github.com/spf13/cast"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateCounselorRequest registers a human specialist on the roster.
type CreateCounselorRequest struct {
	Phone  string `json:"phone" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Status string `json:"status,omitempty"` // defaults to offline
}

// UpdateCounselorStatusRequest toggles availability.
type UpdateCounselorStatusRequest struct {
	Status string `json:"status" binding:"required"` // available|busy|offline
}

func (h *Handlers) ListCounselors(c *gin.Context) {
	counselors, err := models.ListCounselors(h.db)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "ok", counselors)
}

func (h *Handlers) CreateCounselor(c *gin.Context) {
	var req CreateCounselorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "Invalid request: "+err.Error(), nil)
		return
	}

	status := models.CounselorStatus(req.Status)
	switch status {
	case models.CounselorAvailable, models.CounselorBusy, models.CounselorOffline:
	case "":
		status = models.CounselorOffline
	default:
		response.Fail(c, "Invalid status: "+req.Status, nil)
		return
	}

	// Upsert by phone: an existing caller (someone who phoned in before
	// being registered) is promoted to counselor.
	counselor := &models.Caller{
		Phone:  req.Phone,
		Name:   req.Name,
		Role:   models.CallerRoleCounselor,
		Status: status,
	}
	err := h.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "role", "status",
		}),
	}).Create(counselor).Error
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}

	saved, err := models.GetCallerByPhone(h.db, req.Phone)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "Counselor registered", saved)
}

func (h *Handlers) UpdateCounselorStatus(c *gin.Context) {
	id := cast.ToUint(c.Param("id"))
	if id == 0 {
		response.Fail(c, "Invalid counselor id", nil)
		return
	}

	var req UpdateCounselorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "Invalid request: "+err.Error(), nil)
		return
	}

	status := models.CounselorStatus(req.Status)
	switch status {
	case models.CounselorAvailable, models.CounselorBusy, models.CounselorOffline:
	default:
		response.Fail(c, "Invalid status: "+req.Status, nil)
		return
	}

	if err := directory.SetStatus(h.db, id, status); err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Fail(c, "Counselor not found", nil)
			return
		}
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "Status updated", gin.H{"id": id, "status": status})
}
