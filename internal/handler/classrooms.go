package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/response"
	"github.com/spf13/cast"
)

func (h *Handlers) ListClassrooms(c *gin.Context) {
	ownerID := cast.ToUint(c.Query("owner_id"))
	classrooms, err := models.ListClassrooms(h.db, ownerID)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "ok", classrooms)
}

func (h *Handlers) ListClassroomGrades(c *gin.Context) {
	id := cast.ToUint(c.Param("id"))
	if id == 0 {
		response.Fail(c, "Invalid classroom id", nil)
		return
	}
	grades, err := models.ListClassroomGrades(h.db, id)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "ok", grades)
}
