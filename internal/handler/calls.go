package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/response"
	"github.com/spf13/cast"
)

func (h *Handlers) ListCalls(c *gin.Context) {
	limit := cast.ToInt(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	calls, err := models.ListCalls(h.db, limit)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "ok", calls)
}

func (h *Handlers) GetCallMessages(c *gin.Context) {
	sid := c.Param("sid")
	call, err := models.GetCallBySID(h.db, sid)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	if call == nil {
		response.Fail(c, "Call not found", nil)
		return
	}

	conversation, err := models.EnsureConversation(h.db, call.ID)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	messages, err := models.GetConversationMessages(h.db, conversation.ID)
	if err != nil {
		response.Fail(c, "Database error: "+err.Error(), nil)
		return
	}
	response.Success(c, "ok", gin.H{
		"call":     call,
		"messages": messages,
	})
}
