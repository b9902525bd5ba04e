package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heartline-cc/HeartLine/internal/callflow"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"go.uber.org/zap"
)

// VoiceWebhook is the single telephony entry point: call connect, speech
// turns and status callbacks all land here as form-encoded POSTs. The
// response is always HTTP 200 with a voice-response document, or an empty
// acknowledgment for pure status updates. The gateway cannot act on
// anything else.
func (h *Handlers) VoiceWebhook(c *gin.Context) {
	ev := callflow.Event{
		CallSID:   c.PostForm("CallSid"),
		From:      c.PostForm("From"),
		To:        c.PostForm("To"),
		Status:    strings.ToLower(c.PostForm("CallStatus")),
		Utterance: strings.TrimSpace(c.PostForm("SpeechResult")),
	}

	logger.Debug("voice event",
		zap.String("callSid", ev.CallSID),
		zap.String("status", ev.Status),
		zap.Bool("hasSpeech", ev.Utterance != ""))

	doc := h.engine.HandleEvent(c.Request.Context(), ev)
	if doc == "" {
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(doc))
}
