// Package respond wraps the completion service for open conversation turns
// and decides, independently of the model, whether the caller needs a human.
package respond

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/llm"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/heartline-cc/HeartLine/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EscalationReason explains why a call should be handed to a counselor.
type EscalationReason string

const (
	ReasonNone                  EscalationReason = ""
	ReasonCrisis                EscalationReason = "crisis"
	ReasonRequestedProfessional EscalationReason = "requested_professional"
)

// Fixed fallback replies. The call must always hear something.
const (
	ReplyStillThinking = "I'm still thinking about that, it's taking me a little longer than usual. Could you say that again, or tell me more?"
	ReplyApology       = "I'm sorry, I'm having a little trouble right now. Please go on, I'm listening."
	ReplyDefault       = "I'm here with you. Please tell me more."
)

// defaultCompletionTimeout bounds every completion call when no timeout is
// configured; past it the request is abandoned, not canceled server-side.
const defaultCompletionTimeout = 10 * time.Second

const systemPrompt = `You are a warm, patient phone companion on a student support line.
Keep replies short (max two sentences), spoken-language simple, and never give medical advice.
If the caller seems to be in danger, gently encourage them to stay on the line.`

// Completer is the completion capability; pkg/llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Result carries one conversation turn's outcome.
type Result struct {
	Reply    string
	Escalate bool
	Reason   EscalationReason
}

// Engine generates conversational replies.
type Engine struct {
	completer Completer
	timeout   time.Duration
}

func NewEngine(completer Completer, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	return &Engine{completer: completer, timeout: timeout}
}

// Generate answers one user turn. The message history is loaded from the
// conversation, the system prompt prefixed, and the completion bounded by a
// hard timeout. On timeout or failure a fixed reply is returned and nothing
// is persisted; on success the assistant reply is appended to the
// conversation. The escalation decision never depends on the model output.
func (e *Engine) Generate(ctx context.Context, db *gorm.DB, conversationID uint, utterance string) Result {
	reason, escalate := DetectEscalation(utterance)
	result := Result{Escalate: escalate, Reason: reason}

	history, err := models.GetConversationMessages(db, conversationID)
	if err != nil {
		logger.Error("load conversation history failed",
			zap.Uint("conversationId", conversationID), zap.Error(err))
		result.Reply = ReplyApology
		return result
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == models.MessageRoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.completer.Complete(cctx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			metrics.CompletionTimeouts.Inc()
			logger.Warn("completion timed out", zap.Uint("conversationId", conversationID))
			result.Reply = ReplyStillThinking
			return result
		}
		logger.Error("completion failed",
			zap.Uint("conversationId", conversationID), zap.Error(err))
		result.Reply = ReplyApology
		return result
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = ReplyDefault
	}
	if err := models.AppendMessage(db, conversationID, models.MessageRoleAssistant, reply); err != nil {
		logger.Error("persist assistant reply failed",
			zap.Uint("conversationId", conversationID), zap.Error(err))
	}
	result.Reply = reply
	return result
}

// Crisis terms outrank professional-request terms when both appear. Matching
// is case-insensitive substring over the raw utterance, multilingual.
var crisisTerms = []string{
	"suicide", "kill myself", "end my life", "want to die", "hurt myself",
	"self harm", "self-harm", "no reason to live",
	"自杀", "不想活", "想死", "伤害自己",
	"suicidio", "matarme", "quiero morir",
}

var professionalTerms = []string{
	"talk to a counselor", "speak to a counselor", "talk to a professional",
	"real person", "human being", "talk to someone real", "speak to a human",
	"想找心理老师", "找心理医生", "真人",
	"hablar con un consejero", "una persona real",
}

// DetectEscalation classifies the raw utterance.
func DetectEscalation(utterance string) (EscalationReason, bool) {
	lowered := strings.ToLower(utterance)
	for _, term := range crisisTerms {
		if strings.Contains(lowered, term) {
			return ReasonCrisis, true
		}
	}
	for _, term := range professionalTerms {
		if strings.Contains(lowered, term) {
			return ReasonRequestedProfessional, true
		}
	}
	return ReasonNone, false
}
