package callflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heartline-cc/HeartLine/internal/dictation"
	"github.com/heartline-cc/HeartLine/internal/directory"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/internal/respond"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/heartline-cc/HeartLine/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options configures document generation.
type Options struct {
	VoiceName        string
	Language         string
	ProcessURL       string // gather action, e.g. /voice/process
	EmergencyMessage string // spoken when no counselor is available
}

// Engine is the call state machine. It is stateless between events; the
// database rows are the state.
type Engine struct {
	db          *gorm.DB
	responder   *respond.Engine
	pipeline    *dictation.Pipeline
	callerCache *gocache.Cache
	opts        Options
}

// NewEngine wires the state machine. responder and pipeline own their own
// timeouts; the engine itself never blocks on anything but the database.
func NewEngine(db *gorm.DB, responder *respond.Engine, pipeline *dictation.Pipeline, opts Options) *Engine {
	if opts.ProcessURL == "" {
		opts.ProcessURL = "/voice/process"
	}
	return &Engine{
		db:          db,
		responder:   responder,
		pipeline:    pipeline,
		callerCache: gocache.New(5*time.Minute, 10*time.Minute),
		opts:        opts,
	}
}

// HandleEvent processes one webhook delivery and returns the voice-response
// document ("" only for pure status acknowledgments). It never returns an
// error: every failure degrades to a valid document so the gateway is never
// left hanging.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) string {
	if ev.CallSID == "" {
		logger.Warn("event without call sid dropped")
		return e.promptDocument(repromptLine)
	}

	if ev.Terminal() {
		metrics.WebhookEvents.WithLabelValues("status").Inc()
		e.handleTerminal(ev)
		return ""
	}

	caller, call, conv, err := e.ensureCallState(ev)
	if err != nil {
		logger.Error("ensure call state failed",
			zap.String("callSid", ev.CallSID), zap.Error(err))
		return e.promptDocument(troubleLine)
	}

	if call.Status == models.CallStatusCompleted {
		// Out-of-order delivery: an in-progress event after the terminal one.
		// The call is gone; say goodbye rather than resurrecting it.
		logger.Warn("event for completed call",
			zap.String("callSid", ev.CallSID))
		return e.goodbyeDocument(repromptLine)
	}

	if ev.Utterance == "" {
		if e.conversationStarted(conv.ID) {
			metrics.WebhookEvents.WithLabelValues("gather_empty").Inc()
			return e.promptDocument(repromptLine)
		}
		metrics.WebhookEvents.WithLabelValues("connect").Inc()
		return e.promptDocument(greetingLine)
	}

	metrics.WebhookEvents.WithLabelValues("speech").Inc()
	return e.handleUtterance(ctx, ev, caller, call, conv)
}

// handleTerminal completes the call and releases its counselor, exactly once
// no matter how many times the gateway retries the status callback.
func (e *Engine) handleTerminal(ev Event) {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		call, err := models.GetCallBySID(tx, ev.CallSID)
		if err != nil {
			return err
		}
		if call == nil || call.Status == models.CallStatusCompleted {
			return nil
		}
		transitioned, err := models.CompleteCall(tx, ev.CallSID)
		if err != nil {
			return err
		}
		if transitioned && call.CounselorID != nil {
			if err := directory.Release(tx, *call.CounselorID); err != nil {
				return err
			}
			logger.Info("counselor released",
				zap.String("callSid", ev.CallSID),
				zap.Uint("counselorId", *call.CounselorID))
		}
		return nil
	})
	if err != nil {
		logger.Error("terminal event handling failed",
			zap.String("callSid", ev.CallSID),
			zap.String("status", ev.Status),
			zap.Error(err))
	}
}

// ensureCallState upserts caller, call and conversation. Each step is
// individually idempotent, so duplicate connect events and deliveries that
// skipped the connect event both land on the same rows.
// Known callers are served from a short TTL cache so repeat turns of the
// same call skip the upsert read.
func (e *Engine) ensureCallState(ev Event) (*models.Caller, *models.Call, *models.Conversation, error) {
	var caller *models.Caller
	if cached, found := e.callerCache.Get(ev.From); found {
		caller = cached.(*models.Caller)
	} else {
		var err error
		caller, err = models.UpsertCallerByPhone(e.db, ev.From)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("upsert caller: %w", err)
		}
		e.callerCache.Set(ev.From, caller, gocache.DefaultExpiration)
	}
	call, err := models.EnsureCall(e.db, ev.CallSID, caller.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ensure call: %w", err)
	}
	conv, err := models.EnsureConversation(e.db, call.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ensure conversation: %w", err)
	}
	return caller, call, conv, nil
}

func (e *Engine) conversationStarted(conversationID uint) bool {
	var count int64
	if err := e.db.Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// handleUtterance is the speech turn: persist the transcript, then route to
// dictation or conversation, then build the response document.
func (e *Engine) handleUtterance(ctx context.Context, ev Event, caller *models.Caller, call *models.Call, conv *models.Conversation) string {
	inserted, err := models.AppendMessageDedup(e.db, conv.ID, models.MessageRoleUser, ev.Utterance)
	if err != nil {
		logger.Error("persist user message failed",
			zap.String("callSid", ev.CallSID), zap.Error(err))
		return e.promptDocument(troubleLine)
	}
	if !inserted {
		logger.Info("duplicate utterance absorbed",
			zap.String("callSid", ev.CallSID))
		// A retried delivery must not apply its side effects again (no
		// second grade commit, no second escalation). When a reply was
		// already persisted for the absorbed turn, re-speak it; otherwise
		// nothing happened yet and the turn is handled fresh below.
		last, err := models.GetLatestMessage(e.db, conv.ID, models.MessageRoleAssistant)
		if err == nil && last != nil {
			return e.promptDocument(sanitizeSpeech(last.Content))
		}
	}

	if caller.Role == models.CallerRoleTeacher {
		if doc, handled := e.handleDictation(ctx, ev, caller, conv); handled {
			return doc
		}
	}

	return e.handleConversation(ctx, ev, call, conv)
}

// handleDictation runs the extraction pipeline; handled is true only when at
// least one entry was accepted, otherwise the turn falls through to the
// conversational engine.
func (e *Engine) handleDictation(ctx context.Context, ev Event, teacher *models.Caller, conv *models.Conversation) (string, bool) {
	result := e.pipeline.Extract(ctx, ev.Utterance)
	if len(result.Entries) == 0 {
		return "", false
	}

	saved, err := e.pipeline.Commit(e.db, teacher.ID, result)
	if err != nil {
		logger.Error("grade commit failed",
			zap.String("callSid", ev.CallSID), zap.Error(err))
		return e.promptDocument(troubleLine), true
	}
	if saved == 0 {
		return "", false
	}

	confirmation := dictation.Confirmation(saved, result)
	if err := models.AppendMessage(e.db, conv.ID, models.MessageRoleAssistant, confirmation); err != nil {
		logger.Error("persist confirmation failed",
			zap.String("callSid", ev.CallSID), zap.Error(err))
	}
	logger.Info("grades saved",
		zap.String("callSid", ev.CallSID),
		zap.Int("saved", saved),
		zap.String("classroom", result.Classroom))
	return e.promptDocument(confirmation), true
}

// handleConversation runs the response engine and, when it flags escalation,
// tries to hand the call to a counselor.
func (e *Engine) handleConversation(ctx context.Context, ev Event, call *models.Call, conv *models.Conversation) string {
	result := e.responder.Generate(ctx, e.db, conv.ID, ev.Utterance)

	if result.Escalate && call.Status == models.CallStatusAIHandling {
		if counselor := e.escalate(ev, call, conv, result.Reason); counselor != nil {
			metrics.Escalations.WithLabelValues("assigned").Inc()
			return e.transferDocument(counselor.Phone)
		}
		metrics.Escalations.WithLabelValues("no_counselor").Inc()
		return e.promptDocument(e.opts.EmergencyMessage)
	}

	reply := sanitizeSpeech(result.Reply)
	if reply == "" {
		reply = respond.ReplyDefault
	}
	return e.promptDocument(reply)
}

var errNoCounselor = errors.New("no counselor available")

// escalate atomically reserves a counselor, flips the call and records the
// escalation. When the reservation loses a race the lookup is re-run once;
// a second loss means nobody is available right now.
func (e *Engine) escalate(ev Event, call *models.Call, conv *models.Conversation, reason respond.EscalationReason) *models.Caller {
	summary := e.buildSummary(conv.ID)

	for attempt := 0; attempt < 2; attempt++ {
		var assigned *models.Caller
		err := e.db.Transaction(func(tx *gorm.DB) error {
			counselor, err := directory.FindAvailable(tx)
			if err != nil {
				return err
			}
			if counselor == nil {
				return errNoCounselor
			}
			if err := directory.Reserve(tx, counselor.ID); err != nil {
				return err
			}
			ok, err := models.AssignCounselor(tx, call.ID, counselor.ID)
			if err != nil {
				return err
			}
			if !ok {
				// A concurrent delivery already escalated this call; undo
				// the reservation and let that assignment stand.
				return directory.Release(tx, counselor.ID)
			}
			if err := models.CreateEscalation(tx, call.ID, counselor.ID, string(reason), summary); err != nil {
				return err
			}
			assigned = counselor
			return nil
		})
		switch {
		case err == nil && assigned != nil:
			logger.Info("call escalated",
				zap.String("callSid", ev.CallSID),
				zap.String("reason", string(reason)),
				zap.Uint("counselorId", assigned.ID))
			return assigned
		case err == nil:
			// Call already assigned elsewhere; no transfer from this turn.
			return nil
		case errors.Is(err, directory.ErrNotReserved):
			continue // lost the race, look again
		case errors.Is(err, errNoCounselor):
			return nil
		default:
			logger.Error("escalation failed",
				zap.String("callSid", ev.CallSID), zap.Error(err))
			return nil
		}
	}
	return nil
}

// buildSummary is the handoff note: message count plus a short excerpt of
// the latest user content.
func (e *Engine) buildSummary(conversationID uint) string {
	msgs, err := models.GetConversationMessages(e.db, conversationID)
	if err != nil || len(msgs) == 0 {
		return "no transcript available"
	}
	excerpt := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.MessageRoleUser {
			excerpt = msgs[i].Content
			break
		}
	}
	// Truncate on a rune boundary; transcripts are not ASCII-only.
	if r := []rune(excerpt); len(r) > 160 {
		excerpt = string(r[:160]) + "..."
	}
	return fmt.Sprintf("%d message(s); last from caller: %q", len(msgs), excerpt)
}
