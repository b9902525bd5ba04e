package respond

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

type stubCompleter struct {
	reply string
	err   error
	seen  []llm.Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.seen = messages
	return s.reply, s.err
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	silentLogger := glog.New(
		log.New(io.Discard, "", log.LstdFlags),
		glog.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  glog.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: silentLogger})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Conversation{}, &models.Message{}))
	return db
}

func messageCount(t *testing.T, db *gorm.DB, conversationID uint, role models.MessageRole) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Message{}).
		Where("conversation_id = ? AND role = ?", conversationID, role).
		Count(&count).Error)
	return count
}

func TestGenerateSuccess(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, models.AppendMessage(db, 1, models.MessageRoleUser, "I had a rough day"))

	stub := &stubCompleter{reply: "  That sounds hard. Want to tell me more?  "}
	e := NewEngine(stub, 0)

	res := e.Generate(context.Background(), db, 1, "I had a rough day")
	assert.Equal(t, "That sounds hard. Want to tell me more?", res.Reply)
	assert.False(t, res.Escalate)

	// System prompt first, then the transcript
	require.NotEmpty(t, stub.seen)
	assert.Equal(t, llm.RoleSystem, stub.seen[0].Role)
	assert.Equal(t, int64(1), messageCount(t, db, 1, models.MessageRoleAssistant))
}

func TestGenerateTimeout(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, models.AppendMessage(db, 1, models.MessageRoleUser, "hello"))

	e := NewEngine(&stubCompleter{err: context.DeadlineExceeded}, 0)

	res := e.Generate(context.Background(), db, 1, "hello")
	assert.Equal(t, ReplyStillThinking, res.Reply)
	// Nothing persisted on timeout; a retried delivery replays the turn
	assert.Zero(t, messageCount(t, db, 1, models.MessageRoleAssistant))
}

// slowCompleter blocks until the per-call context expires.
type slowCompleter struct{}

func (slowCompleter) Complete(ctx context.Context, _ []llm.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerateConfiguredTimeout(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, models.AppendMessage(db, 1, models.MessageRoleUser, "hello"))

	e := NewEngine(slowCompleter{}, 10*time.Millisecond)

	start := time.Now()
	res := e.Generate(context.Background(), db, 1, "hello")
	assert.Equal(t, ReplyStillThinking, res.Reply)
	// The configured timeout, not the 10s default, bounds the call
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, messageCount(t, db, 1, models.MessageRoleAssistant))
}

func TestGenerateCompletionError(t *testing.T) {
	db := setupTestDB(t)

	e := NewEngine(&stubCompleter{err: errors.New("upstream 500")}, 0)

	res := e.Generate(context.Background(), db, 1, "hello")
	assert.Equal(t, ReplyApology, res.Reply)
	assert.Zero(t, messageCount(t, db, 1, models.MessageRoleAssistant))
}

func TestGenerateEmptyReply(t *testing.T) {
	db := setupTestDB(t)

	e := NewEngine(&stubCompleter{reply: "   "}, 0)

	res := e.Generate(context.Background(), db, 1, "hello")
	assert.Equal(t, ReplyDefault, res.Reply)
}

func TestGenerateEscalationIndependentOfModel(t *testing.T) {
	db := setupTestDB(t)

	// Even a failing model must not swallow the escalation decision
	e := NewEngine(&stubCompleter{err: errors.New("upstream down")}, 0)

	res := e.Generate(context.Background(), db, 1, "I want to talk to a counselor")
	assert.True(t, res.Escalate)
	assert.Equal(t, ReasonRequestedProfessional, res.Reason)
	assert.Equal(t, ReplyApology, res.Reply)
}

func TestDetectEscalation(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		reason    EscalationReason
		escalate  bool
	}{
		{"plain conversation", "school was fine today", ReasonNone, false},
		{"crisis", "sometimes I think about suicide", ReasonCrisis, true},
		{"crisis uppercase", "I WANT TO DIE", ReasonCrisis, true},
		{"crisis chinese", "我最近不想活了", ReasonCrisis, true},
		{"professional request", "can I talk to a counselor please", ReasonRequestedProfessional, true},
		{"professional spanish", "quiero hablar con un consejero", ReasonRequestedProfessional, true},
		{"crisis outranks professional", "I want to talk to a counselor because I want to die", ReasonCrisis, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, escalate := DetectEscalation(tt.utterance)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.escalate, escalate)
		})
	}
}
