package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CallStatus is the lifecycle state of a telephony session
type CallStatus string

const (
	CallStatusAIHandling        CallStatus = "ai_handling"
	CallStatusCounselorAssigned CallStatus = "counselor_assigned"
	CallStatusCompleted         CallStatus = "completed"
)

// Call is one telephony session, keyed by the gateway's call identifier.
// Status only moves forward; a completed call never regresses.
type Call struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	// Column named explicitly: the default naming strategy would split the
	// SID initialism into call_s_id.
	CallSID string     `json:"callSid" gorm:"column:call_sid;size:128;uniqueIndex;not null"`
	Status  CallStatus `json:"status" gorm:"size:32;index"`

	CallerID uint   `json:"callerId" gorm:"index"`
	Caller   Caller `json:"caller,omitempty" gorm:"foreignKey:CallerID"`

	CounselorID *uint   `json:"counselorId,omitempty" gorm:"index"`
	Counselor   *Caller `json:"counselor,omitempty" gorm:"foreignKey:CounselorID"`

	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func (Call) TableName() string {
	return "calls"
}

// Conversation is the 1:1 message container for a call, created lazily.
type Conversation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	CallID uint `json:"callId" gorm:"uniqueIndex;not null"`
	Call   Call `json:"-" gorm:"foreignKey:CallID"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// MessageRole is the author of a conversation message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is append-only transcript content.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;index"`

	ConversationID uint         `json:"conversationId" gorm:"index;not null"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID"`

	Role    MessageRole `json:"role" gorm:"size:16;not null"`
	Content string      `json:"content" gorm:"type:text;not null"`
}

func (Message) TableName() string {
	return "messages"
}

// Escalation records a single handoff decision; immutable once written.
type Escalation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	CallID uint `json:"callId" gorm:"index;not null"`
	Call   Call `json:"-" gorm:"foreignKey:CallID"`

	CounselorID uint   `json:"counselorId" gorm:"index;not null"`
	Counselor   Caller `json:"counselor,omitempty" gorm:"foreignKey:CounselorID"`

	Reason  string `json:"reason" gorm:"size:64"`
	Summary string `json:"summary" gorm:"type:text"`
}

func (Escalation) TableName() string {
	return "escalations"
}

// EnsureCall creates the call row for a gateway call identifier if it does
// not exist yet, then returns it. Duplicate connect events are absorbed by
// the conflict clause.
func EnsureCall(db *gorm.DB, callSID string, callerID uint) (*Call, error) {
	call := &Call{
		CallSID:   callSID,
		Status:    CallStatusAIHandling,
		CallerID:  callerID,
		StartedAt: time.Now(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "call_sid"}},
		DoNothing: true,
	}).Create(call).Error
	if err != nil {
		return nil, err
	}
	return GetCallBySID(db, callSID)
}

// GetCallBySID loads a call by the gateway identifier, nil when unknown.
func GetCallBySID(db *gorm.DB, callSID string) (*Call, error) {
	var call Call
	err := db.Where("call_sid = ?", callSID).First(&call).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// CompleteCall marks a call completed and stamps the end time. The UPDATE is
// conditional on the current status so a second terminal delivery is a no-op;
// the return value reports whether this invocation performed the transition.
func CompleteCall(db *gorm.DB, callSID string) (bool, error) {
	res := db.Model(&Call{}).
		Where("call_sid = ? AND status <> ?", callSID, CallStatusCompleted).
		Updates(map[string]interface{}{
			"status":   CallStatusCompleted,
			"ended_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AssignCounselor moves a call from ai_handling to counselor_assigned,
// conditional on it still being AI-handled.
func AssignCounselor(db *gorm.DB, callID, counselorID uint) (bool, error) {
	res := db.Model(&Call{}).
		Where("id = ? AND status = ?", callID, CallStatusAIHandling).
		Updates(map[string]interface{}{
			"status":       CallStatusCounselorAssigned,
			"counselor_id": counselorID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// EnsureConversation returns the conversation for a call, creating it on
// first use.
func EnsureConversation(db *gorm.DB, callID uint) (*Conversation, error) {
	var conv Conversation
	err := db.Where(Conversation{CallID: callID}).FirstOrCreate(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendMessageDedup appends a message unless the conversation's latest
// message with the same role already carries this content (a retried webhook
// delivering the same transcript twice, possibly after the assistant reply
// was persisted in between). Reports whether a row was inserted.
func AppendMessageDedup(db *gorm.DB, conversationID uint, role MessageRole, content string) (bool, error) {
	last, err := GetLatestMessage(db, conversationID, role)
	if err != nil {
		return false, err
	}
	if last != nil && last.Content == content {
		return false, nil
	}
	msg := &Message{ConversationID: conversationID, Role: role, Content: content}
	if err := db.Create(msg).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AppendMessage appends without deduplication (assistant replies differ
// between retried turns, so they are stored as produced).
func AppendMessage(db *gorm.DB, conversationID uint, role MessageRole, content string) error {
	return db.Create(&Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}).Error
}

// GetLatestMessage returns the newest message with the given role, nil when
// the conversation has none.
func GetLatestMessage(db *gorm.DB, conversationID uint, role MessageRole) (*Message, error) {
	var msg Message
	err := db.Where("conversation_id = ? AND role = ?", conversationID, role).
		Order("id DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetConversationMessages returns the ordered transcript of a conversation.
func GetConversationMessages(db *gorm.DB, conversationID uint) ([]Message, error) {
	var msgs []Message
	err := db.Where("conversation_id = ?", conversationID).Order("id ASC").Find(&msgs).Error
	return msgs, err
}

// CreateEscalation records the handoff.
func CreateEscalation(db *gorm.DB, callID, counselorID uint, reason, summary string) error {
	return db.Create(&Escalation{
		CallID:      callID,
		CounselorID: counselorID,
		Reason:      reason,
		Summary:     summary,
	}).Error
}

// ListCalls returns recent calls, newest first.
func ListCalls(db *gorm.DB, limit int) ([]Call, error) {
	var calls []Call
	q := db.Preload("Caller").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&calls).Error
	return calls, err
}
