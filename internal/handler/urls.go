package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heartline-cc/HeartLine/internal/callflow"
	"github.com/heartline-cc/HeartLine/internal/dictation"
	"github.com/heartline-cc/HeartLine/internal/respond"
	"github.com/heartline-cc/HeartLine/pkg/config"
	"github.com/heartline-cc/HeartLine/pkg/llm"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/heartline-cc/HeartLine/pkg/metrics"
	"github.com/heartline-cc/HeartLine/pkg/middleware"
	"gorm.io/gorm"
)

// Handlers owns the HTTP surface: the telephony webhook and the dashboard
// JSON API.
type Handlers struct {
	db     *gorm.DB
	engine *callflow.Engine
}

func NewHandlers(db *gorm.DB) *Handlers {
	cfg := config.GlobalConfig

	client := llm.NewClient(cfg.LLMApiKey, cfg.LLMBaseURL, cfg.LLMModel)

	// Without an API key the completion calls fail fast and every turn uses
	// the fixed fallback replies / the heuristic extractor.
	var extractCompleter dictation.Completer
	if cfg.LLMApiKey != "" {
		extractCompleter = client
	} else {
		logger.Warn("LLM_API_KEY not set, running with fallback replies and heuristic extraction only")
	}

	llmTimeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	engine := callflow.NewEngine(
		db,
		respond.NewEngine(client, llmTimeout),
		dictation.NewPipeline(extractCompleter, llmTimeout),
		callflow.Options{
			VoiceName:        cfg.VoiceName,
			Language:         cfg.VoiceLanguage,
			ProcessURL:       cfg.VoicePrefix + "/process",
			EmergencyMessage: cfg.EmergencyMessage,
		},
	)

	return &Handlers{db: db, engine: engine}
}

// Engine exposes the call state machine (used by tests and tooling).
func (h *Handlers) Engine() *callflow.Engine {
	return h.engine
}

func (h *Handlers) Register(engine *gin.Engine) {
	// Telephony gateway webhooks. No auth prefix: the gateway signs requests
	// at the transport level, and responses must always be 200.
	voice := engine.Group(config.GlobalConfig.VoicePrefix)
	{
		voice.POST("/incoming", h.VoiceWebhook)
		voice.POST("/process", h.VoiceWebhook)
		voice.POST("/status", h.VoiceWebhook)
	}

	// Dashboard JSON API.
	api := engine.Group(config.GlobalConfig.APIPrefix)
	api.Use(middleware.InjectDB(h.db))
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.GET("/counselors", h.ListCounselors)
		api.POST("/counselors", h.CreateCounselor)
		api.PUT("/counselors/:id/status", h.UpdateCounselorStatus)

		api.GET("/calls", h.ListCalls)
		api.GET("/calls/:sid/messages", h.GetCallMessages)

		api.GET("/classrooms", h.ListClassrooms)
		api.GET("/classrooms/:id/grades", h.ListClassroomGrades)
	}

	engine.GET(config.GlobalConfig.MonitorPrefix, metrics.Handler())
}
