package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, config.Load())

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
	require.NoError(t, db.AutoMigrate(
		&models.Caller{}, &models.Call{}, &models.Conversation{},
		&models.Message{}, &models.Escalation{},
		&models.Classroom{}, &models.Student{}, &models.Grade{},
	))

	r := gin.New()
	NewHandlers(db).Register(r)
	return r, db
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestVoiceWebhookConnect(t *testing.T) {
	r, db := setupTestRouter(t)

	w := postForm(r, "/voice/incoming", url.Values{
		"CallSid":    {"CA100"},
		"From":       {"+15550001111"},
		"To":         {"+15550009999"},
		"CallStatus": {"ringing"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	assert.Contains(t, w.Body.String(), "<Gather")

	call, err := models.GetCallBySID(db, "CA100")
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, models.CallStatusAIHandling, call.Status)
}

func TestVoiceWebhookStatusCallback(t *testing.T) {
	r, db := setupTestRouter(t)

	postForm(r, "/voice/incoming", url.Values{
		"CallSid": {"CA200"}, "From": {"+15550001111"},
	})

	w := postForm(r, "/voice/status", url.Values{
		"CallSid":    {"CA200"},
		"From":       {"+15550001111"},
		"CallStatus": {"COMPLETED"}, // gateways are not consistent about case
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	call, err := models.GetCallBySID(db, "CA200")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusCompleted, call.Status)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestCounselorLifecycle(t *testing.T) {
	r, db := setupTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"phone":  "+15550109999",
		"name":   "Dana Reyes",
		"status": "available",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/counselors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	counselors, err := models.ListCounselors(db)
	require.NoError(t, err)
	require.Len(t, counselors, 1)
	assert.Equal(t, models.CounselorAvailable, counselors[0].Status)

	// Toggle offline through the dashboard route
	body, _ = json.Marshal(map[string]string{"status": "offline"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut,
		"/api/counselors/"+strconv.FormatUint(uint64(counselors[0].ID), 10)+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := models.GetCallerByID(db, counselors[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CounselorOffline, got.Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/counselors", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dana Reyes")
}

func TestCallMessagesEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	postForm(r, "/voice/process", url.Values{
		"CallSid":      {"CA300"},
		"From":         {"+15550001111"},
		"SpeechResult": {"I had a rough week"},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calls/CA300/messages", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "I had a rough week")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calls/CA-unknown/messages", nil))
	assert.Contains(t, w.Body.String(), "not found")
}
