package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heartline-cc/HeartLine/cmd/bootstrap"
	handlers "github.com/heartline-cc/HeartLine/internal/handler"
	"github.com/heartline-cc/HeartLine/internal/task"
	"github.com/heartline-cc/HeartLine/pkg/config"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/heartline-cc/HeartLine/pkg/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HeartLineApp struct {
	db       *gorm.DB
	handlers *handlers.Handlers
}

func NewHeartLineApp(db *gorm.DB) *HeartLineApp {
	return &HeartLineApp{
		db:       db,
		handlers: handlers.NewHandlers(db),
	}
}

func (app *HeartLineApp) RegisterRoutes(r *gin.Engine) {
	app.handlers.Register(r)
}

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	flag.Parse()

	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 2. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}

	// 3. Load Log Configuration
	if err := logger.Init(&config.GlobalConfig.Log, config.GlobalConfig.Mode); err != nil {
		panic(err)
	}

	// 4. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath: *initSQL,
		AutoMigrate: true,
		SeedNonProd: os.Getenv("APP_ENV") != "production",
	})
	if err != nil {
		logger.Error("database setup failed", zap.Error(err))
		return
	}

	addr := config.GlobalConfig.Addr
	if addr == "" {
		addr = ":7080"
	}

	logger.Info("checked config -- addr: ", zap.String("addr", addr))
	logger.Info("checked config -- db-driver: ",
		zap.String("db-driver", config.GlobalConfig.DBDriver),
		zap.String("dsn", config.GlobalConfig.DSN))
	logger.Info("checked config -- mode: ", zap.String("mode", config.GlobalConfig.Mode))

	// 5. New App
	app := NewHeartLineApp(db)

	// 6. Start Stale Call Sweeper
	sweeper, err := task.StartCallSweeper(db,
		config.GlobalConfig.SweepSchedule,
		time.Duration(config.GlobalConfig.StaleCallMaxMin)*time.Minute)
	if err != nil {
		logger.Error("failed to start call sweeper", zap.Error(err))
	} else {
		defer sweeper.Stop()
	}

	// 7. Initialize Gin Routing
	if config.GlobalConfig.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Telephony providers retry webhooks on redirects, keep paths exact
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	// 8. use middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.LoggerMiddleware(zap.L()))

	// 9. Register Routes
	app.RegisterRoutes(r)

	// 10. Start HTTP Server
	httpServer := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("HTTP server run failed", zap.Error(err))
	}
}
