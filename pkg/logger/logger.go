package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig controls file logging behavior
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE"`    // MB
	MaxAge     int    `env:"LOG_MAX_AGE"`     // days
	MaxBackups int    `env:"LOG_MAX_BACKUPS"` // rotated files kept
	Daily      bool   `env:"LOG_DAILY"`       // date suffix in filename
}

// Lg is the global zap logger, valid after Init
var Lg *zap.Logger

// Init builds the global logger. In development mode logs also go to stdout
// with a console encoder; in production only JSON file output is used.
func Init(cfg *LogConfig, mode string) error {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	encCfg.TimeKey = "time"

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(fileWriter(cfg)),
			level,
		),
	}

	if mode != "production" {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	Lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	zap.ReplaceGlobals(Lg)
	return nil
}

func fileWriter(cfg *LogConfig) *lumberjack.Logger {
	filename := cfg.Filename
	if filename == "" {
		filename = "./logs/app.log"
	}
	if cfg.Daily {
		ext := filepath.Ext(filename)
		base := strings.TrimSuffix(filename, ext)
		filename = fmt.Sprintf("%s-%s%s", base, time.Now().Format("2006-01-02"), ext)
	}
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}

func Debug(msg string, fields ...zap.Field) { Lg.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Lg.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Lg.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Lg.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { Lg.Fatal(msg, fields...) }

func init() {
	// Safe default so packages can log before Init runs (tests, tools).
	Lg = zap.NewNop()
}
