package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads .env then .env.<env> (the latter wins). Missing files are
// reported so the caller can decide whether that matters.
func LoadEnv(env string) error {
	loaded := false
	if err := godotenv.Load(".env"); err == nil {
		loaded = true
	}
	if env != "" {
		if err := godotenv.Overload(".env." + env); err == nil {
			loaded = true
		}
	}
	if !loaded {
		return fmt.Errorf("no .env file found")
	}
	return nil
}

// GetEnv returns the raw value of an environment variable
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetIntEnv parses an environment variable as int64, 0 when unset or invalid
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv parses an environment variable as bool, false when unset
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}
