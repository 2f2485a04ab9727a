package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Port              int      `validate:"min=1,max=65535"`
	Password          string   `validate:"required"`
	JWTSecret         string   `validate:"required,min=16"`
	PublicURL         string   `validate:"required,url"`
	ModelPath         string   `validate:"required"`
	ClassNames        []string `validate:"min=1,dive,required"`
	Confidence        float64  `validate:"gt=0,lt=1"`
	NMSThreshold      float64  `validate:"gt=0,lt=1"`
	InputSize         int      `validate:"min=32"`
	ProcessingWorkers int      `validate:"min=1"` // Liczba workerów, każdy ma własną sieć
	QueueSize         int      `validate:"min=1"`
	AllowedOrigins    []string
	DatabasePath      string `validate:"required"`
	SnapshotDirectory string `validate:"required"`
	SnapshotLimit     int    `validate:"min=0"` // Maksymalnie tyle klatek na sesję między flushami
	FlushInterval     int    `validate:"min=1"` // Sekundy
	LogDirectory      string `validate:"required"`
}

func Load() *Config {
	port := getEnvAsInt("PORT", 8000)
	return &Config{
		Port:              port,
		Password:          getEnv("PASSWORD", "rockpaperscissors"),
		JWTSecret:         getEnv("JWT_SECRET", "change-me-please-32-bytes-long!!"),
		PublicURL:         getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)),
		ModelPath:         getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		ClassNames:        getEnvAsList("CLASS_NAMES", []string{"paper", "rock", "scissors"}),
		Confidence:        getEnvAsFloat("CONFIDENCE", 0.25),
		NMSThreshold:      getEnvAsFloat("NMS_THRESHOLD", 0.45),
		InputSize:         getEnvAsInt("INPUT_SIZE", 640),
		ProcessingWorkers: getEnvAsInt("PROCESSING_WORKERS", 2),
		QueueSize:         getEnvAsInt("QUEUE_SIZE", 16),
		AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "rounds.db")),
		SnapshotDirectory: getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		SnapshotLimit:     getEnvAsInt("SNAPSHOT_LIMIT", 10),
		FlushInterval:     getEnvAsInt("FLUSH_INTERVAL", 30),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// Validate checks the loaded values and reports every invalid field at once.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
