package client

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for the game client.
const (
	DefaultServerURL = "ws://127.0.0.1:8000/ws/predict"
	DefaultInterval  = 2 * time.Second
	DefaultQuality   = 80
	DefaultFPS       = 30
)

type Config struct {
	ServerURL string        `validate:"required,url"`
	Device    int           `validate:"min=0"`
	Interval  time.Duration `validate:"min=100ms"`
	Quality   int           `validate:"min=1,max=100"`
	Headless  bool
	LogDir    string
	Verbose   bool
}

// Validate checks the flag values and reports every invalid field at once.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid client configuration: %w", err)
	}
	return nil
}
