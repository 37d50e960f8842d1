package flags

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("switch not found")
	ErrInvalidKey = errors.New("invalid switch key")
)

// Switch is a runtime on/off toggle shared by every process on the same Redis
type Switch struct {
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
