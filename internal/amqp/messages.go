package amqp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ConversionJobMessage asks a worker to convert one file from the inbox.
// Source and Output are paths relative to the worker's inbox and outbox.
type ConversionJobMessage struct {
	JobID      string    `json:"job_id"`
	Source     string    `json:"source"`
	Output     string    `json:"output,omitempty"`
	Format     string    `json:"format,omitempty"`
	KeepSuffix bool      `json:"keep_suffix"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewConversionJobMessage creates a job with a fresh id.
func NewConversionJobMessage(source, output, format string, keepSuffix bool) *ConversionJobMessage {
	return &ConversionJobMessage{
		JobID:      newJobID(),
		Source:     source,
		Output:     output,
		Format:     format,
		KeepSuffix: keepSuffix,
		Timestamp:  time.Now(),
	}
}

// Validate checks the fields a worker needs before touching the filesystem.
func (m *ConversionJobMessage) Validate() error {
	if m.JobID == "" {
		return errors.New("job_id is required")
	}
	if m.Source == "" {
		return errors.New("source is required")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ConversionJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ConversionJobMessageFromJSON decodes and validates a job message.
func ConversionJobMessageFromJSON(data []byte) (*ConversionJobMessage, error) {
	var msg ConversionJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return &msg, nil
}

func newJobID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("job-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
