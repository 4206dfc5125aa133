package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportMessage asks the worker to load a dataset file into the database.
type ImportMessage struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewImportMessage creates an import request with a fresh ID.
func NewImportMessage(path string) *ImportMessage {
	return &ImportMessage{
		ID:          uuid.NewString(),
		Path:        path,
		RequestedAt: time.Now().UTC(),
	}
}

// Validate checks the fields a worker needs.
func (m *ImportMessage) Validate() error {
	var errs []error
	if strings.TrimSpace(m.ID) == "" {
		errs = append(errs, errors.New("missing id"))
	} else if _, err := uuid.Parse(m.ID); err != nil {
		errs = append(errs, errors.New("id is not a uuid"))
	}
	if strings.TrimSpace(m.Path) == "" {
		errs = append(errs, errors.New("missing path"))
	}
	return errors.Join(errs...)
}

// ToJSON converts the message to JSON bytes
func (m *ImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportMessageFromJSON decodes and validates a message.
func ImportMessageFromJSON(data []byte) (*ImportMessage, error) {
	var msg ImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
