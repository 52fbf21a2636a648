package domain

import (
	"encoding/json"
	"time"
)

// FieldType categorizes a profile field definition.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeOptions FieldType = "options_list"
	FieldTypeDate    FieldType = "date"
)

// ProfileFieldDefinition describes a profile payload key that changes may touch.
// Definitions are synced from the directory and are read-only to the staging engine.
type ProfileFieldDefinition struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Hint      string          `json:"hint,omitempty"`
	Type      FieldType       `json:"type"`
	Editable  bool            `json:"isEditable"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
