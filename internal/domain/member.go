package domain

import (
	"encoding/json"
	"time"
)

// Member represents a directory member with a manager reference and profile payload.
// Member ids are opaque strings assigned by the external directory; the sync
// process owns these rows, the staging engine only reads them and writes the
// manager reference and profile payload on apply.
type Member struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Title     string         `json:"title"`
	ManagerID *string        `json:"managerId"`
	Active    bool           `json:"active"`
	AvatarURL string         `json:"avatar,omitempty"`
	Profile   ProfilePayload `json:"profile"`
	SyncedAt  time.Time      `json:"synced_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FieldValue is a single profile field value as stored in the directory.
type FieldValue struct {
	Value string `json:"value"`
	Alt   string `json:"alt,omitempty"`
}

// ProfilePayload is the structured profile blob carried by a member record.
type ProfilePayload struct {
	Fields map[string]FieldValue `json:"fields"`
}

// WithManager returns a new member with an updated manager reference.
func (m Member) WithManager(managerID *string) Member {
	m.ManagerID = managerID
	m.UpdatedAt = time.Now()
	return m
}

// WithProfile returns a new member with an updated profile payload.
func (m Member) WithProfile(profile ProfilePayload) Member {
	m.Profile = profile.Clone()
	m.UpdatedAt = time.Now()
	return m
}

// FieldValueOrEmpty returns the current value of a profile field, defaulting
// to an empty value when the member has never carried the field.
func (m Member) FieldValueOrEmpty(fieldID string) FieldValue {
	if v, ok := m.Profile.Fields[fieldID]; ok {
		return v
	}
	return FieldValue{}
}

// Clone returns a deep copy of the payload so callers cannot alias the field map.
func (p ProfilePayload) Clone() ProfilePayload {
	if p.Fields == nil {
		return ProfilePayload{}
	}
	fields := make(map[string]FieldValue, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return ProfilePayload{Fields: fields}
}

// MarshalJSONB serializes the payload for a JSONB column.
func (p ProfilePayload) MarshalJSONB() (json.RawMessage, error) {
	if p.Fields == nil {
		p.Fields = map[string]FieldValue{}
	}
	return json.Marshal(p)
}

// ProfilePayloadFromJSONB decodes a JSONB column back into a payload.
func ProfilePayloadFromJSONB(raw json.RawMessage) (ProfilePayload, error) {
	var payload ProfilePayload
	if len(raw) == 0 {
		return payload, nil
	}
	err := json.Unmarshal(raw, &payload)
	return payload, err
}
