package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers assigned locally before the remote store confirmed the entity.
const TempIDPrefix = "tmp_"

// Entity is a structured object inside a workspace collection.
// The "id" field carries its durable identifier.
type Entity map[string]any

// ID returns the entity identifier as a string ("" when absent).
func (e Entity) ID() string {
	v, ok := e["id"]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy.
func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// WithID returns a copy with the identifier replaced.
func (e Entity) WithID(id string) Entity {
	out := e.Clone()
	out["id"] = id
	return out
}

// Merge returns a copy with the patch applied on top (shallow, top-level keys).
func (e Entity) Merge(patch map[string]any) Entity {
	out := e.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Fields returns the entity data without the identifier, as stored in a document.
func (e Entity) Fields() map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// NewTempID generates a temporary identifier with the reserved prefix.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id was assigned locally.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Document is a remote document: its path and its fields.
type Document struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Fields    map[string]any `json:"fields"`
	Path      DocumentPath   `json:"path"`
}

// ID returns the document identifier.
func (d Document) ID() string {
	return d.Path.ID()
}

// Entity converts the document to an entity; the document id wins over any "id" field in the data.
func (d Document) Entity() Entity {
	out := make(Entity, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["id"] = d.ID()
	return out
}
