package entitycore

import (
	"time"
)

const (
	StatusActive  string = "active"
	StatusDeleted string = "deleted"
)

// FieldDefinition describes one declared field of a collection schema.
// Declarations are display metadata for admin tooling; attribute writes
// are typed by inference, not by the declaration.
type FieldDefinition struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

type TypeSchema struct {
	Fields []FieldDefinition `json:"fields"`
}

// EntityType is a named, runtime-defined collection.
type EntityType struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DisplayName   string     `json:"displayName"`
	Description   *string    `json:"description,omitempty"`
	ApplicationID *string    `json:"applicationId,omitempty"`
	Schema        TypeSchema `json:"schema"`
	Icon          string     `json:"icon"`
	IsSystem      bool       `json:"isSystem"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Entity is one materialized record: the entity row folded together with
// all of its attribute rows.
type Entity struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	TypeID        string         `json:"typeId"`
	ApplicationID *string        `json:"applicationId,omitempty"`
	OwnerID       *string        `json:"ownerId,omitempty"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata"`
	Attributes    map[string]any `json:"attributes"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type CreateTypeInput struct {
	Name          string      `json:"name"`
	DisplayName   string      `json:"displayName"`
	Description   *string     `json:"description,omitempty"`
	ApplicationID *string     `json:"applicationId,omitempty"`
	Schema        *TypeSchema `json:"schema,omitempty"`
	Icon          string      `json:"icon,omitempty"`
}

type UpdateTypeInput struct {
	DisplayName *string     `json:"displayName,omitempty"`
	Description *string     `json:"description,omitempty"`
	Schema      *TypeSchema `json:"schema,omitempty"`
	Icon        *string     `json:"icon,omitempty"`
}

type CreateEntityInput struct {
	ApplicationID *string        `json:"applicationId,omitempty"`
	OwnerID       *string        `json:"ownerId,omitempty"`
	Attributes    map[string]any `json:"attributes"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// UpdateEntityInput patches an entity. Metadata is shallow-merged into the
// stored metadata. A nil attribute value removes that attribute.
type UpdateEntityInput struct {
	Attributes map[string]any `json:"attributes,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Status     *string        `json:"status,omitempty"`
}

type QueryOptions struct {
	ApplicationID *string `json:"applicationId,omitempty"`
	OwnerID       *string `json:"ownerId,omitempty"`
	Status        *string `json:"status,omitempty"`
	Page          int     `json:"page,omitempty"`
	Limit         int     `json:"limit,omitempty"`
	OrderBy       string  `json:"orderBy,omitempty"`
	OrderDir      string  `json:"orderDir,omitempty"`
}

type QueryResult struct {
	Entities []Entity `json:"entities"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
}

type SearchOptions struct {
	ApplicationID *string `json:"applicationId,omitempty"`
	Limit         int     `json:"limit,omitempty"`
}

// Event is published on every entity lifecycle change.
type Event struct {
	Action   string    `json:"action"` // created, updated, deleted
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	Time     time.Time `json:"time"`
}

const (
	EventCreated string = "created"
	EventUpdated string = "updated"
	EventDeleted string = "deleted"
)
