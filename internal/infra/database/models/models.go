package models

import (
	"time"
)

// EntityType is a runtime-defined collection. Name is the stable lookup
// key; Schema is the declared field list serialized as JSON.
type EntityType struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name          string    `json:"name" gorm:"type:text;index:entity_type_name,unique;not null"`
	DisplayName   string    `json:"display_name" gorm:"type:text;not null"`
	Description   *string   `json:"description" gorm:"type:text"`
	ApplicationID *string   `json:"application_id" gorm:"type:text;index"`
	Schema        string    `json:"schema" gorm:"type:jsonb;not null;default:'{\"fields\":[]}'"`
	Icon          string    `json:"icon" gorm:"type:text;not null;default:'collection'"`
	IsSystem      bool      `json:"is_system" gorm:"type:boolean;not null;default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Entity struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid"`
	EntityTypeID  string     `json:"entity_type_id" gorm:"type:uuid;index;not null"`
	EntityType    EntityType `json:"-" gorm:"foreignKey:EntityTypeID;constraint:OnDelete:CASCADE;"`
	ApplicationID *string    `json:"application_id" gorm:"type:text;index"`
	OwnerID       *string    `json:"owner_id" gorm:"type:text;index"`
	Status        string     `json:"status" gorm:"type:text;not null;default:'active';index"`
	Metadata      string     `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt     time.Time  `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// EntityAttribute holds one named value of one entity. Exactly one typed
// value column is populated, matching AttributeType.
type EntityAttribute struct {
	EntityID      string     `json:"entity_id" gorm:"primaryKey;type:uuid"`
	Entity        Entity     `json:"-" gorm:"foreignKey:EntityID;constraint:OnDelete:CASCADE;"`
	AttributeName string     `json:"attribute_name" gorm:"primaryKey;type:text"`
	AttributeType string     `json:"attribute_type" gorm:"type:text;not null"`
	ValueText     *string    `json:"value_text" gorm:"type:text;index"`
	ValueNumber   *float64   `json:"value_number" gorm:"type:double precision"`
	ValueBoolean  *bool      `json:"value_boolean" gorm:"type:boolean"`
	ValueJSON     *string    `json:"value_json" gorm:"type:jsonb"`
	ValueDate     *time.Time `json:"value_date" gorm:"type:date"`
	ValueDatetime *time.Time `json:"value_datetime" gorm:"type:timestamp with time zone"`
	ValueRef      *string    `json:"value_reference" gorm:"column:value_reference;type:uuid"`
	CreatedAt     time.Time  `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// User is the minimal identity row the owner referential check probes.
// The hosting application manages the rest of the user model.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
