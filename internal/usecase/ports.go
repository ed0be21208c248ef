package usecase

import (
	"context"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
)

// TypeRegistry defines persistence for collection definitions.
type TypeRegistry interface {
	Create(ctx context.Context, input entitycore.CreateTypeInput) (entitycore.EntityType, error)
	GetByName(ctx context.Context, name string) (*entitycore.EntityType, error)
	GetByID(ctx context.Context, id string) (*entitycore.EntityType, error)
	List(ctx context.Context, applicationID *string) ([]entitycore.EntityType, error)
	Update(ctx context.Context, id string, input entitycore.UpdateTypeInput) (*entitycore.EntityType, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// EntityRepository defines transactional persistence for entities and
// their attribute rows.
type EntityRepository interface {
	Create(ctx context.Context, typ entitycore.EntityType, input entitycore.CreateEntityInput) (*entitycore.Entity, error)
	Get(ctx context.Context, id string) (*entitycore.Entity, error)
	Update(ctx context.Context, id string, input entitycore.UpdateEntityInput) (*entitycore.Entity, error)
	Delete(ctx context.Context, id string, hard bool) (bool, error)
}

// EntityQuerier defines the filtered id-page and search reads.
type EntityQuerier interface {
	Page(ctx context.Context, typeID string, f domain.PageFilter) ([]string, int64, error)
	Search(ctx context.Context, typeID string, term string, applicationID *string, limit int) ([]string, error)
}

// OwnerResolver checks an owner id against the identity source.
type OwnerResolver interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// EventPublisher broadcasts entity lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, typeName string, ev entitycore.Event) error
}
