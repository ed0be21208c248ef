package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
)

// EntityUsecase orchestrates entity writes: type resolution and the owner
// referential guard run before the repository opens its transaction, so a
// doomed call never starts one.
type EntityUsecase struct {
	registry TypeRegistry
	repo     EntityRepository
	owners   OwnerResolver
	events   EventPublisher
}

func NewEntityUsecase(
	registry TypeRegistry,
	repo EntityRepository,
	owners OwnerResolver,
	events EventPublisher,
) *EntityUsecase {
	return &EntityUsecase{
		registry: registry,
		repo:     repo,
		owners:   owners,
		events:   events,
	}
}

func (uc *EntityUsecase) Create(ctx context.Context, typeName string, input entitycore.CreateEntityInput) (*entitycore.Entity, error) {
	ctx, span := tracer.Start(ctx, "Entity.Usecase.Create")
	defer span.End()

	typ, err := uc.registry.GetByName(ctx, typeName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if typ == nil {
		err := domain.UnknownTypeError{TypeName: typeName}
		span.RecordError(err)
		return nil, err
	}

	if input.OwnerID != nil && *input.OwnerID != "" {
		ok, err := uc.owners.Exists(ctx, *input.OwnerID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !ok {
			err := domain.InvalidReferenceError{OwnerID: *input.OwnerID}
			span.RecordError(err)
			return nil, err
		}
	}

	entity, err := uc.repo.Create(ctx, *typ, input)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.publish(ctx, typ.Name, entitycore.EventCreated, entity.ID)
	return entity, nil
}

func (uc *EntityUsecase) Get(ctx context.Context, id string) (*entitycore.Entity, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *EntityUsecase) Update(ctx context.Context, id string, input entitycore.UpdateEntityInput) (*entitycore.Entity, error) {
	ctx, span := tracer.Start(ctx, "Entity.Usecase.Update")
	defer span.End()

	entity, err := uc.repo.Update(ctx, id, input)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	uc.publish(ctx, entity.Type, entitycore.EventUpdated, entity.ID)
	return entity, nil
}

func (uc *EntityUsecase) Delete(ctx context.Context, id string, hard bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "Entity.Usecase.Delete")
	defer span.End()

	entity, err := uc.repo.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if entity == nil {
		return false, nil
	}

	deleted, err := uc.repo.Delete(ctx, id, hard)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	if deleted {
		uc.publish(ctx, entity.Type, entitycore.EventDeleted, id)
	}
	return deleted, nil
}

// publish is best-effort: a dropped event never fails the write that
// already committed.
func (uc *EntityUsecase) publish(ctx context.Context, typeName string, action string, entityID string) {
	if uc.events == nil {
		return
	}
	ev := entitycore.Event{
		Action:   action,
		Type:     typeName,
		EntityID: entityID,
		Time:     time.Now().UTC(),
	}
	if err := uc.events.Publish(ctx, typeName, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish entity event",
			slog.String("error", err.Error()),
			slog.String("type", typeName),
			slog.String("action", action),
		)
	}
}
