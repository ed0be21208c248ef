package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
)

var tracer = otel.Tracer("entitycore")

// TypeUsecase manages collection definitions. All validation happens here,
// before any persistence call.
type TypeUsecase struct {
	registry TypeRegistry
}

func NewTypeUsecase(registry TypeRegistry) *TypeUsecase {
	return &TypeUsecase{registry: registry}
}

func (uc *TypeUsecase) Create(ctx context.Context, input entitycore.CreateTypeInput) (entitycore.EntityType, error) {
	ctx, span := tracer.Start(ctx, "Type.Usecase.Create")
	defer span.End()

	if !entitycore.IsValidTypeName(input.Name) {
		err := domain.ValidationError{Reason: "entity type name must be lowercase, start with a letter, and contain only letters, numbers, and underscores"}
		span.RecordError(err)
		return entitycore.EntityType{}, err
	}
	if input.DisplayName == "" {
		err := domain.ValidationError{Reason: "displayName is required"}
		span.RecordError(err)
		return entitycore.EntityType{}, err
	}

	existing, err := uc.registry.GetByName(ctx, input.Name)
	if err != nil {
		span.RecordError(err)
		return entitycore.EntityType{}, err
	}
	if existing != nil {
		err := domain.ValidationError{Reason: fmt.Sprintf("entity type '%s' already exists", input.Name)}
		span.RecordError(err)
		return entitycore.EntityType{}, err
	}

	return uc.registry.Create(ctx, input)
}

func (uc *TypeUsecase) Get(ctx context.Context, name string) (*entitycore.EntityType, error) {
	return uc.registry.GetByName(ctx, name)
}

func (uc *TypeUsecase) GetByID(ctx context.Context, id string) (*entitycore.EntityType, error) {
	return uc.registry.GetByID(ctx, id)
}

func (uc *TypeUsecase) List(ctx context.Context, applicationID *string) ([]entitycore.EntityType, error) {
	return uc.registry.List(ctx, applicationID)
}

func (uc *TypeUsecase) Update(ctx context.Context, id string, input entitycore.UpdateTypeInput) (*entitycore.EntityType, error) {
	ctx, span := tracer.Start(ctx, "Type.Usecase.Update")
	defer span.End()

	current, err := uc.registry.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	// Display fields of system types stay editable; only the schema is
	// locked down.
	if current.IsSystem && input.Schema != nil {
		err := domain.ProtectedTypeError{TypeName: current.Name}
		span.RecordError(err)
		return nil, err
	}

	return uc.registry.Update(ctx, id, input)
}

func (uc *TypeUsecase) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Type.Usecase.Delete")
	defer span.End()

	current, err := uc.registry.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if current == nil {
		return false, nil
	}
	if current.IsSystem {
		err := domain.ProtectedTypeError{TypeName: current.Name}
		span.RecordError(err)
		return false, err
	}

	return uc.registry.Delete(ctx, id)
}
