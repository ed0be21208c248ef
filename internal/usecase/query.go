package usecase

import (
	"context"
	"strings"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
)

// QueryUsecase plans filtered, ordered, paginated reads and cross-attribute
// search for a collection. Ordering and paging operate on entity columns
// only; each returned id is materialized through the repository Get path.
type QueryUsecase struct {
	registry TypeRegistry
	repo     EntityRepository
	querier  EntityQuerier
}

func NewQueryUsecase(registry TypeRegistry, repo EntityRepository, querier EntityQuerier) *QueryUsecase {
	return &QueryUsecase{
		registry: registry,
		repo:     repo,
		querier:  querier,
	}
}

func (uc *QueryUsecase) Query(ctx context.Context, typeName string, opts entitycore.QueryOptions) (entitycore.QueryResult, error) {
	ctx, span := tracer.Start(ctx, "Query.Usecase.Query")
	defer span.End()

	typ, err := uc.registry.GetByName(ctx, typeName)
	if err != nil {
		span.RecordError(err)
		return entitycore.QueryResult{}, err
	}
	if typ == nil {
		err := domain.UnknownTypeError{TypeName: typeName}
		span.RecordError(err)
		return entitycore.QueryResult{}, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := clampLimit(opts.Limit)

	orderColumn, ok := domain.OrderableColumns[opts.OrderBy]
	if !ok {
		orderColumn = "created_at"
	}
	orderDesc := !strings.EqualFold(opts.OrderDir, "asc")

	ids, total, err := uc.querier.Page(ctx, typ.ID, domain.PageFilter{
		ApplicationID: opts.ApplicationID,
		OwnerID:       opts.OwnerID,
		Status:        opts.Status,
		OrderColumn:   orderColumn,
		OrderDesc:     orderDesc,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	})
	if err != nil {
		span.RecordError(err)
		return entitycore.QueryResult{}, err
	}

	entities, err := uc.materialize(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return entitycore.QueryResult{}, err
	}

	return entitycore.QueryResult{
		Entities: entities,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

func (uc *QueryUsecase) Search(ctx context.Context, typeName string, term string, opts entitycore.SearchOptions) ([]entitycore.Entity, error) {
	ctx, span := tracer.Start(ctx, "Query.Usecase.Search")
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

	ids, err := uc.querier.Search(ctx, typ.ID, term, opts.ApplicationID, clampLimit(opts.Limit))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return uc.materialize(ctx, ids)
}

// materialize resolves each id through the Get path, skipping any entity
// removed between the id read and the fetch.
func (uc *QueryUsecase) materialize(ctx context.Context, ids []string) ([]entitycore.Entity, error) {
	entities := make([]entitycore.Entity, 0, len(ids))
	for _, id := range ids {
		entity, err := uc.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			entities = append(entities, *entity)
		}
	}
	return entities, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return domain.DefaultPageLimit
	}
	if limit > domain.MaxPageLimit {
		return domain.MaxPageLimit
	}
	return limit
}
