package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
	"github.com/bondarys/entitycore/internal/infra/database/models"
)

// TypeRegistryRepository persists collection definitions. Name lookups are
// served from a short-lived cache since types change rarely but are
// resolved on every entity operation.
type TypeRegistryRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewTypeRegistryRepository(db *gorm.DB) *TypeRegistryRepository {
	return &TypeRegistryRepository{
		db:    db,
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (r *TypeRegistryRepository) Create(ctx context.Context, input entitycore.CreateTypeInput) (entitycore.EntityType, error) {
	schema := entitycore.TypeSchema{Fields: []entitycore.FieldDefinition{}}
	if input.Schema != nil {
		schema = *input.Schema
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return entitycore.EntityType{}, errors.Wrap(err, "failed to marshal schema")
	}

	icon := input.Icon
	if icon == "" {
		icon = domain.DefaultIcon
	}

	row := models.EntityType{
		Name:          input.Name,
		DisplayName:   input.DisplayName,
		Description:   input.Description,
		ApplicationID: input.ApplicationID,
		Schema:        string(schemaJSON),
		Icon:          icon,
		IsSystem:      false,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entitycore.EntityType{}, errors.Wrap(err, "failed to create entity type")
	}

	return mapEntityType(row), nil
}

func (r *TypeRegistryRepository) GetByName(ctx context.Context, name string) (*entitycore.EntityType, error) {
	if cached, ok := r.cache.Get(name); ok {
		typ := cached.(entitycore.EntityType)
		return &typ, nil
	}

	var row models.EntityType
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get entity type")
	}

	typ := mapEntityType(row)
	r.cache.SetDefault(name, typ)
	return &typ, nil
}

func (r *TypeRegistryRepository) GetByID(ctx context.Context, id string) (*entitycore.EntityType, error) {
	var row models.EntityType
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get entity type")
	}

	typ := mapEntityType(row)
	return &typ, nil
}

func (r *TypeRegistryRepository) List(ctx context.Context, applicationID *string) ([]entitycore.EntityType, error) {
	q := r.db.WithContext(ctx).Model(&models.EntityType{})
	if applicationID != nil {
		q = q.Where("application_id = ? OR application_id IS NULL", *applicationID)
	}

	var rows []models.EntityType
	err := q.Order("is_system DESC, display_name ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list entity types")
	}

	types := make([]entitycore.EntityType, 0, len(rows))
	for _, row := range rows {
		types = append(types, mapEntityType(row))
	}
	return types, nil
}

func (r *TypeRegistryRepository) Update(ctx context.Context, id string, input entitycore.UpdateTypeInput) (*entitycore.EntityType, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if input.DisplayName != nil {
		updates["display_name"] = *input.DisplayName
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Schema != nil {
		schemaJSON, err := json.Marshal(*input.Schema)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal schema")
		}
		updates["schema"] = string(schemaJSON)
	}
	if input.Icon != nil {
		updates["icon"] = *input.Icon
	}

	result := r.db.WithContext(ctx).
		Model(&models.EntityType{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to update entity type")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	typ, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if typ != nil {
		r.cache.Delete(typ.Name)
	}
	return typ, nil
}

func (r *TypeRegistryRepository) Delete(ctx context.Context, id string) (bool, error) {
	typ, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if typ == nil {
		return false, nil
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND is_system = false", id).
		Delete(&models.EntityType{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete entity type")
	}

	r.cache.Delete(typ.Name)
	return result.RowsAffected > 0, nil
}

func mapEntityType(row models.EntityType) entitycore.EntityType {
	var schema entitycore.TypeSchema
	if err := json.Unmarshal([]byte(row.Schema), &schema); err != nil {
		schema = entitycore.TypeSchema{Fields: []entitycore.FieldDefinition{}}
	}
	if schema.Fields == nil {
		schema.Fields = []entitycore.FieldDefinition{}
	}

	return entitycore.EntityType{
		ID:            row.ID,
		Name:          row.Name,
		DisplayName:   row.DisplayName,
		Description:   row.Description,
		ApplicationID: row.ApplicationID,
		Schema:        schema,
		Icon:          row.Icon,
		IsSystem:      row.IsSystem,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
