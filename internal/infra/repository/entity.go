package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/infra/database/models"
)

// attributeAssignColumns is every column an upsert rewrites. All seven
// typed slots are reassigned so that a value changing type clears the
// previously populated column.
var attributeAssignColumns = []string{
	"attribute_type",
	"value_text",
	"value_number",
	"value_boolean",
	"value_json",
	"value_date",
	"value_datetime",
	"value_reference",
	"updated_at",
}

type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) Create(ctx context.Context, typ entitycore.EntityType, input entitycore.CreateEntityInput) (*entitycore.Entity, error) {
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metadata")
	}

	entityID := uuid.NewString()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Entity{
			ID:            entityID,
			EntityTypeID:  typ.ID,
			ApplicationID: input.ApplicationID,
			OwnerID:       input.OwnerID,
			Status:        entitycore.StatusActive,
			Metadata:      string(metadataJSON),
		}
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrap(err, "failed to create entity")
		}

		for name, value := range input.Attributes {
			if err := upsertAttribute(tx, entityID, name, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, entityID)
}

func (r *EntityRepository) Get(ctx context.Context, id string) (*entitycore.Entity, error) {
	var row models.Entity
	err := r.db.WithContext(ctx).
		Preload("EntityType").
		Where("id = ?", id).
		Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get entity")
	}

	var attrRows []models.EntityAttribute
	err = r.db.WithContext(ctx).
		Where("entity_id = ?", id).
		Find(&attrRows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get entity attributes")
	}

	entity := materialize(row, attrRows)
	return &entity, nil
}

func (r *EntityRepository) Update(ctx context.Context, id string, input entitycore.UpdateEntityInput) (*entitycore.Entity, error) {
	var exists int64
	err := r.db.WithContext(ctx).
		Model(&models.Entity{}).
		Where("id = ?", id).
		Count(&exists).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to check entity")
	}
	if exists == 0 {
		return nil, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Metadata != nil || input.Status != nil {
			updates := map[string]any{"updated_at": time.Now()}
			if input.Metadata != nil {
				metadataJSON, err := json.Marshal(input.Metadata)
				if err != nil {
					return errors.Wrap(err, "failed to marshal metadata")
				}
				// jsonb concatenation merges top-level keys only
				updates["metadata"] = gorm.Expr("metadata || ?::jsonb", string(metadataJSON))
			}
			if input.Status != nil {
				updates["status"] = *input.Status
			}
			if err := tx.Model(&models.Entity{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return errors.Wrap(err, "failed to update entity")
			}
		}

		for name, value := range input.Attributes {
			if value == nil {
				err := tx.Where("entity_id = ? AND attribute_name = ?", id, name).
					Delete(&models.EntityAttribute{}).Error
				if err != nil {
					return errors.Wrap(err, "failed to delete attribute")
				}
				continue
			}
			if err := upsertAttribute(tx, id, name, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

func (r *EntityRepository) Delete(ctx context.Context, id string, hard bool) (bool, error) {
	if hard {
		result := r.db.WithContext(ctx).
			Where("id = ?", id).
			Delete(&models.Entity{})
		if result.Error != nil {
			return false, errors.Wrap(result.Error, "failed to delete entity")
		}
		return result.RowsAffected > 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Entity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     entitycore.StatusDeleted,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to soft delete entity")
	}
	return result.RowsAffected > 0, nil
}

func upsertAttribute(tx *gorm.DB, entityID string, name string, value any) error {
	ev, err := entitycore.Encode(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode attribute '%s'", name)
	}

	row := models.EntityAttribute{
		EntityID:      entityID,
		AttributeName: name,
		AttributeType: string(ev.Type),
		ValueText:     ev.Text,
		ValueNumber:   ev.Number,
		ValueBoolean:  ev.Boolean,
		ValueJSON:     ev.JSON,
		ValueDate:     ev.Date,
		ValueDatetime: ev.DateTime,
		ValueRef:      ev.Reference,
		UpdatedAt:     time.Now(),
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_id"}, {Name: "attribute_name"}},
		DoUpdates: clause.AssignmentColumns(attributeAssignColumns),
	}).Create(&row).Error
	if err != nil {
		return errors.Wrapf(err, "failed to upsert attribute '%s'", name)
	}
	return nil
}

// materialize folds the entity row and its attribute rows into one logical
// record. Single pass over the rows, one decode per attribute.
func materialize(row models.Entity, attrRows []models.EntityAttribute) entitycore.Entity {
	metadata := map[string]any{}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &metadata); err != nil {
			metadata = map[string]any{}
		}
	}

	attributes := make(map[string]any, len(attrRows))
	for _, attr := range attrRows {
		attributes[attr.AttributeName] = entitycore.Decode(entitycore.EncodedValue{
			Type:      entitycore.AttributeType(attr.AttributeType),
			Text:      attr.ValueText,
			Number:    attr.ValueNumber,
			Boolean:   attr.ValueBoolean,
			JSON:      attr.ValueJSON,
			Date:      attr.ValueDate,
			DateTime:  attr.ValueDatetime,
			Reference: attr.ValueRef,
		})
	}

	return entitycore.Entity{
		ID:            row.ID,
		Type:          row.EntityType.Name,
		TypeID:        row.EntityTypeID,
		ApplicationID: row.ApplicationID,
		OwnerID:       row.OwnerID,
		Status:        row.Status,
		Metadata:      metadata,
		Attributes:    attributes,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
