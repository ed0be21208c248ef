package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
	"github.com/bondarys/entitycore/internal/infra/database/models"
)

// QueryRepository builds the count and id-page reads behind queryEntities
// and searchEntities. Both operate on entity columns only; materialization
// happens afterwards through EntityRepository.Get.
type QueryRepository struct {
	db *gorm.DB
}

func NewQueryRepository(db *gorm.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

func (r *QueryRepository) Page(ctx context.Context, typeID string, f domain.PageFilter) ([]string, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("entity_type_id = ?", typeID)
		if f.Status != nil {
			db = db.Where("status = ?", *f.Status)
		} else {
			db = db.Where("status <> ?", entitycore.StatusDeleted)
		}
		if f.ApplicationID != nil {
			db = db.Where("application_id = ?", *f.ApplicationID)
		}
		if f.OwnerID != nil {
			db = db.Where("owner_id = ?", *f.OwnerID)
		}
		return db
	}

	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Entity{}).
		Scopes(filter).
		Count(&total).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count entities")
	}

	dir := "ASC"
	if f.OrderDesc {
		dir = "DESC"
	}

	var ids []string
	err = r.db.WithContext(ctx).
		Model(&models.Entity{}).
		Scopes(filter).
		Order(f.OrderColumn+" "+dir).
		Limit(f.Limit).
		Offset(f.Offset).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to page entities")
	}

	return ids, total, nil
}

// Search matches a case-insensitive substring against text attributes
// only; other typed columns are out of scope for substring search.
func (r *QueryRepository) Search(ctx context.Context, typeID string, term string, applicationID *string, limit int) ([]string, error) {
	pattern := "%" + strings.ToLower(term) + "%"

	q := r.db.WithContext(ctx).
		Model(&models.Entity{}).
		Joins("JOIN entity_attributes ON entity_attributes.entity_id = entities.id").
		Where("entities.entity_type_id = ?", typeID).
		Where("entities.status <> ?", entitycore.StatusDeleted).
		Where("LOWER(entity_attributes.value_text) LIKE ?", pattern)

	if applicationID != nil {
		q = q.Where("entities.application_id = ?", *applicationID)
	}

	var ids []string
	err := q.
		Group("entities.id").
		Order("entities.updated_at DESC").
		Limit(limit).
		Pluck("entities.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search entities")
	}

	return ids, nil
}
