package repository

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bondarys/entitycore/internal/infra/database/models"
)

const ownerCacheTTL = 300 // seconds

// OwnerRepository probes the identity source for owner existence. The
// underlying schema carries no foreign key for owner_id, so the check is
// an explicit read before any entity write commits. Positive results are
// cached in memcached when a client is configured; a missing owner is
// never cached since it may be created at any moment.
type OwnerRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewOwnerRepository(db *gorm.DB, mc *memcache.Client) *OwnerRepository {
	return &OwnerRepository{db: db, mc: mc}
}

func (r *OwnerRepository) Exists(ctx context.Context, id string) (bool, error) {
	key := "owner:" + id

	if r.mc != nil {
		if _, err := r.mc.Get(key); err == nil {
			return true, nil
		}
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check owner")
	}
	if count == 0 {
		return false, nil
	}

	if r.mc != nil {
		_ = r.mc.Set(&memcache.Item{Key: key, Value: []byte("1"), Expiration: ownerCacheTTL})
	}
	return true, nil
}
