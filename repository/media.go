package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/entity"
	"gorm.io/gorm"
)

type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Create(ctx context.Context, media *entity.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

// FindByIDs returns the rows that exist, in no particular order.
func (r *MediaRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var media []entity.Media
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&media).Error
	if err != nil {
		return nil, err
	}
	return media, nil
}

func (r *MediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Media{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
