package repository

import (
	"context"

	"gorm.io/gorm"

	"adgen_dev_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// CritiqueRepository 评审仓储接口，评审记录只增不改
type CritiqueRepository interface {
	Create(ctx context.Context, critique *model.Critique) error
	GetByID(ctx context.Context, id int64) (*model.Critique, error)
	List(ctx context.Context, mediaType string, limit, offset int) ([]model.Critique, int64, error)
}

// ==================== 仓储实现 ====================

type critiqueRepo struct {
	db *gorm.DB
}

// NewCritiqueRepository 创建评审仓储
func NewCritiqueRepository(db *gorm.DB) CritiqueRepository {
	return &critiqueRepo{db: db}
}

func (r *critiqueRepo) Create(ctx context.Context, critique *model.Critique) error {
	return r.db.WithContext(ctx).Create(critique).Error
}

func (r *critiqueRepo) GetByID(ctx context.Context, id int64) (*model.Critique, error) {
	var critique model.Critique
	if err := r.db.WithContext(ctx).First(&critique, id).Error; err != nil {
		return nil, err
	}
	return &critique, nil
}

func (r *critiqueRepo) List(ctx context.Context, mediaType string, limit, offset int) ([]model.Critique, int64, error) {
	var critiques []model.Critique
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Critique{})
	if mediaType != "" {
		query = query.Where("media_type = ?", mediaType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&critiques).Error
	return critiques, total, err
}
