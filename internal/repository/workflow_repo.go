package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"adgen_dev_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// WorkflowRepository 工作流仓储接口
// WorkflowRun 的字段只由工作流引擎写入，状态读取方通过 GetByID 拿快照，
// 不共享内存对象
type WorkflowRepository interface {
	Create(ctx context.Context, run *model.WorkflowRun) error
	GetByID(ctx context.Context, id int64) (*model.WorkflowRun, error)
	List(ctx context.Context, status string, limit, offset int) ([]model.WorkflowRun, int64, error)

	// UpdateStep 推进子步骤并记录当前迭代序号
	UpdateStep(ctx context.Context, id int64, step string, iteration int) error

	// Updates 按主键更新任意字段（引擎写终态用）
	Updates(ctx context.Context, id int64, fields map[string]interface{}) error

	// FindStalled 查询卡在 running 且超过截止时间未更新的工作流
	FindStalled(ctx context.Context, updatedBefore time.Time) ([]model.WorkflowRun, error)
}

// ==================== 仓储实现 ====================

type workflowRepo struct {
	db *gorm.DB
}

// NewWorkflowRepository 创建工作流仓储
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepo{db: db}
}

func (r *workflowRepo) Create(ctx context.Context, run *model.WorkflowRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *workflowRepo) GetByID(ctx context.Context, id int64) (*model.WorkflowRun, error) {
	var run model.WorkflowRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *workflowRepo) List(ctx context.Context, status string, limit, offset int) ([]model.WorkflowRun, int64, error) {
	var runs []model.WorkflowRun
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WorkflowRun{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	return runs, total, err
}

func (r *workflowRepo) UpdateStep(ctx context.Context, id int64, step string, iteration int) error {
	return r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_step":    step,
			"iteration_count": iteration,
		}).Error
}

func (r *workflowRepo) Updates(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *workflowRepo) FindStalled(ctx context.Context, updatedBefore time.Time) ([]model.WorkflowRun, error) {
	var runs []model.WorkflowRun
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.WorkflowStatusRunning, updatedBefore).
		Find(&runs).Error
	return runs, err
}
