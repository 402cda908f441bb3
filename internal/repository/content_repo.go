package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"adgen_dev_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// ContentSnapshot 生成内容的轮询快照（生成适配器按主键轮询）
type ContentSnapshot struct {
	ID       int64
	Status   string
	MediaURL string
}

// ContentRepository 生成内容仓储接口
// 海报与视频分表存储，接口层按 contentType 统一调度
type ContentRepository interface {
	CreatePoster(ctx context.Context, poster *model.GeneratedPoster) error
	CreateVideo(ctx context.Context, video *model.GeneratedVideo) error

	GetPoster(ctx context.Context, id int64) (*model.GeneratedPoster, error)
	GetVideo(ctx context.Context, id int64) (*model.GeneratedVideo, error)
	ListPosters(ctx context.Context, limit, offset int) ([]model.GeneratedPoster, int64, error)
	ListVideos(ctx context.Context, limit, offset int) ([]model.GeneratedVideo, int64, error)

	// GetSnapshot 按内容类型取轮询快照
	GetSnapshot(ctx context.Context, contentType string, id int64) (*ContentSnapshot, error)

	// MarkCompleted / MarkFailed 由生成适配器写入生成结果
	MarkCompleted(ctx context.Context, contentType string, id int64, mediaURL string) error
	MarkFailed(ctx context.Context, contentType string, id int64, errMsg string) error

	// SetApproval 由工作流引擎在终评后写入审批状态
	SetApproval(ctx context.Context, contentType string, id int64, approvalStatus string, critiqueID int64) error
}

// ==================== 仓储实现 ====================

type contentRepo struct {
	db *gorm.DB
}

// NewContentRepository 创建生成内容仓储
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepo{db: db}
}

func (r *contentRepo) CreatePoster(ctx context.Context, poster *model.GeneratedPoster) error {
	return r.db.WithContext(ctx).Create(poster).Error
}

func (r *contentRepo) CreateVideo(ctx context.Context, video *model.GeneratedVideo) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *contentRepo) GetPoster(ctx context.Context, id int64) (*model.GeneratedPoster, error) {
	var poster model.GeneratedPoster
	if err := r.db.WithContext(ctx).First(&poster, id).Error; err != nil {
		return nil, err
	}
	return &poster, nil
}

func (r *contentRepo) GetVideo(ctx context.Context, id int64) (*model.GeneratedVideo, error) {
	var video model.GeneratedVideo
	if err := r.db.WithContext(ctx).First(&video, id).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *contentRepo) ListPosters(ctx context.Context, limit, offset int) ([]model.GeneratedPoster, int64, error) {
	var posters []model.GeneratedPoster
	var total int64

	query := r.db.WithContext(ctx).Model(&model.GeneratedPoster{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posters).Error
	return posters, total, err
}

func (r *contentRepo) ListVideos(ctx context.Context, limit, offset int) ([]model.GeneratedVideo, int64, error) {
	var videos []model.GeneratedVideo
	var total int64

	query := r.db.WithContext(ctx).Model(&model.GeneratedVideo{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&videos).Error
	return videos, total, err
}

func (r *contentRepo) GetSnapshot(ctx context.Context, contentType string, id int64) (*ContentSnapshot, error) {
	switch contentType {
	case model.ContentTypeVideo:
		video, err := r.GetVideo(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ContentSnapshot{ID: video.ID, Status: video.Status, MediaURL: video.VideoURL}, nil
	case model.ContentTypeImage:
		poster, err := r.GetPoster(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ContentSnapshot{ID: poster.ID, Status: poster.Status, MediaURL: poster.PosterURL}, nil
	default:
		return nil, fmt.Errorf("未知内容类型: %s", contentType)
	}
}

func (r *contentRepo) MarkCompleted(ctx context.Context, contentType string, id int64, mediaURL string) error {
	fields := map[string]interface{}{"status": model.ContentStatusCompleted}
	if contentType == model.ContentTypeVideo {
		fields["video_url"] = mediaURL
		return r.updateVideo(ctx, id, fields)
	}
	fields["poster_url"] = mediaURL
	return r.updatePoster(ctx, id, fields)
}

func (r *contentRepo) MarkFailed(ctx context.Context, contentType string, id int64, errMsg string) error {
	fields := map[string]interface{}{
		"status":        model.ContentStatusFailed,
		"error_message": errMsg,
	}
	if contentType == model.ContentTypeVideo {
		return r.updateVideo(ctx, id, fields)
	}
	return r.updatePoster(ctx, id, fields)
}

func (r *contentRepo) SetApproval(ctx context.Context, contentType string, id int64, approvalStatus string, critiqueID int64) error {
	fields := map[string]interface{}{
		"approval_status": approvalStatus,
		"critique_id":     critiqueID,
	}
	if contentType == model.ContentTypeVideo {
		return r.updateVideo(ctx, id, fields)
	}
	return r.updatePoster(ctx, id, fields)
}

func (r *contentRepo) updatePoster(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.GeneratedPoster{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *contentRepo) updateVideo(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.GeneratedVideo{}).
		Where("id = ?", id).
		Updates(fields).Error
}
