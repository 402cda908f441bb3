package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ==================== 状态常量 ====================

const (
	// 生成状态
	ContentStatusPending   = "pending"
	ContentStatusCompleted = "completed"
	ContentStatusFailed    = "failed"

	// 审批状态
	ApprovalStatusPendingReview = "pending_review"
	ApprovalStatusAutoApproved  = "auto_approved"
	ApprovalStatusApproved      = "approved"
	ApprovalStatusRejected      = "rejected"
)

// ==================== 数据库模型 ====================

// GeneratedPoster 生成的海报广告，一次生成尝试对应一条记录
type GeneratedPoster struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Prompt    string `gorm:"type:text;not null;comment:生成提示词" json:"prompt"`
	PosterURL string `gorm:"size:500;comment:成品地址" json:"poster_url"`

	BrandColors     pq.StringArray `gorm:"type:text[];comment:品牌色" json:"brand_colors"`
	BrandLogoURL    string         `gorm:"size:500;comment:品牌Logo地址" json:"brand_logo_url"`
	ProductImageURL string         `gorm:"size:500;comment:产品图地址" json:"product_image_url"`
	AspectRatio     string         `gorm:"size:10;default:1:1;comment:宽高比" json:"aspect_ratio"`

	Status         string `gorm:"size:20;index;default:pending;comment:生成状态" json:"status"`
	ApprovalStatus string `gorm:"size:20;index;comment:审批状态" json:"approval_status"`
	CritiqueID     int64  `gorm:"index;comment:评审ID" json:"critique_id"`
	ErrorMessage   string `gorm:"size:1024;comment:生成错误信息" json:"error_message"`
}

func (*GeneratedPoster) TableName() string {
	return "generated_posters"
}

// GeneratedVideo 生成的视频广告
type GeneratedVideo struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Prompt   string `gorm:"type:text;not null;comment:生成提示词" json:"prompt"`
	VideoURL string `gorm:"size:500;comment:成品地址" json:"video_url"`

	BrandColors     pq.StringArray `gorm:"type:text[];comment:品牌色" json:"brand_colors"`
	BrandLogoURL    string         `gorm:"size:500;comment:品牌Logo地址" json:"brand_logo_url"`
	ProductImageURL string         `gorm:"size:500;comment:产品图地址" json:"product_image_url"`
	AspectRatio     string         `gorm:"size:10;default:16:9;comment:宽高比" json:"aspect_ratio"`

	Status         string `gorm:"size:20;index;default:pending;comment:生成状态" json:"status"`
	ApprovalStatus string `gorm:"size:20;index;comment:审批状态" json:"approval_status"`
	CritiqueID     int64  `gorm:"index;comment:评审ID" json:"critique_id"`
	ErrorMessage   string `gorm:"size:1024;comment:生成错误信息" json:"error_message"`
}

func (*GeneratedVideo) TableName() string {
	return "generated_videos"
}

// ==================== 辅助方法 ====================

// MediaURL 统一取媒体地址
func (p *GeneratedPoster) MediaURL() string { return p.PosterURL }

// MediaURL 统一取媒体地址
func (v *GeneratedVideo) MediaURL() string { return v.VideoURL }
