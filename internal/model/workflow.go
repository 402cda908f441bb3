package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 状态常量 ====================

const (
	// 工作流状态
	WorkflowStatusRunning   = "running"
	WorkflowStatusCompleted = "completed"
	WorkflowStatusFailed    = "failed"

	// 工作流子步骤
	WorkflowStepGenerating = "generating"
	WorkflowStepCritiquing = "critiquing"
	WorkflowStepRefining   = "refining"
	WorkflowStepCompleted  = "completed"

	// 内容类型
	ContentTypeImage = "image"
	ContentTypeVideo = "video"
)

// ==================== 数据库模型 ====================

// WorkflowRun 一次端到端的 生成→评审→优化 工作流
// prompt 是循环中唯一会被改写的字段（每轮采用上一轮评审的优化提示词）
type WorkflowRun struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ContentType string `gorm:"size:20;not null;comment:内容类型(image/video)" json:"content_type"`
	Prompt      string `gorm:"type:text;not null;comment:当前工作提示词" json:"prompt"`

	// 品牌素材
	BrandColors     pq.StringArray `gorm:"type:text[];comment:品牌色" json:"brand_colors"`
	BrandLogoURL    string         `gorm:"size:500;comment:品牌Logo地址" json:"brand_logo_url"`
	ProductImageURL string         `gorm:"size:500;comment:产品图地址" json:"product_image_url"`
	AspectRatio     string         `gorm:"size:10;comment:宽高比" json:"aspect_ratio"`

	// 执行状态
	Status         string `gorm:"size:20;index;default:running;comment:状态" json:"status"`
	CurrentStep    string `gorm:"size:20;comment:当前步骤" json:"current_step"`
	IterationCount int    `gorm:"default:0;comment:迭代序号(0起)" json:"iteration_count"`

	// 终态产物
	GeneratedContentID int64          `gorm:"index;comment:最后生成内容ID" json:"generated_content_id"`
	CritiqueID         int64          `gorm:"index;comment:最后评审ID" json:"critique_id"`
	FinalScores        datatypes.JSON `gorm:"type:jsonb;comment:终态评分快照" json:"final_scores"`
	ErrorMessage       string         `gorm:"type:text;comment:失败原因" json:"error_message"`
}

func (*WorkflowRun) TableName() string {
	return "workflow_runs"
}

// ==================== 辅助方法 ====================

// IsTerminal 是否已到达终态（终态不可再变更）
func (w *WorkflowRun) IsTerminal() bool {
	return w.Status == WorkflowStatusCompleted || w.Status == WorkflowStatusFailed
}

// MarkFailed 标记失败
func (w *WorkflowRun) MarkFailed(errMsg string) {
	w.Status = WorkflowStatusFailed
	w.ErrorMessage = errMsg
}
