package dto

import "adgen_dev_v1_202608/internal/model"

// ==================== 请求 ====================

// StartWorkflowRequest 启动工作流请求
type StartWorkflowRequest struct {
	ContentType     string   `json:"content_type" binding:"required,oneof=image video"`
	Prompt          string   `json:"prompt" binding:"required"`
	BrandColors     []string `json:"brand_colors"`
	BrandLogoURL    string   `json:"brand_logo_url"`
	ProductImageURL string   `json:"product_image_url"`
	AspectRatio     string   `json:"aspect_ratio"`
}

// ==================== 响应 ====================

// StartWorkflowResult 启动结果，调用方凭 ID 轮询状态
type StartWorkflowResult struct {
	WorkflowID int64  `json:"workflow_id"`
	Message    string `json:"message"`
}

// WorkflowListResult 工作流列表
type WorkflowListResult struct {
	Workflows []model.WorkflowRun `json:"workflows"`
	Total     int64               `json:"total"`
}
