package dto

import (
	"adgen_dev_v1_202608/internal/model"
)

// ==================== 请求 ====================

// GenerateContentRequest 直接生成请求（不走工作流）
type GenerateContentRequest struct {
	Prompt          string   `json:"prompt" binding:"required"`
	BrandColors     []string `json:"brand_colors"`
	BrandLogoURL    string   `json:"brand_logo_url"`
	ProductImageURL string   `json:"product_image_url"`
	AspectRatio     string   `json:"aspect_ratio"`
}

// ==================== 响应 ====================

// GenerateContentResult 生成受理结果，调用方凭 ID 轮询生成状态
type GenerateContentResult struct {
	ContentID int64  `json:"content_id"`
	Status    string `json:"status"`
}

// PosterListResult 海报列表
type PosterListResult struct {
	Posters []model.GeneratedPoster `json:"posters"`
	Total   int64                   `json:"total"`
}

// VideoListResult 视频列表
type VideoListResult struct {
	Videos []model.GeneratedVideo `json:"videos"`
	Total  int64                  `json:"total"`
}
