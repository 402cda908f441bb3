package dto

import (
	"errors"
	"fmt"

	"adgen_dev_v1_202608/internal/model"
)

// ==================== 请求 ====================

// AnalyzeContentRequest 直接评审请求
type AnalyzeContentRequest struct {
	MediaURL    string   `json:"media_url" binding:"required"`
	MediaType   string   `json:"media_type" binding:"required,oneof=image video"`
	BrandColors []string `json:"brand_colors"`
	Caption     string   `json:"caption"`
}

// ==================== 响应 ====================

// CritiqueListResult 评审列表响应
type CritiqueListResult struct {
	Critiques []model.Critique `json:"critiques"`
	Total     int64            `json:"total"`
}

// ==================== 评审引擎返回载荷 ====================

// BrandValidation 品牌校验子报告
type BrandValidation struct {
	ColorMatchPercentage float64 `json:"color_match_percentage"`
	LogoPresent          bool    `json:"logo_present"`
	LogoCorrect          bool    `json:"logo_correct"`
	OverallConsistency   float64 `json:"overall_consistency"`
}

// SafetyBreakdown 安全性子报告
type SafetyBreakdown struct {
	HarmfulContent   float64 `json:"harmful_content"`
	Stereotypes      float64 `json:"stereotypes"`
	MisleadingClaims float64 `json:"misleading_claims"`
}

// CritiqueResult 评审引擎的结构化输出
// 字段名对齐引擎的 JSON 契约；可选维度用指针表达缺失，
// 反序列化后必须先 Validate 再向内层传递
type CritiqueResult struct {
	BrandFitScore       float64  `json:"BrandFit_Score"`
	VisualQualityScore  float64  `json:"VisualQuality_Score"`
	MessageClarityScore *float64 `json:"MessageClarity_Score,omitempty"`
	ToneOfVoiceScore    *float64 `json:"ToneOfVoice_Score,omitempty"`
	SafetyScore         float64  `json:"Safety_Score"`

	BrandValidation *BrandValidation `json:"BrandValidation,omitempty"`
	SafetyBreakdown *SafetyBreakdown `json:"SafetyBreakdown,omitempty"`

	CritiqueSummary  string `json:"Critique_Summary"`
	RefinementPrompt string `json:"Refinement_Prompt_Suggestion"`
}

// Validate 校验引擎载荷，评分必须落在 [0,1]
func (r *CritiqueResult) Validate() error {
	if r == nil {
		return errors.New("评审结果为空")
	}

	checks := []struct {
		name  string
		value *float64
	}{
		{"BrandFit_Score", &r.BrandFitScore},
		{"VisualQuality_Score", &r.VisualQualityScore},
		{"MessageClarity_Score", r.MessageClarityScore},
		{"ToneOfVoice_Score", r.ToneOfVoiceScore},
		{"Safety_Score", &r.SafetyScore},
	}

	for _, c := range checks {
		if c.value == nil {
			continue // 可选维度允许缺失
		}
		if *c.value < 0 || *c.value > 1 {
			return fmt.Errorf("评分 %s 越界: %v", c.name, *c.value)
		}
	}

	return nil
}
