package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Critique 一次 AI 评审的结构化结果，入库后不再修改
// message_clarity / tone_of_voice 为可选维度，缺失时存 NULL 而非补零，
// 补零只在评分聚合时发生
type Critique struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// 被评审的素材
	MediaURL    string         `gorm:"size:500;not null;comment:媒体地址" json:"media_url"`
	MediaType   string         `gorm:"size:20;index;comment:媒体类型(image/video)" json:"media_type"`
	Caption     string         `gorm:"type:text;comment:被评审的文案/提示词" json:"caption"`
	BrandColors pq.StringArray `gorm:"type:text[];comment:品牌色" json:"brand_colors"`

	// 五个维度评分 [0,1]
	BrandFitScore       float64  `gorm:"comment:品牌契合度" json:"brand_fit_score"`
	VisualQualityScore  float64  `gorm:"comment:视觉质量" json:"visual_quality_score"`
	MessageClarityScore *float64 `gorm:"comment:信息清晰度(可选)" json:"message_clarity_score"`
	ToneOfVoiceScore    *float64 `gorm:"comment:语气语调(可选)" json:"tone_of_voice_score"`
	SafetyScore         float64  `gorm:"comment:安全性" json:"safety_score"`

	// 结构化子报告
	BrandValidation datatypes.JSON `gorm:"type:jsonb;comment:品牌校验明细" json:"brand_validation"`
	SafetyBreakdown datatypes.JSON `gorm:"type:jsonb;comment:安全性明细" json:"safety_breakdown"`

	CritiqueSummary  string `gorm:"type:text;comment:评审总结" json:"critique_summary"`
	RefinementPrompt string `gorm:"type:text;comment:建议的下一轮提示词" json:"refinement_prompt"`
}

func (*Critique) TableName() string {
	return "critiques"
}

// ScoreSnapshot 终态评分快照，序列化后写入 WorkflowRun.FinalScores
type ScoreSnapshot struct {
	BrandFitScore       float64  `json:"brand_fit_score"`
	VisualQualityScore  float64  `json:"visual_quality_score"`
	MessageClarityScore *float64 `json:"message_clarity_score"`
	ToneOfVoiceScore    *float64 `json:"tone_of_voice_score"`
	SafetyScore         float64  `json:"safety_score"`
}

// Snapshot 提取五维评分快照
func (c *Critique) Snapshot() ScoreSnapshot {
	return ScoreSnapshot{
		BrandFitScore:       c.BrandFitScore,
		VisualQualityScore:  c.VisualQualityScore,
		MessageClarityScore: c.MessageClarityScore,
		ToneOfVoiceScore:    c.ToneOfVoiceScore,
		SafetyScore:         c.SafetyScore,
	}
}
