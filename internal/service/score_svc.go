package service

import (
	"adgen_dev_v1_202608/internal/model"
)

// ==================== 评分聚合 ====================

const (
	// DefaultTargetScore 五维平均分达到该阈值即判定通过
	DefaultTargetScore = 0.8

	// scoreDimensionCount 固定按五个维度求平均
	scoreDimensionCount = 5

	// missingDimensionScore 可选维度缺失时计入平均的分值
	// 注意：按 0 计会压低结构性缺失某些维度的内容类型（如视频缺语气评分），
	// 保持与线上一致，待产品确认后再调整
	missingDimensionScore = 0.0
)

// ScoreVerdict 聚合结论
type ScoreVerdict struct {
	Passed  bool    `json:"passed"`
	Average float64 `json:"average"`
}

// AggregateScores 把一次评审的五维评分压缩成单一的通过/不通过结论
// 纯函数，无副作用
func AggregateScores(c *model.Critique, targetScore float64) ScoreVerdict {
	sum := c.BrandFitScore +
		c.VisualQualityScore +
		orMissing(c.MessageClarityScore) +
		orMissing(c.ToneOfVoiceScore) +
		c.SafetyScore

	avg := sum / scoreDimensionCount

	return ScoreVerdict{
		Passed:  avg >= targetScore,
		Average: avg,
	}
}

func orMissing(score *float64) float64 {
	if score == nil {
		return missingDimensionScore
	}
	return *score
}
