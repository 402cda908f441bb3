package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"adgen_dev_v1_202608/internal/api/dto"
	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
)

// ==================== 配置 ====================

// CritiqueConfig 评审服务配置
type CritiqueConfig struct {
	ApiKey  string
	BaseURL string // 评审接口根地址，测试时指向本地
	Model   string
}

func (cfg *CritiqueConfig) applyDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-exp"
	}
}

// ==================== 服务 ====================

// CritiqueService 评审适配器
// 同步调用评审引擎，把结构化结果落库；本层不做重试，
// 重试是工作流引擎在迭代层面的事
type CritiqueService struct {
	Config       *CritiqueConfig
	critiqueRepo repository.CritiqueRepository
	client       *resty.Client
}

// NewCritiqueService 创建评审服务
func NewCritiqueService(cfg *CritiqueConfig, critiqueRepo repository.CritiqueRepository) *CritiqueService {
	cfg.applyDefaults()

	client := resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &CritiqueService{
		Config:       cfg,
		critiqueRepo: critiqueRepo,
		client:       client,
	}
}

// ==================== 评审 ====================

// Critique 对一个媒体资源执行 AI 评审并持久化结果
// 引擎调用失败、非2xx、输出不可解析都原样上抛，不在本层吞掉
func (s *CritiqueService) Critique(ctx context.Context, mediaURL, mediaType string, brandColors []string, caption string) (*model.Critique, error) {
	if s.Config.ApiKey == "" {
		return nil, fmt.Errorf("评审服务 API Key 未配置")
	}

	result, err := s.invokeEngine(ctx, mediaURL, mediaType, brandColors, caption)
	if err != nil {
		return nil, err
	}

	critique := &model.Critique{
		MediaURL:    mediaURL,
		MediaType:   mediaType,
		Caption:     caption,
		BrandColors: pq.StringArray(brandColors),

		BrandFitScore:      result.BrandFitScore,
		VisualQualityScore: result.VisualQualityScore,
		// 可选维度缺失时保持 NULL，不在存储层补零
		MessageClarityScore: result.MessageClarityScore,
		ToneOfVoiceScore:    result.ToneOfVoiceScore,
		SafetyScore:         result.SafetyScore,

		CritiqueSummary:  result.CritiqueSummary,
		RefinementPrompt: result.RefinementPrompt,
	}

	if result.BrandValidation != nil {
		raw, _ := json.Marshal(result.BrandValidation)
		critique.BrandValidation = datatypes.JSON(raw)
	}
	if result.SafetyBreakdown != nil {
		raw, _ := json.Marshal(result.SafetyBreakdown)
		critique.SafetyBreakdown = datatypes.JSON(raw)
	}

	if err := s.critiqueRepo.Create(ctx, critique); err != nil {
		return nil, fmt.Errorf("评审结果落库失败: %v", err)
	}

	log.Printf("[Critique] 评审 %d 完成: brand_fit=%.2f visual=%.2f safety=%.2f",
		critique.ID, critique.BrandFitScore, critique.VisualQualityScore, critique.SafetyScore)

	return critique, nil
}

// invokeEngine 调用评审引擎并把输出解析成受校验的结构化结果
func (s *CritiqueService) invokeEngine(ctx context.Context, mediaURL, mediaType string, brandColors []string, caption string) (*dto.CritiqueResult, error) {
	// 拉取媒体并编码
	mediaData, err := s.fetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("拉取媒体失败: %v", err)
	}

	mimeType := "image/jpeg"
	if mediaType == model.ContentTypeVideo {
		mimeType = "video/mp4"
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", s.Config.BaseURL, s.Config.Model, s.Config.ApiKey)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": buildCritiquePrompt(brandColors, caption)},
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      mediaData,
						},
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.4,
			"maxOutputTokens": 2048,
		},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("评审引擎请求失败: %v", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("评审引擎错误 [%d]: %s", resp.StatusCode(), resp.String())
	}

	var engineResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(resp.Body(), &engineResp); err != nil {
		return nil, fmt.Errorf("解析引擎响应失败: %v", err)
	}

	if len(engineResp.Candidates) == 0 || len(engineResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("引擎无返回结果")
	}

	// 去掉可能的 markdown 代码块包裹
	text := engineResp.Candidates[0].Content.Parts[0].Text
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var result dto.CritiqueResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("解析评审结果失败: %v, raw: %s", err, text)
	}

	// 边界校验后才允许向工作流引擎传递
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("评审结果非法: %v", err)
	}

	return &result, nil
}

func (s *CritiqueService) fetchMedia(ctx context.Context, url string) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode())
	}
	return base64.StdEncoding.EncodeToString(resp.Body()), nil
}

// ==================== 评审提示词 ====================

// buildCritiquePrompt 构建七方面评审提示词，要求引擎只回 JSON
func buildCritiquePrompt(brandColors []string, caption string) string {
	colors := "Not specified"
	if len(brandColors) > 0 {
		colors = strings.Join(brandColors, ", ")
	}

	return fmt.Sprintf(`You are an expert brand and creative director evaluating AI-generated ads.
Analyze the provided ad creative and provide a comprehensive critique based on these brand guidelines:

Brand Colors: %s
Caption/Message: %s

Evaluate the following aspects with precision:

1. BRAND ALIGNMENT (0-1): How well does the visual content match the provided brand colors? Does it use the correct logo? Is the overall aesthetic on-brand?

2. VISUAL QUALITY (0-1): Assess composition, clarity, professionalism, absence of artifacts, watermarks, or blurriness

3. MESSAGE CLARITY (0-1): Is the product/service obvious? Is the tagline/caption clear and correct? Can viewers immediately understand what's being advertised?

4. TONE OF VOICE (0-1): Does the messaging style, language, and overall communication match the expected brand voice? Is it appropriate for the target audience?

5. SAFETY & ETHICS (0-1): Check for harmful content, stereotypes, misleading claims, or any unsafe elements

6. BRAND VALIDATION: Compare the generated content against provided brand assets:
   - Calculate what percentage of the provided brand colors are actually present in the ad
   - Check if a logo is visible and appears correct
   - Assess overall brand consistency

7. SAFETY BREAKDOWN: Provide granular safety analysis:
   - Harmful content detection (violence, adult content, etc.)
   - Stereotype detection (racial, gender, age-based stereotypes)
   - Misleading claims detection (false promises, exaggerations)

Return ONLY a JSON object with this exact structure:
{
  "BrandFit_Score": 0.85,
  "VisualQuality_Score": 0.92,
  "MessageClarity_Score": 0.88,
  "ToneOfVoice_Score": 0.90,
  "Safety_Score": 0.95,
  "BrandValidation": {
    "color_match_percentage": 75,
    "logo_present": true,
    "logo_correct": true,
    "overall_consistency": 0.82
  },
  "SafetyBreakdown": {
    "harmful_content": 1.0,
    "stereotypes": 1.0,
    "misleading_claims": 0.9
  },
  "Critique_Summary": "Detailed explanation covering all dimensions",
  "Refinement_Prompt_Suggestion": "Specific actionable suggestions explicitly mentioning brand colors: %s"
}`, colors, caption, colors)
}
