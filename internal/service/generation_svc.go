package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"

	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
)

// ==================== 配置 ====================

// GeneratorConfig 内容生成服务配置
// 轮询间隔与超时是策略参数而非硬编码，测试时可缩短
type GeneratorConfig struct {
	ApiKey     string
	BaseURL    string // 生成接口根地址，测试时指向本地
	ImageModel string
	VideoModel string

	GenerationTimeout time.Duration // 等待生成完成的上限
	PollInterval      time.Duration // 轮询数据库的间隔
}

func (cfg *GeneratorConfig) applyDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "imagen-3.0-generate-001"
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = "veo-2.0-generate-001"
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 120 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
}

// ==================== 服务 ====================

// GenerationRequest 一次生成所需的品牌上下文
type GenerationRequest struct {
	Prompt          string
	BrandColors     []string
	BrandLogoURL    string
	ProductImageURL string
	AspectRatio     string
}

// GenerationService 内容生成适配器
// Generate 只负责建档并异步触发，真正的完成状态通过数据库轮询观察，
// 生成方和等待方之间只以数据库为媒介（最终一致）
type GenerationService struct {
	Config      *GeneratorConfig
	contentRepo repository.ContentRepository
	storage     StorageProvider
}

// NewGenerationService 创建内容生成服务
func NewGenerationService(cfg *GeneratorConfig, contentRepo repository.ContentRepository, storage StorageProvider) *GenerationService {
	cfg.applyDefaults()
	return &GenerationService{
		Config:      cfg,
		contentRepo: contentRepo,
		storage:     storage,
	}
}

// ==================== 提交生成 ====================

// Generate 创建 pending 内容记录并异步触发生成，立即返回内容ID
func (s *GenerationService) Generate(ctx context.Context, contentType string, req *GenerationRequest) (int64, error) {
	if s.Config.ApiKey == "" {
		return 0, fmt.Errorf("生成服务 API Key 未配置")
	}

	var contentID int64

	switch contentType {
	case model.ContentTypeVideo:
		video := &model.GeneratedVideo{
			Prompt:          req.Prompt,
			BrandColors:     pq.StringArray(req.BrandColors),
			BrandLogoURL:    req.BrandLogoURL,
			ProductImageURL: req.ProductImageURL,
			AspectRatio:     defaultRatio(req.AspectRatio, "16:9"),
			Status:          model.ContentStatusPending,
			ApprovalStatus:  model.ApprovalStatusPendingReview,
		}
		if err := s.contentRepo.CreateVideo(ctx, video); err != nil {
			return 0, fmt.Errorf("创建视频记录失败: %v", err)
		}
		contentID = video.ID
	case model.ContentTypeImage:
		poster := &model.GeneratedPoster{
			Prompt:          req.Prompt,
			BrandColors:     pq.StringArray(req.BrandColors),
			BrandLogoURL:    req.BrandLogoURL,
			ProductImageURL: req.ProductImageURL,
			AspectRatio:     defaultRatio(req.AspectRatio, "1:1"),
			Status:          model.ContentStatusPending,
			ApprovalStatus:  model.ApprovalStatusPendingReview,
		}
		if err := s.contentRepo.CreatePoster(ctx, poster); err != nil {
			return 0, fmt.Errorf("创建海报记录失败: %v", err)
		}
		contentID = poster.ID
	default:
		return 0, fmt.Errorf("未知内容类型: %s", contentType)
	}

	// 异步执行生成，完成状态落库，调用方轮询观察
	go s.runGeneration(contentType, contentID, req)

	return contentID, nil
}

// runGeneration 后台执行一次生成：调用生成接口 → 转存到对象存储 → 更新记录
func (s *GenerationService) runGeneration(contentType string, contentID int64, req *GenerationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.GenerationTimeout)
	defer cancel()

	genModel := s.Config.ImageModel
	mimeType := "image/png"
	filename := fmt.Sprintf("poster_%d.png", contentID)
	if contentType == model.ContentTypeVideo {
		genModel = s.Config.VideoModel
		mimeType = "video/mp4"
		filename = fmt.Sprintf("video_%d.mp4", contentID)
	}

	data, err := s.callPredict(ctx, genModel, s.buildPrompt(contentType, req), req.AspectRatio, mimeType)
	if err != nil {
		log.Printf("[Generation] 内容 %s/%d 生成失败: %v", contentType, contentID, err)
		s.markFailed(contentType, contentID, err.Error())
		return
	}

	mediaURL, err := s.storage.Upload(ctx, data, filename, mimeType)
	if err != nil {
		log.Printf("[Generation] 内容 %s/%d 转存失败: %v", contentType, contentID, err)
		s.markFailed(contentType, contentID, fmt.Sprintf("转存失败: %v", err))
		return
	}

	if err := s.contentRepo.MarkCompleted(context.Background(), contentType, contentID, mediaURL); err != nil {
		log.Printf("[Generation] 内容 %s/%d 状态更新失败: %v", contentType, contentID, err)
		return
	}

	log.Printf("[Generation] 内容 %s/%d 生成完成: %s", contentType, contentID, mediaURL)
}

func (s *GenerationService) markFailed(contentType string, contentID int64, errMsg string) {
	if err := s.contentRepo.MarkFailed(context.Background(), contentType, contentID, errMsg); err != nil {
		log.Printf("[Generation] 内容 %s/%d 失败状态落库失败: %v", contentType, contentID, err)
	}
}

// ==================== 等待生成完成 ====================

// WaitForCompletion 轮询数据库等待生成完成
// 返回媒体URL；生成失败或超时返回空串，由调用方决定如何处置，
// 只有上下文取消等基础设施问题才返回 error
func (s *GenerationService) WaitForCompletion(ctx context.Context, contentType string, contentID int64) (string, error) {
	deadline := time.Now().Add(s.Config.GenerationTimeout)

	for time.Now().Before(deadline) {
		snapshot, err := s.contentRepo.GetSnapshot(ctx, contentType, contentID)
		if err == nil && snapshot != nil {
			if snapshot.Status == model.ContentStatusCompleted && snapshot.MediaURL != "" {
				return snapshot.MediaURL, nil
			}
			if snapshot.Status == model.ContentStatusFailed {
				return "", nil
			}
		}
		// 记录暂时读不到也继续轮询，生成方可能还没写入

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.Config.PollInterval):
		}
	}

	return "", nil
}

// ==================== 生成接口调用 ====================

// callPredict 调用 predict 接口生成媒体，返回解码后的字节
func (s *GenerationService) callPredict(ctx context.Context, genModel, prompt, aspectRatio, mimeType string) ([]byte, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:predict?key=%s", s.Config.BaseURL, genModel, s.Config.ApiKey)

	reqBody := map[string]interface{}{
		"instances": []map[string]interface{}{
			{
				"prompt": prompt,
				"parameters": map[string]interface{}{
					"sampleCount":    1,
					"aspectRatio":    aspectRatio,
					"outputMimeType": mimeType,
				},
			},
		},
	}

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: s.Config.GenerationTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("生成接口错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	var predictResp struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}

	if err := json.Unmarshal(respBody, &predictResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %v", err)
	}

	if len(predictResp.Predictions) == 0 || predictResp.Predictions[0].BytesBase64Encoded == "" {
		return nil, fmt.Errorf("响应中未找到媒体数据")
	}

	data, err := base64.StdEncoding.DecodeString(predictResp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("媒体数据解码失败: %v", err)
	}

	return data, nil
}

// ==================== 提示词构建 ====================

// buildPrompt 把用户提示词包装成带品牌约束的完整生成提示词
func (s *GenerationService) buildPrompt(contentType string, req *GenerationRequest) string {
	kind := "poster"
	if contentType == model.ContentTypeVideo {
		kind = "video"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a professional advertising %s with these requirements:\n\n%s\n\nCRITICAL REQUIREMENTS:\n", kind, req.Prompt)

	if len(req.BrandColors) > 0 {
		fmt.Fprintf(&b, "- PRIMARY REQUIREMENT: Use ONLY these exact brand colors: %s\n", strings.Join(req.BrandColors, ", "))
	}
	if req.BrandLogoURL != "" {
		fmt.Fprintf(&b, "- CRITICAL: Incorporate the brand logo from this URL: %s\n", req.BrandLogoURL)
	}
	if req.ProductImageURL != "" {
		fmt.Fprintf(&b, "- CRITICAL: Feature the product from this URL as the focal point: %s\n", req.ProductImageURL)
	}

	ratio := req.AspectRatio
	if ratio == "" {
		ratio = "1:1"
		if contentType == model.ContentTypeVideo {
			ratio = "16:9"
		}
	}

	b.WriteString("\nDesign specifications:\n")
	fmt.Fprintf(&b, "- Aspect ratio: %s\n", ratio)
	b.WriteString("- Style: Modern, professional, eye-catching\n")
	b.WriteString("- Quality: High-resolution, suitable for advertising\n")

	return b.String()
}

func defaultRatio(ratio, fallback string) string {
	if ratio == "" {
		return fallback
	}
	return ratio
}
