package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adgen_dev_v1_202608/internal/api/dto"
	"adgen_dev_v1_202608/internal/middleware"
	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
	"adgen_dev_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// ContentController 直接生成（不走工作流）的内容控制器
type ContentController struct {
	generationService *service.GenerationService
	contentRepo       repository.ContentRepository
	limiter           *middleware.GenRateLimiter
}

func NewContentController(generationService *service.GenerationService, contentRepo repository.ContentRepository) *ContentController {
	return &ContentController{
		generationService: generationService,
		contentRepo:       contentRepo,
		limiter:           middleware.GetLimiter(),
	}
}

// ==================== 海报 ====================

// GeneratePoster 生成海报
// @Summary 直接提交一次海报生成
// @Tags Content
// @Accept json
// @Produce json
// @Param body body dto.GenerateContentRequest true "生成请求"
// @Success 202 {object} dto.GenerateContentResult
// @Router /api/posters/generate [post]
func (ctrl *ContentController) GeneratePoster(c *gin.Context) {
	ctrl.generate(c, model.ContentTypeImage)
}

// GetPoster 查询海报
// @Summary 查询海报生成状态与详情
// @Tags Content
// @Param id path int true "海报ID"
// @Success 200 {object} model.GeneratedPoster
// @Router /api/posters/{id} [get]
func (ctrl *ContentController) GetPoster(c *gin.Context) {
	contentID, ok := parseContentID(c)
	if !ok {
		return
	}

	poster, err := ctrl.contentRepo.GetPoster(c.Request.Context(), contentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "海报不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    poster,
	})
}

// ListPosters 海报列表
// @Summary 分页查询海报
// @Tags Content
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} dto.PosterListResult
// @Router /api/posters [get]
func (ctrl *ContentController) ListPosters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	posters, total, err := ctrl.contentRepo.ListPosters(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": dto.PosterListResult{
			Posters: posters,
			Total:   total,
		},
	})
}

// ==================== 视频 ====================

// GenerateVideo 生成视频
// @Summary 直接提交一次视频生成
// @Tags Content
// @Accept json
// @Produce json
// @Param body body dto.GenerateContentRequest true "生成请求"
// @Success 202 {object} dto.GenerateContentResult
// @Router /api/videos/generate [post]
func (ctrl *ContentController) GenerateVideo(c *gin.Context) {
	ctrl.generate(c, model.ContentTypeVideo)
}

// GetVideo 查询视频
// @Summary 查询视频生成状态与详情
// @Tags Content
// @Param id path int true "视频ID"
// @Success 200 {object} model.GeneratedVideo
// @Router /api/videos/{id} [get]
func (ctrl *ContentController) GetVideo(c *gin.Context) {
	contentID, ok := parseContentID(c)
	if !ok {
		return
	}

	video, err := ctrl.contentRepo.GetVideo(c.Request.Context(), contentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "视频不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    video,
	})
}

// ListVideos 视频列表
// @Summary 分页查询视频
// @Tags Content
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} dto.VideoListResult
// @Router /api/videos [get]
func (ctrl *ContentController) ListVideos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	videos, total, err := ctrl.contentRepo.ListVideos(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": dto.VideoListResult{
			Videos: videos,
			Total:  total,
		},
	})
}

// ==================== 内部方法 ====================

func (ctrl *ContentController) generate(c *gin.Context, contentType string) {
	var req dto.GenerateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	// 生成是付费操作，按客户端冷却
	check := ctrl.limiter.Check(middleware.GenerateKey(c.ClientIP(), contentType), middleware.DefaultGenerateInterval)
	if !check.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    429,
			"message": "请求过于频繁，请稍后再试",
		})
		return
	}

	contentID, err := ctrl.generationService.Generate(c.Request.Context(), contentType, &service.GenerationRequest{
		Prompt:          req.Prompt,
		BrandColors:     req.BrandColors,
		BrandLogoURL:    req.BrandLogoURL,
		ProductImageURL: req.ProductImageURL,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成请求失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "success",
		"data": dto.GenerateContentResult{
			ContentID: contentID,
			Status:    model.ContentStatusPending,
		},
	})
}

func parseContentID(c *gin.Context) (int64, bool) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || contentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的内容ID",
		})
		return 0, false
	}
	return contentID, true
}
