package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adgen_dev_v1_202608/internal/api/dto"
	"adgen_dev_v1_202608/internal/repository"
	"adgen_dev_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// CritiqueController 评审控制器
type CritiqueController struct {
	critiqueService *service.CritiqueService
	critiqueRepo    repository.CritiqueRepository
}

func NewCritiqueController(critiqueService *service.CritiqueService, critiqueRepo repository.CritiqueRepository) *CritiqueController {
	return &CritiqueController{
		critiqueService: critiqueService,
		critiqueRepo:    critiqueRepo,
	}
}

// ==================== API 方法 ====================

// AnalyzeContent 对任意媒体执行一次评审
// @Summary 直接评审一个媒体资源（不走工作流）
// @Tags Critique
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeContentRequest true "评审请求"
// @Success 200 {object} model.Critique
// @Router /api/critiques/analyze [post]
func (ctrl *CritiqueController) AnalyzeContent(c *gin.Context) {
	var req dto.AnalyzeContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	critique, err := ctrl.critiqueService.Critique(c.Request.Context(), req.MediaURL, req.MediaType, req.BrandColors, req.Caption)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "评审失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    critique,
	})
}

// GetCritique 查询评审详情
// @Summary 查询评审记录
// @Tags Critique
// @Param id path int true "评审ID"
// @Success 200 {object} model.Critique
// @Router /api/critiques/{id} [get]
func (ctrl *CritiqueController) GetCritique(c *gin.Context) {
	critiqueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || critiqueID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的评审ID",
		})
		return
	}

	critique, err := ctrl.critiqueRepo.GetByID(c.Request.Context(), critiqueID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "评审记录不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    critique,
	})
}

// ListCritiques 评审列表
// @Summary 分页查询评审记录
// @Tags Critique
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移" default(0)
// @Param media_type query string false "媒体类型过滤 (image/video)"
// @Success 200 {object} dto.CritiqueListResult
// @Router /api/critiques [get]
func (ctrl *CritiqueController) ListCritiques(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	mediaType := c.Query("media_type")

	critiques, total, err := ctrl.critiqueRepo.List(c.Request.Context(), mediaType, limit, offset)
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
		"data": dto.CritiqueListResult{
			Critiques: critiques,
			Total:     total,
		},
	})
}
