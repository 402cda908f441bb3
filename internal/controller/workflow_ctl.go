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

// WorkflowController 工作流控制器
type WorkflowController struct {
	workflowService *service.WorkflowService
	workflowRepo    repository.WorkflowRepository
}

func NewWorkflowController(workflowService *service.WorkflowService, workflowRepo repository.WorkflowRepository) *WorkflowController {
	return &WorkflowController{
		workflowService: workflowService,
		workflowRepo:    workflowRepo,
	}
}

// ==================== API 方法 ====================

// StartWorkflow 启动工作流
// @Summary 启动一次 生成→评审→优化 工作流
// @Tags Workflow
// @Accept json
// @Produce json
// @Param body body dto.StartWorkflowRequest true "创意需求"
// @Success 201 {object} dto.StartWorkflowResult
// @Router /api/workflows/start [post]
func (ctrl *WorkflowController) StartWorkflow(c *gin.Context) {
	var req dto.StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	workflowID, err := ctrl.workflowService.Start(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "启动失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data": dto.StartWorkflowResult{
			WorkflowID: workflowID,
			Message:    "Workflow started",
		},
	})
}

// GetWorkflow 查询工作流状态
// @Summary 查询工作流状态快照
// @Tags Workflow
// @Param id path int true "工作流ID"
// @Success 200 {object} model.WorkflowRun
// @Router /api/workflows/{id} [get]
func (ctrl *WorkflowController) GetWorkflow(c *gin.Context) {
	workflowID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || workflowID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的工作流ID",
		})
		return
	}

	run, err := ctrl.workflowRepo.GetByID(c.Request.Context(), workflowID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "工作流不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    run,
	})
}

// ListWorkflows 工作流列表
// @Summary 分页查询工作流
// @Tags Workflow
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移" default(0)
// @Param status query string false "状态过滤"
// @Success 200 {object} dto.WorkflowListResult
// @Router /api/workflows [get]
func (ctrl *WorkflowController) ListWorkflows(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")

	runs, total, err := ctrl.workflowRepo.List(c.Request.Context(), status, limit, offset)
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
		"data": dto.WorkflowListResult{
			Workflows: runs,
			Total:     total,
		},
	})
}
