package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"adgen_dev_v1_202608/internal/api/dto"
	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
)

// ==================== 配置 ====================

// WorkflowConfig 工作流引擎策略参数
type WorkflowConfig struct {
	MaxIterations int     // 最多执行多少轮 生成+评审
	TargetScore   float64 // 通过阈值
}

// DefaultWorkflowConfig 默认策略
func DefaultWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		MaxIterations: 3,
		TargetScore:   DefaultTargetScore,
	}
}

// ==================== 协作方接口 ====================

// ContentGenerator 内容生成协作方（生成适配器实现）
type ContentGenerator interface {
	Generate(ctx context.Context, contentType string, req *GenerationRequest) (int64, error)
	WaitForCompletion(ctx context.Context, contentType string, contentID int64) (string, error)
}

// ContentCritic 内容评审协作方（评审适配器实现）
type ContentCritic interface {
	Critique(ctx context.Context, mediaURL, mediaType string, brandColors []string, caption string) (*model.Critique, error)
}

// ==================== 服务 ====================

// WorkflowService 工作流引擎
// 持有重试决策的唯一权力：适配器层的错误一律终止整个工作流，
// 评分不达标不是错误，走 优化→重试 路径
//
// 工作流状态只写数据库，外部读取方通过仓储拿快照，不共享内存对象
type WorkflowService struct {
	Config       *WorkflowConfig
	workflowRepo repository.WorkflowRepository
	contentRepo  repository.ContentRepository
	generator    ContentGenerator
	critic       ContentCritic

	wg sync.WaitGroup
}

// NewWorkflowService 创建工作流引擎
func NewWorkflowService(
	cfg *WorkflowConfig,
	workflowRepo repository.WorkflowRepository,
	contentRepo repository.ContentRepository,
	generator ContentGenerator,
	critic ContentCritic,
) *WorkflowService {
	if cfg == nil {
		cfg = DefaultWorkflowConfig()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.TargetScore <= 0 {
		cfg.TargetScore = DefaultTargetScore
	}

	return &WorkflowService{
		Config:       cfg,
		workflowRepo: workflowRepo,
		contentRepo:  contentRepo,
		generator:    generator,
		critic:       critic,
	}
}

// ==================== 启动 ====================

// Start 创建工作流并异步执行，立即返回工作流ID
// 调用方通过状态查询接口轮询进度，不会阻塞在这里
func (s *WorkflowService) Start(ctx context.Context, req *dto.StartWorkflowRequest) (int64, error) {
	run := &model.WorkflowRun{
		ContentType:     req.ContentType,
		Prompt:          req.Prompt,
		BrandColors:     pq.StringArray(req.BrandColors),
		BrandLogoURL:    req.BrandLogoURL,
		ProductImageURL: req.ProductImageURL,
		AspectRatio:     req.AspectRatio,
		Status:          model.WorkflowStatusRunning,
		CurrentStep:     model.WorkflowStepGenerating,
	}

	if err := s.workflowRepo.Create(ctx, run); err != nil {
		return 0, fmt.Errorf("创建工作流失败: %v", err)
	}

	log.Printf("[Workflow] 工作流 %d 已启动 (type=%s)", run.ID, run.ContentType)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runWorkflow(run.ID)
	}()

	return run.ID, nil
}

// Wait 等待所有在途工作流结束（优雅退出与测试用）
func (s *WorkflowService) Wait() {
	s.wg.Wait()
}

// ==================== 主循环 ====================

// runWorkflow 执行 生成→评审→优化 主循环，至多 MaxIterations 轮
func (s *WorkflowService) runWorkflow(workflowID int64) {
	ctx := context.Background()

	run, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		log.Printf("[Workflow] 工作流 %d 读取失败: %v", workflowID, err)
		return
	}

	currentPrompt := run.Prompt

	var (
		lastContentID int64
		lastCritique  *model.Critique
	)

	for iteration := 0; iteration < s.Config.MaxIterations; iteration++ {
		log.Printf("[Workflow] 工作流 %d - 第 %d 轮", workflowID, iteration+1)

		// Step 1: 生成内容
		s.updateStep(ctx, workflowID, model.WorkflowStepGenerating, iteration)

		contentID, err := s.generator.Generate(ctx, run.ContentType, &GenerationRequest{
			Prompt:          currentPrompt,
			BrandColors:     []string(run.BrandColors),
			BrandLogoURL:    run.BrandLogoURL,
			ProductImageURL: run.ProductImageURL,
			AspectRatio:     run.AspectRatio,
		})
		if err != nil {
			s.failWorkflow(ctx, workflowID, fmt.Sprintf("内容生成失败: %v", err))
			return
		}
		lastContentID = contentID

		mediaURL, err := s.generator.WaitForCompletion(ctx, run.ContentType, contentID)
		if err != nil {
			s.failWorkflow(ctx, workflowID, fmt.Sprintf("等待生成结果失败: %v", err))
			return
		}
		if mediaURL == "" {
			// 生成失败或超时对整个工作流是致命的，同一轮内不重试
			s.failWorkflow(ctx, workflowID, "生成超时或失败")
			return
		}

		// Step 2: 评审内容
		s.updateStep(ctx, workflowID, model.WorkflowStepCritiquing, iteration)

		critique, err := s.critic.Critique(ctx, mediaURL, run.ContentType, []string(run.BrandColors), currentPrompt)
		if err != nil {
			s.failWorkflow(ctx, workflowID, fmt.Sprintf("评审失败: %v", err))
			return
		}
		// 快照始终取最近一轮，不做 best-of-N 挑选
		lastCritique = critique

		verdict := AggregateScores(critique, s.Config.TargetScore)
		log.Printf("[Workflow] 工作流 %d 第 %d 轮评分 %.2f (通过线 %.2f)",
			workflowID, iteration+1, verdict.Average, s.Config.TargetScore)

		if verdict.Passed {
			// 达标即自动批准并收尾
			if err := s.contentRepo.SetApproval(ctx, run.ContentType, contentID, model.ApprovalStatusAutoApproved, critique.ID); err != nil {
				log.Printf("[Workflow] 工作流 %d 审批状态写入失败: %v", workflowID, err)
			}
			s.finalizeWorkflow(ctx, workflowID, contentID, critique, iteration)
			return
		}

		// Step 3: 采用优化提示词进入下一轮
		if iteration < s.Config.MaxIterations-1 && critique.RefinementPrompt != "" {
			s.updateStep(ctx, workflowID, model.WorkflowStepRefining, iteration)
			currentPrompt = critique.RefinementPrompt
		}
		// 没有优化建议就沿用原提示词盲重试
	}

	// 重试预算用尽：不是错误，转人工评审后以 completed 收尾
	if err := s.contentRepo.SetApproval(ctx, run.ContentType, lastContentID, model.ApprovalStatusPendingReview, lastCritique.ID); err != nil {
		log.Printf("[Workflow] 工作流 %d 审批状态写入失败: %v", workflowID, err)
	}
	s.finalizeWorkflow(ctx, workflowID, lastContentID, lastCritique, s.Config.MaxIterations-1)
}

// ==================== 状态写入 ====================

func (s *WorkflowService) updateStep(ctx context.Context, workflowID int64, step string, iteration int) {
	if err := s.workflowRepo.UpdateStep(ctx, workflowID, step, iteration); err != nil {
		log.Printf("[Workflow] 工作流 %d 步骤更新失败: %v", workflowID, err)
	}
}

// finalizeWorkflow 写终态：completed + 评分快照 + 产物引用
func (s *WorkflowService) finalizeWorkflow(ctx context.Context, workflowID, contentID int64, critique *model.Critique, iteration int) {
	scores, _ := json.Marshal(critique.Snapshot())

	err := s.workflowRepo.Updates(ctx, workflowID, map[string]interface{}{
		"status":               model.WorkflowStatusCompleted,
		"current_step":         model.WorkflowStepCompleted,
		"iteration_count":      iteration,
		"generated_content_id": contentID,
		"critique_id":          critique.ID,
		"final_scores":         datatypes.JSON(scores),
	})
	if err != nil {
		log.Printf("[Workflow] 工作流 %d 终态写入失败: %v", workflowID, err)
		return
	}

	log.Printf("[Workflow] 工作流 %d 完成 (iteration=%d)", workflowID, iteration)
}

// failWorkflow 写失败终态，错误信息原样记录
func (s *WorkflowService) failWorkflow(ctx context.Context, workflowID int64, errMsg string) {
	err := s.workflowRepo.Updates(ctx, workflowID, map[string]interface{}{
		"status":        model.WorkflowStatusFailed,
		"error_message": errMsg,
	})
	if err != nil {
		log.Printf("[Workflow] 工作流 %d 失败状态写入失败: %v", workflowID, err)
		return
	}

	log.Printf("[Workflow] 工作流 %d 失败: %s", workflowID, errMsg)
}
