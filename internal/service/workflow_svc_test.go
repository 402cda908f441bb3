package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adgen_dev_v1_202608/internal/api/dto"
	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
)

// ==================== 测试辅助 ====================

func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	// :memory: 库每个连接各自独立，后台协程并发访问时必须锁定单连接
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&model.WorkflowRun{}, &model.GeneratedPoster{}, &model.GeneratedVideo{}, &model.Critique{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

// fakeGenerator 生成协作方假实现
// 建真实内容记录，让审批状态断言能落到真实行上
type fakeGenerator struct {
	contentRepo repository.ContentRepository

	// 记录每轮拿到的提示词，验证优化提示词是否被采用
	prompts []string

	generateErr error
	waitResults []string // 按调用顺序返回，取尽后复用最后一个
	waitErr     error
	waitCalls   int
}

func (g *fakeGenerator) Generate(ctx context.Context, contentType string, req *GenerationRequest) (int64, error) {
	if g.generateErr != nil {
		return 0, g.generateErr
	}
	g.prompts = append(g.prompts, req.Prompt)

	poster := &model.GeneratedPoster{
		Prompt: req.Prompt,
		Status: model.ContentStatusCompleted,
	}
	if err := g.contentRepo.CreatePoster(ctx, poster); err != nil {
		return 0, err
	}
	return poster.ID, nil
}

func (g *fakeGenerator) WaitForCompletion(ctx context.Context, contentType string, contentID int64) (string, error) {
	if g.waitErr != nil {
		return "", g.waitErr
	}
	idx := g.waitCalls
	g.waitCalls++
	if len(g.waitResults) == 0 {
		return "https://cdn.example.com/media.png", nil
	}
	if idx >= len(g.waitResults) {
		idx = len(g.waitResults) - 1
	}
	return g.waitResults[idx], nil
}

// fakeCritic 评审协作方假实现，评审结果走真实仓储落库拿 ID
type fakeCritic struct {
	critiqueRepo repository.CritiqueRepository

	results []*model.Critique // 按调用顺序返回，取尽后复用最后一个
	err     error
	calls   int
}

func (c *fakeCritic) Critique(ctx context.Context, mediaURL, mediaType string, brandColors []string, caption string) (*model.Critique, error) {
	if c.err != nil {
		return nil, c.err
	}
	idx := c.calls
	c.calls++
	if idx >= len(c.results) {
		idx = len(c.results) - 1
	}

	critique := c.results[idx]
	critique.MediaURL = mediaURL
	critique.MediaType = mediaType
	if err := c.critiqueRepo.Create(ctx, critique); err != nil {
		return nil, err
	}
	return critique, nil
}

func passingCritique() *model.Critique {
	return &model.Critique{
		BrandFitScore:       0.9,
		VisualQualityScore:  0.9,
		MessageClarityScore: ptr(0.9),
		ToneOfVoiceScore:    ptr(0.9),
		SafetyScore:         0.9,
	}
}

func failingCritique(refinement string) *model.Critique {
	return &model.Critique{
		BrandFitScore:       0.3,
		VisualQualityScore:  0.4,
		MessageClarityScore: ptr(0.5),
		ToneOfVoiceScore:    ptr(0.4),
		SafetyScore:         0.9,
		RefinementPrompt:    refinement,
	}
}

type workflowTestEnv struct {
	db           *gorm.DB
	workflowRepo repository.WorkflowRepository
	contentRepo  repository.ContentRepository
	critiqueRepo repository.CritiqueRepository
	generator    *fakeGenerator
	critic       *fakeCritic
	svc          *WorkflowService
}

func setupWorkflowEnv(t *testing.T, critiques []*model.Critique) *workflowTestEnv {
	db := setupWorkflowTestDB(t)

	workflowRepo := repository.NewWorkflowRepository(db)
	contentRepo := repository.NewContentRepository(db)
	critiqueRepo := repository.NewCritiqueRepository(db)

	generator := &fakeGenerator{contentRepo: contentRepo}
	critic := &fakeCritic{critiqueRepo: critiqueRepo, results: critiques}

	svc := NewWorkflowService(DefaultWorkflowConfig(), workflowRepo, contentRepo, generator, critic)

	return &workflowTestEnv{
		db:           db,
		workflowRepo: workflowRepo,
		contentRepo:  contentRepo,
		critiqueRepo: critiqueRepo,
		generator:    generator,
		critic:       critic,
		svc:          svc,
	}
}

func startAndWait(t *testing.T, env *workflowTestEnv) *model.WorkflowRun {
	id, err := env.svc.Start(context.Background(), &dto.StartWorkflowRequest{
		ContentType: model.ContentTypeImage,
		Prompt:      "summer sale poster",
		BrandColors: []string{"#FF0000", "#00FF00"},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.svc.Wait()

	run, err := env.workflowRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	return run
}

// ==================== 单元测试 ====================

func TestWorkflowService_FirstPassSuccess(t *testing.T) {
	env := setupWorkflowEnv(t, []*model.Critique{passingCritique()})

	run := startAndWait(t, env)

	if run.Status != model.WorkflowStatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
	if run.CurrentStep != model.WorkflowStepCompleted {
		t.Errorf("CurrentStep = %s, want completed", run.CurrentStep)
	}
	// 首轮通过时迭代序号为 0
	if run.IterationCount != 0 {
		t.Errorf("IterationCount = %d, want 0", run.IterationCount)
	}
	if run.GeneratedContentID == 0 {
		t.Error("GeneratedContentID 应该被写入")
	}
	if run.CritiqueID == 0 {
		t.Error("CritiqueID 应该被写入")
	}
	if run.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %s, want empty", run.ErrorMessage)
	}

	// 达标内容自动批准
	poster, err := env.contentRepo.GetPoster(context.Background(), run.GeneratedContentID)
	if err != nil {
		t.Fatalf("GetPoster() error = %v", err)
	}
	if poster.ApprovalStatus != model.ApprovalStatusAutoApproved {
		t.Errorf("ApprovalStatus = %s, want auto_approved", poster.ApprovalStatus)
	}
	if poster.CritiqueID != run.CritiqueID {
		t.Errorf("poster.CritiqueID = %d, want %d", poster.CritiqueID, run.CritiqueID)
	}

	// 评分快照写入终态
	var snapshot model.ScoreSnapshot
	if err := json.Unmarshal(run.FinalScores, &snapshot); err != nil {
		t.Fatalf("FinalScores 解析失败: %v", err)
	}
	if snapshot.BrandFitScore != 0.9 {
		t.Errorf("snapshot.BrandFitScore = %f, want 0.9", snapshot.BrandFitScore)
	}
}

func TestWorkflowService_RefinementThenSuccess(t *testing.T) {
	env := setupWorkflowEnv(t, []*model.Critique{
		failingCritique("add the brand colors #FF0000 and #00FF00 prominently"),
		passingCritique(),
	})

	run := startAndWait(t, env)

	if run.Status != model.WorkflowStatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
	// 第二轮通过，迭代序号为 1
	if run.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", run.IterationCount)
	}

	// 第二轮必须原样采用上一轮的优化提示词
	if len(env.generator.prompts) != 2 {
		t.Fatalf("生成调用次数 = %d, want 2", len(env.generator.prompts))
	}
	if env.generator.prompts[0] != "summer sale poster" {
		t.Errorf("第一轮提示词 = %s, want 原始提示词", env.generator.prompts[0])
	}
	if env.generator.prompts[1] != "add the brand colors #FF0000 and #00FF00 prominently" {
		t.Errorf("第二轮提示词 = %s, want 优化提示词", env.generator.prompts[1])
	}
}

func TestWorkflowService_ExhaustionGoesToPendingReview(t *testing.T) {
	env := setupWorkflowEnv(t, []*model.Critique{
		failingCritique("try again 1"),
		failingCritique("try again 2"),
		failingCritique("try again 3"),
	})

	run := startAndWait(t, env)

	// 预算用尽不是失败，以 completed 收尾转人工
	if run.Status != model.WorkflowStatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
	if run.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %s, want empty", run.ErrorMessage)
	}
	// 最后执行轮的序号 = MaxIterations-1
	if run.IterationCount != 2 {
		t.Errorf("IterationCount = %d, want 2", run.IterationCount)
	}
	if len(env.generator.prompts) != 3 {
		t.Errorf("生成调用次数 = %d, want 3", len(env.generator.prompts))
	}

	poster, err := env.contentRepo.GetPoster(context.Background(), run.GeneratedContentID)
	if err != nil {
		t.Fatalf("GetPoster() error = %v", err)
	}
	if poster.ApprovalStatus != model.ApprovalStatusPendingReview {
		t.Errorf("ApprovalStatus = %s, want pending_review", poster.ApprovalStatus)
	}

	// 快照取最近一轮评审，不做 best-of-N
	var snapshot model.ScoreSnapshot
	if err := json.Unmarshal(run.FinalScores, &snapshot); err != nil {
		t.Fatalf("FinalScores 解析失败: %v", err)
	}
	if snapshot.BrandFitScore != 0.3 {
		t.Errorf("snapshot.BrandFitScore = %f, want 0.3", snapshot.BrandFitScore)
	}
}

func TestWorkflowService_BlindRetryWithoutRefinementPrompt(t *testing.T) {
	// 评审没给优化建议时沿用原提示词盲重试
	env := setupWorkflowEnv(t, []*model.Critique{
		failingCritique(""),
		failingCritique(""),
		failingCritique(""),
	})

	run := startAndWait(t, env)

	if run.Status != model.WorkflowStatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
	for i, prompt := range env.generator.prompts {
		if prompt != "summer sale poster" {
			t.Errorf("第 %d 轮提示词 = %s, want 原始提示词", i+1, prompt)
		}
	}
}

func TestWorkflowService_GeneratorErrorFailsWorkflow(t *testing.T) {
	env := setupWorkflowEnv(t, []*model.Critique{passingCritique()})
	env.generator.generateErr = context.DeadlineExceeded

	run := startAndWait(t, env)

	if run.Status != model.WorkflowStatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
	if !strings.Contains(run.ErrorMessage, "内容生成失败") {
		t.Errorf("ErrorMessage = %s, want 包含生成失败原因", run.ErrorMessage)
	}
}

func TestWorkflowService_GenerationTimeoutFailsWorkflow(t *testing.T) {
	// WaitForCompletion 返回空串表示生成失败或超时，工作流整体失败
	env := setupWorkflowEnv(t, []*model.Critique{passingCritique()})
	env.generator.waitResults = []string{""}

	run := startAndWait(t, env)

	if run.Status != model.WorkflowStatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
	if run.ErrorMessage != "生成超时或失败" {
		t.Errorf("ErrorMessage = %s, want 生成超时或失败", run.ErrorMessage)
	}
	// 失败后不再进入评审
	if env.critic.calls != 0 {
		t.Errorf("评审调用次数 = %d, want 0", env.critic.calls)
	}
}

func TestWorkflowService_CriticErrorFailsWorkflow(t *testing.T) {
	env := setupWorkflowEnv(t, nil)
	env.critic.err = context.DeadlineExceeded

	run := startAndWait(t, env)

	if run.Status != model.WorkflowStatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
	if !strings.Contains(run.ErrorMessage, "评审失败") {
		t.Errorf("ErrorMessage = %s, want 包含评审失败原因", run.ErrorMessage)
	}
}

func TestWorkflowService_StartReturnsImmediately(t *testing.T) {
	env := setupWorkflowEnv(t, []*model.Critique{passingCritique()})

	id, err := env.svc.Start(context.Background(), &dto.StartWorkflowRequest{
		ContentType: model.ContentTypeImage,
		Prompt:      "poster",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if id == 0 {
		t.Fatal("WorkflowID 应该被分配")
	}

	// 启动即返回，状态为 running 或已经推进
	run, err := env.workflowRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Status == "" {
		t.Error("Status 不应为空")
	}

	env.svc.Wait()
}
