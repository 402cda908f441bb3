package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adgen_dev_v1_202608/internal/model"
)

func setupWorkflowRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.WorkflowRun{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func TestWorkflowRepo_CreateAndGet(t *testing.T) {
	db := setupWorkflowRepoTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	run := &model.WorkflowRun{
		ContentType: model.ContentTypeImage,
		Prompt:      "summer sale poster",
		BrandColors: pq.StringArray{"#FF0000", "#00FF00"},
		Status:      model.WorkflowStatusRunning,
		CurrentStep: model.WorkflowStepGenerating,
	}

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if run.ID == 0 {
		t.Fatal("ID 应该被自动分配")
	}

	found, err := repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Prompt != "summer sale poster" {
		t.Errorf("Prompt = %s", found.Prompt)
	}
	if len(found.BrandColors) != 2 || found.BrandColors[0] != "#FF0000" {
		t.Errorf("BrandColors = %v, want [#FF0000 #00FF00]", found.BrandColors)
	}
}

func TestWorkflowRepo_ListFilterByStatus(t *testing.T) {
	db := setupWorkflowRepoTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	runs := []*model.WorkflowRun{
		{ContentType: model.ContentTypeImage, Prompt: "a", Status: model.WorkflowStatusRunning},
		{ContentType: model.ContentTypeImage, Prompt: "b", Status: model.WorkflowStatusCompleted},
		{ContentType: model.ContentTypeVideo, Prompt: "c", Status: model.WorkflowStatusCompleted},
	}
	for _, run := range runs {
		repo.Create(ctx, run)
	}

	completed, total, err := repo.List(ctx, model.WorkflowStatusCompleted, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(completed) != 2 {
		t.Errorf("len = %d, want 2", len(completed))
	}

	all, total, err := repo.List(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("total = %d, len = %d, want 3", total, len(all))
	}
}

func TestWorkflowRepo_UpdateStep(t *testing.T) {
	db := setupWorkflowRepoTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	run := &model.WorkflowRun{ContentType: model.ContentTypeImage, Prompt: "a", Status: model.WorkflowStatusRunning}
	repo.Create(ctx, run)

	if err := repo.UpdateStep(ctx, run.ID, model.WorkflowStepCritiquing, 1); err != nil {
		t.Fatalf("UpdateStep() error = %v", err)
	}

	found, _ := repo.GetByID(ctx, run.ID)
	if found.CurrentStep != model.WorkflowStepCritiquing {
		t.Errorf("CurrentStep = %s, want critiquing", found.CurrentStep)
	}
	if found.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", found.IterationCount)
	}
}

func TestWorkflowRepo_UpdatesTerminalState(t *testing.T) {
	db := setupWorkflowRepoTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	run := &model.WorkflowRun{ContentType: model.ContentTypeImage, Prompt: "a", Status: model.WorkflowStatusRunning}
	repo.Create(ctx, run)

	err := repo.Updates(ctx, run.ID, map[string]interface{}{
		"status":        model.WorkflowStatusFailed,
		"error_message": "生成超时或失败",
	})
	if err != nil {
		t.Fatalf("Updates() error = %v", err)
	}

	found, _ := repo.GetByID(ctx, run.ID)
	if found.Status != model.WorkflowStatusFailed {
		t.Errorf("Status = %s, want failed", found.Status)
	}
	if found.ErrorMessage != "生成超时或失败" {
		t.Errorf("ErrorMessage = %s", found.ErrorMessage)
	}
	if !found.IsTerminal() {
		t.Error("failed 状态应该是终态")
	}
}

func TestWorkflowRepo_FindStalled(t *testing.T) {
	db := setupWorkflowRepoTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	stale := &model.WorkflowRun{ContentType: model.ContentTypeImage, Prompt: "stale", Status: model.WorkflowStatusRunning}
	fresh := &model.WorkflowRun{ContentType: model.ContentTypeImage, Prompt: "fresh", Status: model.WorkflowStatusRunning}
	done := &model.WorkflowRun{ContentType: model.ContentTypeImage, Prompt: "done", Status: model.WorkflowStatusCompleted}
	for _, run := range []*model.WorkflowRun{stale, fresh, done} {
		repo.Create(ctx, run)
	}

	// 把 stale 和 done 的最后更新时间拨回到一小时前
	past := time.Now().Add(-time.Hour)
	db.Exec("UPDATE workflow_runs SET updated_at = ? WHERE id IN (?, ?)", past, stale.ID, done.ID)

	stalled, err := repo.FindStalled(ctx, time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("FindStalled() error = %v", err)
	}

	// 只有 running 且过期的算卡死，completed 的不算
	if len(stalled) != 1 {
		t.Fatalf("len = %d, want 1", len(stalled))
	}
	if stalled[0].ID != stale.ID {
		t.Errorf("stalled ID = %d, want %d", stalled[0].ID, stale.ID)
	}
}
