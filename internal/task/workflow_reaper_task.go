package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
)

// ==================== 工作流回收任务 ====================

// WorkflowReaperTask 定时清扫卡死的工作流
// 进程崩溃会留下永远 running 的记录，这里按最后更新时间兜底判死
type WorkflowReaperTask struct {
	workflowRepo repository.WorkflowRepository
	cron         *cron.Cron

	// 超过该时长无任何状态更新的 running 工作流视为中断
	stallTimeout time.Duration
}

// NewWorkflowReaperTask 创建工作流回收任务
func NewWorkflowReaperTask(workflowRepo repository.WorkflowRepository) *WorkflowReaperTask {
	return &WorkflowReaperTask{
		workflowRepo: workflowRepo,
		cron:         cron.New(cron.WithSeconds()),
		stallTimeout: 10 * time.Minute,
	}
}

// Start 启动定时任务
func (t *WorkflowReaperTask) Start() {
	// 启动时先清一次，接住上次进程退出留下的孤儿
	go t.execute()

	_, err := t.cron.AddFunc("0 */5 * * * *", t.execute)
	if err != nil {
		log.Fatalf("无法启动工作流回收任务: %v", err)
	}

	t.cron.Start()
	log.Println("[WorkflowReaper] 工作流回收任务已启动 (每5分钟检查一次)")
}

// Stop 停止定时任务
func (t *WorkflowReaperTask) Stop() {
	t.cron.Stop()
}

// execute 执行一次清扫
func (t *WorkflowReaperTask) execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-t.stallTimeout)

	runs, err := t.workflowRepo.FindStalled(ctx, cutoff)
	if err != nil {
		log.Printf("[WorkflowReaper] 查询卡死工作流失败: %v", err)
		return
	}

	if len(runs) == 0 {
		return
	}

	log.Printf("[WorkflowReaper] 发现 %d 个卡死工作流", len(runs))

	for _, run := range runs {
		err := t.workflowRepo.Updates(ctx, run.ID, map[string]interface{}{
			"status":        model.WorkflowStatusFailed,
			"error_message": "工作流执行中断，已由回收任务标记失败",
		})
		if err != nil {
			log.Printf("[WorkflowReaper] 工作流 %d 标记失败出错: %v", run.ID, err)
			continue
		}
		log.Printf("[WorkflowReaper] 工作流 %d 已标记为失败 (最后更新 %s)", run.ID, run.UpdatedAt.Format(time.RFC3339))
	}
}
