package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"adgen_dev_v1_202608/internal/controller"
	"adgen_dev_v1_202608/internal/model"
	"adgen_dev_v1_202608/internal/repository"
	"adgen_dev_v1_202608/internal/router"
	"adgen_dev_v1_202608/internal/service"
	"adgen_dev_v1_202608/internal/task"
	"adgen_dev_v1_202608/pkg/database"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.WorkflowCtl, deps.ContentCtl, deps.CritiqueCtl)

	// 5. 启动服务
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB    *gorm.DB
	Repos *Repositories

	Workflow   *service.WorkflowService
	Generation *service.GenerationService
	Critique   *service.CritiqueService

	WorkflowCtl *controller.WorkflowController
	ContentCtl  *controller.ContentController
	CritiqueCtl *controller.CritiqueController
}

// Repositories 仓库集合
type Repositories struct {
	Workflow repository.WorkflowRepository
	Content  repository.ContentRepository
	Critique repository.CritiqueRepository
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_URL",
		"host=localhost user=postgres password=postgres dbname=adgen port=5432 sslmode=disable")

	return database.InitDB(dsn,
		// Workflow
		&model.WorkflowRun{},
		// Content
		&model.GeneratedPoster{}, &model.GeneratedVideo{},
		// Critique
		&model.Critique{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Workflow: repository.NewWorkflowRepository(db),
		Content:  repository.NewContentRepository(db),
		Critique: repository.NewCritiqueRepository(db),
	}

	// -------- 存储 --------
	storage := initStorage()

	// -------- 适配器服务 --------
	apiKey := getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", ""))
	if apiKey == "" {
		log.Println("警告: GEMINI_API_KEY 未配置，生成与评审接口将不可用")
	}

	generationSvc := service.NewGenerationService(&service.GeneratorConfig{
		ApiKey: apiKey,
	}, repos.Content, storage)

	critiqueSvc := service.NewCritiqueService(&service.CritiqueConfig{
		ApiKey: apiKey,
	}, repos.Critique)

	// -------- 工作流引擎 --------
	workflowSvc := service.NewWorkflowService(
		service.DefaultWorkflowConfig(),
		repos.Workflow,
		repos.Content,
		generationSvc,
		critiqueSvc,
	)

	// -------- Controller 层 --------
	return &Dependencies{
		DB:         db,
		Repos:      repos,
		Workflow:   workflowSvc,
		Generation: generationSvc,
		Critique:   critiqueSvc,

		WorkflowCtl: controller.NewWorkflowController(workflowSvc, repos.Workflow),
		ContentCtl:  controller.NewContentController(generationSvc, repos.Content),
		CritiqueCtl: controller.NewCritiqueController(critiqueSvc, repos.Critique),
	}
}

// initStorage 初始化存储
func initStorage() service.StorageProvider {
	storage, err := service.NewStorageProvider(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "s3"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "adgen"),
		LocalDir:  getEnv("STORAGE_LOCAL_DIR", "./uploads"),
		LocalURL:  getEnv("STORAGE_LOCAL_URL", "http://localhost:8080/uploads"),
	})
	if err != nil {
		log.Fatalf("存储服务初始化失败: %v", err)
	}
	return storage
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// 卡死工作流回收
	reaper := task.NewWorkflowReaperTask(deps.Repos.Workflow)
	reaper.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, deps *Dependencies) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 先停止接收新请求，再等在途工作流收尾
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	deps.Workflow.Wait()

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
