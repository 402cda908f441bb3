package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"adgen_dev_v1_202608/internal/controller"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	workflowCtl *controller.WorkflowController,
	contentCtl *controller.ContentController,
	critiqueCtl *controller.CritiqueController) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. API 路由组
	api := r.Group("/api")
	{
		// workflow 工作流组
		workflows := api.Group("/workflows")
		{
			// POST /api/workflows/start
			workflows.POST("/start", workflowCtl.StartWorkflow)
			workflows.GET("", workflowCtl.ListWorkflows)
			workflows.GET("/:id", workflowCtl.GetWorkflow)
		}
		// poster 海报组（直接生成，不走工作流）
		posters := api.Group("/posters")
		{
			posters.POST("/generate", contentCtl.GeneratePoster)
			posters.GET("", contentCtl.ListPosters)
			posters.GET("/:id", contentCtl.GetPoster)
		}
		// video 视频组
		videos := api.Group("/videos")
		{
			videos.POST("/generate", contentCtl.GenerateVideo)
			videos.GET("", contentCtl.ListVideos)
			videos.GET("/:id", contentCtl.GetVideo)
		}
		// critique 评审组
		critiques := api.Group("/critiques")
		{
			critiques.POST("/analyze", critiqueCtl.AnalyzeContent)
			critiques.GET("", critiqueCtl.ListCritiques)
			critiques.GET("/:id", critiqueCtl.GetCritique)
		}
	}
}
