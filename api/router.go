package api

import (
	"github.com/fyerfyer/claim-check-system/api/handler"
	"github.com/fyerfyer/claim-check-system/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	verifyHandler *handler.VerifyHandler,
	taskHandler *handler.TaskHandler,
	runHandler *handler.RunHandler,
	outputDir string,
) *gin.Engine {
	router := gin.New()

	// 应用全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())

	// 在调试模式下记录请求体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	// 静态提供校验产物（批注副本、摘录页、PDF报告）
	if outputDir != "" {
		router.Static("/outputs", outputDir)
	}

	api := router.Group("/api")
	{
		// 校验文档 - POST /api/verify
		api.POST("/verify", verifyHandler.Verify)

		// 查询任务状态 - GET /api/tasks/:id
		api.GET("/tasks/:id", taskHandler.GetTask)

		// 运行记录API
		runGroup := api.Group("/runs")
		{
			// 运行记录列表 - GET /api/runs
			runGroup.GET("", runHandler.ListRuns)

			// 查询运行记录 - GET /api/runs/:id
			runGroup.GET("/:id", runHandler.GetRun)
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 如果需要支持跨域请求，可以启用此中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
