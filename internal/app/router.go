package app

import (
	"testhub_backend/docs"
	"testhub_backend/internal/config"
	"testhub_backend/internal/middleware"
	"testhub_backend/internal/model"
	"testhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	student := group.Group("/student/tests")
	student.Use(middleware.ExactRoleMiddleware(model.Student))
	{
		student.GET("/:id", c.studentTest.GetTest)
		student.POST("/:id/start", c.studentTest.StartTest)
		student.POST("/:id/submit", c.studentTest.SubmitTest)
		student.GET("/:id/attempts", c.studentTest.ListAttempts)
		student.GET("/:id/attempts/:attemptId/result", c.studentTest.GetResult)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher/tests")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		teacher.POST("", c.teacherTest.CreateTest)
		teacher.GET("/:id/analytics", c.teacherTest.GetAnalytics)
	}
}
