package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/style"
)

// Deps 汇总路由需要的外部依赖。
type Deps struct {
	DB             *gorm.DB
	Redis          redis.UniversalClient
	Auth           *auth.AuthService
	Store          ResumeStore
	Scanner        Scanner
	Exporter       Exporter
	Queue          TaskEnqueuer
	Guard          ExportGuard
	Styles         *style.Resolver
	Logger         *slog.Logger
	LoginLimits    LoginLimits
	CookieDomain   string
	AllowedOrigins []string
	MaxResumes     int
	MaxRetry       int
	TaskTimeout    time.Duration
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	resumeHandler := NewResumeHandler(deps.DB, deps.Store, deps.Scanner, deps.Logger, deps.MaxResumes)
	exportHandler := NewExportHandler(deps.DB, deps.Exporter, deps.Queue, deps.Guard, deps.Store, ExportOptions{
		MaxRetry:    deps.MaxRetry,
		TaskTimeout: deps.TaskTimeout,
	})
	templateHandler := NewTemplateHandler(deps.Styles)
	authHandler := NewAuthHandler(deps.DB, deps.Auth, deps.Redis, deps.Logger, deps.LoginLimits, deps.CookieDomain)
	wsHandler := NewWsHandler(deps.Redis, deps.Auth, deps.Logger, deps.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(deps.Auth)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		templateGroup := v1.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware, passwordGate)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("/latest", resumeHandler.GetLatestResume)
			resumeGroup.POST("/import", resumeHandler.ImportJSON)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/duplicate", resumeHandler.DuplicateResume)
			resumeGroup.GET("/:id/json", resumeHandler.ExportJSON)
			resumeGroup.GET("/:id/pdf", exportHandler.DownloadPDF)
			resumeGroup.POST("/:id/export", exportHandler.EnqueueExport)
			resumeGroup.GET("/:id/download-link", exportHandler.GetDownloadLink)
		}
	}
}
