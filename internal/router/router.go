package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/handler"
	"github.com/kontrolhq/kontrol-backend/internal/middleware"
	"github.com/kontrolhq/kontrol-backend/internal/response"
	"github.com/kontrolhq/kontrol-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz    *handler.QuizHandler
	Session *handler.SessionHandler
	Collect *handler.CollectHandler
	Teacher *handler.TeacherHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Submit-Token"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Quiz Paper (Public) ────────────────────────────────────────
	quizAPI := router.Group("/api/v1/quizzes")
	{
		quizAPI.GET("/paper", handlers.Quiz.GetPaper)
	}

	// ─── 2. Sessions (Public; a session ID is its own credential) ──────
	sessionAPI := router.Group("/api/v1/sessions")
	{
		sessionAPI.POST("", handlers.Session.StartSession)
		sessionAPI.GET("/:session_id/state", handlers.Session.GetState)
		sessionAPI.PUT("/:session_id/answers/:task_id", handlers.Session.SaveAnswer)
		sessionAPI.POST("/:session_id/navigate", handlers.Session.Navigate)
		sessionAPI.POST("/:session_id/submit", handlers.Session.Submit)
		sessionAPI.POST("/:session_id/reset", handlers.Session.Reset)
	}

	// ─── 3. Collection (Shared Submit Token) ───────────────────────────
	collectAPI := router.Group("/api/v1/collect")
	collectAPI.Use(middleware.RequireSubmitToken(cfg.SubmitToken))
	{
		collectAPI.POST("", handlers.Collect.CollectPack)
	}

	// ─── 4. Teacher (Password → JWT) ───────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/teacher/login", handlers.Teacher.Login)
	}

	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.GET("/submissions", handlers.Teacher.ListSubmissions)
	}

	// ─── 5. WebSocket Timer Stream ─────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:session_id/timer", handlers.WS.TimerStream)
	}

	return router
}
