package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/httpapi/handlers"
	"github.com/suPer8Hu/codesensei/internal/httpapi/middleware"
	"github.com/suPer8Hu/codesensei/internal/ratelimit"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	// Limiter guards the endpoints that call a provider. Nil disables limiting.
	Limiter ratelimit.Limiter
	Log     *zap.Logger
}

func NewRouter(h *handlers.Handler, opts Options) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(opts.Log))
	r.Use(middleware.Recovery(opts.Log))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	// register / login
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(opts.JWTSecret))
	authGroup.GET("/me", h.Me)
	authGroup.GET("/user/profile", h.GetProfile)
	authGroup.PATCH("/user/profile", h.UpdateProfile)

	authGroup.GET("/settings", h.GetSettings)
	authGroup.PUT("/settings", h.UpdateSettings)

	authGroup.GET("/sessions", h.ListSessions)
	authGroup.POST("/sessions", h.CreateSession)
	authGroup.POST("/sessions/reorder", h.ReorderSessions)
	authGroup.GET("/sessions/:id", h.GetSession)
	authGroup.PATCH("/sessions/:id", h.UpdateSession)
	authGroup.DELETE("/sessions/:id", h.DeleteSession)
	authGroup.GET("/sessions/:id/messages", h.ListSessionMessages)
	authGroup.GET("/sessions/:id/statistics", h.SessionStatistics)
	authGroup.GET("/messages/search", h.SearchMessages)

	authGroup.GET("/personas/presets", h.ListPresets)
	authGroup.GET("/personas", h.ListPersonas)
	authGroup.POST("/personas", h.CreatePersona)
	authGroup.GET("/personas/:id", h.GetPersona)
	authGroup.PATCH("/personas/:id", h.UpdatePersona)
	authGroup.DELETE("/personas/:id", h.DeletePersona)
	authGroup.POST("/personas/import", h.ImportPersona)
	authGroup.GET("/personas/:id/export", h.ExportPersona)
	authGroup.GET("/personas/:id/usage", h.PersonaUsage)
	authGroup.POST("/personas/:id/duplicate", h.DuplicatePersona)

	authGroup.GET("/plans", h.ListPlans)
	authGroup.POST("/plans", h.CreatePlan)
	authGroup.PATCH("/plans/:id", h.UpdatePlan)
	authGroup.DELETE("/plans/:id", h.DeletePlan)
	authGroup.GET("/plans/statistics", h.PlanStatistics)
	authGroup.GET("/plans/upcoming", h.UpcomingPlans)
	authGroup.GET("/plans/overdue", h.OverduePlans)
	authGroup.PUT("/plans/:id/progress", h.SetPlanProgress)
	authGroup.POST("/plans/:id/complete", h.CompletePlan)
	authGroup.POST("/plans/:id/restore", h.RestorePlan)
	authGroup.DELETE("/plans/:id/permanent", h.PurgePlan)

	authGroup.GET("/questions", h.ListQuestions)
	authGroup.GET("/questions/categories", h.QuestionCategories)
	authGroup.GET("/questions/statistics", h.QuestionStatistics)
	authGroup.POST("/questions", h.CreateQuestion)
	authGroup.PATCH("/questions/:id", h.UpdateQuestion)
	authGroup.DELETE("/questions/:id", h.DeleteQuestion)

	authGroup.GET("/mistakes", h.ListMistakes)
	authGroup.GET("/mistakes/statistics", h.MistakeStatistics)
	authGroup.POST("/mistakes", h.AddMistake)
	authGroup.DELETE("/mistakes/:id", h.DeleteMistake)
	authGroup.POST("/mistakes/:id/review", h.ReviewMistake)

	authGroup.GET("/nav", h.ListNav)
	authGroup.GET("/nav/categories", h.NavCategories)
	authGroup.POST("/nav", h.CreateNav)
	authGroup.PATCH("/nav/:id", h.UpdateNav)
	authGroup.DELETE("/nav/:id", h.DeleteNav)
	authGroup.POST("/nav/import", h.ImportNav)
	authGroup.GET("/nav/export", h.ExportNav)
	authGroup.GET("/nav/statistics", h.NavStatistics)

	// growth
	authGroup.GET("/statistics", h.GetStatistics)
	authGroup.GET("/leaderboard", h.Leaderboard)
	authGroup.POST("/user/xp", h.AddXP)
	authGroup.PUT("/user/streak", h.SetStreak)
	authGroup.GET("/achievements", h.ListAchievements)
	authGroup.POST("/achievements", h.UnlockAchievement)
	authGroup.GET("/achievements/:achievement_id", h.CheckAchievement)
	authGroup.POST("/focus", h.RecordFocus)
	authGroup.GET("/focus/trends", h.FocusTrends)
	authGroup.GET("/focus/summary", h.FocusSummary)

	// provider-backed endpoints
	limited := authGroup.Group("/")
	limited.Use(middleware.RateLimit(opts.Limiter, opts.Log))
	limited.POST("/chat", h.Chat)
	limited.POST("/chat/stream", h.ChatStream)
	limited.POST("/chat/jobs", h.EnqueueChat)
	limited.POST("/plan/generate", h.GeneratePlan)
	limited.POST("/analysis", h.Analyze)
	authGroup.GET("/chat/jobs/:job_id", h.GetChatJob)

	return r, nil
}
