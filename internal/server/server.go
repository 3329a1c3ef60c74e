package server

import (
	"context"
	"net/http"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/config"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/credit"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/reminder"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/training"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

// New wires repositories, services and handlers over db and registers every
// route. notifier receives session notifications; reminders backs the manual
// sweep endpoint.
func New(db *sqlx.DB, cfg *config.Config, notifier training.Notifier, reminders reminder.Runner, clk clock.Clock) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	creditService := credit.NewService(credit.NewRepository(db), clk)
	trainingService := training.NewService(
		training.NewRepository(db),
		userRepo,
		creditService,
		notifier,
		clk,
		training.Options{
			GracePeriod:     cfg.LateGracePeriod,
			ImplicitPresent: cfg.SessionImplicitPresent,
			StaffEmail:      cfg.StaffEmail,
		},
	)

	userHandler := user.NewHandler(userService)
	sessionHandler := training.NewHandler(trainingService)
	creditHandler := credit.NewHandler(creditService, clk)
	reminderHandler := reminder.NewHandler(reminders)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.POST("/sessions", sessionHandler.Create)
		protected.GET("/sessions", sessionHandler.List)
		protected.GET("/sessions/stats", sessionHandler.Stats)
		protected.GET("/sessions/:sessionID", sessionHandler.Get)
		protected.POST("/sessions/:sessionID/attendance", sessionHandler.MarkAttendance)
		protected.POST("/sessions/:sessionID/complete", sessionHandler.Complete)
		protected.POST("/sessions/:sessionID/cancel", sessionHandler.Cancel)
		protected.POST("/sessions/:sessionID/reschedule-request", sessionHandler.RequestReschedule)
		protected.POST("/sessions/:sessionID/cancel-request", sessionHandler.RequestCancel)

		protected.GET("/trainers/:trainerID/sessions", sessionHandler.ListForTrainer)
		protected.GET("/members/:memberID/sessions", sessionHandler.ListForMember)
		protected.GET("/members/:memberID/credits", creditHandler.GetMemberCredits)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	{
		admin.POST("/reminders/run", reminderHandler.Run)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		db:     db,
		config: cfg,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
