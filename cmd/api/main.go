// main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/api/handlers"
	"github.com/Marga-Ghale/plenum-backend/internal/api/middleware"
	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/cron"
	"github.com/Marga-Ghale/plenum-backend/internal/db"
	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/meetingform"
	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/seed"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/socket"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	// ============================================
	// Logger and Gin mode
	// ============================================
	logger := newLogger(cfg.Environment)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	logger.Info("Running database migrations...", zap.String("path", cfg.MigrationsPath))
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	// ============================================
	// Initialize PostgreSQL (pgxpool + sql.DB)
	// ============================================
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pg, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("Connected to PostgreSQL")

	// ============================================
	// Initialize Repositories
	// ============================================
	repos := repository.NewRepositories(pg.Pool, pg.DB)

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL, cfg.PendingCacheTTL)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			redisDB = nil
		} else {
			defer redisDB.Close()
			logger.Info("Redis cache enabled")
		}
	}

	// ============================================
	// Initialize Services
	// ============================================
	// Local listeners see this instance's changes; remote listeners only
	// see changes relayed from other instances and must not write.
	dispatcher := hook.NewDispatcher()
	remote := hook.NewDispatcher()

	deps := &service.ServiceDeps{
		Config:     cfg,
		Repos:      repos,
		Dispatcher: dispatcher,
		Registry:   procedure.DefaultRegistry(),
	}
	if redisDB != nil {
		deps.Cache = redisDB
	}
	services := service.NewServices(deps)

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	hub.SetRoomAuthorizer(func(userID, room string) bool {
		plenumID, ok := socket.RoomPlenumID(room)
		if !ok {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return services.Permission.HasCapability(ctx, userID, plenumID, types.CapView)
	})
	go hub.Run()

	broadcaster := socket.NewBroadcaster(hub)
	dispatcher.OnAfterMotionUpdated("socket.broadcast", broadcaster.OnMotionUpdated)
	remote.OnAfterMotionUpdated("socket.broadcast", broadcaster.OnMotionUpdated)

	// ============================================
	// Initialize Meeting Forms
	// ============================================
	formDeps := &meetingform.Deps{
		WWWRoot:        cfg.WWWRoot,
		SocketTokenTTL: cfg.SocketTokenTTL,
		Plugins:        services.Plugin,
		Permissions:    services.Permission,
		Plenums:        repos.PlenumRepo,
		Motions:        repos.MotionRepo,
		Users:          repos.UserRepo,
		Registry:       services.Plugin.Registry(),
		Notifier:       broadcaster,
		Tokens:         services.Auth,
	}
	forms := &handlers.Forms{
		Manager: meetingform.NewManager(formDeps),
		Jitsi:   meetingform.NewJitsi(formDeps),
		Jitsi2:  meetingform.NewJitsi2(formDeps, repos.SpeakerRepo),
		Deft:    meetingform.NewDeft(formDeps, repos.PeerRepo),
	}
	forms.Manager.Register(meetingform.NewBasic(formDeps))
	forms.Manager.Register(forms.Jitsi)
	forms.Manager.Register(forms.Jitsi2)
	forms.Manager.Register(forms.Deft)

	forms.Jitsi2.Register(dispatcher)
	forms.Deft.Register(dispatcher)
	remote.OnAfterMotionUpdated("deft.floor", forms.Deft.OnMotionUpdated)

	services.Privacy.RegisterProvider(forms.Jitsi2.PrivacyProvider())
	services.Privacy.RegisterProvider(forms.Deft.PrivacyProvider())

	hub.Handle("signal", forms.Deft.HandleSignal)

	// ============================================
	// Cross-instance fan-out (requires Redis)
	// ============================================
	if redisDB != nil {
		relay := socket.NewRelay(redisDB, cfg.InstanceID, remote)
		dispatcher.OnAfterMotionUpdated("relay.publish", relay.Publish)
		go relay.Run(ctx)
		logger.Info("Motion relay started", zap.String("instance", cfg.InstanceID))
	}

	// ============================================
	// Seed demo data (development only)
	// ============================================
	if cfg.Environment == "development" {
		if err := seed.SeedData(ctx, repos, services); err != nil {
			logger.Warn("Seeding failed", zap.Error(err))
		}
	}

	// ============================================
	// Initialize Handlers
	// ============================================
	h := handlers.NewHandlers(services, forms, handlers.TokenConfig{
		DefaultTTL: time.Duration(cfg.JWTExpiry) * time.Hour,
	})
	wsHandler := socket.NewHandler(hub, services.Auth, cfg.CORSOrigins)

	// ============================================
	// Start Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(map[string]cron.Connections{
		"speakers": repos.SpeakerRepo,
		"peers":    repos.PeerRepo,
	})
	scheduler.Start()

	// ============================================
	// Setup Router
	// ============================================
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		database := "connected"
		if err := pg.Pool.Ping(c.Request.Context()); err != nil {
			database = "unreachable"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"instance":   cfg.InstanceID,
			"database":   database,
			"cache":      getCacheStatus(redisDB),
			"websocket":  "active",
			"ws_clients": hub.GetConnectedClientsCount(),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// ============================================
		// Participant routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			protected.GET("/forms", h.Form.Enabled)
			protected.GET("/report/filters", h.Report.FilterOptions)

			plenums := protected.Group("/plenums", middleware.IDParam("id"))
			{
				plenums.GET("/:id", h.Plenum.Get)

				// Motions
				plenums.GET("/:id/pending", h.Motion.Pending)
				plenums.GET("/:id/motions", h.Motion.List)
				plenums.POST("/:id/motions", h.Motion.Propose)

				// Grades
				plenums.GET("/:id/grades", h.Grade.List)
				plenums.POST("/:id/grades", h.Grade.Store)
				plenums.GET("/:id/grades/me", h.Grade.Mine)

				// Report and completion
				plenums.GET("/:id/report", h.Report.Motions)
				plenums.GET("/:id/completion", h.Completion.State)
				plenums.GET("/:id/overview", h.Completion.Overview)

				// Meeting forms
				plenums.GET("/:id/content", h.Form.Content)
				plenums.POST("/:id/jitsi/hand", h.Form.RaiseHand)
				plenums.POST("/:id/jitsi2/room", h.Form.JoinRoom)
				plenums.POST("/:id/jitsi2/feed", h.Form.PublishFeed)
				plenums.GET("/:id/jitsi2/content", h.Form.UpdateContent)
				plenums.POST("/:id/deft/join", h.Form.JoinPeer)
				plenums.POST("/:id/deft/leave", h.Form.LeavePeer)
				plenums.POST("/:id/deft/mute", h.Form.Mute)
				plenums.GET("/:id/deft/peers", h.Form.Peers)
				plenums.POST("/:id/deft/token", h.Form.RenewToken)
			}

			motions := protected.Group("/motions", middleware.IDParam("id"))
			{
				motions.GET("/:id", h.Motion.Get)
				motions.POST("/:id/transition", h.Motion.Transition)
			}
		}

		// ============================================
		// Operator routes (require admin key)
		// ============================================
		admin := api.Group("/admin")
		admin.Use(middleware.AdminKeyMiddleware(services.Auth))
		{
			admin.POST("/tokens", h.Token.Issue)
			admin.GET("/courses/:courseId/plenums", h.Plenum.ListByCourse)

			plenums := admin.Group("/plenums", middleware.IDParam("id"))
			{
				plenums.POST("", h.Plenum.Create)
				plenums.PUT("/:id", h.Plenum.Update)
				plenums.DELETE("/:id", h.Plenum.Delete)

				plenums.GET("/:id/roles", h.Plenum.ListRoles)
				plenums.POST("/:id/roles", h.Plenum.AssignRole)
				plenums.POST("/:id/roles/unassign", h.Plenum.UnassignRole)
				plenums.PUT("/:id/overrides", h.Plenum.SetOverride)
				plenums.POST("/:id/groups", h.Plenum.AddGroupMember)

				plenums.GET("/:id/backup", h.Backup.Export)
				plenums.POST("/:id/privacy/users", h.Privacy.DeleteForUsers)
				plenums.DELETE("/:id/privacy", h.Privacy.DeleteForContext)
			}
			admin.POST("/backup/restore", h.Backup.Restore)

			plugins := admin.Group("/plugins/:kind")
			{
				plugins.GET("", h.Plugin.List)
				plugins.POST("/:name/:action", h.Plugin.Manage)
				plugins.GET("/:name/config", h.Plugin.GetConfig)
				plugins.PUT("/:name/config", h.Plugin.SetConfig)
			}

			privacy := admin.Group("/privacy")
			{
				privacy.GET("/users/:userId/contexts", h.Privacy.Contexts)
				privacy.POST("/export", h.Privacy.Export)
				privacy.POST("/delete", h.Privacy.DeleteForUser)
			}
		}
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	scheduler.Stop()
	hub.Stop()

	logger.Info("Server exited")
}

func newLogger(environment string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func getCacheStatus(redisDB *db.RedisDB) string {
	if redisDB != nil {
		return "connected"
	}
	return "disabled"
}
