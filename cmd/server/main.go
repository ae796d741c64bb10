package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/clock"
	"github.com/yukikurage/chainboard/internal/config"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/database"
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/handlers"
	"github.com/yukikurage/chainboard/internal/middleware"
	"github.com/yukikurage/chainboard/internal/notify"
	"github.com/yukikurage/chainboard/internal/repository"
	"github.com/yukikurage/chainboard/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Select the task store
	var (
		taskRepo     repository.TaskRepository
		settingsRepo repository.SettingsRepository
	)
	if cfg.DBDriver == config.DriverMemory {
		log.Println("Using in-memory task store, nothing survives a restart")
		taskRepo = repository.NewMemoryTaskRepository()
		settingsRepo = repository.NewMemorySettingsRepository()
	} else {
		if err := database.Connect(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.Migrate(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		taskRepo = repository.NewTaskRepository(database.GetDB())
		settingsRepo = repository.NewSettingsRepository(database.GetDB())
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware
	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize the engine
	dispatcher := notify.NewTelegramDispatcher(cfg.TelegramAPIBase, cfg.NotifyTimeout)
	manager := engine.NewManager(engine.Options{
		Clock:           clock.RealClock{},
		Store:           taskRepo,
		Dispatcher:      dispatcher,
		Alerter:         notify.LogAlerter{},
		TickInterval:    cfg.TickInterval,
		StaggerDelay:    cfg.StaggerDelay,
		ChainStartDelay: cfg.ChainStartDelay,
		NotifyTimeout:   cfg.NotifyTimeout,
		AlarmPolicy:     engine.AlarmPolicy(cfg.AlarmPolicy),
		Location:        cfg.Location(),
		WelcomeTask:     cfg.WelcomeTask,
	}, settingsRepo)
	defer manager.Close()

	// Initialize AI service
	var suggester services.TaskSuggester
	if cfg.OpenAIAPIKey != "" {
		suggester = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(manager, suggester)
	chainHandler := handlers.NewChainHandler(manager)
	settingsHandler := handlers.NewSettingsHandler(services.NewSettingsService(settingsRepo, manager, dispatcher, cfg.NotifyTimeout))
	sessionHandler := handlers.NewSessionHandler(taskRepo)
	webhookHandler := handlers.NewWebhookHandler(cfg.TelegramWebhookSecretHash)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Chainboard API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Task routes (session scoped)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireSession())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.DELETE("", taskHandler.ClearTasks)
			tasks.POST("/sync", taskHandler.SyncTasks)
			tasks.POST("/import", taskHandler.ImportTasks)
			tasks.GET("/export", taskHandler.ExportTasks)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.PUT("/batch", taskHandler.BatchUpdate)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/toggle", taskHandler.ToggleTimer)
			tasks.POST("/:id/reset", taskHandler.ResetTimer)
			tasks.PUT("/:id/time", taskHandler.SetTime)
			tasks.PUT("/:id/alarm", taskHandler.SetAlarm)
			tasks.POST("/:id/mode", taskHandler.ToggleMode)
			tasks.GET("/:id/chain", chainHandler.GetChain)
			tasks.POST("/:id/chain/start", chainHandler.StartChain)
		}

		// Link and chain routes (session scoped)
		links := api.Group("/links")
		links.Use(middleware.RequireSession())
		{
			links.GET("", chainHandler.ListLinks)
			links.POST("", chainHandler.CreateLink)
			links.DELETE("", chainHandler.DeleteLink)
		}

		chains := api.Group("/chains")
		chains.Use(middleware.RequireSession())
		{
			chains.GET("", chainHandler.ListChains)
			chains.POST("/reset", chainHandler.ResetChain)
		}

		// Settings routes (session scoped)
		settings := api.Group("/settings")
		settings.Use(middleware.RequireSession())
		{
			settings.GET("/notifications", settingsHandler.GetNotifications)
			settings.PUT("/notifications", settingsHandler.SaveNotifications)
		}

		// Session routes
		session := api.Group("/session")
		{
			session.POST("/new", sessionHandler.NewSession)
			session.GET("/stats", sessionHandler.Stats)
		}

		// Bot webhook (public, secret checked by the handler)
		api.POST("/telegram/webhook", webhookHandler.Telegram)
	}

	// Start server
	log.Printf("Server starting on %s", cfg.ServerAddr)
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newSessionStore builds the configured session backend
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	if cfg.SessionStore == config.SessionStoreCookie {
		return cookie.NewStore([]byte(cfg.SessionSecret)), nil
	}

	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	return redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
}
