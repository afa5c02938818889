package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"ars-backend/internal/config"
	"ars-backend/internal/http/handler"
	"ars-backend/internal/http/middleware"
	"ars-backend/internal/realtime"
	"ars-backend/internal/ttsengine"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	config.LoadEnv()
	config.InitRedis()
	config.InitDB()
	defer config.CloseDB()

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
		BodyLimit:     int(config.GetEnvInt64("MAX_FILE_SIZE", 50*1024*1024)) + 1024*1024,
	})

	go realtime.Generations.Run()

	// TTS worker pool: renders queued generations against the synthesis
	// daemon and reports status over the websocket hub and Redis counters.
	engineClient := ttsengine.NewClient(
		config.GetEnv("TTS_ENGINE_URL", "http://127.0.0.1:9880"),
		time.Duration(config.GetEnvInt("TTS_ENGINE_TIMEOUT_SECONDS", 300))*time.Second,
	)
	pool := ttsengine.NewPool(
		ttsengine.NewSQLStore(),
		engineClient,
		ttsengine.PoolConfig{
			Workers:   config.GetEnvInt("TTS_WORKERS", 2),
			QueueSize: config.GetEnvInt("TTS_QUEUE_SIZE", 64),
			OutputDir: config.GetEnv("TTS_OUTPUT_DIR", "./uploads/tts"),
			Timeout:   time.Duration(config.GetEnvInt("TTS_ENGINE_TIMEOUT_SECONDS", 300)) * time.Second,
		},
		func(event ttsengine.Event) {
			realtime.Generations.Publish(event)
			config.Redis.Incr(config.Ctx, "tts:generations:"+event.Status)
		},
	)
	handler.TTSPool = pool

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "ARS scenario API running",
		})
	})
	app.Get("/health", handler.HealthCheck)

	app.Post("/api/v1/auth/login", handler.Login)
	app.Post("/api/v1/auth/refresh", handler.Refresh)

	// WebSocket: token auth happens inside the handler (query parameter).
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/generations", websocket.New(handler.GenerationWebSocket))

	// Everything below requires a valid access token.
	api := app.Group("/api/v1", middleware.JWTAuth())

	// Auth
	api.Post("/auth/logout", handler.Logout)
	api.Get("/auth/me", handler.Me)

	// Users (admin only)
	api.Get("/users", middleware.RoleAuth("admin"), handler.GetAllUsers)
	api.Get("/users/:id", middleware.RoleAuth("admin"), handler.GetUserByID)
	api.Post("/users", middleware.RoleAuth("admin"), handler.CreateUser)
	api.Put("/users/:id", middleware.RoleAuth("admin"), handler.UpdateUser)
	api.Delete("/users/:id", middleware.RoleAuth("admin"), handler.DeactivateUser)
	api.Delete("/users/:id/permanent", middleware.RoleAuth("admin"), handler.HardDeleteUser)

	// Scenarios
	api.Get("/scenarios", handler.GetAllScenarios)
	api.Get("/scenarios/:id", handler.GetScenarioByID)
	api.Post("/scenarios", middleware.RoleAuth("admin", "manager"), handler.CreateScenario)
	api.Put("/scenarios/:id", middleware.RoleAuth("admin", "manager"), handler.UpdateScenario)
	api.Delete("/scenarios/:id", middleware.RoleAuth("admin"), handler.DeleteScenario)
	api.Get("/scenarios/:id/validate", handler.ValidateScenario)
	api.Post("/scenarios/:id/deploy", middleware.RoleAuth("admin", "manager"), handler.DeployScenario)
	api.Get("/scenarios/:id/versions", handler.ListScenarioVersions)
	api.Get("/scenarios/:id/versions/:versionId", handler.GetScenarioVersion)

	// Scenario nodes and connections
	api.Get("/scenarios/:id/nodes", handler.GetScenarioNodes)
	api.Post("/scenarios/:id/nodes", middleware.RoleAuth("admin", "manager"), handler.CreateScenarioNode)
	api.Put("/scenarios/:id/nodes/:nodeId", middleware.RoleAuth("admin", "manager"), handler.UpdateScenarioNode)
	api.Delete("/scenarios/:id/nodes/:nodeId", middleware.RoleAuth("admin", "manager"), handler.DeleteScenarioNode)
	api.Get("/scenarios/:id/connections", handler.GetScenarioConnections)
	api.Post("/scenarios/:id/connections", middleware.RoleAuth("admin", "manager"), handler.CreateScenarioConnection)
	api.Delete("/scenarios/:id/connections/:connectionId", middleware.RoleAuth("admin", "manager"), handler.DeleteScenarioConnection)

	// Voice actors, models, samples
	api.Get("/voice-actors", handler.GetAllVoiceActors)
	api.Get("/voice-actors/:id", handler.GetVoiceActorByID)
	api.Post("/voice-actors", middleware.RoleAuth("admin", "manager"), handler.CreateVoiceActor)
	api.Put("/voice-actors/:id", middleware.RoleAuth("admin", "manager"), handler.UpdateVoiceActor)
	api.Delete("/voice-actors/:id", middleware.RoleAuth("admin", "manager"), handler.DeactivateVoiceActor)
	api.Get("/voice-actors/:id/models", handler.GetVoiceModels)
	api.Post("/voice-actors/:id/models", middleware.RoleAuth("admin", "manager"), handler.CreateVoiceModel)
	api.Put("/voice-models/:modelId/status", middleware.RoleAuth("admin", "manager"), handler.UpdateVoiceModelStatus)
	api.Get("/voice-actors/:id/samples", handler.GetVoiceSamples)
	api.Post("/voice-actors/:id/samples",
		middleware.RoleAuth("admin", "manager", "operator"),
		middleware.RateLimit("upload", config.GetEnvInt("RATE_LIMIT_UPLOAD", 50)),
		handler.UploadVoiceSample)
	api.Delete("/voice-actors/:id/samples/:sampleId", middleware.RoleAuth("admin", "manager"), handler.DeleteVoiceSample)

	// TTS scripts and generations
	api.Get("/tts/scripts", handler.GetAllScripts)
	api.Get("/tts/scripts/:id", handler.GetScriptByID)
	api.Post("/tts/scripts", middleware.RoleAuth("admin", "manager", "operator"), handler.CreateScript)
	api.Put("/tts/scripts/:id", middleware.RoleAuth("admin", "manager", "operator"), handler.UpdateScript)
	api.Delete("/tts/scripts/:id", middleware.RoleAuth("admin", "manager"), handler.DeleteScript)

	ttsLimit := middleware.RateLimit("tts", config.GetEnvInt("RATE_LIMIT_TTS", 100))
	api.Post("/tts/generate",
		middleware.RoleAuth("admin", "manager", "operator"), ttsLimit, handler.CreateGeneration)
	api.Post("/tts/scripts/:id/generate",
		middleware.RoleAuth("admin", "manager", "operator"), ttsLimit, handler.CreateGeneration)
	api.Get("/tts/generations", handler.GetAllGenerations)
	api.Get("/tts/generations/:id", handler.GetGenerationByID)
	api.Get("/tts/generations/:id/download", handler.DownloadGeneration)
	api.Post("/tts/generations/:id/cancel", middleware.RoleAuth("admin", "manager", "operator"), handler.CancelGeneration)

	// TTS library
	api.Get("/tts/library", handler.GetLibraryItems)
	api.Post("/tts/library", middleware.RoleAuth("admin", "manager", "operator"), handler.CreateLibraryItem)
	api.Put("/tts/library/:id", middleware.RoleAuth("admin", "manager", "operator"), handler.UpdateLibraryItem)
	api.Post("/tts/library/:id/use", handler.UseLibraryItem)
	api.Delete("/tts/library/:id", middleware.RoleAuth("admin", "manager"), handler.DeleteLibraryItem)

	// Simulations
	simLimit := middleware.RateLimit("simulation", config.GetEnvInt("RATE_LIMIT_SIMULATION", 200))
	api.Post("/simulations", simLimit, handler.StartSimulation)
	api.Get("/simulations/:id", handler.GetSimulationState)
	api.Post("/simulations/:id/actions", simLimit, handler.ExecuteSimulationAction)
	api.Post("/simulations/:id/reset", handler.ResetSimulation)
	api.Delete("/simulations/:id", handler.StopSimulation)
	api.Get("/simulations/:id/history", handler.GetSimulationHistory)

	// Deployments
	api.Get("/deployments", handler.GetAllDeployments)
	api.Get("/deployments/:id", handler.GetDeploymentByID)
	api.Post("/deployments", middleware.RoleAuth("admin", "manager"), handler.CreateDeployment)
	api.Post("/deployments/:id/rollback", middleware.RoleAuth("admin", "manager"), handler.RollbackDeployment)

	// Files
	api.Post("/files",
		middleware.RateLimit("upload", config.GetEnvInt("RATE_LIMIT_UPLOAD", 50)),
		handler.UploadFile)
	api.Get("/files", handler.GetAllFiles)
	api.Get("/files/:fileId/download", handler.DownloadFile)
	api.Delete("/files/:fileId", middleware.RoleAuth("admin", "manager"), handler.DeleteFile)

	// Monitoring
	api.Get("/monitoring/stats", middleware.RoleAuth("admin", "manager"), handler.GetSystemStats)
	api.Get("/monitoring/audit-logs", middleware.RoleAuth("admin"), handler.GetAuditLogs)
	api.Get("/export/database", middleware.RoleAuth("admin"), handler.ExportDatabase)

	// Drain the TTS pool before exiting so in-flight renders finish.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pool.Shutdown(ctx); err != nil {
			log.Printf("[tts] pool shutdown: %v", err)
		}
		_ = app.Shutdown()
	}()

	addr := config.GetEnv("APP_HOST", "0.0.0.0") + ":" + config.GetEnv("APP_PORT", "8000")
	log.Println("Server running at", addr)
	log.Fatal(app.Listen(addr))
}
