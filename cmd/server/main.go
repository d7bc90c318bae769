package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sachin-Buluswar/DebateAI-sub002/config"
	"github.com/Sachin-Buluswar/DebateAI-sub002/db"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/telemetry"
	"github.com/Sachin-Buluswar/DebateAI-sub002/services"
	"github.com/Sachin-Buluswar/DebateAI-sub002/websocket"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.yml")
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meter, cleanupTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer cleanupTelemetry()
	recorder, err := telemetry.NewRecorder(meter)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register metrics")
	}

	database, err := db.ConnectMongoDB(ctx, cfg.Database.URI)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	logger.Info().Msg("connected to MongoDB")
	store := db.NewMongoSnapshotStore(database)

	geminiClient, err := services.NewGeminiClient(ctx, cfg.Gemini.ApiKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Gemini client")
	}
	generator := services.NewGenerationService(geminiClient, cfg, recorder)
	synthesizer := services.NewSynthesisService(cfg, recorder)
	analyzer := services.NewAnalysisService(geminiClient, cfg, recorder)

	journal := websocket.NewEventJournal(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	hub := websocket.NewHub(journal, logger)
	registry := debate.NewRegistry(logger)
	registry.StartReaper(ctx, cfg.IdleTimeout(), time.Minute)

	format := debate.FormatWithOverrides(cfg.Debate.PhaseDurations)
	factory := func(sessionID, topic string, participants []debate.Participant) (*debate.Orchestrator, error) {
		return registry.Create(debate.OrchestratorConfig{
			SessionID:       sessionID,
			Topic:           topic,
			Participants:    participants,
			Format:          format,
			MaxParticipants: cfg.Debate.MaxParticipants,
			Generator:       generator,
			Synthesizer:     synthesizer,
			Analyzer:        analyzer,
			Store:           store,
			Sink:            hub,
			Latency:         recorder,
			Logger:          logger,
		})
	}
	handler := websocket.NewHandler(hub, registry, factory, logger)

	router := setupRouter(handler, registry, store)
	port := strconv.Itoa(cfg.Server.Port)
	logger.Info().Str("port", port).Msg("server starting")
	if err := router.Run(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}

func setupRouter(handler *websocket.Handler, registry *debate.Registry, store *db.MongoSnapshotStore) *gin.Engine {
	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": registry.Len()})
	})

	// Real-time debate endpoint
	router.GET("/ws/debate", handler.Serve)

	// Read side of the persistence collaborator, for history browsing.
	router.GET("/debate/:id/snapshot", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		snapshot, err := store.Load(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	})

	return router
}
