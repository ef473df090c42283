package http

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"docuchat/internal/ai"
	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	resourceRepo := repository.NewResourceRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	sessionRepo := repository.NewChatSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	llmClient := ai.NewOpenAICompatibleClient()
	embedCfg := ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	}
	chatCfg := ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}
	gateway := ai.NewEmbeddingGateway(llmClient, embedCfg, app.Config.LLM.EmbeddingDim, app.Config.Ingest.EmbeddingBatch)
	log.Printf("embedding gateway ready (model=%s, dim=%d)", embedCfg.Model, gateway.Dim())

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	turnPublisher := rabbitmq.NewTurnPublisher(app.MQConn, app.Config.RabbitMQ.TurnPersistQueue)

	ingestService := appsvc.NewIngestService(
		resourceRepo,
		gateway,
		nil,
		app.Config.Ingest.ChunkSize,
		app.Config.Ingest.ChunkOverlap,
	)
	retrievalService := appsvc.NewRetrievalService(chunkRepo, resourceRepo, gateway, appsvc.LinearRanker{}, app.Config.Retrieval.TopK)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		retrievalService,
		llmClient,
		chatCfg,
		turnPublisher,
		historyCache,
		app.Config.LLM.MaxContextMessage,
	)

	ingestHandler := handler.NewIngestHandler(ingestService, resourceRepo, app.Config.MaxFileSizeBytes())
	resourceHandler := handler.NewResourceHandler(resourceRepo, chunkRepo)
	chatHandler := handler.NewChatHandler(chatService)
	sessionHandler := handler.NewSessionHandler(chatService)

	v1 := router.Group("/api/v1")
	v1.POST("/ingest", ingestHandler.Upload)
	v1.GET("/ingest/recent", ingestHandler.Recent)
	v1.DELETE("/resources", resourceHandler.Clear)
	v1.GET("/resources/:id", resourceHandler.Get)
	v1.DELETE("/resources/:id", resourceHandler.Delete)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("", chatHandler.Ask)
	chatGroup.POST("/sessions", sessionHandler.Create)
	chatGroup.GET("/sessions", sessionHandler.List)
	chatGroup.GET("/sessions/:id", sessionHandler.Get)
	chatGroup.PATCH("/sessions/:id", sessionHandler.Update)
	chatGroup.DELETE("/sessions/:id", sessionHandler.Delete)
	chatGroup.POST("/messages", sessionHandler.AppendMessage)

	return router
}
