/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/ragchat-be/config"
	"github.com/tieubaoca/ragchat-be/database"
	"github.com/tieubaoca/ragchat-be/handler"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/middleware"
	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/service"
	"go.uber.org/zap"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chat server",
	Long:  `Starts the HTTP server that handles streaming chat, conversations and knowledge bases`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
		if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}

		ctx := context.Background()

		mongoClient, err := database.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoDb := mongoClient.Database(cfg.MongoDatabase)

		weaviateDb, err := database.NewWeaviateStore(cfg.Weaviate)
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}

		aiService, embedder, err := service.NewAIServiceFromConfig(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize AI backend: %v", err)
		}
		if !cfg.HasModelCredential() {
			logger.Warn("no model credential configured, serving simulated streams")
		}

		// init repo
		userRepo := repository.NewUserRepo(mongoDb.Collection("users"))
		convRepo := repository.NewConversationRepo(mongoDb.Collection("conversations"))
		msgRepo := repository.NewMessageRepo(mongoDb.Collection("messages"))
		kbRepo := repository.NewKnowledgeBaseRepo(mongoDb.Collection("knowledge_bases"))
		docRepo := repository.NewDocumentRepo(mongoDb.Collection("documents"))
		auditRepo := repository.NewAuditLogRepo(mongoDb.Collection("audit_logs"))

		// init service
		var retriever *service.RetrieverService
		if embedder != nil {
			retriever = service.NewRetrieverService(embedder, weaviateDb)
		}
		authService := service.NewAuthService(userRepo, cfg.Auth)
		auditService := service.NewAuditService(auditRepo)
		userService := service.NewUserService(userRepo, auditService)
		chatService := service.NewChatService(convRepo, msgRepo, kbRepo, aiService, retriever)
		kbService := service.NewKnowledgeBaseService(kbRepo, docRepo, weaviateDb, embedder, retriever)
		wsService := service.NewWebsocketService(chatService, cfg.ClientOrigin)

		// Initialize handlers
		meHandler := handler.NewMeHandler()
		chatHandler := handler.NewChatHandler(chatService, wsService)
		convHandler := handler.NewConversationHandler(chatService)
		kbHandler := handler.NewKnowledgeBaseHandler(kbService)
		docHandler := handler.NewDocumentHandler(kbService)
		adminHandler := handler.NewAdminHandler(userService, auditService)

		// Setup Gin router
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(middleware.Recovery(), middleware.RequestLogger(), handler.Cors(cfg.ClientOrigin))

		// API v1 routes - require authentication
		apiV1 := router.Group("/api/v1")
		apiV1.Use(middleware.AuthMiddleware(authService))
		{
			apiV1.GET("/me", meHandler.Get)

			apiV1.POST("/chat", chatHandler.StreamChat)
			apiV1.GET("/chat/ws", chatHandler.StreamChatWS)

			apiV1.GET("/conversations", convHandler.List)
			apiV1.POST("/conversations", convHandler.Create)
			apiV1.GET("/conversations/:id", convHandler.Get)
			apiV1.PATCH("/conversations/:id", convHandler.Rename)
			apiV1.DELETE("/conversations/:id", convHandler.Delete)
			apiV1.GET("/conversations/:id/messages", convHandler.ListMessages)

			apiV1.GET("/kb", kbHandler.List)
			apiV1.POST("/kb", kbHandler.Create)
			apiV1.GET("/kb/:id", kbHandler.Get)
			apiV1.PATCH("/kb/:id", kbHandler.Update)
			apiV1.DELETE("/kb/:id", kbHandler.Delete)
			apiV1.GET("/kb/:id/search", kbHandler.Search)

			apiV1.POST("/kb/:id/docs", docHandler.Create)
			apiV1.GET("/kb/:id/docs", docHandler.List)
			apiV1.GET("/kb/:id/docs/:docId", docHandler.Get)
			apiV1.PATCH("/kb/:id/docs/:docId", docHandler.Update)
			apiV1.DELETE("/kb/:id/docs/:docId", docHandler.Delete)
			apiV1.GET("/docs/:id", docHandler.GetByID)
		}

		// Admin routes - require admin authentication
		adminRoutes := router.Group("/admin/api/v1")
		adminRoutes.Use(middleware.AuthMiddleware(authService), middleware.AdminMiddleware())
		{
			adminRoutes.GET("/users", adminHandler.ListUsers)
			adminRoutes.GET("/users/:id", adminHandler.GetUser)
			adminRoutes.PATCH("/users/:id", adminHandler.PatchUserRole)
			adminRoutes.GET("/audit-logs", adminHandler.ListAuditLogs)
		}

		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
