/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/ragchat-be/config"
	"github.com/tieubaoca/ragchat-be/database"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/service"
	"go.uber.org/zap"
)

// reindexCmd rebuilds the vector index from the document store. Run it after
// a schema change or after switching the embedding model.
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored documents",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}

		ctx := context.Background()

		_, embedder, err := service.NewAIServiceFromConfig(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize AI backend: %v", err)
		}
		if embedder == nil {
			log.Fatal("Reindexing requires a model credential for embeddings")
		}

		mongoClient, err := database.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoDb := mongoClient.Database(cfg.MongoDatabase)

		weaviateDb, err := database.NewWeaviateStore(cfg.Weaviate)
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}
		if err := weaviateDb.ResetSchema(ctx); err != nil {
			log.Fatalf("Failed to reset vector schema: %v", err)
		}

		kbRepo := repository.NewKnowledgeBaseRepo(mongoDb.Collection("knowledge_bases"))
		docRepo := repository.NewDocumentRepo(mongoDb.Collection("documents"))
		retriever := service.NewRetrieverService(embedder, weaviateDb)
		kbService := service.NewKnowledgeBaseService(kbRepo, docRepo, weaviateDb, embedder, retriever)

		indexed, err := kbService.ReindexAll(ctx)
		if err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		logger.Info("reindex complete", zap.Int("indexed", indexed))
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
