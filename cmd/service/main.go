package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bot-service/config"
	"bot-service/internal/cache"
	"bot-service/internal/database"
	"bot-service/internal/logger"
	"bot-service/internal/producer"
	"bot-service/internal/repository"
	"bot-service/internal/service"
	"bot-service/internal/transport/bot"
	"bot-service/internal/transport/httpapi"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	var dialogueCache service.DialogueCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		dialogueCache = redisClient
		log.Info("Redis cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	// Event bus is optional (nil disables publishing)
	var events service.EventBus
	if cfg.KafkaEnabled {
		orderProducer := producer.NewOrderProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer orderProducer.Close()
		events = orderProducer
		log.Info("Kafka producer enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	catalogSvc := service.NewCatalogService(repos.Categories, repos.Products)
	cartSvc := service.NewCartService(repos.CartItems, repos.Products)
	dialogueSvc := service.NewDialogueService(repos.Dialogues, repos.CartItems, dialogueCache, log)
	checkoutSvc := service.NewCheckoutService(repos, dialogueCache, events, log)

	handler := bot.NewHandler(catalogSvc, cartSvc, dialogueSvc, checkoutSvc, log)
	router := httpapi.Router(handler, log)

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting bot webhook server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("webhook server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down bot webhook server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("Bot webhook server stopped gracefully")
}
