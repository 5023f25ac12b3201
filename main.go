package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"powermesh/internal/cache"
	"powermesh/internal/config"
	"powermesh/internal/db"
	"powermesh/internal/dispatch"
	"powermesh/internal/engine"
	"powermesh/internal/ingest"
	"powermesh/internal/mqtt"
	"powermesh/internal/redis"
	"powermesh/internal/scheduler"
	"powermesh/internal/taskqueue"
	"powermesh/internal/web"
)

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	dbConn, err := db.NewDB(context.Background(), cfg.DBURL)
	if err != nil {
		logger.Fatal("Failed to connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	redisClient := redis.NewRedisClient(cfg.RedisAddr)
	latest := cache.NewLatest(redisClient)

	mqttClient, err := mqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		logger.Fatal("Failed to connect to MQTT", zap.Error(err))
	}

	notifier := taskqueue.NewClient(cfg.RedisAddr)
	defer notifier.Close()

	worker := taskqueue.NewWorker(cfg.RedisAddr, logger.Named("taskqueue"))
	if err := worker.Start(); err != nil {
		logger.Fatal("Failed to start task workers", zap.Error(err))
	}

	dispatcher := dispatch.NewDispatcher(mqttClient, cfg.HomeID, logger.Named("dispatch"))

	ingestor := ingest.NewIngestor(mqttClient, dbConn, latest, cfg.HomeID, logger.Named("ingest"))
	if err := ingestor.Start(); err != nil {
		logger.Fatal("Failed to start ingestion", zap.Error(err))
	}

	sched := scheduler.NewScheduler(dbConn, cfg.HomeID, logger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	telemetry := cache.NewReader(latest, dbConn, logger.Named("cache"))
	eng := engine.NewEngine(dbConn, telemetry, dbConn, dispatcher, notifier,
		cfg.HomeID, cfg.EvalInterval(), logger.Named("engine"))
	eng.Start()

	webServer := web.NewWebServer(dbConn, dispatcher, cfg.JWTSecret, cfg.HomeID)
	go func() {
		if err := webServer.Start(cfg.HTTPAddr); err != nil {
			logger.Fatal("Web server exited", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	eng.Stop()
	ingestor.Stop()
	sched.Stop()
	worker.Stop()
	mqttClient.Disconnect(250)
	logger.Info("Shutdown complete")
}
