package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/posthog/otelcapture/internal/config"
	"github.com/posthog/otelcapture/internal/server"
	"github.com/posthog/otelcapture/internal/sink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	kafkaSink, err := sink.NewKafkaSink(sink.KafkaConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		ClientID: cfg.KafkaClientID,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create kafka sink", zap.Error(err))
	}
	defer kafkaSink.Close()

	router := server.NewRouter(cfg, logger, kafkaSink)

	logger.Info("server started",
		zap.String("addr", cfg.ListenAddr),
		zap.String("ingest_path", cfg.IngestPath),
		zap.String("capture_mode", cfg.CaptureMode))
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
