package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Owoblo/sold2move-sub003/internal/config"
	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/kafka"
	"github.com/Owoblo/sold2move-sub003/internal/notify"
)

func main() {
	cfg := config.Load()

	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Fatal("Error connecting to db:", err)
	}

	notifier, err := notify.NewNotifier(cfg.TelegramBotToken, db)
	if err != nil {
		log.Fatal("Error creating notifier:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "notifier-service")
	defer consumer.Close()

	go func() {
		log.Println("Starting notifier Kafka consumer...")
		if err := consumer.ProcessEvents(ctx, notifier); err != nil {
			log.Printf("Notifier consumer error: %v", err)
		}
	}()

	log.Println("Notifier is running. Press Ctrl+C to stop...")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutdown signal received, stopping Notifier")
	cancel()
}
