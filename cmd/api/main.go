package main

import (
	"log"

	"github.com/Owoblo/sold2move-sub003/internal/api"
	"github.com/Owoblo/sold2move-sub003/internal/cache"
	"github.com/Owoblo/sold2move-sub003/internal/config"
	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/kafka"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Fatal("Error connecting to db:", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatal("Error migrating db:", err)
	}
	log.Println("Database connected")

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err := redisCache.Ping(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Printf("API will serve without query caching!")
	} else {
		log.Println("Redis connected")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	server := api.NewServer(cfg, db, redisCache, producer)

	log.Printf("Starting dashboard API on %s", cfg.APIAddr)
	if err := server.Router().Run(cfg.APIAddr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
