package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Owoblo/sold2move-sub003/internal/cache"
	"github.com/Owoblo/sold2move-sub003/internal/config"
	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/ingest"
	"github.com/Owoblo/sold2move-sub003/internal/kafka"
	"github.com/Owoblo/sold2move-sub003/internal/scraper"
)

type IngestService struct {
	cfg      *config.Config
	db       *database.DB
	consumer *kafka.Consumer
	producer *kafka.Producer
	cache    *cache.RedisCache
	source   scraper.Source
	upserter *ingest.Upserter

	// ctx is the service shutdown context; event-triggered work derives
	// from it so manual scrapes stop on SIGTERM like the periodic ones.
	ctx context.Context
}

func NewIngestService(cfg *config.Config) (*IngestService, error) {
	log.Println("Initializing Ingest Service components...")

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return nil, err
	}
	log.Println("Database connected")

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "ingest-service")
	log.Println("Kafka consumer created")

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	log.Println("Kafka producer created")

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err := redisCache.Ping(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Printf("Ingestor will run without scrape rate limiting!")
	} else {
		log.Println("Redis connected")
	}

	return &IngestService{
		cfg:      cfg,
		db:       db,
		consumer: consumer,
		producer: producer,
		cache:    redisCache,
		source:   scraper.NewSearchScraper(cfg.SourceBaseURL),
		upserter: ingest.NewUpserter(db, cfg.UpsertBatchSize, cfg.UpsertRetries,
			cfg.UpsertBaseDelayMs, cfg.BatchPauseMs),
	}, nil
}

func main() {
	log.Println("Starting Listing Ingest Service...")

	cfg := config.Load()

	service, err := NewIngestService(cfg)
	if err != nil {
		log.Fatalf("Failed to create ingest service: %v", err)
	}

	defer service.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.ctx = ctx

	go func() {
		log.Println("Starting Kafka consumer...")
		if err := service.consumer.ProcessEvents(ctx, service); err != nil {
			log.Printf("Consumer error: %v", err)
		}
		log.Println("Kafka consumer stopped")
	}()

	go func() {
		log.Println("Starting periodic ingestion...")
		service.startPeriodicIngestion(ctx)
		log.Println("Periodic ingestion stopped")
	}()

	log.Println("Ingest Service is running!")
	log.Printf("Service cities: %v", cfg.ServiceCities)
	log.Printf("Ingestion every %d minutes", cfg.ScrapeIntervalMin)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutdown signal received, stopping Ingest Service")

	cancel()

	time.Sleep(2 * time.Second)
	log.Println("Ingest Service stopped gracefully")
}

func (s *IngestService) cleanup() {
	log.Println("Cleaning up resources...")

	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			log.Printf("Error closing consumer: %v", err)
		}
	}

	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			log.Printf("Error closing producer: %v", err)
		}
	}

	log.Println("Cleanup completed")
}

func (s *IngestService) startPeriodicIngestion(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.ScrapeIntervalMin) * time.Minute)
	defer ticker.Stop()

	log.Println("Waiting 30 seconds before first ingestion...")
	select {
	case <-ctx.Done():
		return
	case <-time.After(30 * time.Second):
	}

	s.ingestAllCities(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Println("Starting scheduled ingestion cycle...")
			s.ingestAllCities(ctx)
		}
	}
}

func (s *IngestService) ingestAllCities(ctx context.Context) {
	startTime := time.Now()

	successCount := 0
	errorCount := 0

	for i, city := range s.cfg.ServiceCities {
		if ctx.Err() != nil {
			return
		}

		log.Printf("[%d/%d] Ingesting city: %s", i+1, len(s.cfg.ServiceCities), city)

		if err := s.ingestCity(ctx, city); err != nil {
			log.Printf("[%d/%d] Error ingesting %s: %v", i+1, len(s.cfg.ServiceCities), city, err)
			errorCount++
		} else {
			successCount++
		}

		if i < len(s.cfg.ServiceCities)-1 {
			time.Sleep(3 * time.Second)
		}
	}

	log.Printf("Ingestion cycle completed in %v: %d ok, %d failed",
		time.Since(startTime).Round(time.Second), successCount, errorCount)
}

// ingestCity runs the full pipeline for one city: scrape both listing
// statuses, map raw items to rows, upsert in batches, and announce the
// results.
func (s *IngestService) ingestCity(ctx context.Context, city string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.cache.CanScrapeCity(city, 5*time.Minute) {
		log.Printf("Scrape for %s rate-limited, skipping", city)
		return nil
	}

	run, err := s.db.StartRun(ctx, city)
	if err != nil {
		return err
	}

	var rows []*database.Listing
	found := 0

	for _, status := range []string{database.StatusJustListed, database.StatusSold} {
		pages, err := s.source.FetchCity(city, status, s.cfg.ScrapeMaxPages)
		if err != nil {
			log.Printf("Scrape failed for %s (%s): %v", city, status, err)
			continue
		}

		for _, page := range pages {
			found += len(page.Items)
			for _, item := range page.Items {
				row := ingest.MapItemToRow(item, ingest.MapContext{
					City:              city,
					Page:              page.Number,
					RunID:             run.ID,
					Status:            status,
					MaxJustListedPage: s.cfg.JustListedMaxPage,
				})
				if row == nil {
					continue
				}
				rows = append(rows, row)
			}
		}
	}

	result := s.upserter.UpsertListings(ctx, rows)

	runStatus := database.RunStatusCompleted
	if found == 0 && len(rows) == 0 {
		runStatus = database.RunStatusFailed
	}

	if err := s.db.FinishRun(ctx, run, runStatus,
		found, len(result.Succeeded), len(result.Failed)); err != nil {
		log.Printf("Failed to finish run %d: %v", run.ID, err)
	}

	s.publishResults(run, city, rows, result)
	return nil
}

func (s *IngestService) publishResults(run *database.Run, city string, rows []*database.Listing, result *ingest.Result) {
	event := kafka.RunCompletedEvent{
		RunID:            run.ID,
		City:             city,
		Status:           run.Status,
		ListingsFound:    run.ListingsFound,
		ListingsUpserted: len(result.Succeeded),
		ListingsFailed:   len(result.Failed),
		FinishedAt:       time.Now(),
	}
	if err := s.producer.PublishRunCompleted(event); err != nil {
		log.Printf("Failed to publish run_completed: %v", err)
	}

	succeeded := make(map[string]struct{}, len(result.Succeeded))
	for _, z := range result.Succeeded {
		succeeded[z] = struct{}{}
	}

	var summaries []kafka.ListingSummary
	for _, row := range rows {
		if row == nil {
			continue
		}
		if _, ok := succeeded[row.Zpid]; !ok {
			continue
		}
		price := ""
		if row.Price != nil {
			price = *row.Price
		}
		summaries = append(summaries, kafka.ListingSummary{
			Zpid:             row.Zpid,
			City:             row.LastCity,
			Price:            price,
			UnformattedPrice: row.UnformattedPrice,
			Status:           row.Status,
		})
	}

	if len(summaries) == 0 {
		return
	}

	listingsEvent := kafka.NewListingsEvent{
		RunID:    run.ID,
		City:     city,
		Listings: summaries,
		FoundAt:  time.Now(),
	}
	if err := s.producer.PublishNewListings(listingsEvent); err != nil {
		log.Printf("Failed to publish new_listings: %v", err)
	}
}

// HandleScrapeRequest triggers an immediate ingestion cycle.
func (s *IngestService) HandleScrapeRequest(event kafka.ScrapeRequestEvent) error {
	log.Printf("Received scrape_request event (city=%q) - triggering ingestion", event.City)

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		if event.City != "" {
			if err := s.ingestCity(ctx, event.City); err != nil {
				log.Printf("Manual ingestion of %s failed: %v", event.City, err)
			}
			return
		}
		s.ingestAllCities(ctx)
	}()

	return nil
}

// HandleRunCompleted is produced by us; nothing to do.
func (s *IngestService) HandleRunCompleted(event kafka.RunCompletedEvent) error {
	return nil
}

// HandleNewListings is for the notifier service.
func (s *IngestService) HandleNewListings(event kafka.NewListingsEvent) error {
	return nil
}
