package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	TelegramBotToken string

	APIAddr string

	UpsertBatchSize   int
	UpsertRetries     int
	UpsertBaseDelayMs int
	BatchPauseMs      int

	SourceBaseURL     string
	ScrapeIntervalMin int
	ScrapeMaxPages    int
	JustListedMaxPage int
	ServiceCities     []string
}

// Load reads the .env file (if present) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "sold2move"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "listing-events"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		APIAddr: getEnv("API_ADDR", ":8080"),

		UpsertBatchSize:   getEnvInt("UPSERT_BATCH_SIZE", 100),
		UpsertRetries:     getEnvInt("UPSERT_RETRIES", 3),
		UpsertBaseDelayMs: getEnvInt("UPSERT_BASE_DELAY_MS", 500),
		BatchPauseMs:      getEnvInt("BATCH_PAUSE_MS", 200),

		SourceBaseURL:     getEnv("SOURCE_BASE_URL", "https://www.zillow.com"),
		ScrapeIntervalMin: getEnvInt("SCRAPE_INTERVAL_MIN", 360),
		ScrapeMaxPages:    getEnvInt("SCRAPE_MAX_PAGES", 10),
		JustListedMaxPage: getEnvInt("JUST_LISTED_MAX_PAGE", 4),
		ServiceCities:     getEnvList("SERVICE_CITIES", "Windsor"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("[config] Invalid integer for %s=%q, using default %d", key, val, fallback)
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
