package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Collab   CollabConfig
	Agent    AgentConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// CollabConfig tunes the server side of the collaboration channel.
type CollabConfig struct {
	InvalidationTopic string
	PersistEvery      int // persist room state every N applied updates
}

// AgentConfig tunes the client-side sync engine (cmd/agent and tests).
type AgentConfig struct {
	ServerURL         string
	Token             string
	StorePath         string
	MaxReconnects     int
	ReconnectBaseWait time.Duration
	NavigationGrace   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Collab: CollabConfig{
			InvalidationTopic: getEnv("COLLAB_INVALIDATION_TOPIC", "DOCUMENT_CONTENT_INVALIDATED"),
			PersistEvery:      getEnvAsInt("COLLAB_PERSIST_EVERY", 1),
		},
		Agent: AgentConfig{
			ServerURL:         getEnv("AGENT_SERVER_URL", "http://localhost:3000"),
			Token:             getEnv("AGENT_TOKEN", ""),
			StorePath:         getEnv("AGENT_STORE_PATH", "agent-cache.db"),
			MaxReconnects:     getEnvAsInt("AGENT_MAX_RECONNECTS", 5),
			ReconnectBaseWait: getEnvAsDuration("AGENT_RECONNECT_BASE_WAIT", 500*time.Millisecond),
			NavigationGrace:   getEnvAsDuration("AGENT_NAVIGATION_GRACE", 2*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
