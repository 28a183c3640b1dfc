package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	OpenAI   OpenAIConfig
	Assembly AssemblyConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis configuration. Redis is optional; when disabled
// the export cache falls back to the in-memory store.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig selects where export artifacts are written: a local
// directory ("filesystem") or a MinIO bucket ("minio").
type StorageConfig struct {
	Type            string
	ExportsDir      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// OpenAIConfig holds oracle configuration. BlocksModel is used for the
// block pass, which carries a much larger context and needs better
// instruction following than boundary detection.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	BlocksModel   string
	Timeout       time.Duration
	MaxTextLength int
}

// AssemblyConfig holds the optional AssemblyAI transcription configuration.
// An empty APIKey disables the from-audio ingestion endpoint.
type AssemblyConfig struct {
	APIKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "transcript_analyzer"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "1h"),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "filesystem"),
			ExportsDir:      getEnv("EXPORTS_DIR", "exports"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "transcript-exports"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		OpenAI: OpenAIConfig{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			BaseURL:       getEnv("OPENAI_BASE_URL", ""),
			Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BlocksModel:   getEnv("OPENAI_MODEL_BLOCKS", "gpt-4o"),
			Timeout:       getEnvAsDuration("OPENAI_TIMEOUT", "120s"),
			MaxTextLength: getEnvAsInt("MAX_TEXT_LENGTH", 4000),
		},
		Assembly: AssemblyConfig{
			APIKey: getEnv("ASSEMBLYAI_API_KEY", ""),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Storage.Type != "filesystem" && c.Storage.Type != "minio" {
		return fmt.Errorf("STORAGE_TYPE must be \"filesystem\" or \"minio\", got %q", c.Storage.Type)
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
