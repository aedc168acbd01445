package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   int
	Database     DatabaseConfig
	Broker       BrokerConfig
	Snapshots    SnapshotsConfig
	SMTP         SMTPConfig
	Schedule     ScheduleConfig
	Verification VerificationConfig
	Leaderboard  LeaderboardConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// BrokerConfig selects the optional event broker used to mirror realtime
// events between server instances. Kind is "pubsub", "rabbitmq", or "none".
type BrokerConfig struct {
	Kind     string
	Channel  string
	PubSub   PubSubConfig
	RabbitMQ RabbitMQConfig
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type RabbitMQConfig struct {
	URL             string
	PrefetchCount   int
	QueueDurable    bool
	QueueAutoDelete bool
}

// SnapshotsConfig selects the object store used for last-good schedule
// snapshots. Kind is "minio", "gcs", or "none".
type SnapshotsConfig struct {
	Kind  string
	Minio MinioConfig
	GCS   GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ScheduleConfig struct {
	SpreadsheetID   string
	ReadRange       string
	CredentialsFile string
	CacheTTL        time.Duration
}

type VerificationConfig struct {
	MaxAttempts int
	CodeTTL     time.Duration
}

type LeaderboardConfig struct {
	CacheTTL time.Duration
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "confly"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "confly_db"),
			UseSSL:   getEnvBool("DB_USE_SSL", false),
		},
		Broker: BrokerConfig{
			Kind:    getEnv("BROKER_KIND", "none"),
			Channel: getEnv("BROKER_CHANNEL", "qa-events"),
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 0),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", false),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTODELETE", true),
			},
		},
		Snapshots: SnapshotsConfig{
			Kind: getEnv("SNAPSHOTS_KIND", "none"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "confly-snapshots"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@confly.app"),
		},
		Schedule: ScheduleConfig{
			SpreadsheetID:   getEnv("SCHEDULE_SPREADSHEET_ID", ""),
			ReadRange:       getEnv("SCHEDULE_READ_RANGE", "Schedule!A2:F"),
			CredentialsFile: getEnv("SCHEDULE_CREDENTIALS_FILE", ""),
			CacheTTL:        getEnvDuration("SCHEDULE_CACHE_TTL", 5*time.Minute),
		},
		Verification: VerificationConfig{
			MaxAttempts: getEnvInt("VERIFICATION_MAX_ATTEMPTS", 3),
			CodeTTL:     getEnvDuration("VERIFICATION_CODE_TTL", 15*time.Minute),
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL: getEnvDuration("LEADERBOARD_CACHE_TTL", 60*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "true" || valueStr == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
