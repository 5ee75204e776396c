package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the full application configuration
type Config struct {
	Port     int
	LogLevel string
	Env      string

	DB    DBConfig
	Kafka KafkaConfig
	Auth  AuthConfig

	// QRSecret keys the HMAC over delivery confirmation payloads
	QRSecret string

	// OwnerEmail optionally seeds a bootstrap owner account at startup.
	// This is deliberately a configuration value, not a literal anywhere in
	// business logic.
	OwnerEmail string
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the event stream configuration
type KafkaConfig struct {
	Brokers       []string
	DispatchTopic string
	ConsumerGroup string
}

// AuthConfig holds the session gate configuration
type AuthConfig struct {
	JWTSecret string
}

// getEnv retrieves the value of an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from environment variables and returns a Config struct.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	qrSecret := getEnv("QR_SECRET", "")
	if qrSecret == "" {
		return nil, fmt.Errorf("QR_SECRET is required")
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "dispatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			DispatchTopic: getEnv("KAFKA_DISPATCH_TOPIC", "dispatch-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "dispatch-api"),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
		},
		QRSecret:   qrSecret,
		OwnerEmail: getEnv("OWNER_EMAIL", ""),
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
