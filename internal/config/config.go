package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Mailer                    MailerConfig
	Notify                    NotifyConfig
	Redis                     RedisConfig
	Clinic                    ClinicConfig
	Telemetry                 TelemetryConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	RatingsCacheTTL           time.Duration
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	Transport      string
	DefaultFrom    string
	FromName       string
	SendGridAPIKey string
	AWSRegion      string
}

// NotifyConfig sizes the background notification dispatcher.
type NotifyConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// RedisConfig holds the cache connection. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClinicConfig describes the clinic's civil time and queue pacing.
type ClinicConfig struct {
	Timezone       string
	Location       *time.Location
	ServiceMinutes int
}

// TelemetryConfig holds the OTLP exporter settings. An empty Endpoint disables tracing.
type TelemetryConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "curequeue"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	mailerConfig := MailerConfig{
		Transport:      getEnv("MAILER_TRANSPORT", "log"),
		DefaultFrom:    getEnv("MAILER_DEFAULT_FROM", "no-reply@curequeue.local"),
		FromName:       getEnv("MAILER_FROM_NAME", "CureQueue"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AWSRegion:      getEnv("AWS_REGION", "ap-south-1"),
	}

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	serviceMinutes, err := getEnvInt("SERVICE_MINUTES_PER_PATIENT", 5)
	if err != nil {
		return nil, err
	}
	if serviceMinutes <= 0 {
		return nil, fmt.Errorf("invalid SERVICE_MINUTES_PER_PATIENT: must be positive")
	}

	timezone := getEnv("CLINIC_TIMEZONE", "Asia/Kolkata")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	workers, err := getEnvInt("NOTIFY_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	queueSize, err := getEnvInt("NOTIFY_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	sendTimeout, err := getEnvInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	ratingsTTL, err := getEnvInt("RATINGS_CACHE_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:             getEnv("PORT", "5000"),
		Origin:           getEnv("ORIGIN", "http://localhost:3000"),
		Environment:      getEnv("NODE_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		JWTSecret:        getEnv("JWT_SECRET", "dev_jwt_secret_change_me"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "dev_refresh_secret_change_me"),
		Database:         dbConfig,
		Mailer:           mailerConfig,
		Notify: NotifyConfig{
			Workers:     workers,
			QueueSize:   queueSize,
			SendTimeout: time.Duration(sendTimeout) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Clinic: ClinicConfig{
			Timezone:       timezone,
			Location:       location,
			ServiceMinutes: serviceMinutes,
		},
		Telemetry: TelemetryConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "curequeue-server"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnv("OTEL_EXPORTER_OTLP_INSECURE", "false") == "true",
		},
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		RatingsCacheTTL:           time.Duration(ratingsTTL) * time.Second,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
