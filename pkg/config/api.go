package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment   string
	Addr          string
	DatabaseURL   string
	MigrationsDir string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	KafkaBroker       string
	KafkaTopic        string
	KafkaWriteTimeout time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
// JWTSecret deliberately has no default; main refuses to start without it.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://warble:warble@db:5432/warble?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", ""),
		TokenTTL:           time.Duration(GetInt("TOKEN_TTL_HOURS", 360)) * time.Hour,
		BcryptCost:         GetInt("BCRYPT_COST", 0),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		S3Endpoint:         GetString("S3_ENDPOINT", ""),
		S3Region:           GetString("S3_REGION", "us-east-1"),
		S3Bucket:           GetString("S3_BUCKET", "warble-media"),
		S3AccessKey:        GetString("S3_ACCESS_KEY", ""),
		S3SecretKey:        GetString("S3_SECRET_KEY", ""),
		S3PublicURL:        GetString("S3_PUBLIC_URL", ""),
		KafkaBroker:        GetString("KAFKA_BROKER", ""),
		KafkaTopic:         GetString("KAFKA_TOPIC", "warble-activity"),
		KafkaWriteTimeout:  time.Duration(GetInt("KAFKA_WRITE_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}
