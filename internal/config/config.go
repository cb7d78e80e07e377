package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Public   PublicConfig
	Review   ReviewConfig
	Sweep    SweepConfig
	PDF      PDFConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

type DatabaseConfig struct {
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	MigrationsDir string
	AutoMigrate   bool
	SeedData      bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	Requests     string
	Certificates string
	Artists      string
}

// All returns every workflow topic, used when ensuring topics exist and when
// subscribing the review feed.
func (t TopicConfig) All() []string {
	return []string{t.Requests, t.Certificates, t.Artists}
}

type AuthConfig struct {
	// Mode is "oidc" (default) or "hs256" for local development.
	Mode          string
	OIDCIssuer    string
	OIDCClientID  string
	JWTSecret     string
	KeycloakURL   string
	KeycloakRealm string
	ClientID      string
	ClientSecret  string
}

type StorageConfig struct {
	// Backend is "local" or "minio".
	Backend        string
	LocalDir       string
	SigningKey     string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ProofBucket    string
	ImageBucket    string
	SignedURLTTL   time.Duration
	MaxUploadBytes int64
}

type PublicConfig struct {
	// BaseURL is the externally reachable origin of the public pages; QR codes
	// and storage URLs are built from it.
	BaseURL string
}

type ReviewConfig struct {
	LockTTL time.Duration
}

type SweepConfig struct {
	Interval    time.Duration
	IntentAge   time.Duration
	CacheTTL    time.Duration
	RunInServer bool
}

type PDFConfig struct {
	FontPath string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("POSTGRES_DSN", ""),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", true),
			SeedData:      getEnvBool("SEED_DATA", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "coa-registry-feed"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				Requests:     getEnv("KAFKA_TOPIC_REQUESTS", "coa.requests"),
				Certificates: getEnv("KAFKA_TOPIC_CERTIFICATES", "coa.certificates"),
				Artists:      getEnv("KAFKA_TOPIC_ARTISTS", "coa.artists"),
			},
		},
		Auth: AuthConfig{
			Mode:          getEnv("AUTH_MODE", "oidc"),
			OIDCIssuer:    getEnv("OIDC_ISSUER", ""),
			OIDCClientID:  getEnv("OIDC_CLIENT_ID", ""),
			JWTSecret:     getEnv("JWT_SECRET", ""),
			KeycloakURL:   getEnv("KEYCLOAK_URL", ""),
			KeycloakRealm: getEnv("KEYCLOAK_REALM", ""),
			ClientID:      getEnv("KEYCLOAK_ADMIN_CLIENT_ID", ""),
			ClientSecret:  getEnv("KEYCLOAK_ADMIN_CLIENT_SECRET", ""),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "local"),
			LocalDir:       getEnv("STORAGE_LOCAL_DIR", "./data/uploads"),
			SigningKey:     getEnv("STORAGE_SIGNING_KEY", ""),
			Endpoint:       getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:      getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:      getEnv("STORAGE_SECRET_KEY", ""),
			UseSSL:         getEnvBool("STORAGE_USE_SSL", true),
			ProofBucket:    getEnv("STORAGE_PROOF_BUCKET", "coa-proofs"),
			ImageBucket:    getEnv("STORAGE_IMAGE_BUCKET", "coa-images"),
			SignedURLTTL:   getEnvDuration("STORAGE_SIGNED_URL_TTL", 10*time.Minute),
			MaxUploadBytes: int64(getEnvInt("STORAGE_MAX_UPLOAD_MB", 10)) << 20,
		},
		Public: PublicConfig{
			BaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Review: ReviewConfig{
			LockTTL: getEnvDuration("REVIEW_LOCK_TTL", 2*time.Minute),
		},
		Sweep: SweepConfig{
			Interval:    getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
			IntentAge:   getEnvDuration("SWEEP_INTENT_AGE", 5*time.Minute),
			CacheTTL:    getEnvDuration("VERIFY_CACHE_TTL", 5*time.Minute),
			RunInServer: getEnvBool("SWEEP_IN_SERVER", true),
		},
		PDF: PDFConfig{
			FontPath: getEnv("PDF_FONT_PATH", "./fonts/DejaVuSans.ttf"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
