package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Mongo   MongoConfig
	Auth    AuthConfig
	Storage StorageConfig
	Upload  UploadConfig
	Query   QueryConfig
}

type ServerConfig struct {
	AppEnv         string
	Addr           string
	AllowedOrigins []string
	CookieSecure   bool
	CookieDomain   string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret        string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AdminEmail       string
	AdminPassword    string
}

type StorageConfig struct {
	Provider string // "gcs" or "r2"

	GCSBucket       string
	CredentialsFile string

	R2Bucket       string
	R2AccessKeyID  string
	R2SecretKey    string
	R2Endpoint     string
	R2PublicDomain string
}

type UploadConfig struct {
	AllowedExtensions []string
	AllowedMimeTypes  []string
	MaxSizeMB         int
	MaxProductImages  int
}

type QueryConfig struct {
	DefaultLimit int
	MaxLimit     int
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "production"),
			Addr:           getEnv("SERVER_ADDR", ":8080"),
			AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", nil),
			CookieSecure:   getEnvBool("COOKIE_SECURE", true),
			CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database:       getEnv("DATABASE_NAME", "storefront"),
			ConnectTimeout: time.Duration(getEnvInt("MONGODB_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
			AccessTTL:        time.Duration(getEnvPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute,
			RefreshTTL:       time.Duration(getEnvPositiveInt("REFRESH_TOKEN_TTL_DAYS", 14)) * 24 * time.Hour,
			AdminEmail:       strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
			AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Provider:        strings.ToLower(getEnv("STORAGE_PROVIDER", "gcs")),
			GCSBucket:       getEnv("GCS_BUCKET", ""),
			CredentialsFile: getEnv("CREDENTIALS_FILE_LOCATION", ""),
			R2Bucket:        getEnv("R2_BUCKET", ""),
			R2AccessKeyID:   getEnv("R2_ACCESS_KEY_ID", ""),
			R2SecretKey:     getEnv("R2_SECRET_ACCESS_KEY", ""),
			R2Endpoint:      getEnv("R2_ENDPOINT", ""),
			R2PublicDomain:  strings.TrimRight(getEnv("R2_PUBLIC_DOMAIN", ""), "/"),
		},
		Upload: UploadConfig{
			AllowedExtensions: getEnvSlice("ALLOWED_FILE_EXTENSIONS", []string{".jpg", ".jpeg", ".png", ".webp"}),
			AllowedMimeTypes:  getEnvSlice("ALLOWED_FILE_MIME_TYPES", []string{"image/jpeg", "image/png", "image/webp"}),
			MaxSizeMB:         getEnvPositiveInt("MAX_UPLOAD_SIZE_MB", 5),
			MaxProductImages:  getEnvPositiveInt("MAX_PROD_IMAGES", 4),
		},
		Query: QueryConfig{
			DefaultLimit: getEnvPositiveInt("DEFAULT_READ_QUERY_LIMIT", 20),
			MaxLimit:     getEnvPositiveInt("READ_QUERY_MAX_LIMIT", 100),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvPositiveInt(key string, fallback int) int {
	if i := getEnvInt(key, fallback); i > 0 {
		return i
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvSlice splits a comma separated value, dropping blank entries.
func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
