package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort    string
	AppBaseURL string
	LogLevel   string

	DBDriver string
	DBDSN    string

	JWTSecret     string
	JWTExpiresMin int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	CORSOrigins     string

	UploadDir          string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSS3PublicURL     string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads the configuration from the environment. JWT_SECRET and DB_DSN
// are required; Load panics when either is missing.
func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	if expires <= 0 {
		expires = 10080
	}
	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	frontend := get("FRONTEND_BASE_URL", "http://localhost:3000")

	return Config{
		AppPort:    get("APP_PORT", "8080"),
		AppBaseURL: strings.TrimRight(get("APP_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:   strings.ToLower(get("LOG_LEVEL", "info")),

		DBDriver: strings.ToLower(get("DB_DRIVER", "postgres")),
		DBDSN:    must("DB_DSN"),

		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: strings.TrimRight(frontend, "/"),
		CORSOrigins:     get("CORS_ORIGINS", frontend),

		UploadDir:          get("UPLOAD_DIR", "./uploads"),
		AWSRegion:          get("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        get("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     get("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: get("AWS_SECRET_ACCESS_KEY", ""),
		AWSS3PublicURL:     get("AWS_S3_PUBLIC_URL", ""),

		AdminEmail:    get("ADMIN_EMAIL", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),
		AdminName:     get("ADMIN_NAME", "Administrator"),
	}
}

// GoogleEnabled reports whether Google sign-in routes should be mounted.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleSecret != ""
}

func (c Config) UseS3() bool {
	return c.AWSS3Bucket != ""
}

func (c Config) UseRedis() bool {
	return c.RedisAddr != ""
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
