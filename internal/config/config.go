package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	// session tokens
	JWTSecret       string
	SessionTTLHours int

	// uploaded profile images
	UploadDir string

	// optional redis list cache; empty addr means in-memory fallback
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins  []string
	OTLPEndpoint string
}

func Load() Config {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Env:             getEnv("APP_ENV", "dev"),
		Port:            getEnvInt("PORT", 8080),
		DBURL:           buildDBURL(),
		JWTSecret:       getEnv("SECRET_KEY", "dev-secret-change-me"),
		SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 24),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CORSOrigins:     splitCSV(getEnv("CORS_ORIGINS", "")),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	// a full DATABASE_URL wins over the part-wise variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userhub")
	pass := getEnv("DB_PASSWORD", "userhub")
	name := getEnv("DB_NAME", "userhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
