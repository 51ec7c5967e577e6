package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	Port        int

	DatabaseURL string
	RedisURL    string

	JWTSecret string
	AppURL    string

	AvatarDir   string
	CORSOrigins string

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "flowroute"))
	cfg.Port = cast.ToInt(getOrReturnDefault("PORT", 5000))

	cfg.DatabaseURL = cast.ToString(getOrReturnDefault("DATABASE_URL", ""))
	cfg.RedisURL = cast.ToString(getOrReturnDefault("REDIS_URL", "redis://localhost:6379"))

	cfg.JWTSecret = cast.ToString(getOrReturnDefault("JWT_SECRET", "dev-secret-key-change-in-production"))
	cfg.AppURL = cast.ToString(getOrReturnDefault("APP_URL", "http://localhost:3000"))

	cfg.AvatarDir = cast.ToString(getOrReturnDefault("AVATAR_DIR", "./public/avatars"))
	cfg.CORSOrigins = cast.ToString(getOrReturnDefault("CORS_ORIGINS", "http://localhost:3000"))

	cfg.SMTPHost = cast.ToString(getOrReturnDefault("SMTP_HOST", ""))
	cfg.SMTPPort = cast.ToInt(getOrReturnDefault("SMTP_PORT", 587))
	cfg.SMTPFrom = cast.ToString(getOrReturnDefault("SMTP_FROM", "no-reply@flowroute.local"))
	cfg.SMTPUser = cast.ToString(getOrReturnDefault("SMTP_USER", ""))
	cfg.SMTPPassword = cast.ToString(getOrReturnDefault("SMTP_PASSWORD", ""))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return defaultValue
}
