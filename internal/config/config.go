package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string

	AppPort   string
	AppEnv    string
	JWTSecret string

	CartTTL      time.Duration
	CartLockWait time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        os.Getenv("DB_PORT"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AppPort:       os.Getenv("APP_PORT"),
		AppEnv:        os.Getenv("APP_ENV"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CartTTL:       durationEnv("CART_TTL_DAYS", 7, 24*time.Hour),
		CartLockWait:  durationEnv("CART_LOCK_WAIT_SECONDS", 10, time.Second),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func durationEnv(key string, fallback int, unit time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * unit
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return time.Duration(fallback) * unit
	}

	return time.Duration(n) * unit
}
