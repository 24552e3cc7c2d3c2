package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string
	BotDebug bool

	CoursesPath     string
	QuizSetCount    int
	TimePerQuestion time.Duration

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr string
}

// Load reads the environment, after merging a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		BotDebug:      getBool("BOT_DEBUG", false),
		CoursesPath:   getEnv("COURSES_PATH", "assets/courses.json"),
		DBDriver:      getEnv("DB_DRIVER", "memory"),
		DBDSN:         os.Getenv("DB_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
	}
	if cfg.BotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	var err error
	if cfg.QuizSetCount, err = getInt("QUIZ_SET_COUNT", 3); err != nil {
		return nil, err
	}
	if cfg.QuizSetCount <= 0 {
		return nil, fmt.Errorf("QUIZ_SET_COUNT must be positive, got %d", cfg.QuizSetCount)
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TimePerQuestion, err = getDuration("QUIZ_TIME_PER_QUESTION", time.Minute); err != nil {
		return nil, err
	}
	if cfg.TimePerQuestion <= 0 {
		return nil, fmt.Errorf("QUIZ_TIME_PER_QUESTION must be positive, got %s", cfg.TimePerQuestion)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return defaultValue
	}
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
