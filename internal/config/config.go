package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string
	SQLitePath  string
	LevelsDir   string // empty means the embedded defaults
	TopLimit    int    // leaderboard rows returned per level
}

func Load() Config {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/phishtrainer.db"),
		LevelsDir:   os.Getenv("LEVELS_DIR"),
		TopLimit:    getEnvInt("LEADERBOARD_LIMIT", 10),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
