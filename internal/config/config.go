package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/utakatalp/krach-ranker/internal/league"
)

// Database configuration.
type DatabaseConfiguration struct {
	URL string
}

// Redis configuration.
type RedisConfiguration struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// Config is everything the commands read from the environment.
type Config struct {
	Database        DatabaseConfiguration
	Redis           RedisConfiguration
	HTTPAddr        string
	LogMode         string
	ResultsFile     string
	CorrectionsFile string
	Solver          league.Params
}

// Load reads an optional .env file and then the environment. Variables that
// are already set win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfiguration{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfiguration{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		LogMode:         getenv("LOG_MODE", "development"),
		ResultsFile:     getenv("TEAM_RESULTS_FILE", "team_results.json"),
		CorrectionsFile: os.Getenv("CORRECTIONS_FILE"),
		Solver:          league.DefaultParams(),
	}

	var err error
	if cfg.Redis.TTL, err = durationEnv("REDIS_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Solver.Alpha, err = floatEnv("KRACH_ALPHA", cfg.Solver.Alpha); err != nil {
		return nil, err
	}
	if cfg.Solver.Scale, err = floatEnv("KRACH_SCALE", cfg.Solver.Scale); err != nil {
		return nil, err
	}
	if cfg.Solver.MaxIterations, err = intEnv("KRACH_MAX_ITERATIONS", cfg.Solver.MaxIterations); err != nil {
		return nil, err
	}
	if cfg.Solver.Tolerance, err = floatEnv("KRACH_TOLERANCE", cfg.Solver.Tolerance); err != nil {
		return nil, err
	}
	if err := cfg.Solver.Validate(); err != nil {
		return nil, fmt.Errorf("solver configuration: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}
