package config

import (
	"log"
	"os"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	FactCheckAPIURL string
	FactCheckAPIKey string

	SourcesConfigPath string

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=claimhub password=claimhub dbname=claimhub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:    getEnv("CRON_SPEC", "0 * * * *"),

		FactCheckAPIURL: getEnv("FACT_CHECK_API_URL", "https://factchecktools.googleapis.com/v1alpha1/claims:search"),
		FactCheckAPIKey: getEnv("FACT_CHECK_API_KEY", ""),

		SourcesConfigPath: getEnv("SOURCES_CONFIG_PATH", "sources_config.json"),

		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s cron=%s", cfg.AppPort, cfg.CronSpec)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
