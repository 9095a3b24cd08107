package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides file values with HARKFLOW_* environment variables.
func ApplyEnv(c *Config) {
	if v := getEnv("HARKFLOW_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getEnvDuration("HARKFLOW_SHUTDOWN_TIMEOUT"); v > 0 {
		c.Server.ShutdownTimeout = v
	}
	if v := getEnv("HARKFLOW_STORE"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := getEnv("HARKFLOW_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := getEnv("HARKFLOW_SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := getEnv("HARKFLOW_UPLOADS_DIR"); v != "" {
		c.Uploads.Dir = v
	}
	if v := getEnvFloat("HARKFLOW_DEFAULT_HOURLY_RATE"); v > 0 {
		c.Billing.DefaultHourlyRate = v
	}
	if v := getEnv("HARKFLOW_NOT_STARTED_LABEL"); v != "" {
		c.Tasks.NotStartedLabel = v
	}
	if v := getEnv("HARKFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getEnv("HARKFLOW_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	// GEMINI_API_KEY is what the genai SDK itself reads.
	if v := getEnv("HARKFLOW_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := getEnv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvFloat(key string) float64 {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return num
}

func getEnvDuration(key string) time.Duration {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0
	}
	return d
}
