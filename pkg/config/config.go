package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ServerAddr    string
	MaxBodyBytes  int64    // bytes for /v1/analyze payload
	Outputs       []string // enabled sinks: log, kafka, postgres
	RegistryPath  string   // YAML detector registry definition
	MaxConcurrent int      // fan-out worker bound; 0 = one goroutine per detector
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getStringSlice(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func Load() Config {
	return Config{
		ServerAddr:    getOr("SERVER_ADDR", ":18080"),
		MaxBodyBytes:  getInt64("MAX_BODY_BYTES", 1<<20), // 1 MiB default
		Outputs:       getStringSlice("OUTPUTS", "log"),  // default to log only
		RegistryPath:  getOr("DETECTORS_CONFIG", "detectors.yml"),
		MaxConcurrent: getInt("ANALYZE_MAX_CONCURRENT", 0),
	}
}
