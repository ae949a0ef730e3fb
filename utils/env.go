package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvOrDefault returns ENV value or fallback default.
func EnvOrDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// EnvInt parses an integer ENV value, falling back to def when unset or invalid.
func EnvInt(key string, def int) int {
	raw := EnvOrDefault(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// EnvBool accepts true/false/1/0/yes/no.
func EnvBool(key string, def bool) bool {
	switch strings.ToLower(EnvOrDefault(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// EnvDuration reads an integer ENV value expressed in unit.
func EnvDuration(key string, def int, unit time.Duration) time.Duration {
	return time.Duration(EnvInt(key, def)) * unit
}
