package utils

import (
	"os"
	"strings"
)

// ParseWithFallback returns the trimmed value of envName, or fallback when it is unset or blank.
func ParseWithFallback(envName, fallback string) string {
	if v, ok := os.LookupEnv(envName); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	return fallback
}
