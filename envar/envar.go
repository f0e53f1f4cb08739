package envar

import (
	"os"
	"strings"
)

const (
	ReinVerbose = "REIN_VERBOSE"
	ReinConfig  = "REIN_CONFIG"
)

func Getenv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Enabled reports whether key holds anything but an empty or negative value such as "0", "false", "off" or "no".
func Enabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}
