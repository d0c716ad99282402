package config

import (
	"fmt"
	"os"
	"strconv"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
//	PORT                  Server port (default: "8080")
//	ENVIRONMENT           Runtime environment (default: "development")
//	STORE_URL             Store location, see ParseStoreURL (default: "memory://")
//	DB_SCHEMA             Postgres search_path (default: "ledger")
//	JWT_SECRET            HS256 secret for bearer tokens
//	EVENT_TARGET_URL      CloudEvents receiver; unset disables delivery
//	EVENT_SOURCE          CloudEvents source attribute
//	ENABLE_EVENT_LOGGING  Log every event (default: true)
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}
		if v, ok := lookupEnv(prefix, "STORE_URL"); ok && v != "" {
			if _, err := ParseStoreURL(v); err != nil {
				return fmt.Errorf("invalid %sSTORE_URL: %w", prefix, err)
			}
			c.StoreURL = v
		}
		if v, ok := lookupEnv(prefix, "DB_SCHEMA"); ok {
			c.DBSchema = v
		}
		if v, ok := lookupEnv(prefix, "JWT_SECRET"); ok && v != "" {
			c.JWTSecret = v
		}
		if v, ok := lookupEnv(prefix, "EVENT_TARGET_URL"); ok {
			c.EventTargetURL = v
		}
		if v, ok := lookupEnv(prefix, "EVENT_SOURCE"); ok && v != "" {
			c.EventSource = v
		}

		enabled, ok, err := parseBoolEnv(prefix, "ENABLE_EVENT_LOGGING")
		if err != nil {
			return err
		}
		if ok {
			c.EnableEventLogging = enabled
		}

		return nil
	}
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
