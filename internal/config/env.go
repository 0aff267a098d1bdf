// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/abrcast/internal/log"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// isSensitive reports whether a key's value must not be logged.
func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"token", "password", "secret", "api_key", "access_key"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// parseEnv resolves key through lookup. Empty values and values parse rejects
// fall back to def; every decision is logged with its source.
func parseEnv[T any](logger zerolog.Logger, lookup LookupFunc, key string, def T, parse func(string) (T, error)) T {
	raw, ok := lookup(key)
	if !ok || raw == "" {
		logger.Debug().Str("key", key).Interface("default", def).Str("source", "default").Msg("using default value")
		return def
	}
	v, err := parse(raw)
	if err != nil {
		ev := logger.Warn().Str("key", key).Interface("default", def)
		if !isSensitive(key) {
			ev = ev.Str("value", raw)
		}
		ev.Msg("invalid environment variable, using default")
		return def
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", v)
	}
	ev.Msg("using environment variable")
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(strings.TrimSpace(s), 64) }

func parseInt(s string) (int, error) { return strconv.Atoi(strings.TrimSpace(s)) }

func parseDuration(s string) (time.Duration, error) { return time.ParseDuration(strings.TrimSpace(s)) }

// ParseString reads a string from the environment or returns def.
func ParseString(key, def string) string {
	return parseEnv(log.WithComponent("config"), os.LookupEnv, key, def, parseString)
}

// ParseInt reads an integer from the environment; parse errors yield def.
func ParseInt(key string, def int) int {
	return parseEnv(log.WithComponent("config"), os.LookupEnv, key, def, parseInt)
}

// ParseDuration reads a Go duration ("5s") from the environment; parse errors yield def.
func ParseDuration(key string, def time.Duration) time.Duration {
	return parseEnv(log.WithComponent("config"), os.LookupEnv, key, def, parseDuration)
}

// ParseBool reads a boolean ("true", "1", "yes", "on" and their negations).
func ParseBool(key string, def bool) bool {
	return parseEnv(log.WithComponent("config"), os.LookupEnv, key, def, parseBool)
}

// ParseFloat reads a float64 from the environment; parse errors yield def.
func ParseFloat(key string, def float64) float64 {
	return parseEnv(log.WithComponent("config"), os.LookupEnv, key, def, parseFloat)
}
