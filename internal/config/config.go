// Package config loads default conversion options from the environment,
// so CI and batch environments can pin eslevel/width/module without
// repeating flags on every invocation. A .env file in the working
// directory is honored before the process environment is read.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/oxhq/srcjs"
)

// Load returns the option defaults for this environment: the package
// defaults, overridden by SRCJS_* variables. A missing .env file is not
// an error.
func Load() srcjs.Options {
	_ = godotenv.Load()

	opts := srcjs.DefaultOptions()

	if v := os.Getenv("SRCJS_ESLEVEL"); v != "" {
		if level, err := strconv.Atoi(v); err == nil && level >= 2015 && level <= 2025 {
			opts.ESLevel = level
		}
	}
	if v := os.Getenv("SRCJS_WIDTH"); v != "" {
		if width, err := strconv.Atoi(v); err == nil && width > 0 {
			opts.Width = width
		}
	}
	if v := os.Getenv("SRCJS_STRICT"); v != "" {
		opts.Strict = isTruthy(v)
	}
	if v := os.Getenv("SRCJS_COMPARISON"); v == "equality" || v == "identity" {
		opts.Comparison = v
	}
	if v := os.Getenv("SRCJS_OR"); v == "auto" || v == "logical" || v == "nullish" {
		opts.Or = v
	}
	if v := os.Getenv("SRCJS_TRUTHY"); v == "js" || v == "ruby" {
		opts.Truthy = v
	}
	if v := os.Getenv("SRCJS_MODULE"); v == "esm" || v == "cjs" {
		opts.Module = v
	}
	if v := os.Getenv("SRCJS_UNDERSCORED_PRIVATE"); v != "" {
		opts.UnderscoredPrivate = isTruthy(v)
	}
	if v := os.Getenv("SRCJS_NULLISH_TO_S"); v != "" {
		opts.NullishToS = isTruthy(v)
	}
	if v := os.Getenv("SRCJS_FILTERS"); v != "" {
		opts.FilterNames = splitList(v)
	}
	if v := os.Getenv("SRCJS_EXCLUDE"); v != "" {
		opts.Exclude = splitList(v)
	}
	if v := os.Getenv("SRCJS_DISABLE_AUTOIMPORTS"); v != "" {
		opts.DisableAutoimports = isTruthy(v)
	}

	return opts
}

// CacheDSN returns the conversion cache location, defaulting to a
// per-user path. "skip" disables the cache entirely.
func CacheDSN() string {
	if dsn := os.Getenv("SRCJS_CACHE"); dsn != "" {
		return dsn
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "skip"
	}
	return home + "/.srcjs/cache.db"
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
