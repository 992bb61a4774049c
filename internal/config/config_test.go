package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	opts := Load()
	assert.Equal(t, 2022, opts.ESLevel)
	assert.Equal(t, "equality", opts.Comparison)
	assert.Equal(t, "js", opts.Truthy)
	assert.Equal(t, "esm", opts.Module)
	assert.Equal(t, 80, opts.Width)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SRCJS_ESLEVEL", "2019")
	t.Setenv("SRCJS_WIDTH", "120")
	t.Setenv("SRCJS_STRICT", "true")
	t.Setenv("SRCJS_COMPARISON", "identity")
	t.Setenv("SRCJS_TRUTHY", "ruby")
	t.Setenv("SRCJS_MODULE", "cjs")
	t.Setenv("SRCJS_FILTERS", "asyncify, esnext")

	opts := Load()
	assert.Equal(t, 2019, opts.ESLevel)
	assert.Equal(t, 120, opts.Width)
	assert.True(t, opts.Strict)
	assert.Equal(t, "identity", opts.Comparison)
	assert.Equal(t, "ruby", opts.Truthy)
	assert.Equal(t, "cjs", opts.Module)
	assert.Equal(t, []string{"asyncify", "esnext"}, opts.FilterNames)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SRCJS_ESLEVEL", "1999")
	t.Setenv("SRCJS_WIDTH", "-5")
	t.Setenv("SRCJS_COMPARISON", "fuzzy")
	t.Setenv("SRCJS_TRUTHY", "maybe")

	opts := Load()
	assert.Equal(t, 2022, opts.ESLevel)
	assert.Equal(t, 80, opts.Width)
	assert.Equal(t, "equality", opts.Comparison)
	assert.Equal(t, "js", opts.Truthy)
}

func TestCacheDSN(t *testing.T) {
	t.Setenv("SRCJS_CACHE", "/tmp/custom.db")
	assert.Equal(t, "/tmp/custom.db", CacheDSN())

	t.Setenv("SRCJS_CACHE", "skip")
	assert.Equal(t, "skip", CacheDSN())
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "on", "TRUE"} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"0", "false", "off", ""} {
		assert.False(t, isTruthy(v), v)
	}
}
