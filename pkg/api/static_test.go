package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSPAFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>heycoach</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static", "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "js", "main.js"), []byte("console.log(1)"), 0o644))

	env := newTestEnv(t, func(cfg *Config) {
		cfg.Options.StaticDir = dir
	})

	t.Run("asset", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/static/js/main.js", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "console.log(1)", rec.Body.String())
	})

	t.Run("root", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "heycoach")
	})

	t.Run("client route", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/coach/squats", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "heycoach")
	})

	t.Run("directory falls back", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/static/", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "heycoach")
	})

	t.Run("unknown api path", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("api routes still win", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})
}

func TestStaticWithoutIndex(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Options.StaticDir = t.TempDir()
	})

	rec := env.do(http.MethodGet, "/anything", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
