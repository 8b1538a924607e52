package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(vars map[string]string) (*Config, error) {
	return Parse(env.Options{Environment: vars})
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(map[string]string{"JWT_SECRET_TOKEN": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, UploadDisk, cfg.Upload.Driver)
	assert.Equal(t, "./assets", cfg.Upload.Dir)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "http://localhost:5000/assets", cfg.AssetsURL())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := parse(map[string]string{
		"JWT_SECRET_TOKEN":         "s3cret",
		"PORT":                     "8080",
		"PUBLIC_BASE_URL":          "https://shop.example.com/",
		"CORS_ORIGINS":             "https://a.example.com,https://b.example.com",
		"DB_DRIVER":                "postgres",
		"DB_POSTGRES_DSN":          "postgres://x@db/shop",
		"UPLOAD_DRIVER":            "minio",
		"MINIO_BUCKET_NAME":        "imgs",
		"RATE_LIMIT_TOKEN_PER_MIN": "5",
	})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "https://shop.example.com/assets", cfg.AssetsURL())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://x@db/shop", cfg.Database.PostgresDSN)
	assert.Equal(t, "imgs", cfg.Minio.Bucket)
	assert.Equal(t, 5, cfg.RateLimit.TokenPerMin)
}

func TestParse_Errors(t *testing.T) {
	_, err := parse(map[string]string{})
	assert.Error(t, err, "secret is required")

	_, err = parse(map[string]string{"JWT_SECRET_TOKEN": "s", "DB_DRIVER": "sqlite"})
	assert.ErrorContains(t, err, "DB_DRIVER")

	_, err = parse(map[string]string{"JWT_SECRET_TOKEN": "s", "UPLOAD_DRIVER": "ftp", "JWT_TTL": "-1h"})
	assert.ErrorContains(t, err, "UPLOAD_DRIVER")
	assert.ErrorContains(t, err, "JWT_TTL")
}
