package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigRendersEnvironment(t *testing.T) {
	t.Setenv("TEST_DATABASE_URL", "postgres://u:p@db:5432/directory?sslmode=disable")
	t.Setenv("TEST_BUCKET", "directory-photos")

	path := writeConfig(t, `
host: directory.example.com
basePath: /api
database:
  source: {{ .TEST_DATABASE_URL }}
aws:
  region: eu-west-2
  s3:
    bucket: {{ .TEST_BUCKET }}
directory:
  compensate: true
connectivity:
  interval: 3s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/api", cfg.BasePath)
	assert.Equal(t, "postgres://u:p@db:5432/directory?sslmode=disable", cfg.Database.Source)
	assert.Equal(t, "directory-photos", cfg.AWS.S3.Bucket)
	assert.True(t, cfg.Directory.Compensate)
	assert.Equal(t, 3*time.Second, cfg.Connectivity.Interval)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "host: localhost\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "directory-changes", cfg.Pulsar.Topic)
	assert.Equal(t, 1000, cfg.Directory.ListLimit)
	assert.Equal(t, 10*time.Second, cfg.Connectivity.Interval)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Directory.Compensate)
}

func TestLoadConfigRequiresPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}
