package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDatabaseConfigDefaults(t *testing.T) {
	t.Setenv("POSTSCRIPT_DB_TYPE", "")
	t.Setenv("POSTSCRIPT_DB_PATH", "/tmp/blog.db")

	c := GetDatabaseConfig()
	assert.True(t, c.IsSQLite())
	assert.Equal(t, "/tmp/blog.db", c.SQLite.Path)
	assert.NoError(t, c.ValidateConfig())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DatabaseConfig
		wantErr bool
	}{
		{"sqlite ok", DatabaseConfig{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "a.db"}}, false},
		{"sqlite empty path", DatabaseConfig{Type: DatabaseTypeSQLite}, true},
		{"postgres ok", DatabaseConfig{Type: DatabaseTypePostgreSQL, Postgres: PostgresConfig{Host: "h", Database: "d", Username: "u", Port: 5432}}, false},
		{"postgres bad port", DatabaseConfig{Type: DatabaseTypePostgreSQL, Postgres: PostgresConfig{Host: "h", Database: "d", Username: "u", Port: 0}}, true},
		{"unknown type", DatabaseConfig{Type: "mysql"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := DatabaseConfig{Type: DatabaseTypePostgreSQL, Postgres: PostgresConfig{
		Host: "db", Port: 5432, Database: "blog", Username: "u", Password: "p", SSLMode: "disable", TimeZone: "UTC",
	}}
	assert.Equal(t, "host=db user=u password=p dbname=blog port=5432 sslmode=disable TimeZone=UTC", c.GetDSN())
}

func TestLoadEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("POSTSCRIPT_PORT=4000\nPOSTSCRIPT_UPLOAD_DIR=/srv/up\n"), 0o600))

	t.Setenv("POSTSCRIPT_PORT", "5000")
	t.Setenv("POSTSCRIPT_UPLOAD_DIR", "")
	os.Unsetenv("POSTSCRIPT_UPLOAD_DIR")

	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, 5000, GetPort())
	assert.Equal(t, "/srv/up", GetUploadDir())
}

func TestLoadEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestGetBaseURLTrimsSlash(t *testing.T) {
	t.Setenv("POSTSCRIPT_BASE_URL", "https://blog.example.com/")
	assert.Equal(t, "https://blog.example.com", GetBaseURL())
}
