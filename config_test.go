package viewsync_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	viewsync "github.com/terraguard/viewsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("test with namespace", func(t *testing.T) {
		os.Setenv("VS_SCHEMA", "dashboard")
		os.Setenv("VS_NOTIFY_CHANNEL", "dashboard_changes")
		os.Setenv("VS_RECONNECT_DELAY_SECONDS", "10")
		os.Setenv("VS_LOG_LEVEL", "debug")
		os.Setenv("VS_DB_HOST", "123.456.78.910")

		defer func() {
			os.Unsetenv("VS_SCHEMA")
			os.Unsetenv("VS_NOTIFY_CHANNEL")
			os.Unsetenv("VS_RECONNECT_DELAY_SECONDS")
			os.Unsetenv("VS_LOG_LEVEL")
			os.Unsetenv("VS_DB_HOST")
		}()

		config, err := viewsync.NewConfigFromEnv()
		assert.NoError(t, err)
		assert.Equal(t, "dashboard", config.Schema)
		assert.Equal(t, "dashboard_changes", config.NotifyChannel)
		assert.Equal(t, 10, config.ReconnectDelaySeconds)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, "123.456.78.910", config.Database.Host)
	})

	t.Run("test defaults", func(t *testing.T) {
		config, err := viewsync.NewConfigFromEnv()
		assert.NoError(t, err)
		assert.Equal(t, "public", config.Schema)
		assert.Equal(t, "viewsync_changes", config.NotifyChannel)
		assert.Equal(t, 5, config.ReconnectDelaySeconds)
		assert.Equal(t, "info", config.LogLevel)
	})

	t.Run("test parse database config", func(t *testing.T) {
		os.Setenv("DB_HOST", "localhost")
		os.Setenv("DB_PORT", "6432")
		os.Setenv("DB_NAME", "terraguard")
		os.Setenv("DB_USER", "dashboard")
		os.Setenv("DB_PASS", "secret")

		defer func() {
			os.Unsetenv("DB_HOST")
			os.Unsetenv("DB_PORT")
			os.Unsetenv("DB_NAME")
			os.Unsetenv("DB_USER")
			os.Unsetenv("DB_PASS")
		}()

		config, err := viewsync.NewConfigFromEnv()
		assert.NoError(t, err)
		assert.Equal(t, "localhost", config.Database.Host)
		assert.Equal(t, 6432, config.Database.Port)
		assert.Equal(t, "terraguard", config.Database.Database)
		assert.Equal(t, "dashboard", config.Database.User)
		assert.Equal(t, "secret", config.Database.Password)
	})
}

func TestLoadConfigFile(t *testing.T) {
	os.Setenv("VS_LOG_LEVEL", "warn")
	defer os.Unsetenv("VS_LOG_LEVEL")

	path := filepath.Join(t.TempDir(), "viewsync.yaml")
	data := []byte(`
database:
  host: db.internal
  port: 5432
  user: dashboard
  database: terraguard
schema: dashboard
reconnect_delay_seconds: 3
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	config, err := viewsync.LoadConfigFile(path)
	require.NoError(t, err)

	// file values override the environment, untouched fields keep env values
	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, "dashboard", config.Schema)
	assert.Equal(t, 3, config.ReconnectDelaySeconds)
	assert.Equal(t, "warn", config.LogLevel)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := viewsync.LoadConfigFile("/nonexistent/viewsync.yaml")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		level       string
		logrusLevel logrus.Level
		err         bool
	}{
		{
			level:       "debug",
			logrusLevel: logrus.DebugLevel,
			err:         false,
		},
		{
			level:       "info",
			logrusLevel: logrus.InfoLevel,
			err:         false,
		},
		{
			level:       "warn",
			logrusLevel: logrus.WarnLevel,
			err:         false,
		},
		{
			level:       "error",
			logrusLevel: logrus.ErrorLevel,
			err:         false,
		},
		{
			level:       "invalid",
			logrusLevel: 0,
			err:         true,
		},
	}

	for _, tc := range testCases {
		lvl, err := viewsync.ParseLogLevel(tc.level)
		assert.Equal(t, tc.logrusLevel, lvl)
		if tc.err {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}
