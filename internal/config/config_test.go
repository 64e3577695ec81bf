package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceJSON, cfg.DataSource)
	assert.Equal(t, "station-network.json", cfg.NetworkFile)
	assert.Equal(t, 10.0, cfg.TickRate)
	assert.Equal(t, 2.0, cfg.GlyphRadius)
	assert.Equal(t, 283.0, cfg.MapWidth)
	assert.Equal(t, 3000.0, cfg.MareyHeight)
	assert.Equal(t, 250*time.Millisecond, cfg.ResizeDebounce)
	assert.Equal(t, 600, cfg.StatsEvery)
	assert.Equal(t, 3, cfg.ImportKeep)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATA_SOURCE", "sqlite")
	t.Setenv("SQLITE_DATABASE", "/tmp/trains.db")
	t.Setenv("TICK_RATE", "25")
	t.Setenv("RESIZE_DEBOUNCE", "1s")
	t.Setenv("STATS_EVERY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceSQLite, cfg.DataSource)
	assert.Equal(t, "/tmp/trains.db", cfg.SQLiteDatabase)
	assert.Equal(t, 25.0, cfg.TickRate)
	assert.Equal(t, time.Second, cfg.ResizeDebounce)
	assert.Equal(t, 600, cfg.StatsEvery)
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trains.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_source: gtfs
gtfs_path: /data/feed.zip
gtfs_service_date: "2024-03-01"
tick_rate: 5
resize_debounce: 100ms
log_format: text
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TICK_RATE", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceGTFS, cfg.DataSource)
	assert.Equal(t, "/data/feed.zip", cfg.GTFSPath)
	assert.Equal(t, 5.0, cfg.TickRate)
	assert.Equal(t, 100*time.Millisecond, cfg.ResizeDebounce)
	assert.Equal(t, "text", cfg.LogFormat)
	// untouched keys keep their env/default value
	assert.Equal(t, 283.0, cfg.MapHeight)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown source", map[string]string{"DATA_SOURCE": "csv"}},
		{"sqlite without path", map[string]string{"DATA_SOURCE": "sqlite"}},
		{"postgres without url", map[string]string{"DATA_SOURCE": "postgres"}},
		{"gtfsrt without feed", map[string]string{"DATA_SOURCE": "gtfsrt"}},
		{"bad service date", map[string]string{"GTFS_SERVICE_DATE": "03/01/2024"}},
		{"zero tick rate", map[string]string{"TICK_RATE": "0"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "chatty"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)

			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))
	_, err := Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
