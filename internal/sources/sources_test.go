package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-rodalies-3d/thetrains/internal/config"
	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/db"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
)

func writeJSONDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"net.json":   `{"nodes":[{"id":"A","name":"Alpha","x":0,"y":0},{"id":"B","name":"Bravo","x":1,"y":0}],"links":[{"source":"A","target":"B","line":"red"}]}`,
		"trips.json": `{"t1":{"line":"red","begin":10,"end":20,"stops":[{"stop":"A","time":10},{"stop":"B","time":20}]}}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		DataSource:  config.SourceJSON,
		DataDir:     dir,
		NetworkFile: "net.json",
		TripsFile:   "trips.json",
		HeaderFile:  "missing-header.json",
	}
}

func TestLoadJSON(t *testing.T) {
	cfg := testConfig(writeJSONDataset(t))

	ds, name, err := Load(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "json", name)
	assert.Len(t, ds.Nodes, 2)
	assert.Contains(t, ds.Trips, "t1")
	assert.Nil(t, ds.Header)
}

func TestLoadSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(writeJSONDataset(t))
	ds, _, err := Load(ctx, cfg, logging.Discard())
	require.NoError(t, err)

	cfg.DataSource = config.SourceSQLite
	cfg.SQLiteDatabase = filepath.Join(t.TempDir(), "store.db")
	store, err := db.Connect(cfg.SQLiteDatabase, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = store.ImportDataset(ctx, ds, "json")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	got, name, err := Load(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", name)
	assert.Equal(t, ds.Trips, got.Trips)
}

func TestOpenSourceKinds(t *testing.T) {
	cfg := testConfig(t.TempDir())

	cfg.DataSource = config.SourceGTFS
	cfg.GTFSPath = "feed.zip"
	src, closeFn, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &dataset.GTFSSource{}, src)

	cfg.DataSource = config.SourceGTFSRT
	src, _, err = Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	rt, ok := src.(*dataset.GTFSRTSource)
	require.True(t, ok)
	assert.IsType(t, &dataset.JSONSource{}, rt.Network)

	cfg.DataSource = "carrier-pigeon"
	_, closeFn, err = Open(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestLoadReportsMissingFiles(t *testing.T) {
	cfg := testConfig(t.TempDir())
	_, name, err := Load(context.Background(), cfg, logging.Discard())
	assert.Equal(t, "json", name)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
