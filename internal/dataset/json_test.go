package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const networkJSON = `{
  "nodes": [
    {"id": "place-alfcl", "name": "Alewife", "x": 0, "y": 0},
    {"id": "place-davis", "name": "Davis", "x": 1, "y": 0.5}
  ],
  "links": [
    {"source": "place-alfcl", "target": "place-davis", "line": "red"}
  ]
}`

const tripsJSON = `{
  "R-1": {"line": "red", "begin": 1000, "end": 1120, "stops": [
    {"stop": "place-alfcl", "time": 1000},
    {"stop": "place-davis", "time": 1120}
  ]}
}`

const headerJSON = `{"place-alfcl|red": [0], "place-davis|red": [1.2]}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestJSONSourceLoad(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		DefaultNetworkFile: networkJSON,
		DefaultTripsFile:   tripsJSON,
		DefaultHeaderFile:  headerJSON,
	})

	src := NewJSONSource(dir)
	assert.Equal(t, "json", src.Name())

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, ds.Validate())

	assert.Len(t, ds.Nodes, 2)
	assert.Equal(t, "Davis", ds.Nodes[1].Name)
	assert.Len(t, ds.Links, 1)
	require.Contains(t, ds.Trips, "R-1")
	assert.Equal(t, "red", ds.Trips["R-1"].Line)
	assert.Equal(t, 1120.0, ds.Trips["R-1"].Stops[1].Time)
	assert.Equal(t, []float64{1.2}, ds.Header["place-davis|red"])
}

func TestJSONSourceWithoutHeader(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		DefaultNetworkFile: networkJSON,
		DefaultTripsFile:   tripsJSON,
	})

	ds, err := NewJSONSource(dir).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ds.Header)
}

func TestJSONSourceLoadNetwork(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		DefaultNetworkFile: networkJSON,
	})

	ds, err := NewJSONSource(dir).LoadNetwork(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Nodes, 2)
	assert.Empty(t, ds.Trips)
}

func TestJSONSourceErrors(t *testing.T) {
	t.Run("missing network", func(t *testing.T) {
		_, err := NewJSONSource(t.TempDir()).Load(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed trips", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			DefaultNetworkFile: networkJSON,
			DefaultTripsFile:   `{"R-1": [}`,
		})
		_, err := NewJSONSource(dir).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})

	t.Run("empty network", func(t *testing.T) {
		assert.ErrorIs(t, (&Dataset{}).Validate(), ErrNoStations)
		var nilSet *Dataset
		assert.ErrorIs(t, nilSet.Validate(), ErrNoStations)
	})
}
