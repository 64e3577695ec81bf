package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// JSON file names shipped with the visualization
const (
	DefaultNetworkFile = "station-network.json"
	DefaultTripsFile   = "marey-trips.json"
	DefaultHeaderFile  = "marey-header.json"
)

// networkFile is the shape of station-network.json
type networkFile struct {
	Nodes []network.Node `json:"nodes"`
	Links []network.Link `json:"links"`
}

// JSONSource reads the three pre-built JSON files from a directory.
// A missing header file is not an error; the header is then derived from
// the network.
type JSONSource struct {
	Dir         string
	NetworkFile string
	TripsFile   string
	HeaderFile  string
}

// NewJSONSource creates a source reading the default file names from dir
func NewJSONSource(dir string) *JSONSource {
	return &JSONSource{
		Dir:         dir,
		NetworkFile: DefaultNetworkFile,
		TripsFile:   DefaultTripsFile,
		HeaderFile:  DefaultHeaderFile,
	}
}

// Name implements Source
func (s *JSONSource) Name() string { return "json" }

// Load implements Source
func (s *JSONSource) Load(ctx context.Context) (*Dataset, error) {
	return s.load(ctx, true)
}

// LoadNetwork reads the network and header only, for sources that take
// their trips from elsewhere
func (s *JSONSource) LoadNetwork(ctx context.Context) (*Dataset, error) {
	return s.load(ctx, false)
}

func (s *JSONSource) load(ctx context.Context, withTrips bool) (*Dataset, error) {
	var net networkFile
	if err := readJSON(s.path(s.NetworkFile), &net); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Nodes: net.Nodes,
		Links: net.Links,
		Trips: make(map[string]schedule.TripRecord),
	}
	if withTrips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := readJSON(s.path(s.TripsFile), &ds.Trips); err != nil {
			return nil, err
		}
	}

	if s.HeaderFile != "" {
		var header map[string][]float64
		err := readJSON(s.path(s.HeaderFile), &header)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			ds.Header = header
		}
	}
	return ds, nil
}

func (s *JSONSource) path(name string) string {
	if filepath.IsAbs(name) || s.Dir == "" {
		return name
	}
	return filepath.Join(s.Dir, name)
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
