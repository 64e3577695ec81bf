// Package dataset loads the network, trips and header a visualization runs on.
package dataset

import (
	"context"
	"errors"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// ErrNoStations is returned by sources that produced an empty network
var ErrNoStations = errors.New("dataset has no stations")

// Dataset is the pre-parsed input of the engine
type Dataset struct {
	Nodes  []network.Node
	Links  []network.Link
	Trips  map[string]schedule.TripRecord
	Header map[string][]float64 // nil when the header should be built from the network
}

// Source loads a dataset
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
	Name() string
}

// Validate checks the dataset has something to draw
func (d *Dataset) Validate() error {
	if d == nil || len(d.Nodes) == 0 {
		return ErrNoStations
	}
	return nil
}
