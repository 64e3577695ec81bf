package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/mini-rodalies-3d/thetrains/internal/logging"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// NetworkLoader loads stations, segments and header without trips
type NetworkLoader interface {
	LoadNetwork(ctx context.Context) (*Dataset, error)
}

// GTFSRTSource replaces the trips of a network with the predicted stop
// times of a GTFS-RT TripUpdates feed. Each stop uses its predicted
// arrival, falling back to departure. FeedPath is a file or an http(s) URL.
type GTFSRTSource struct {
	FeedPath string
	Network  NetworkLoader
	Logger   *slog.Logger
	Client   *http.Client // used for URLs; a 15s timeout client when nil
}

// Name implements Source
func (s *GTFSRTSource) Name() string { return "gtfsrt" }

// Load implements Source
func (s *GTFSRTSource) Load(ctx context.Context) (*Dataset, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	ds, err := s.Network.LoadNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}

	feed, err := s.readFeed(ctx)
	if err != nil {
		return nil, err
	}

	ds.Trips = make(map[string]schedule.TripRecord)
	cancelled, unusable := 0, 0
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		trip := tu.GetTrip()
		tripID := trip.GetTripId()
		if tripID == "" || trip.GetRouteId() == "" {
			unusable++
			continue
		}
		if trip.GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
			cancelled++
			continue
		}

		rec := schedule.TripRecord{Line: trip.GetRouteId()}
		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() == "" || stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
				continue
			}
			ts := stu.GetArrival().GetTime()
			if ts == 0 {
				ts = stu.GetDeparture().GetTime()
			}
			if ts == 0 {
				continue
			}
			rec.Stops = append(rec.Stops, schedule.StopRecord{Stop: stu.GetStopId(), Time: float64(ts)})
		}
		if len(rec.Stops) == 0 {
			unusable++
			continue
		}
		rec.Begin = rec.Stops[0].Time
		rec.End = rec.Stops[len(rec.Stops)-1].Time
		ds.Trips[tripID] = rec
	}

	logger.Info("GTFS-RT trips loaded",
		slog.String("feed", s.FeedPath),
		slog.Uint64("feed_timestamp", feed.GetHeader().GetTimestamp()),
		slog.Int("trips", len(ds.Trips)),
		slog.Int("cancelled", cancelled),
		slog.Int("unusable", unusable))
	return ds, nil
}

func (s *GTFSRTSource) readFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(s.FeedPath, "http://") || strings.HasPrefix(s.FeedPath, "https://") {
		body, err = s.fetchFeed(ctx)
	} else {
		body, err = os.ReadFile(s.FeedPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}
	return feed, nil
}

func (s *GTFSRTSource) fetchFeed(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.FeedPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
