package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mini-rodalies-3d/thetrains/internal/logging"
	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// ServiceDateLayout is the format of GTFSSource.ServiceDate
const ServiceDateLayout = "2006-01-02"

// GTFSSource builds a dataset from a static GTFS zip for one service day.
// Stops collapse into their parent station, stations are placed at
// (lon, -lat) and every pair of consecutive stations a trip serves becomes
// a segment of the trip's route. No header is produced.
type GTFSSource struct {
	ZipPath     string
	ServiceDate string         // YYYY-MM-DD, today when empty
	Location    *time.Location // time zone of the feed, UTC when nil
	Logger      *slog.Logger
}

// Name implements Source
func (s *GTFSSource) Name() string { return "gtfs" }

// LoadNetwork loads stations and segments without trips
func (s *GTFSSource) LoadNetwork(ctx context.Context) (*Dataset, error) {
	ds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	ds.Trips = make(map[string]schedule.TripRecord)
	return ds, nil
}

// Load implements Source
func (s *GTFSSource) Load(ctx context.Context) (*Dataset, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	day, err := s.serviceDay()
	if err != nil {
		return nil, err
	}

	feed, err := parseGTFS(s.ZipPath, logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	active := activeServices(feed, day)
	midnight := day.Unix()

	ds := &Dataset{Trips: make(map[string]schedule.TripRecord)}
	used := make(map[string]struct{})
	seen := make(map[string]struct{})
	skipped := 0

	trips := append([]gtfsTrip(nil), feed.Trips...)
	sort.Slice(trips, func(i, j int) bool { return trips[i].TripID < trips[j].TripID })

	for _, trip := range trips {
		if active != nil {
			if _, ok := active[trip.ServiceID]; !ok {
				continue
			}
		}
		line := routeLine(feed.Routes, trip.RouteID)

		stopTimes := feed.StopTimes[trip.TripID]
		sort.SliceStable(stopTimes, func(i, j int) bool { return stopTimes[i].Sequence < stopTimes[j].Sequence })

		rec := schedule.TripRecord{Line: line}
		prev := ""
		for _, st := range stopTimes {
			clock := st.DepartureTime
			if clock == "" {
				clock = st.ArrivalTime
			}
			if clock == "" {
				continue
			}
			secs, err := parseGTFSTime(clock)
			if err != nil {
				skipped++
				continue
			}

			station := stationOf(feed.Stops, st.StopID)
			rec.Stops = append(rec.Stops, schedule.StopRecord{
				Stop: station,
				Time: float64(midnight + int64(secs)),
			})
			used[station] = struct{}{}

			if prev != "" && prev != station {
				a, b := prev, station
				if a > b {
					a, b = b, a
				}
				key := line + "|" + a + "|" + b
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					ds.Links = append(ds.Links, network.Link{Source: prev, Target: station, Line: line})
				}
			}
			prev = station
		}
		if len(rec.Stops) == 0 {
			continue
		}
		rec.Begin = rec.Stops[0].Time
		rec.End = rec.Stops[len(rec.Stops)-1].Time
		ds.Trips[trip.TripID] = rec
	}

	ids := make([]string, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		stop, ok := feed.Stops[id]
		if !ok {
			continue
		}
		ds.Nodes = append(ds.Nodes, network.Node{ID: id, Name: stop.Name, X: stop.Lon, Y: -stop.Lat})
	}

	logger.Info("GTFS dataset built",
		slog.String("service_date", day.Format(ServiceDateLayout)),
		slog.Int("stations", len(ds.Nodes)),
		slog.Int("segments", len(ds.Links)),
		slog.Int("trips", len(ds.Trips)),
		slog.Int("skipped_stop_times", skipped))
	return ds, nil
}

func (s *GTFSSource) serviceDay() (time.Time, error) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	if s.ServiceDate == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(ServiceDateLayout, s.ServiceDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid service date: %w", err)
	}
	return day, nil
}

// activeServices returns the service ids running on day, or nil when the
// feed has no calendar at all
func activeServices(feed *gtfsFeed, day time.Time) map[string]struct{} {
	if len(feed.Calendar) == 0 && len(feed.CalendarDates) == 0 {
		return nil
	}
	date := day.Format("20060102")
	active := make(map[string]struct{})
	for id, cal := range feed.Calendar {
		if date >= cal.StartDate && date <= cal.EndDate && cal.Weekdays[day.Weekday()] {
			active[id] = struct{}{}
		}
	}
	for _, cd := range feed.CalendarDates {
		if cd.Date != date {
			continue
		}
		switch cd.ExceptionType {
		case 1:
			active[cd.ServiceID] = struct{}{}
		case 2:
			delete(active, cd.ServiceID)
		}
	}
	return active
}

func routeLine(routes map[string]gtfsRoute, routeID string) string {
	if r, ok := routes[routeID]; ok && r.ShortName != "" {
		return r.ShortName
	}
	return routeID
}

// stationOf maps a platform to its parent station when the parent is known
func stationOf(stops map[string]gtfsStop, stopID string) string {
	if stop, ok := stops[stopID]; ok && stop.ParentStation != "" {
		if _, ok := stops[stop.ParentStation]; ok {
			return stop.ParentStation
		}
	}
	return stopID
}
