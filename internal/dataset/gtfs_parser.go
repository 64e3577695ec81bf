package dataset

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// gtfsFeed is the subset of a static GTFS feed the loaders use
type gtfsFeed struct {
	Routes        map[string]gtfsRoute
	Stops         map[string]gtfsStop
	Trips         []gtfsTrip
	StopTimes     map[string][]gtfsStopTime // keyed by trip_id
	Calendar      map[string]gtfsCalendar   // keyed by service_id
	CalendarDates []gtfsCalendarDate
}

type gtfsRoute struct {
	RouteID   string
	ShortName string
	LongName  string
}

type gtfsStop struct {
	StopID        string
	Name          string
	Lat           float64
	Lon           float64
	LocationType  int
	ParentStation string
}

type gtfsTrip struct {
	TripID    string
	RouteID   string
	ServiceID string
}

type gtfsStopTime struct {
	StopID        string
	Sequence      int
	ArrivalTime   string
	DepartureTime string
}

type gtfsCalendar struct {
	Weekdays  [7]bool // indexed by time.Weekday
	StartDate string  // YYYYMMDD
	EndDate   string
}

type gtfsCalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int // 1 added, 2 removed
}

// parseGTFS reads a GTFS zip file. A file that cannot be parsed is logged
// and left empty; only a zip that cannot be opened is an error.
func parseGTFS(zipPath string, logger *slog.Logger) (*gtfsFeed, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	feed := &gtfsFeed{
		Routes:    make(map[string]gtfsRoute),
		Stops:     make(map[string]gtfsStop),
		StopTimes: make(map[string][]gtfsStopTime),
		Calendar:  make(map[string]gtfsCalendar),
	}

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		files[f.Name] = f
	}

	parsers := []struct {
		name  string
		parse func(record []string, idx map[string]int)
	}{
		{"routes.txt", func(rec []string, idx map[string]int) {
			id := getField(rec, idx, "route_id")
			feed.Routes[id] = gtfsRoute{
				RouteID:   id,
				ShortName: getField(rec, idx, "route_short_name"),
				LongName:  getField(rec, idx, "route_long_name"),
			}
		}},
		{"stops.txt", func(rec []string, idx map[string]int) {
			lat, _ := strconv.ParseFloat(getField(rec, idx, "stop_lat"), 64)
			lon, _ := strconv.ParseFloat(getField(rec, idx, "stop_lon"), 64)
			locType, _ := strconv.Atoi(getField(rec, idx, "location_type"))
			id := getField(rec, idx, "stop_id")
			feed.Stops[id] = gtfsStop{
				StopID:        id,
				Name:          getField(rec, idx, "stop_name"),
				Lat:           lat,
				Lon:           lon,
				LocationType:  locType,
				ParentStation: getField(rec, idx, "parent_station"),
			}
		}},
		{"trips.txt", func(rec []string, idx map[string]int) {
			feed.Trips = append(feed.Trips, gtfsTrip{
				TripID:    getField(rec, idx, "trip_id"),
				RouteID:   getField(rec, idx, "route_id"),
				ServiceID: getField(rec, idx, "service_id"),
			})
		}},
		{"stop_times.txt", func(rec []string, idx map[string]int) {
			seq, _ := strconv.Atoi(getField(rec, idx, "stop_sequence"))
			tripID := getField(rec, idx, "trip_id")
			feed.StopTimes[tripID] = append(feed.StopTimes[tripID], gtfsStopTime{
				StopID:        getField(rec, idx, "stop_id"),
				Sequence:      seq,
				ArrivalTime:   getField(rec, idx, "arrival_time"),
				DepartureTime: getField(rec, idx, "departure_time"),
			})
		}},
		{"calendar.txt", func(rec []string, idx map[string]int) {
			var cal gtfsCalendar
			for day, col := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
				cal.Weekdays[day] = getField(rec, idx, col) == "1"
			}
			cal.StartDate = getField(rec, idx, "start_date")
			cal.EndDate = getField(rec, idx, "end_date")
			feed.Calendar[getField(rec, idx, "service_id")] = cal
		}},
		{"calendar_dates.txt", func(rec []string, idx map[string]int) {
			exception, _ := strconv.Atoi(getField(rec, idx, "exception_type"))
			feed.CalendarDates = append(feed.CalendarDates, gtfsCalendarDate{
				ServiceID:     getField(rec, idx, "service_id"),
				Date:          getField(rec, idx, "date"),
				ExceptionType: exception,
			})
		}},
	}

	for _, p := range parsers {
		f, ok := files[p.name]
		if !ok {
			continue
		}
		if err := forEachRecord(f, p.parse); err != nil {
			logger.Warn("failed to parse GTFS file", slog.String("file", p.name), slog.String("error", err.Error()))
		}
	}

	logger.Info("GTFS parsed",
		slog.Int("routes", len(feed.Routes)),
		slog.Int("stops", len(feed.Stops)),
		slog.Int("trips", len(feed.Trips)))
	return feed, nil
}

// forEachRecord streams the rows of a CSV file in the zip, skipping rows
// the csv reader rejects
func forEachRecord(f *zip.File, fn func(record []string, idx map[string]int)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return err
		}
		fn(record, idx)
	}
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// some feeds start with a UTF-8 byte order mark
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

// parseGTFSTime converts HH:MM:SS into seconds after midnight. Hours may
// exceed 23 for trips running past midnight.
func parseGTFSTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	var total int
	for i, unit := range []int{3600, 60, 1} {
		v, err := strconv.Atoi(parts[i])
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid GTFS time %q", s)
		}
		total += v * unit
	}
	return total, nil
}
