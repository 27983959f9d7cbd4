package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

const stopsFile = "stops.txt"

const FacilityWheelchair = "wheelchair"

var ErrNoStopsFile = errors.New("archive has no stops.txt")

// Stop is one row of a GTFS stops.txt
type Stop struct {
	ID           string  `csv:"stop_id"`
	Code         string  `csv:"stop_code"`
	Name         string  `csv:"stop_name"`
	Description  string  `csv:"stop_desc"`
	Latitude     float64 `csv:"stop_lat"`
	Longitude    float64 `csv:"stop_lon"`
	Type         string  `csv:"location_type"`
	Parent       string  `csv:"parent_station"`
	Wheelchair   string  `csv:"wheelchair_boarding"`
	PlatformCode string  `csv:"platform_code"`
}

// Boardable reports whether the row is a stop or platform rather than a
// station, entrance or node
func (s *Stop) Boardable() bool {
	return s.Type == "" || s.Type == "0"
}

func (s *Stop) ToCTDF() ctdf.Stop {
	stop := ctdf.Stop{
		ID:   s.ID,
		Name: s.Name,
		Location: ctdf.GeoPoint{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		},
		Facilities: []string{},
	}

	if s.Wheelchair == "1" {
		stop.Facilities = append(stop.Facilities, FacilityWheelchair)
	}

	return stop
}

// ParseStops reads stops from either a GTFS zip archive or a bare stops.txt
func ParseStops(reader io.Reader) ([]Stop, error) {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var stops []Stop

	if !bytes.HasPrefix(body, []byte("PK")) {
		if err := gocsv.UnmarshalBytes(body, &stops); err != nil {
			return nil, err
		}

		return stops, nil
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}

	for _, zipFile := range archive.File {
		if zipFile.Name != stopsFile {
			continue
		}

		log.Info().Str("file", zipFile.Name).Msg("Loading file")

		fileReader, err := zipFile.Open()
		if err != nil {
			return nil, err
		}
		defer fileReader.Close()

		if err := gocsv.Unmarshal(fileReader, &stops); err != nil {
			log.Error().Str("file", zipFile.Name).Err(err).Msg("Failed to parse csv file")
			return nil, err
		}

		return stops, nil
	}

	return nil, ErrNoStopsFile
}
