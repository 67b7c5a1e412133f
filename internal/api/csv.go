package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"vrpga/internal/ga"
)

// parseLocationsCSV reads a location table with X and Y columns. The header
// row is required; column order does not matter and extra columns are
// ignored.
func parseLocationsCSV(r io.Reader) ([]ga.Location, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	xi, yi := -1, -1
	for i, col := range header {
		switch col {
		case "X", "x":
			xi = i
		case "Y", "y":
			yi = i
		}
	}
	if xi < 0 || yi < 0 {
		return nil, fmt.Errorf("header must contain X and Y columns")
	}
	var out []ga.Location
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		x, err := strconv.ParseFloat(rec[xi], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad X value %q", line, rec[xi])
		}
		y, err := strconv.ParseFloat(rec[yi], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad Y value %q", line, rec[yi])
		}
		out = append(out, ga.Location{X: x, Y: y})
	}
	return out, nil
}

// writeRouteCSV emits the best permutation as step/location-index pairs,
// the export format the planning tools consume.
func writeRouteCSV(w io.Writer, best []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Step", "Location Index"}); err != nil {
		return err
	}
	for i, loc := range best {
		if err := cw.Write([]string{strconv.Itoa(i), strconv.Itoa(loc)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
