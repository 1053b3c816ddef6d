// Package ingest reads block models and point sets from CSV exports into the
// in-memory snapshot types. This is the data-access edge the vendor SDK
// provided in the original workflow; model-level metadata (resolution, grid
// counts, origin) travels alongside the file rather than inside it.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/domain.report/internal/geomodel"
)

// blockHeader is the required column order of a block model CSV.
var blockHeader = []string{"cx", "cy", "cz", "sx", "sy", "sz", "gx", "gy", "gz", "domain"}

// pointHeader is the required column order of a point set CSV.
var pointHeader = []string{"x", "y", "z", "domain"}

// An optional trailing "visible" column is accepted on both formats.

// ReadBlockModel parses a block model CSV. The header must match blockHeader,
// optionally followed by "visible".
func ReadBlockModel(r io.Reader, name string, resolution [3]float64, counts [3]int, transform geomodel.Transform) (*geomodel.BlockModel, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	hasVisible, err := checkHeader(cr, blockHeader)
	if err != nil {
		return nil, fmt.Errorf("ingest: block model %q: %w", name, err)
	}

	m := &geomodel.BlockModel{
		Name:       name,
		Resolution: resolution,
		Counts:     counts,
		Transform:  transform,
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: block model %q line %d: %w", name, line, err)
		}
		vals, err := parseFloats(rec[:9])
		if err != nil {
			return nil, fmt.Errorf("ingest: block model %q line %d: %w", name, line, err)
		}
		m.Centroids = append(m.Centroids, [3]float64{vals[0], vals[1], vals[2]})
		m.Sizes = append(m.Sizes, [3]float64{vals[3], vals[4], vals[5]})
		m.GridIndices = append(m.GridIndices, [3]float64{vals[6], vals[7], vals[8]})
		m.Domains = append(m.Domains, rec[9])

		visible := true
		if hasVisible {
			if visible, err = strconv.ParseBool(rec[10]); err != nil {
				return nil, fmt.Errorf("ingest: block model %q line %d: visible: %w", name, line, err)
			}
		}
		m.Visibility = append(m.Visibility, visible)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadPointSet parses a point set CSV. The header must match pointHeader,
// optionally followed by "visible". Domain labels are folded to lowercase by
// NewPointSet.
func ReadPointSet(r io.Reader, name string) (*geomodel.PointSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	hasVisible, err := checkHeader(cr, pointHeader)
	if err != nil {
		return nil, fmt.Errorf("ingest: point set %q: %w", name, err)
	}

	var positions [][3]float64
	var domains []string
	var visibility []bool
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: point set %q line %d: %w", name, line, err)
		}
		vals, err := parseFloats(rec[:3])
		if err != nil {
			return nil, fmt.Errorf("ingest: point set %q line %d: %w", name, line, err)
		}
		positions = append(positions, [3]float64{vals[0], vals[1], vals[2]})
		domains = append(domains, rec[3])

		visible := true
		if hasVisible {
			if visible, err = strconv.ParseBool(rec[4]); err != nil {
				return nil, fmt.Errorf("ingest: point set %q line %d: visible: %w", name, line, err)
			}
		}
		visibility = append(visibility, visible)
	}

	return geomodel.NewPointSet(name, positions, domains, visibility)
}

// checkHeader validates the first record against want and reports whether the
// optional trailing "visible" column is present. The csv.Reader is pinned to
// the resulting field count for all subsequent records.
func checkHeader(cr *csv.Reader, want []string) (hasVisible bool, err error) {
	header, err := cr.Read()
	if err != nil {
		return false, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	switch len(header) {
	case len(want):
	case len(want) + 1:
		if header[len(want)] != "visible" {
			return false, fmt.Errorf("unexpected trailing column %q", header[len(want)])
		}
		hasVisible = true
	default:
		return false, fmt.Errorf("expected columns %v, got %v", want, header)
	}
	for i, col := range want {
		if header[i] != col {
			return false, fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}
	cr.FieldsPerRecord = len(header)
	return hasVisible, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
