package geomodel

import (
	"fmt"
	"strings"
)

// PointSet is an in-memory snapshot of one sample point cloud. Domain labels
// are case-folded to lowercase at construction so the resolver compares labels
// without further normalisation. Visibility flags are not used during
// resolution but are preserved for the store's filtering features.
type PointSet struct {
	Name       string
	Positions  [][3]float64 // world coordinates as loaded
	Domains    []string     // lowercase
	Visibility []bool
}

// NewPointSet builds a PointSet, folding every domain label to lowercase.
// Positions and domains must agree in length; visibility may be nil.
func NewPointSet(name string, positions [][3]float64, domains []string, visibility []bool) (*PointSet, error) {
	if len(domains) != len(positions) {
		return nil, fmt.Errorf("geomodel: %d domains for %d points", len(domains), len(positions))
	}
	if visibility != nil && len(visibility) != len(positions) {
		return nil, fmt.Errorf("geomodel: %d visibility flags for %d points", len(visibility), len(positions))
	}
	folded := make([]string, len(domains))
	for i, d := range domains {
		folded[i] = strings.ToLower(d)
	}
	return &PointSet{
		Name:       name,
		Positions:  positions,
		Domains:    folded,
		Visibility: visibility,
	}, nil
}

// Len returns the number of points.
func (ps *PointSet) Len() int { return len(ps.Positions) }
