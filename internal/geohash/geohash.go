// Package geohash validates geohash strings and computes contour geometry.
package geohash

import (
	"fmt"

	mmgeohash "github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/galtspace/geo-explorer/internal/domain"
)

// MaxPrecision is the longest geohash stored by the index
const MaxPrecision = 12

// Valid reports whether hash is a non-empty geohash of at most MaxPrecision characters
func Valid(hash string) bool {
	if hash == "" || len(hash) > MaxPrecision {
		return false
	}
	return mmgeohash.Validate(hash) == nil
}

// Validate returns domain.ErrInvalidGeohash wrapped with the offending value
func Validate(hash string) error {
	if !Valid(hash) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidGeohash, hash)
	}
	return nil
}

// ValidateAll validates every cell and returns the first failure
func ValidateAll(cells []string) error {
	for _, c := range cells {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// Truncate cuts prefix to MaxPrecision characters
func Truncate(prefix string) string {
	if len(prefix) > MaxPrecision {
		return prefix[:MaxPrecision]
	}
	return prefix
}

// Ring converts ordered contour cells into a closed ring of cell centers
func Ring(cells []string) orb.Ring {
	ring := make(orb.Ring, 0, len(cells)+1)
	for _, c := range cells {
		lat, lng := mmgeohash.DecodeCenter(c)
		ring = append(ring, orb.Point{lng, lat})
	}
	if len(ring) > 1 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Center returns the lat/lon centroid of a contour. ok is false for an empty contour.
// Degenerate rings fall back to the center of their bounding box.
func Center(cells []string) (lat, lon float64, ok bool) {
	if len(cells) == 0 {
		return 0, 0, false
	}
	if len(cells) == 1 {
		lat, lon = mmgeohash.DecodeCenter(cells[0])
		return lat, lon, true
	}

	ring := Ring(cells)
	center, area := planar.CentroidArea(ring)
	if len(ring) < 4 || area == 0 {
		center = ring.Bound().Center()
	}
	return center.Lat(), center.Lon(), true
}

// Bound returns the bounding box covering all contour cells
func Bound(cells []string) orb.Bound {
	var b orb.Bound
	for i, c := range cells {
		box := mmgeohash.BoundingBox(c)
		cb := orb.Bound{Min: orb.Point{box.MinLng, box.MinLat}, Max: orb.Point{box.MaxLng, box.MaxLat}}
		if i == 0 {
			b = cb
			continue
		}
		b = b.Union(cb)
	}
	return b
}
