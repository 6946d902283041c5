package geo

import (
	"fmt"
	"math"
	"sort"
)

// EarthRadiusKm is the mean earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint returns nil unless both coordinates are present.
func NewPoint(lat, lon *float64) *Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &Point{Latitude: *lat, Longitude: *lon}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b Point) float64 {
	if a == b {
		return 0
	}

	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Clamp rounding noise so Asin stays defined.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// FormatDistance renders a distance as "850m" below one kilometre and "12.3km" above.
func FormatDistance(km float64) string {
	meters := math.Round(km * 1000)
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(meters))
	}
	return fmt.Sprintf("%.1fkm", km)
}

// Ranked pairs an item with its distance from the reference point.
// DistanceKm is +Inf when the item has no coordinates.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// Known reports whether the item had coordinates.
func (r Ranked[T]) Known() bool {
	return !math.IsInf(r.DistanceKm, 1)
}

// RankByDistance sorts items nearest-first from ref. Items without coordinates
// keep their relative order at the end of the result.
func RankByDistance[T any](items []T, ref Point, coords func(T) *Point) []Ranked[T] {
	ranked := make([]Ranked[T], len(items))
	for i, item := range items {
		d := math.Inf(1)
		if p := coords(item); p != nil {
			d = DistanceKm(ref, *p)
		}
		ranked[i] = Ranked[T]{Item: item, DistanceKm: d}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// Paginate returns the 1-based page of items and whether another page follows.
func Paginate[T any](items []T, page, size int) ([]T, bool) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		return []T{}, false
	}

	// compare page counts, (page-1)*size overflows for huge pages
	if page-1 >= PageCount(len(items), size) {
		return []T{}, false
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], end < len(items)
}

// PageCount is the number of pages needed for total items.
func PageCount(total, size int) int {
	if size < 1 || total < 1 {
		return 0
	}
	return (total + size - 1) / size
}
