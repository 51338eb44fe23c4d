// Package geo places members on the map: a small gazetteer of cohort cities,
// grouping by city and the zoom-dependent marker set.
package geo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	InitialZoom = 5
	MinZoom     = 3
	MaxZoom     = 18
	// Above DetailZoom single-member cities render as the member itself.
	DetailZoom = 8

	earthRadiusKm = 6371.0
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Bounds struct {
	Center  Coordinates `json:"center"`
	Zoom    int         `json:"zoom"`
	MinZoom int         `json:"minZoom"`
	MaxZoom int         `json:"maxZoom"`
}

// IndiaBounds is the initial map viewport.
var IndiaBounds = Bounds{
	Center:  Coordinates{Lat: 20.5937, Lng: 78.9629},
	Zoom:    InitialZoom,
	MinZoom: MinZoom,
	MaxZoom: MaxZoom,
}

var gazetteer = map[string]Coordinates{
	"mumbai":    {Lat: 19.0760, Lng: 72.8777},
	"delhi":     {Lat: 28.6139, Lng: 77.2090},
	"new delhi": {Lat: 28.6139, Lng: 77.2090},
	"pune":      {Lat: 18.5204, Lng: 73.8567},
	"bangalore": {Lat: 12.9716, Lng: 77.5946},
	"bengaluru": {Lat: 12.9716, Lng: 77.5946},
	"jaipur":    {Lat: 26.9124, Lng: 75.7873},
	"chennai":   {Lat: 13.0827, Lng: 80.2707},
	"hyderabad": {Lat: 17.3850, Lng: 78.4867},
	"kolkata":   {Lat: 22.5726, Lng: 88.3639},
	"ahmedabad": {Lat: 23.0225, Lng: 72.5714},
}

// Lookup geocodes a free-text location by its first comma segment,
// e.g. "Mumbai, Maharashtra".
func Lookup(location string) (Coordinates, bool) {
	city := location
	if i := strings.Index(city, ","); i >= 0 {
		city = city[:i]
	}

	c, ok := gazetteer[strings.ToLower(strings.TrimSpace(city))]
	return c, ok
}

// Placeable is anything with a location that can be put on the map.
type Placeable interface {
	MapLocation() string
	MapCoordinates() (Coordinates, bool)
}

type CityData[T Placeable] struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Members     []T         `json:"members"`
	Count       int         `json:"count"`
}

// GroupByCity buckets members by location and coordinates. Members without
// coordinates are skipped. Result is ordered by count desc, then name.
func GroupByCity[T Placeable](members []T) []CityData[T] {
	byKey := make(map[string]*CityData[T])
	order := make([]string, 0)

	for _, m := range members {
		c, ok := m.MapCoordinates()
		if !ok {
			continue
		}

		key := cityKey(m.MapLocation(), c)
		city, exists := byKey[key]
		if !exists {
			city = &CityData[T]{
				Key:         key,
				Name:        m.MapLocation(),
				Coordinates: c,
			}
			byKey[key] = city
			order = append(order, key)
		}

		city.Members = append(city.Members, m)
		city.Count++
	}

	out := make([]CityData[T], 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})

	return out
}

func cityKey(location string, c Coordinates) string {
	return fmt.Sprintf("%s_%v_%v", location, c.Lat, c.Lng)
}

type MarkerKind string

const (
	MarkerMember  MarkerKind = "member"
	MarkerCluster MarkerKind = "cluster"
)

type Marker[T Placeable] struct {
	Key         string      `json:"key"`
	Kind        MarkerKind  `json:"kind"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Count       int         `json:"count"`
	Member      *T          `json:"member,omitempty"`
}

// Markers renders one marker per city. Past DetailZoom a single-member
// city becomes a member marker, everything else stays a cluster.
func Markers[T Placeable](cities []CityData[T], zoom int) []Marker[T] {
	detailed := zoom > DetailZoom
	out := make([]Marker[T], 0, len(cities))

	for _, city := range cities {
		m := Marker[T]{
			Key:         fmt.Sprintf("%s_%d_%t", city.Name, city.Count, detailed),
			Kind:        MarkerCluster,
			Name:        city.Name,
			Coordinates: city.Coordinates,
			Count:       city.Count,
		}

		if detailed && city.Count == 1 {
			member := city.Members[0]
			m.Kind = MarkerMember
			m.Member = &member
		}

		out = append(out, m)
	}

	return out
}

// ClampZoom keeps zoom inside the map's range, InitialZoom when unset.
func ClampZoom(zoom int) int {
	switch {
	case zoom == 0:
		return InitialZoom
	case zoom < MinZoom:
		return MinZoom
	case zoom > MaxZoom:
		return MaxZoom
	default:
		return zoom
	}
}

// HaversineKm is the great-circle distance between a and b.
func HaversineKm(a, b Coordinates) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

type Nearby[T Placeable] struct {
	Member     T       `json:"member"`
	DistanceKm float64 `json:"distanceKm"`
}

// WithinRadius returns members within radiusKm of origin, nearest first.
func WithinRadius[T Placeable](members []T, origin Coordinates, radiusKm float64) []Nearby[T] {
	out := make([]Nearby[T], 0)

	for _, m := range members {
		c, ok := m.MapCoordinates()
		if !ok {
			continue
		}

		d := HaversineKm(origin, c)
		if d <= radiusKm {
			out = append(out, Nearby[T]{Member: m, DistanceKm: math.Round(d*10) / 10})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})

	return out
}
