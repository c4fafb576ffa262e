package schema

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6372.8

// Location is a point on the Earth's surface in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewLocation validates the coordinate ranges.
func NewLocation(latitude, longitude float64) (Location, error) {
	l := Location{Latitude: latitude, Longitude: longitude}
	if err := l.Validate(); err != nil {
		return Location{}, err
	}
	return l, nil
}

// Validate checks latitude is in [-90, 90] and longitude in [-180, 180].
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidLocation, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// Distance returns the haversine distance to other, in kilometres.
func (l Location) Distance(other Location) float64 {
	lat1 := toRadians(l.Latitude)
	lat2 := toRadians(other.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(other.Longitude - l.Longitude)

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))
	return EarthRadiusKm * c
}

func (l Location) String() string {
	return fmt.Sprintf("(%g, %g)", l.Latitude, l.Longitude)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
