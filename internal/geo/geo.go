package geo

import (
	"fmt"
	"math"

	"github.com/trackaship/alarmsender/internal/domain"
)

// earthRadiusM is the mean Earth radius used by the haversine formula.
const earthRadiusM = 6371000.0

type Coordinate struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between a and b in meters,
// computed with the haversine formula. Coordinates must be valid degrees;
// out-of-range input is a caller bug and panics.
func Distance(a, b Coordinate) float64 {
	checkRange(a)
	checkRange(b)

	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Satisfied reports whether a geofence condition holds for a measured
// distance. Both polarities use strict inequality: a target sitting exactly
// on the radius satisfies neither mode.
func Satisfied(mode domain.Mode, distanceM, radiusM float64) bool {
	switch mode {
	case domain.ModeInsideRadius:
		return distanceM < radiusM
	case domain.ModeOutsideRadius:
		return distanceM > radiusM
	default:
		return false
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func checkRange(c Coordinate) {
	if math.Abs(c.Lat) > 90 || math.Abs(c.Lon) > 180 {
		panic(fmt.Sprintf("geo: coordinate out of range: lat=%v lon=%v", c.Lat, c.Lon))
	}
}
