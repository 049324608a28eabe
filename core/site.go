package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// ImpactSite is the geodetic location of a trajectory's surface entry at a
// given epoch.
type ImpactSite struct {
	LatitudeDeg  float64   `json:"latitude_deg"`
	LongitudeDeg float64   `json:"longitude_deg"`
	Epoch        time.Time `json:"epoch"`
}

// LocateImpactSite maps the surface entry of an impacting trajectory onto
// Earth. The design-unit sphere is scaled to EarthRadiusKm and treated as an
// inertial (ECI) frame, so the longitude depends on Earth's rotation at epoch.
// go-satellite works in kilometres and radians.
func LocateImpactSite(tr Trajectory, epoch time.Time) (ImpactSite, error) {
	if !tr.WillImpact {
		return ImpactSite{}, ErrNoImpact
	}

	entry := projectOntoSphere(tr.SurfaceEntry, EarthRadiusKm, tr.Final().Heading)
	eci := satellite.Vector3{X: entry.X, Y: entry.Y, Z: entry.Z}

	epoch = epoch.UTC()
	year, month, day := epoch.Date()
	hour, minute, sec := epoch.Clock()
	jd := satellite.JDay(year, int(month), day, hour, minute, sec)
	gmst := satellite.ThetaG_JD(jd)

	_, _, lla := satellite.ECIToLLA(eci, gmst)
	deg := satellite.LatLongDeg(lla)

	return ImpactSite{
		LatitudeDeg:  deg.Latitude,
		LongitudeDeg: wrapLongitude(deg.Longitude),
		Epoch:        epoch,
	}, nil
}

// wrapLongitude normalises degrees into (-180, 180].
func wrapLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon <= -180 {
		lon += 360
	}
	return lon
}
