package encoding

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"go.uber.org/zap"
)

type CRS string

const (
	WGS84       CRS = "EPSG:4326"
	WebMercator CRS = "EPSG:3857"
)

//DetectCRS reads a .prj well known text. Only the two systems we can
//reproject are recognized, everything else is reported as WGS84.
func DetectCRS(prj string) CRS {

	upper := strings.ToUpper(prj)
	switch {
	case strings.Contains(upper, "PSEUDO_MERCATOR"),
		strings.Contains(upper, "PSEUDO-MERCATOR"),
		strings.Contains(upper, "WEB_MERCATOR"),
		strings.Contains(upper, "MERCATOR_AUXILIARY_SPHERE"),
		strings.Contains(upper, "3857"):
		return WebMercator
	case strings.TrimSpace(upper) == "",
		strings.HasPrefix(strings.TrimSpace(upper), "GEOGCS") && strings.Contains(upper, "WGS"):
		return WGS84
	}
	zap.S().Warnf("unrecognized projection, treating as %s: %.60s", WGS84, prj)
	return WGS84
}

//Reproject returns p expressed in WGS84
func Reproject(p orb.Point, from CRS) orb.Point {
	if from == WebMercator {
		return project.Mercator.ToWGS84(p)
	}
	return p
}
