package encoding

import (
	"strconv"
	"strings"

	"github.com/earthrise-media/assetmap/api/model"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

//ParsePoint parses "lat,lon" into a point
func ParsePoint(s string) (orb.Point, error) {

	coords := strings.Split(s, ",")
	if len(coords) != 2 {
		return orb.Point{}, errors.New("point does not have 2 elements")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
	if err != nil {
		return orb.Point{}, errors.New("unable to parse latitude")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
	if err != nil {
		return orb.Point{}, errors.New("unable to parse longitude")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, errors.New("point out of range")
	}

	return orb.Point{lon, lat}, nil
}

//Extent is the bounding box of a set of records. ok is false when there are none.
func Extent(recs []model.GeoRecord) (orb.Bound, bool) {

	if len(recs) == 0 {
		return orb.Bound{}, false
	}
	b := recs[0].Point().Bound()
	for _, rec := range recs[1:] {
		b = b.Extend(rec.Point())
	}
	return b, true
}
