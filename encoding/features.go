package encoding

import (
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/paulmach/orb/geojson"
)

//PopupProperty is the feature property holding the rendered popup html
const PopupProperty = "popup"

//RecordToFeature turns a geo record into a point feature carrying its attributes
func RecordToFeature(rec model.GeoRecord) *geojson.Feature {

	feat := geojson.NewFeature(rec.Point())
	feat.ID = rec.GetId()
	for k, v := range rec.Properties() {
		feat.Properties[k] = v
	}
	feat.Properties["kind"] = string(rec.Kind())
	return feat
}

//RecordsToFeatureCollection converts records in order, popup builds the popup html for each
func RecordsToFeatureCollection(recs []model.GeoRecord, popup func(model.GeoRecord) string) *geojson.FeatureCollection {

	fc := geojson.NewFeatureCollection()
	for _, rec := range recs {
		feat := RecordToFeature(rec)
		if popup != nil {
			feat.Properties[PopupProperty] = popup(rec)
		}
		fc.Append(feat)
	}
	return fc
}
