package domain

import "github.com/paulmach/orb/geojson"

// GeoJSON converts the feature with its attributes as properties.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	for k, v := range f.Attributes {
		gf.Properties[k] = v
	}
	return gf
}

// FeatureCollection converts the table to GeoJSON, one feature per row with
// the attribute columns as properties. The collection carries the bounding
// box of the table.
func (t *PolygonTable) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if b, ok := t.Bound(); ok {
		fc.BBox = geojson.NewBBox(b)
	}
	for _, f := range t.Features {
		fc.Append(f.GeoJSON())
	}
	return fc
}
