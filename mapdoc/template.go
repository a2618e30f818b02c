package mapdoc

import "html/template"

//layerStyle is how each kind is drawn on the map
type layerStyle struct {
	Name  string
	Color string
}

var styles = map[string]layerStyle{
	"customer": {Name: "Customers", Color: "#2b6cb0"},
	"light":    {Name: "Lights", Color: "#dd6b20"},
}

type layerData struct {
	Name     string
	Color    string
	Features template.JS
}

type pageData struct {
	Title   string
	Lat     float64
	Lon     float64
	Zoom    int
	TileURL string
	Layers  []layerData
}

var page = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; width: 100%; margin: 0; padding: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.Lat}}, {{.Lon}}], {{.Zoom}});
L.tileLayer({{.TileURL}}, {
  maxZoom: 19,
  attribution: "&copy; OpenStreetMap contributors"
}).addTo(map);
var overlays = {};
{{range .Layers}}
overlays[{{.Name}}] = L.geoJSON({{.Features}}, {
  pointToLayer: function (feature, latlng) {
    return L.circleMarker(latlng, {radius: 6, color: {{.Color}}, fillColor: {{.Color}}, fillOpacity: 0.7, weight: 1});
  },
  onEachFeature: function (feature, layer) {
    if (feature.properties && feature.properties.popup) {
      layer.bindPopup(feature.properties.popup);
    }
  }
}).addTo(map);
{{end}}
L.control.layers(null, overlays).addTo(map);
</script>
</body>
</html>
`))
