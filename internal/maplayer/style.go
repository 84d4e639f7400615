package maplayer

const highlightColor = "#33eeff"

// Shoreline selection styles.
var (
	ShorelinePointStyle = Style{Radius: 10, Weight: 3, Color: highlightColor, Opacity: 0.9, FillColor: highlightColor, FillOpacity: 0}
	ShorelineLineStyle  = Style{Weight: 8, Color: highlightColor, Opacity: 0.8, FillColor: highlightColor, FillOpacity: 0.8}
	RegionExtentStyle   = Style{Weight: 3, Color: "#007d4d", Opacity: 0.8, FillColor: "#007d4d", FillOpacity: 0}
)

// Zone Identify highlight presets.
var (
	HighlightPointStyle   = Style{Radius: 10, Weight: 3, Color: highlightColor, Opacity: 1, FillColor: highlightColor, FillOpacity: 0.8}
	HighlightLineStyle    = Style{Weight: 8, Color: highlightColor, Opacity: 0.8, FillColor: highlightColor, FillOpacity: 0.8}
	HighlightPolygonStyle = Style{Weight: 3, Color: highlightColor, Opacity: 0.8, FillColor: highlightColor, FillOpacity: 0.8}
)

// QueryExtentStyle renders a drawn query extent kept in the layer list.
func QueryExtentStyle(symbolizerID string) *LayerStyle {
	return &LayerStyle{
		Format: "geostyler",
		Body: StyleBody{Rules: []StyleRule{{
			Name: "Query Extent",
			Symbolizers: []Symbolizer{{
				SymbolizerID:         symbolizerID,
				Kind:                 "Fill",
				Color:                "#eb0951",
				FillOpacity:          0.1,
				OutlineColor:         "#eb0951",
				OutlineWidth:         2,
				MsClassificationType: "both",
			}},
		}}},
	}
}
