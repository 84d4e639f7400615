package zoneidentify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/language"

	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

// ErrUnsupportedGeometry is returned for geometry type names with no
// GeoJSON counterpart.
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// Label languages, French first so unknown locales fall back to it.
var labelLanguages = []language.Tag{language.French, language.English}

var labelMatcher = language.NewMatcher(labelLanguages)

// LabelSuffix returns the property suffix ("en" or "fr") used for locale.
func LabelSuffix(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "fr"
	}
	_, i, _ := labelMatcher.Match(tag)
	base, _ := labelLanguages[i].Base()
	return base.String()
}

// FeatureTitle picks label_<lang>, falling back to name_<lang>.
func FeatureTitle(f *geojson.Feature, locale string) string {
	suffix := LabelSuffix(locale)
	if t := stringProp(f.Properties, "label_"+suffix); t != "" {
		return t
	}
	return stringProp(f.Properties, "name_"+suffix)
}

func stringProp(p geojson.Properties, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ShortName strips the workspace prefix of a qualified layer name.
func ShortName(layerName string) string {
	if _, name, ok := strings.Cut(layerName, ":"); ok {
		return name
	}
	return layerName
}

func featureID(f *geojson.Feature) string {
	if f == nil || f.ID == nil {
		return ""
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return fmt.Sprint(f.ID)
}

// FormatFeatures builds the result tree: one parent per visible,
// non-background WMS layer with at least one feature whose id contains the
// layer short name. Parents are numbered from 1 in layer order and children
// "i-j" in feature order.
func FormatFeatures(features []*geojson.Feature, layers []maplayer.Layer, locale string) []TreeNode {
	tree := []TreeNode{}
	for _, l := range layers {
		if !l.IsQueryableWMS() {
			continue
		}
		name := ShortName(l.Name)
		if name == "" {
			continue
		}
		parentID := strconv.Itoa(len(tree) + 1)
		var children []TreeNode
		for _, f := range features {
			if f == nil || !strings.Contains(featureID(f), name) {
				continue
			}
			child := TreeNode{
				ID:         parentID + "-" + strconv.Itoa(len(children)+1),
				Title:      FeatureTitle(f, locale),
				Properties: f.Properties,
			}
			if f.Geometry != nil {
				child.Geometry = geojson.NewGeometry(f.Geometry)
			}
			children = append(children, child)
		}
		if len(children) == 0 {
			continue
		}
		tree = append(tree, TreeNode{
			ID:       parentID,
			Name:     name,
			Title:    l.Title,
			Children: children,
		})
	}
	return tree
}
