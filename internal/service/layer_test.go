package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"geonode:neec_geodb_zones", "neec_geodb_zones"},
		{"Road Network", "road_network"},
		{"Zones (2024)!", "zones_2024"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generateID(tt.name))
		})
	}
}

func TestLayerCRUD(t *testing.T) {
	s := NewLayerService("")

	created, err := s.Create(LayerConfig{Name: "geonode:neec_geodb_zones", Type: maplayer.TypeWMS})
	require.NoError(t, err)
	assert.Equal(t, "neec_geodb_zones", created.ID)

	_, err = s.Create(LayerConfig{Name: "geonode:neec_geodb_zones"})
	assert.ErrorIs(t, err, ErrLayerExists)

	_, err = s.Create(LayerConfig{Name: "!!!"})
	assert.ErrorIs(t, err, ErrInvalidLayer)

	updated, err := s.Update("neec_geodb_zones", LayerConfig{Name: "geonode:neec_geodb_zones", Title: "Zones"})
	require.NoError(t, err)
	assert.Equal(t, "neec_geodb_zones", updated.ID)

	got, err := s.Get("neec_geodb_zones")
	require.NoError(t, err)
	assert.Equal(t, "Zones", got.Title)

	_, err = s.Update("missing", LayerConfig{Name: "x"})
	assert.ErrorIs(t, err, ErrLayerNotFound)

	require.NoError(t, s.Delete("neec_geodb_zones"))
	assert.ErrorIs(t, s.Delete("neec_geodb_zones"), ErrLayerNotFound)
	_, err = s.Get("neec_geodb_zones")
	assert.ErrorIs(t, err, ErrLayerNotFound)
}

func TestMapLayersFollowOrder(t *testing.T) {
	s := NewLayerService("")
	_, err := s.Create(LayerConfig{ID: "roads", Name: "geonode:roads", Type: maplayer.TypeWMS, Order: 2})
	require.NoError(t, err)
	_, err = s.Create(LayerConfig{ID: "zones", Name: "geonode:zones", Type: maplayer.TypeWMS, ResourcePK: "42", Order: 1})
	require.NoError(t, err)
	_, err = s.Create(LayerConfig{ID: "osm", Name: "osm", Group: maplayer.GroupBackground, Order: 1})
	require.NoError(t, err)

	layers := s.MapLayers()
	require.Len(t, layers, 3)
	assert.Equal(t, []string{"osm", "zones", "roads"}, []string{layers[0].ID, layers[1].ID, layers[2].ID})

	zones := layers[1]
	assert.True(t, zones.IsQueryableWMS())
	pk, ok := zones.ResourcePK()
	assert.True(t, ok)
	assert.Equal(t, "42", pk)

	assert.Equal(t, maplayer.TypeWMS, layers[0].Type)
	assert.False(t, layers[0].IsQueryableWMS())
	_, ok = layers[2].ResourcePK()
	assert.False(t, ok)
}

func TestLayerVisibleDefault(t *testing.T) {
	hidden := false
	assert.True(t, LayerConfig{Name: "geonode:zones"}.MapLayer().Visibility)
	assert.False(t, LayerConfig{Name: "geonode:zones", DefaultVisible: &hidden}.MapLayer().Visibility)
	assert.Equal(t, maplayer.TypeWMS, LayerConfig{Name: "geonode:zones"}.MapLayer().Type)
}

func TestCatalogPersists(t *testing.T) {
	dir := t.TempDir()

	s := NewLayerService(dir)
	require.NoError(t, s.Seed([]LayerConfig{
		{Name: "geonode:zones", Type: maplayer.TypeWMS},
		{Name: "geonode:roads", Type: maplayer.TypeWMS},
	}))
	assert.FileExists(t, filepath.Join(dir, "layers.json"))

	reloaded := NewLayerService(dir)
	list := reloaded.List()
	require.Len(t, list, 2)
	assert.Equal(t, "zones", list[0].ID)
	assert.Equal(t, "roads", list[1].ID)

	// a non-empty catalog is left alone
	require.NoError(t, reloaded.Seed([]LayerConfig{{Name: "other"}}))
	assert.Len(t, reloaded.List(), 2)
}

func TestUnreadableCatalogStartsEmpty(t *testing.T) {
	for _, content := range []string{"{", "null"} {
		t.Run(content, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "layers.json"), []byte(content), 0644))

			s := NewLayerService(dir)
			assert.Empty(t, s.List())

			_, err := s.Create(LayerConfig{Name: "geonode:zones"})
			require.NoError(t, err)
			assert.Len(t, s.List(), 1)
		})
	}
}

func TestLayerChanges(t *testing.T) {
	s := NewLayerService("")
	ch := s.Changes().Subscribe()

	_, err := s.Create(LayerConfig{Name: "roads"})
	require.NoError(t, err)
	_, err = s.Update("roads", LayerConfig{Name: "roads", Title: "Roads"})
	require.NoError(t, err)
	require.NoError(t, s.Delete("roads"))
	require.ErrorIs(t, s.Delete("roads"), ErrLayerNotFound)

	assert.Equal(t, Change{Action: Created, ID: "roads"}, <-ch)
	assert.Equal(t, Change{Action: Updated, ID: "roads"}, <-ch)
	assert.Equal(t, Change{Action: Deleted, ID: "roads"}, <-ch)
	assert.Empty(t, ch)

	s.Changes().Unsubscribe(ch)
	s.Changes().Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}
