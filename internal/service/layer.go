package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

var (
	// ErrLayerNotFound is returned for an unknown layer id.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrLayerExists is returned when creating a layer whose id is taken.
	ErrLayerExists = errors.New("layer already exists")
	// ErrInvalidLayer is returned for a layer no id can be derived for.
	ErrInvalidLayer = errors.New("invalid layer")
)

// LayerService manages the layer catalog.
type LayerService struct {
	dataDir string
	layers  map[string]LayerConfig
	mu      sync.RWMutex
	changes *ChangeBus
}

// NewLayerService creates a layer service backed by <dataDir>/layers.json.
// An empty dataDir keeps the catalog in memory.
func NewLayerService(dataDir string) *LayerService {
	s := &LayerService{
		dataDir: dataDir,
		layers:  make(map[string]LayerConfig),
		changes: NewChangeBus(),
	}
	s.loadFromDisk()
	return s
}

// List returns the catalog in layer order.
func (s *LayerService) List() []LayerConfig {
	s.mu.RLock()
	result := make([]LayerConfig, 0, len(s.layers))
	for _, l := range s.layers {
		result = append(result, l)
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b LayerConfig) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

// MapLayers returns the catalog as the initial layer list of a session.
func (s *LayerService) MapLayers() []maplayer.Layer {
	list := s.List()
	out := make([]maplayer.Layer, len(list))
	for i, l := range list {
		out[i] = l.MapLayer()
	}
	return out
}

// Changes returns the bus carrying catalog mutations.
func (s *LayerService) Changes() *ChangeBus { return s.changes }

// Get returns a layer by ID.
func (s *LayerService) Get(id string) (LayerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[id]
	if !ok {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}
	return layer, nil
}

// Create adds a layer. The ID is derived from the name when empty.
func (s *LayerService) Create(layer LayerConfig) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if layer.ID == "" {
		layer.ID = generateID(layer.Name)
	}
	if layer.ID == "" {
		return LayerConfig{}, fmt.Errorf("%w: name %q yields an empty id", ErrInvalidLayer, layer.Name)
	}
	if _, exists := s.layers[layer.ID]; exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerExists, layer.ID)
	}

	s.layers[layer.ID] = layer
	if err := s.saveToDisk(); err != nil {
		delete(s.layers, layer.ID)
		return LayerConfig{}, err
	}
	s.changes.Publish(Change{Action: Created, ID: layer.ID})
	return layer, nil
}

// Update replaces a layer by ID.
func (s *LayerService) Update(id string, layer LayerConfig) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.layers[id]
	if !exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	layer.ID = id
	s.layers[id] = layer
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return LayerConfig{}, err
	}
	s.changes.Publish(Change{Action: Updated, ID: id})
	return layer, nil
}

// Delete removes a layer by ID.
func (s *LayerService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.layers[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	delete(s.layers, id)
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return err
	}
	s.changes.Publish(Change{Action: Deleted, ID: id})
	return nil
}

// Seed adds the given layers when the catalog is empty.
func (s *LayerService) Seed(layers []LayerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.layers) > 0 {
		return nil
	}
	for i, l := range layers {
		if l.ID == "" {
			l.ID = generateID(l.Name)
		}
		if l.Order == 0 {
			l.Order = i
		}
		s.layers[l.ID] = l
	}
	return s.saveToDisk()
}

func (s *LayerService) configFile() string {
	return filepath.Join(s.dataDir, "layers.json")
}

func (s *LayerService) loadFromDisk() {
	if s.dataDir == "" {
		return
	}
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // not written yet
	}

	var layers map[string]LayerConfig
	if err := json.Unmarshal(data, &layers); err != nil || layers == nil {
		return
	}
	s.layers = layers
}

func (s *LayerService) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.layers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a layer name, dropping any
// workspace prefix ("geonode:zones" becomes "zones").
func generateID(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
