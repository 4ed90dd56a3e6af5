// Package mapdata supplies the static region set with neighbor
// adjacency. Geometry (polygons, hit testing, rendering) lives in the
// map clients; the game core only ever sees region ids and adjacency.
package mapdata

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Map struct {
	regions map[string][]string
}

type mapFile struct {
	Regions map[string][]string `yaml:"regions"`
}

// Load reads a region adjacency map from YAML:
//
//	regions:
//	  TX: [NM, OK, AR, LA]
//	  NM: [TX, OK, CO, AZ]
func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f mapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("map yaml: %w", err)
	}
	return New(f.Regions)
}

// New builds a map from an adjacency listing. Adjacency is made
// symmetric; every referenced neighbor must be a declared region.
func New(adjacency map[string][]string) (*Map, error) {
	if len(adjacency) == 0 {
		return nil, fmt.Errorf("map has no regions")
	}
	regions := make(map[string][]string, len(adjacency))
	for id := range adjacency {
		regions[id] = nil
	}
	for id, neighbors := range adjacency {
		for _, n := range neighbors {
			if n == id {
				return nil, fmt.Errorf("region %s lists itself as neighbor", id)
			}
			if _, ok := regions[n]; !ok {
				return nil, fmt.Errorf("region %s references unknown neighbor %s", id, n)
			}
			regions[id] = appendUnique(regions[id], n)
			regions[n] = appendUnique(regions[n], id)
		}
	}
	for id := range regions {
		sort.Strings(regions[id])
	}
	return &Map{regions: regions}, nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func (m *Map) Has(id string) bool {
	_, ok := m.regions[id]
	return ok
}

// Neighbors returns the adjacent region ids, sorted. The returned
// slice must not be mutated.
func (m *Map) Neighbors(id string) []string {
	return m.regions[id]
}

// RegionIDs returns all region ids, sorted.
func (m *Map) RegionIDs() []string {
	ids := make([]string, 0, len(m.regions))
	for id := range m.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Map) Len() int { return len(m.regions) }

// Adjacent reports whether a and b share a border.
func (m *Map) Adjacent(a, b string) bool {
	for _, n := range m.regions[a] {
		if n == b {
			return true
		}
	}
	return false
}
