// internal/form/region.go
//
// Intake – Forms subsystem: cascading region selector.
//
// Context
//   The preferred-region control is a parent/child pair.  The parent lists
//   the states from the Preferred_State__c picklist; the child lists the
//   districts of the chosen state, taken from a static RegionCatalog.  The
//   catalog is read once at startup, either the built-in default or a YAML
//   file named in conf/global.yaml:
//
//       regions:
//         - state: 서울특별시
//           districts: [강남구, 서초구, 송파구]
//
//   A catalog is never mutated after construction and is shared by every
//   session.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selection is the child-selector outcome of picking a state.
type Selection struct {
	Options []Option `json:"districtOptions"`
	Enabled bool     `json:"districtSelectorEnabled"`
}

// RegionCatalog maps a state name to its ordered district list.
type RegionCatalog struct {
	order     []string
	districts map[string][]string
}

// Region is one YAML catalog entry.
type Region struct {
	State     string   `yaml:"state"`
	Districts []string `yaml:"districts"`
}

// NewRegionCatalog builds a catalog from regions in the given order.  A
// repeated state is rejected.
func NewRegionCatalog(regions []Region) (*RegionCatalog, error) {
	c := &RegionCatalog{districts: make(map[string][]string, len(regions))}
	for _, r := range regions {
		name := strings.TrimSpace(r.State)
		if name == "" {
			return nil, fmt.Errorf("region catalog: empty state name")
		}
		if _, dup := c.districts[name]; dup {
			return nil, fmt.Errorf("region catalog: duplicate state %q", name)
		}
		c.order = append(c.order, name)
		c.districts[name] = append([]string(nil), r.Districts...)
	}
	return c, nil
}

// DefaultRegionCatalog returns the built-in catalog.
func DefaultRegionCatalog() *RegionCatalog {
	c, _ := NewRegionCatalog([]Region{
		{State: "서울특별시", Districts: []string{"강남구", "서초구", "송파구"}},
		{State: "부산광역시", Districts: []string{"해운대구", "부산진구"}},
	})
	return c
}

// LoadRegionCatalog parses a YAML catalog file.
func LoadRegionCatalog(path string) (*RegionCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region catalog %s: %w", path, err)
	}
	var doc struct {
		Regions []Region `yaml:"regions"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse region catalog %s: %w", path, err)
	}
	return NewRegionCatalog(doc.Regions)
}

// States returns the catalog's states in declaration order.
func (c *RegionCatalog) States() []string {
	return append([]string(nil), c.order...)
}

// Districts returns the districts of state and whether state is known.
func (c *RegionCatalog) Districts(state string) ([]string, bool) {
	d, ok := c.districts[state]
	if !ok {
		return nil, false
	}
	return append([]string(nil), d...), true
}

// Contains reports whether district belongs to state.
func (c *RegionCatalog) Contains(state, district string) bool {
	for _, d := range c.districts[state] {
		if d == district {
			return true
		}
	}
	return false
}

// OnStateSelected computes the child selector for state.  Unknown or empty
// states yield an empty, disabled selector.
func (c *RegionCatalog) OnStateSelected(state string) Selection {
	d, ok := c.districts[state]
	if !ok || len(d) == 0 {
		return Selection{Options: []Option{}}
	}
	return Selection{Options: OptionsFromValues(d), Enabled: true}
}
