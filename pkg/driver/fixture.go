package driver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is a small catalog dataset for the memory store.
//
//	works:
//	  - id: w1
//	    title: ワンピース 1
//	    volume: "1"
//	    creators: [尾田栄一郎]
//	    magazines: [週刊少年ジャンプ]
//	magazines:
//	  - name: 週刊少年ジャンプ
//	    publishers: [集英社]
type Fixture struct {
	Works     []FixtureWork     `yaml:"works"`
	Magazines []FixtureMagazine `yaml:"magazines"`
}

// FixtureWork is one Work node. Keys other than the relation lists become
// node properties.
type FixtureWork struct {
	Properties map[string]any `yaml:",inline"`
	Creators   []string       `yaml:"creators"`
	Magazines  []string       `yaml:"magazines"`
	// Publishers are linked directly to the work.
	Publishers []string `yaml:"publishers"`
}

// FixtureMagazine links a magazine to its publishers.
type FixtureMagazine struct {
	Name       string         `yaml:"name"`
	Publishers []string       `yaml:"publishers"`
	Properties map[string]any `yaml:"properties"`
}

// LoadMemoryFixture reads a YAML fixture from path.
func LoadMemoryFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseMemoryFixture(data)
}

// ParseMemoryFixture decodes a YAML fixture. Every work needs an id.
func ParseMemoryFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	for i, w := range f.Works {
		if id := w.Properties["id"]; id == nil || fmt.Sprint(id) == "" {
			return nil, fmt.Errorf("fixture work %d has no id", i)
		}
	}
	return &f, nil
}
