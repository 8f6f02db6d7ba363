package persona

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

type Preset struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Role         string `yaml:"role" json:"role"`
	Avatar       string `yaml:"avatar" json:"avatar"`
	Description  string `yaml:"description" json:"description"`
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
	Greeting     string `yaml:"greeting,omitempty" json:"greeting,omitempty"`
}

// Catalog is the read-only set of built-in personas.
type Catalog struct {
	list []Preset
	byID map[string]Preset
}

func LoadCatalog() (*Catalog, error) {
	return parseCatalog(presetsYAML)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var list []Preset
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("persona: parse presets: %w", err)
	}
	c := &Catalog{list: list, byID: make(map[string]Preset, len(list))}
	for _, p := range list {
		if p.ID == "" || p.SystemPrompt == "" {
			return nil, fmt.Errorf("persona: preset %q is missing id or system_prompt", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona: duplicate preset id %q", p.ID)
		}
		c.byID[p.ID] = p
	}
	return c, nil
}

func (c *Catalog) All() []Preset {
	return append([]Preset(nil), c.list...)
}

func (c *Catalog) Get(id string) (Preset, bool) {
	p, ok := c.byID[id]
	return p, ok
}
