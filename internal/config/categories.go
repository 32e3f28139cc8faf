package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category describes one marketplace category the discover stage harvests.
type Category struct {
	ID          int     `yaml:"id"`
	Name        string  `yaml:"name"`
	Marketplace string  `yaml:"marketplace"`
	BSRMax      int     `yaml:"bsr_max"`
	PriceMin    float64 `yaml:"price_min"`
	PriceMax    float64 `yaml:"price_max"`
	Active      bool    `yaml:"active"`
}

type categoriesFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadCategories reads the category registry from a yaml file and returns
// only the active entries. A missing or unparsable file is an error: with
// no categories the discover stage has nothing to do, so this is the one
// rules file that does not fall back to defaults.
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read categories %s", path)
	}

	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse categories %s", path)
	}

	var active []Category
	for _, c := range f.Categories {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}
