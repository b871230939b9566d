package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// App describes one deployable application type.
type App struct {
	Type             string `yaml:"type"`
	Description      string `yaml:"description"`
	DefaultImage     string `yaml:"default_image"`
	InternalPort     int    `yaml:"internal_port"`
	DataPath         string `yaml:"data_path"`
	PasswordRequired bool   `yaml:"password_required"`
	// DefaultPVCSizeGi is the volume size used when the request does not
	// specify one. Zero means the app type gets no persistent volume.
	DefaultPVCSizeGi int `yaml:"default_pvc_size_gi"`
}

type catalogFile struct {
	Apps []App `yaml:"apps"`
}

// Catalog holds the supported application types, keyed by type name.
type Catalog struct {
	apps map[string]App
}

// Load reads the catalog from path, or the embedded default when path is
// empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Apps) == 0 {
		return nil, fmt.Errorf("catalog declares no application types")
	}

	apps := make(map[string]App, len(file.Apps))
	for _, app := range file.Apps {
		if app.Type == "" {
			return nil, fmt.Errorf("catalog entry missing type")
		}
		if app.InternalPort <= 0 {
			return nil, fmt.Errorf("catalog entry %s: internal_port must be positive", app.Type)
		}
		if _, dup := apps[app.Type]; dup {
			return nil, fmt.Errorf("catalog declares type %s twice", app.Type)
		}
		apps[app.Type] = app
	}

	return &Catalog{apps: apps}, nil
}

// Lookup returns the app definition for the given type.
func (c *Catalog) Lookup(appType string) (App, bool) {
	app, ok := c.apps[appType]
	return app, ok
}

// Types returns the supported type names in sorted order.
func (c *Catalog) Types() []string {
	types := make([]string, 0, len(c.apps))
	for t := range c.apps {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
