package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

// loadPackageFile reads a package from JSON or YAML. YAML documents are
// converted to JSON so both formats share the catalog decoder.
func loadPackageFile(path string) (catalog.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Package{}, fmt.Errorf("read package: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return catalog.Package{}, fmt.Errorf("parse yaml: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return catalog.Package{}, fmt.Errorf("convert yaml: %w", err)
		}
	}

	var pkg catalog.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return catalog.Package{}, fmt.Errorf("parse package: %w", err)
	}
	pkg.Normalize()
	if err := pkg.Validate(); err != nil {
		return catalog.Package{}, err
	}
	return pkg, nil
}
