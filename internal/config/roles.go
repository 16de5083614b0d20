package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/fsutil"
)

// RoleFile is the on-disk shape of a role catalog.
//
//	roles:
//	  - name: legal
//	    title: Legal Reviewer
//	    description: Flags liability and compliance concerns.
//	    focus: [warranty, lawsuit]
//	    weight: 2
type RoleFile struct {
	Roles []core.RoleProfile `yaml:"roles"`
}

// ParseRoleCatalog decodes YAML role definitions. Unknown keys are rejected.
func ParseRoleCatalog(data []byte) (*core.RoleCatalog, error) {
	var file RoleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing role catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Roles))
	for i, p := range file.Roles {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("parsing role catalog: roles[%d]: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("parsing role catalog: duplicate role %q", name)
		}
		if p.Weight < 0 {
			return nil, fmt.Errorf("parsing role catalog: role %q: weight must be non-negative", name)
		}
		seen[name] = true
	}
	return core.NewRoleCatalog(file.Roles...), nil
}

// LoadRoleCatalog returns the built-in roles overridden by the definitions in
// path. An empty path yields the built-in catalog.
func LoadRoleCatalog(path string) (*core.RoleCatalog, error) {
	base := core.DefaultRoleCatalog()
	if path == "" {
		return base, nil
	}
	data, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading role catalog: %w", err)
	}
	custom, err := ParseRoleCatalog(data)
	if err != nil {
		return nil, err
	}
	return base.Merge(custom), nil
}

// MarshalRoleCatalog renders a catalog in the RoleFile format.
func MarshalRoleCatalog(c *core.RoleCatalog) ([]byte, error) {
	return yaml.Marshal(RoleFile{Roles: c.Profiles()})
}
