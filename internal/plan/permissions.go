package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PermissionConfig mirrors plans/permissions.yml. It is a deliberate stub:
// a department maps to the entity-id prefixes it may write to, and an
// absent or empty configuration is fully permissive. Real authentication
// and authorization live outside this tool.
type PermissionConfig struct {
	Write map[string][]string `yaml:"write"`
}

// LoadPermissionConfig reads the permissions YAML from the provided path.
func LoadPermissionConfig(path string) (*PermissionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions file: %w", err)
	}
	var cfg PermissionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse permissions file: %w", err)
	}
	return &cfg, nil
}

// LoadPermissionsFromDir loads plans/permissions.yml if present; a missing
// file yields a permissive nil config.
func LoadPermissionsFromDir(plansDir string) (*PermissionConfig, error) {
	path := filepath.Join(plansDir, "permissions.yml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat permissions file: %w", err)
	}
	return LoadPermissionConfig(path)
}

// CanEdit reports whether the department may update the given entity id.
// A nil config or a config without write rules allows everything; a
// department with rules is limited to its listed id prefixes.
func (c *PermissionConfig) CanEdit(dept, entityID string) bool {
	if c == nil || len(c.Write) == 0 {
		return true
	}
	dept = strings.TrimSpace(dept)
	entityID = strings.TrimSpace(entityID)
	if dept == "" || entityID == "" {
		return false
	}
	prefixes, ok := c.Write[dept]
	if !ok {
		return false
	}
	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if prefix == "*" || entityID == prefix || strings.HasPrefix(entityID, prefix+".") {
			return true
		}
	}
	return false
}
