package evaluation

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

// RoleKeywords maps a lower-cased role name to vocabulary expected in answers
// for that role.
type RoleKeywords map[string][]string

// DefaultRoleKeywords returns the built-in role vocabulary.
func DefaultRoleKeywords() (RoleKeywords, error) {
	return ParseRoleKeywords(defaultRolesYAML)
}

// ParseRoleKeywords decodes a YAML mapping of role to keyword list.
func ParseRoleKeywords(data []byte) (RoleKeywords, error) {
	raw := map[string][]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse role keywords: %w", err)
	}
	return RoleKeywords(raw).normalized(), nil
}

// Merge returns a copy of r with the roles of other added or replaced.
func (r RoleKeywords) Merge(other RoleKeywords) RoleKeywords {
	merged := make(RoleKeywords, len(r)+len(other))
	for role, kws := range r.normalized() {
		merged[role] = kws
	}
	for role, kws := range other.normalized() {
		merged[role] = kws
	}
	return merged
}

// For returns the keywords of role, or nil for unknown or empty roles.
func (r RoleKeywords) For(role string) []string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return nil
	}
	return r[role]
}

func (r RoleKeywords) normalized() RoleKeywords {
	out := make(RoleKeywords, len(r))
	for role, kws := range r {
		key := strings.ToLower(strings.TrimSpace(role))
		if key == "" {
			continue
		}
		cleaned := make([]string, 0, len(kws))
		for _, kw := range kws {
			if kw = strings.TrimSpace(kw); kw != "" {
				cleaned = append(cleaned, kw)
			}
		}
		out[key] = cleaned
	}
	return out
}
