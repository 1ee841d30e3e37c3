package auth

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/guardpost/apiserver/types"
)

// Capability names an operation a route requires, such as "incidents:write".
type Capability string

const (
	CapUsersRead         Capability = "users:read"
	CapUsersManage       Capability = "users:manage"
	CapClientsRead       Capability = "clients:read"
	CapClientsWrite      Capability = "clients:write"
	CapPropertiesRead    Capability = "properties:read"
	CapPropertiesWrite   Capability = "properties:write"
	CapIncidentsRead     Capability = "incidents:read"
	CapIncidentsWrite    Capability = "incidents:write"
	CapPatrolsRead       Capability = "patrols:read"
	CapPatrolsWrite      Capability = "patrols:write"
	CapAppointmentsRead  Capability = "appointments:read"
	CapAppointmentsWrite Capability = "appointments:write"
	CapActivitiesRead    Capability = "activities:read"
	CapFinancialsRead    Capability = "financials:read"
	CapFinancialsWrite   Capability = "financials:write"
	CapFilesRead         Capability = "files:read"
	CapFilesWrite        Capability = "files:write"
	CapReferencesRead    Capability = "references:read"
	CapReferencesWrite   Capability = "references:write"
	CapSummariesUse      Capability = "summaries:use"

	// CapAuthenticated only requires a valid session.
	CapAuthenticated Capability = ""

	wildcard = "*"
)

//go:embed policy.yaml
var defaultPolicy []byte

type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// Policy maps roles to the capabilities they hold.
type Policy struct {
	grants map[types.Role]map[Capability]struct{}
	all    map[types.Role]bool
}

// DefaultPolicy returns the policy compiled into the binary.
func DefaultPolicy() *Policy {
	policy, err := ParsePolicy(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("embedded policy is invalid: %v", err))
	}
	return policy
}

// LoadPolicy reads a policy from path, or returns the default when path is
// empty.
func LoadPolicy(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("parse policy: no roles defined")
	}

	policy := &Policy{
		grants: make(map[types.Role]map[Capability]struct{}, len(file.Roles)),
		all:    make(map[types.Role]bool),
	}
	for name, caps := range file.Roles {
		role := types.Role(name)
		if !role.Valid() {
			return nil, fmt.Errorf("parse policy: unknown role %q", name)
		}
		grants := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			c = strings.TrimSpace(c)
			if c == wildcard {
				policy.all[role] = true
				continue
			}
			if !strings.Contains(c, ":") {
				return nil, fmt.Errorf("parse policy: malformed capability %q for role %q", c, name)
			}
			grants[Capability(c)] = struct{}{}
		}
		policy.grants[role] = grants
	}
	return policy, nil
}

// Allows reports whether role holds capability. The empty capability is
// held by every known role.
func (p *Policy) Allows(role types.Role, capability Capability) bool {
	if _, known := p.grants[role]; !known {
		return false
	}
	if capability == CapAuthenticated || p.all[role] {
		return true
	}
	_, ok := p.grants[role][capability]
	return ok
}

// Capabilities lists what role holds, sorted. A wildcard role reports "*".
func (p *Policy) Capabilities(role types.Role) []string {
	if p.all[role] {
		return []string{wildcard}
	}
	caps := make([]string, 0, len(p.grants[role]))
	for c := range p.grants[role] {
		caps = append(caps, string(c))
	}
	sort.Strings(caps)
	return caps
}
