package ability

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// ownerPlaceholder is the only condition value the policy file may carry;
// it is substituted with the requesting principal's identifier.
const ownerPlaceholder = "{userId}"

// ruleSpec is the on-disk shape of one policy entry.
type ruleSpec struct {
	Action     string            `json:"action"`
	Subject    string            `json:"subject"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// Policy holds the compiled role → rule table, loaded once at startup.
type Policy struct {
	rules map[domain.Role][]Rule
}

// Load reads and compiles the policy file.
func Load(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(raw)
}

// Parse compiles a policy document. Unknown roles, empty rule fields, and
// condition values other than the owner placeholder are rejected so a typo in
// the file fails startup instead of silently granting nothing.
func Parse(raw []byte) (*Policy, error) {
	var doc map[string][]ruleSpec
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}

	compiled := make(map[domain.Role][]Rule, len(doc))
	for roleName, specs := range doc {
		role := domain.Role(roleName)
		if !role.Valid() {
			return nil, fmt.Errorf("policy file: unknown role %q", roleName)
		}

		rules := make([]Rule, 0, len(specs))
		for i, spec := range specs {
			if spec.Action == "" || spec.Subject == "" {
				return nil, fmt.Errorf("policy file: role %q rule %d missing action or subject", roleName, i)
			}

			kind := RuleAllow
			for field, value := range spec.Conditions {
				if value != ownerPlaceholder {
					return nil, fmt.Errorf("policy file: role %q rule %d has unsupported condition %s=%q", roleName, i, field, value)
				}
				kind = RuleAllowOwn
			}

			rules = append(rules, Rule{Kind: kind, Action: spec.Action, Subject: spec.Subject})
		}
		compiled[role] = rules
	}

	return &Policy{rules: compiled}, nil
}

// AbilityFor builds the permission set for one principal. A role absent from
// the policy table yields ErrUnknownRole.
func (p *Policy) AbilityFor(principal domain.Principal) (*Ability, error) {
	rules, ok := p.rules[principal.Role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, principal.Role)
	}

	ab := &Ability{principal: principal, rules: rules}
	for _, r := range rules {
		if r.Action == ActionManage && r.Subject == SubjectAll {
			ab.manageAll = true
			break
		}
	}
	return ab, nil
}

// Roles lists the roles present in the policy table.
func (p *Policy) Roles() []domain.Role {
	out := make([]domain.Role, 0, len(p.rules))
	for role := range p.rules {
		out = append(out, role)
	}
	return out
}
