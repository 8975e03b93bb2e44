package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// RequirementKind enumerates what a rule demands of a request.
type RequirementKind int

const (
	// RequireAuthenticated is the zero value so an unset requirement fails closed.
	RequireAuthenticated RequirementKind = iota
	RequirePublic
	RequireRole
)

// Requirement is the access requirement selected for a request path.
type Requirement struct {
	Kind RequirementKind
	Role Role
}

// Convenience constructors.
var (
	Public        = Requirement{Kind: RequirePublic}
	Authenticated = Requirement{Kind: RequireAuthenticated}
)

// HasRole builds a role requirement.
func HasRole(role Role) Requirement {
	return Requirement{Kind: RequireRole, Role: NormalizeRole(string(role))}
}

// SatisfiedBy reports whether the principal meets the requirement.
// A nil principal only satisfies Public.
func (r Requirement) SatisfiedBy(p *Principal) bool {
	switch r.Kind {
	case RequirePublic:
		return true
	case RequireAuthenticated:
		return p != nil
	case RequireRole:
		return p != nil && r.Role != "" && p.HasRole(r.Role)
	default:
		return false
	}
}

func (r Requirement) String() string {
	switch r.Kind {
	case RequirePublic:
		return "public"
	case RequireAuthenticated:
		return "authenticated"
	case RequireRole:
		return "role:" + string(r.Role)
	default:
		return "unknown"
	}
}

// ParseRequirement parses "public", "authenticated" or "role:NAME".
func ParseRequirement(raw string) (Requirement, error) {
	v := strings.TrimSpace(raw)
	switch lower := strings.ToLower(v); {
	case lower == "public" || lower == "permitall":
		return Public, nil
	case lower == "authenticated":
		return Authenticated, nil
	case strings.HasPrefix(lower, "role:"):
		role := NormalizeRole(v[len("role:"):])
		if role == "" {
			return Requirement{}, fmt.Errorf("requirement %q: role name is empty", raw)
		}
		return HasRole(role), nil
	default:
		return Requirement{}, fmt.Errorf("invalid requirement %q (valid options: public, authenticated, role:NAME)", raw)
	}
}

// Rule binds a path pattern to a requirement.
//
// Pattern forms:
//   - "/login" matches exactly that path.
//   - "/notice/*" matches one path segment below /notice.
//   - "/notice/**" matches /notice and anything below it.
//   - "/**" or "*" matches every path.
//
// Any other use of "*" is rejected by ParseRules.
type Rule struct {
	Pattern     string
	Requirement Requirement
}

// Matches reports whether the rule's pattern matches path.
func (r Rule) Matches(path string) bool {
	return matchPattern(r.Pattern, path)
}

func (r Rule) String() string { return r.Pattern + "=" + r.Requirement.String() }

// catchAllPattern is appended to every rule set so no request is left unprotected.
const catchAllPattern = "/**"

// RuleSet is an ordered list of rules; the first match wins.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds a rule set from rules in declaration order and appends the
// implicit "/** → Authenticated" rule.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := make([]Rule, 0, len(rules)+1)
	for _, r := range rules {
		r.Pattern = normalizePattern(r.Pattern)
		rs = append(rs, r)
	}
	rs = append(rs, Rule{Pattern: catchAllPattern, Requirement: Authenticated})
	return &RuleSet{rules: rs}
}

// ParseRules parses config entries of the form "pattern=requirement".
func ParseRules(entries []string) ([]Rule, error) {
	out := make([]Rule, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pattern, req, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("invalid rule %q: expected pattern=requirement", entry)
		}
		pattern = strings.TrimSpace(pattern)
		if err := ValidatePattern(pattern); err != nil {
			return nil, fmt.Errorf("rule %q: %w", entry, err)
		}
		requirement, err := ParseRequirement(req)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", entry, err)
		}
		out = append(out, Rule{Pattern: pattern, Requirement: requirement})
	}
	return out, nil
}

// Evaluate returns the requirement of the first rule matching path.
func (s *RuleSet) Evaluate(path string) Requirement {
	if s == nil {
		return Authenticated
	}
	for _, r := range s.rules {
		if r.Matches(path) {
			return r.Requirement
		}
	}
	return Authenticated
}

// EvaluateRequest is Evaluate plus the forward allow-list: internally
// forwarded requests are always public so an error page can never be denied.
func (s *RuleSet) EvaluateRequest(path string, forwarded bool) Requirement {
	if forwarded {
		return Public
	}
	return s.Evaluate(path)
}

// Rules returns a copy of the ordered rules including the implicit catch-all.
func (s *RuleSet) Rules() []Rule {
	if s == nil {
		return nil
	}
	return slices.Clone(s.rules)
}

// ValidatePattern rejects wildcards other than a trailing "/*", a trailing
// "/**" or a bare "*".
func ValidatePattern(pattern string) error {
	p := normalizePattern(pattern)
	base := p
	switch {
	case strings.HasSuffix(p, "/**"):
		base = strings.TrimSuffix(p, "/**")
	case strings.HasSuffix(p, "/*"):
		base = strings.TrimSuffix(p, "/*")
	}
	if strings.Contains(base, "*") {
		return fmt.Errorf("pattern %q: wildcards are only allowed as a trailing /* or /**", pattern)
	}
	return nil
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "*" {
		return catchAllPattern
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func matchPattern(pattern, path string) bool {
	if path == "" {
		path = "/"
	}
	if ValidatePattern(pattern) != nil {
		// Unsupported wildcard: match everything under the literal prefix so
		// the rule over-applies instead of never applying.
		prefix, _, _ := strings.Cut(pattern, "*")
		return strings.HasPrefix(path, prefix)
	}
	switch {
	case pattern == catchAllPattern || pattern == "*":
		return true
	case strings.HasSuffix(pattern, "/**"):
		base := strings.TrimSuffix(pattern, "/**")
		return path == base || strings.HasPrefix(path, base+"/")
	case strings.HasSuffix(pattern, "/*"):
		base := strings.TrimSuffix(pattern, "*")
		rest, ok := strings.CutPrefix(path, base)
		return ok && rest != "" && !strings.Contains(rest, "/")
	default:
		return path == pattern || path == pattern+"/"
	}
}

// forwardKey marks a request that was forwarded in-process (not by the client).
type forwardKey struct{}

// WithForward marks ctx as an internal forward.
func WithForward(ctx context.Context) context.Context {
	return context.WithValue(ctx, forwardKey{}, true)
}

// IsForward reports whether ctx belongs to an internally forwarded request.
func IsForward(ctx context.Context) bool {
	v, ok := ctx.Value(forwardKey{}).(bool)
	return ok && v
}
