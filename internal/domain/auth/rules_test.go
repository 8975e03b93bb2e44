package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRules(t *testing.T) *RuleSet {
	t.Helper()
	rules, err := ParseRules([]string{
		"/login=public",
		"/accessError=public",
		"/notice/list=public",
		"/notice/register=role:ADMIN",
	})
	require.NoError(t, err)
	return NewRuleSet(rules...)
}

func TestRuleSet_Evaluate(t *testing.T) {
	rs := defaultRules(t)

	tests := []struct {
		path string
		want Requirement
	}{
		{"/login", Public},
		{"/accessError", Public},
		{"/notice/list", Public},
		{"/notice/register", HasRole(RoleAdmin)},
		{"/", Authenticated},
		{"/notice", Authenticated},
		{"/notice/other", Authenticated},
		{"/board/list", Authenticated},
		{"/login/extra", Authenticated},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, rs.Evaluate(tt.path))
		})
	}
}

func TestRuleSet_UnmatchedPathsRequireAuthentication(t *testing.T) {
	rs := NewRuleSet()
	for _, p := range []string{"/", "/anything", "/a/b/c", ""} {
		assert.Equal(t, Authenticated, rs.Evaluate(p), p)
	}

	var nilSet *RuleSet
	assert.Equal(t, Authenticated, nilSet.Evaluate("/x"))
}

func TestRuleSet_FirstMatchWins(t *testing.T) {
	broadFirst := NewRuleSet(
		Rule{Pattern: "/notice/**", Requirement: Public},
		Rule{Pattern: "/notice/register", Requirement: HasRole(RoleAdmin)},
	)
	assert.Equal(t, Public, broadFirst.Evaluate("/notice/register"))

	specificFirst := NewRuleSet(
		Rule{Pattern: "/notice/register", Requirement: HasRole(RoleAdmin)},
		Rule{Pattern: "/notice/**", Requirement: Public},
	)
	assert.Equal(t, HasRole(RoleAdmin), specificFirst.Evaluate("/notice/register"))
	assert.Equal(t, Public, specificFirst.Evaluate("/notice/list"))
	assert.Equal(t, Public, specificFirst.Evaluate("/notice"))
}

func TestRuleSet_SingleSegmentWildcard(t *testing.T) {
	rs := NewRuleSet(Rule{Pattern: "/static/*", Requirement: Public})
	assert.Equal(t, Public, rs.Evaluate("/static/app.css"))
	assert.Equal(t, Authenticated, rs.Evaluate("/static/"))
	assert.Equal(t, Authenticated, rs.Evaluate("/static/js/app.js"))
}

func TestRuleSet_ImplicitCatchAllIsLast(t *testing.T) {
	rs := NewRuleSet(Rule{Pattern: "/login", Requirement: Public})
	rules := rs.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "/**", rules[1].Pattern)
	assert.Equal(t, Authenticated, rules[1].Requirement)

	// Copies do not leak into the set.
	rules[0].Requirement = Authenticated
	assert.Equal(t, Public, rs.Evaluate("/login"))
}

func TestRuleSet_ForwardAllowList(t *testing.T) {
	rs := NewRuleSet(Rule{Pattern: "/accessError", Requirement: HasRole(RoleAdmin)})
	assert.Equal(t, HasRole(RoleAdmin), rs.EvaluateRequest("/accessError", false))
	assert.Equal(t, Public, rs.EvaluateRequest("/accessError", true))

	ctx := context.Background()
	assert.False(t, IsForward(ctx))
	assert.True(t, IsForward(WithForward(ctx)))
}

func TestParseRequirement(t *testing.T) {
	r, err := ParseRequirement("role:role_admin")
	require.NoError(t, err)
	assert.Equal(t, HasRole(RoleAdmin), r)

	r, err = ParseRequirement(" Public ")
	require.NoError(t, err)
	assert.Equal(t, Public, r)

	_, err = ParseRequirement("role:")
	require.Error(t, err)
	_, err = ParseRequirement("everyone")
	require.Error(t, err)
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := ParseRules([]string{"/login"})
	require.Error(t, err)
	_, err = ParseRules([]string{"=public"})
	require.Error(t, err)

	for _, pattern := range []string{"/admin*", "/notice/**/edit", "/notice/*/edit", "/notice/**/*", "/a*b/**", "/*.html"} {
		_, err = ParseRules([]string{pattern + "=role:ADMIN"})
		require.Error(t, err, "pattern %q must be rejected", pattern)
		assert.Contains(t, err.Error(), "wildcards are only allowed")
	}

	rules, err := ParseRules([]string{"", "  ", "/x=authenticated"})
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestValidatePattern_AcceptsSupportedForms(t *testing.T) {
	for _, pattern := range []string{"/login", "*", "/**", "/notice/*", "/notice/**", "notice/list", ""} {
		assert.NoError(t, ValidatePattern(pattern), pattern)
	}
}

func TestRuleSet_UnsupportedWildcardFailsClosed(t *testing.T) {
	rs := NewRuleSet(
		Rule{Pattern: "/admin*", Requirement: HasRole(RoleAdmin)},
		Rule{Pattern: "/notice/**/edit", Requirement: HasRole(RoleAdmin)},
	)

	for _, path := range []string{"/admin", "/adminpanel", "/notice/1/edit", "/notice/list"} {
		assert.Equal(t, HasRole(RoleAdmin), rs.Evaluate(path), path)
	}
	assert.Equal(t, Authenticated, rs.Evaluate("/home"))
}

func TestRequirement_SatisfiedBy(t *testing.T) {
	admin := &Principal{Username: "admin", Roles: []Role{RoleAdmin}}
	member := &Principal{Username: "member", Roles: []Role{RoleMember}}

	assert.True(t, Public.SatisfiedBy(nil))
	assert.False(t, Authenticated.SatisfiedBy(nil))
	assert.True(t, Authenticated.SatisfiedBy(member))
	assert.True(t, HasRole(RoleAdmin).SatisfiedBy(admin))
	assert.False(t, HasRole(RoleAdmin).SatisfiedBy(member))
	assert.False(t, HasRole(RoleAdmin).SatisfiedBy(nil))
	assert.Equal(t, "role:ADMIN", HasRole(RoleAdmin).String())
}
