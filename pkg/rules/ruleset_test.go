package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/rules"
)

func tree(ids ...string) (*domain.ComponentNode, map[string]*domain.Field) {
	root := domain.NewComponentNode("form", domain.NodeKindForm)
	fields := make(map[string]*domain.Field, len(ids))
	for _, id := range ids {
		f := domain.NewField(id, domain.FieldText)
		root.Add(f.Node())
		fields[id] = f
	}
	domain.CollectDirty(root)
	return root, fields
}

func rule(t *testing.T, trigger *domain.Field, m domain.Matcher, a domain.Action, targets ...*domain.Field) *domain.DependencyRule {
	t.Helper()
	ts := make([]domain.Toggler, len(targets))
	for i, f := range targets {
		ts[i] = f
	}
	r, err := domain.NewDependencyRule(trigger, m, a, ts...)
	require.NoError(t, err)
	return r
}

func regex(t *testing.T, p string) domain.Matcher {
	t.Helper()
	m, err := domain.RegexMatcher(&p)
	require.NoError(t, err)
	return m
}

func TestRuleSet_CountryShowsVariant(t *testing.T) {
	root, f := tree("country", "variant")
	rs, err := rules.New(root,
		rule(t, f["country"], domain.EmptyMatcher(), domain.ActionHide, f["variant"]),
		rule(t, f["country"], regex(t, ".{2}"), domain.ActionShow, f["variant"]),
	)
	require.NoError(t, err)

	f["country"].SetValue("")
	rs.Evaluate(f["country"])
	assert.False(t, f["variant"].Visible())
	domain.CollectDirty(root)

	f["country"].ApplyInput("CH", true)
	ev := rs.Evaluate(f["country"])

	assert.True(t, f["variant"].Visible())
	assert.Equal(t, []string{"variant"}, ev.ChangedIDs())
	require.Len(t, ev.Applied, 1)
	assert.Equal(t, domain.ActionShow, ev.Applied[0].Rule.Action())

	dirty := domain.CollectDirty(root)
	require.Len(t, dirty, 1)
	assert.Equal(t, "variant", dirty[0].ID)
}

func TestRuleSet_Deterministic(t *testing.T) {
	root, f := tree("a", "b", "c")
	rs, err := rules.New(root,
		rule(t, f["a"], domain.LiteralMatcher("x"), domain.ActionDisable, f["b"], f["c"]),
		rule(t, f["a"], regex(t, "x|y"), domain.ActionHide, f["c"]),
	)
	require.NoError(t, err)
	f["a"].SetValue("x")

	first := rs.Plan(f["a"])
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, rs.Plan(f["a"]))
	}
	assert.True(t, f["b"].Enabled(), "planning must not mutate targets")
	assert.Equal(t, []string{"b", "c"}, first.ChangedIDs())
}

func TestRuleSet_LastAppliedWins(t *testing.T) {
	root, f := tree("a", "b")
	rs, err := rules.New(root,
		rule(t, f["a"], domain.LiteralMatcher("go"), domain.ActionHide, f["b"]),
		rule(t, f["a"], regex(t, "g.*"), domain.ActionShow, f["b"]),
	)
	require.NoError(t, err)

	f["a"].SetValue("go")
	ev := rs.Evaluate(f["a"])

	assert.True(t, f["b"].Visible())
	assert.Len(t, ev.Applied, 2)
	assert.Empty(t, ev.Changes, "hide then show nets out to no change")
}

func TestRuleSet_TwoLevelCascade(t *testing.T) {
	root, f := tree("a", "b", "c")
	rs, err := rules.New(root,
		rule(t, f["a"], domain.LiteralMatcher("off"), domain.ActionHide, f["b"]),
		rule(t, f["b"], mustNullRegex(t), domain.ActionDisable, f["c"]),
	)
	require.NoError(t, err)

	f["b"].SetValue("")
	f["a"].SetValue("off")
	ev := rs.Evaluate(f["a"])

	assert.False(t, f["b"].Visible())
	assert.False(t, f["c"].Enabled(), "a hidden trigger reads as null")
	assert.Equal(t, []string{"b", "c"}, ev.ChangedIDs())
	require.Len(t, ev.Applied, 2)
	assert.Equal(t, 0, ev.Applied[0].Pass)
	assert.Equal(t, 1, ev.Applied[1].Pass)
}

func mustNullRegex(t *testing.T) domain.Matcher {
	t.Helper()
	m, err := domain.RegexMatcher(nil)
	require.NoError(t, err)
	return m
}

func TestRuleSet_RejectsThreeLevelCascade(t *testing.T) {
	root, f := tree("a", "b", "c", "d")
	_, err := rules.New(root,
		rule(t, f["a"], domain.EmptyMatcher(), domain.ActionHide, f["b"]),
		rule(t, f["b"], domain.EmptyMatcher(), domain.ActionHide, f["c"]),
		rule(t, f["c"], domain.EmptyMatcher(), domain.ActionHide, f["d"]),
	)
	var cfg *domain.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Contains(t, cfg.Reason, "cascade")
}

func TestRuleSet_RejectsCycle(t *testing.T) {
	root, f := tree("a", "b")
	_, err := rules.New(root,
		rule(t, f["a"], domain.EmptyMatcher(), domain.ActionHide, f["b"]),
		rule(t, f["b"], domain.EmptyMatcher(), domain.ActionShow, f["a"]),
	)
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
	assert.Contains(t, err.Error(), "cycle")
}

func TestRuleSet_RejectsDetachedFields(t *testing.T) {
	root, f := tree("a")
	stray := domain.NewField("stray", domain.FieldText)

	_, err := rules.New(root, rule(t, f["a"], domain.EmptyMatcher(), domain.ActionHide, stray))
	assert.True(t, domain.IsConfiguration(err))

	_, err = rules.New(root, rule(t, stray, domain.EmptyMatcher(), domain.ActionHide, f["a"]))
	assert.True(t, domain.IsConfiguration(err))
}

func TestRuleSet_Edges(t *testing.T) {
	root, f := tree("a", "b", "c")
	rs, err := rules.New(root,
		rule(t, f["a"], domain.EmptyMatcher(), domain.ActionHide, f["b"], f["c"]),
		rule(t, f["a"], domain.LiteralMatcher("x"), domain.ActionShow, f["b"]),
	)
	require.NoError(t, err)
	assert.Equal(t, []rules.Edge{{From: "a", To: "b"}, {From: "a", To: "c"}}, rs.Edges())
	assert.True(t, rs.IsTrigger("a"))
	assert.False(t, rs.IsTrigger("b"))
}
