package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/domain"
)

// page -> form -> {country, variant}, page -> footer
func buildPage() (page, form, country, variant, footer *domain.ComponentNode) {
	page = domain.NewComponentNode("page", domain.NodeKindPage)
	form = domain.NewComponentNode("form", domain.NodeKindForm)
	country = domain.NewComponentNode("country", domain.NodeKindField)
	variant = domain.NewComponentNode("variant", domain.NodeKindField)
	footer = domain.NewComponentNode("footer", domain.NodeKindContainer)
	form.Add(country, variant)
	page.Add(form, footer)
	return
}

func ids(nodes []*domain.ComponentNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestCollectDirty_NewTreeIsWholePage(t *testing.T) {
	page, _, _, _, _ := buildPage()

	assert.Equal(t, []string{"page"}, ids(domain.CollectDirty(page)))
	assert.Empty(t, domain.CollectDirty(page))
}

func TestCollectDirty_LeafPropagatesToAncestors(t *testing.T) {
	page, form, country, variant, footer := buildPage()
	domain.CollectDirty(page)

	variant.MarkDirty()

	assert.True(t, variant.IsDirty())
	assert.True(t, form.IsDirty())
	assert.True(t, page.IsDirty())
	assert.False(t, country.IsDirty())
	assert.False(t, footer.IsDirty())
	assert.False(t, form.NeedsRedraw())

	first := domain.CollectDirty(page)
	assert.Equal(t, []string{"variant"}, ids(first))

	second := domain.CollectDirty(page)
	assert.NotNil(t, second)
	assert.Empty(t, second)
	assert.False(t, page.IsDirty())
}

func TestCollectDirty_CoalescesAndPreOrder(t *testing.T) {
	page, _, country, variant, footer := buildPage()
	domain.CollectDirty(page)

	footer.MarkDirty()
	variant.MarkDirty()
	variant.MarkDirty()
	country.MarkDirty()

	assert.Equal(t, []string{"country", "variant", "footer"}, ids(domain.CollectDirty(page)))
}

func TestCollectDirty_AncestorSubsumesDescendants(t *testing.T) {
	page, form, country, variant, _ := buildPage()
	domain.CollectDirty(page)

	country.MarkDirty()
	form.MarkDirty()
	variant.MarkDirty()

	assert.Equal(t, []string{"form"}, ids(domain.CollectDirty(page)))
	assert.False(t, country.IsDirty())
	assert.False(t, variant.IsDirty())
}

func TestCollectDirty_DirtyRootSubsumesAll(t *testing.T) {
	page, _, country, _, _ := buildPage()
	domain.CollectDirty(page)

	country.MarkDirty()
	page.MarkDirty()

	assert.Equal(t, []string{"page"}, ids(domain.CollectDirty(page)))
}

func TestCollectDirty_NilRoot(t *testing.T) {
	assert.Empty(t, domain.CollectDirty(nil))
}

func TestComponentNode_AddMovesChild(t *testing.T) {
	page, form, country, _, footer := buildPage()
	domain.CollectDirty(page)

	footer.Add(country)

	assert.Same(t, footer, country.Parent())
	assert.Nil(t, form.Find("country"))
	assert.Same(t, country, page.Find("country"))
	assert.Same(t, page, country.Root())
	assert.Equal(t, []string{"form", "footer"}, ids(domain.CollectDirty(page)))
}

func TestSubtreeAssets_Dedup(t *testing.T) {
	page, form, country, variant, _ := buildPage()
	form.Assets = domain.Assets{JS: []string{"js/form.js"}, CSS: []string{"css/form.css"}}
	country.Assets = domain.Assets{JS: []string{"js/country.js", "js/form.js"}}
	variant.Assets = domain.Assets{CSS: []string{"css/form.css", "css/variant.css"}}

	got := domain.SubtreeAssets(page)
	assert.Equal(t, []string{"js/form.js", "js/country.js"}, got.JS)
	assert.Equal(t, []string{"css/form.css", "css/variant.css"}, got.CSS)
	assert.True(t, domain.SubtreeAssets(domain.NewComponentNode("x", domain.NodeKindField)).IsZero())
}

func TestMarks_SaveRestore(t *testing.T) {
	page, _, country, variant, _ := buildPage()
	domain.CollectDirty(page)
	country.MarkDirty()

	saved := domain.SaveMarks(page)
	variant.MarkDirty()
	require.Len(t, domain.CollectDirty(page), 2)

	saved.Restore()
	assert.Equal(t, []string{"country"}, ids(domain.CollectDirty(page)))
}
