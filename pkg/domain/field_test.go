package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/domain"
)

func cleanField(id string) *domain.Field {
	f := domain.NewField(id, domain.FieldText)
	domain.CollectDirty(f.Node())
	return f
}

func TestField_ApplyInputOnlyDirtiesWhenNormalized(t *testing.T) {
	f := cleanField("language")
	f.SetNormalizer(strings.ToLower)

	assert.True(t, f.ApplyInput("de", true))
	assert.False(t, f.Node().IsDirty(), "client already shows what was typed")

	assert.True(t, f.ApplyInput("FR", true))
	assert.True(t, f.Node().IsDirty())
	v, ok := f.Value()
	assert.True(t, ok)
	assert.Equal(t, "fr", v)

	domain.CollectDirty(f.Node())
	assert.True(t, f.ApplyInput("", false))
	assert.True(t, f.IsEmpty())
	assert.True(t, f.Node().IsDirty())
}

func TestField_SettersDirtyOnlyOnChange(t *testing.T) {
	f := cleanField("variant")

	assert.False(t, f.SetVisible(true))
	assert.False(t, f.SetEnabled(true))
	assert.False(t, f.ClearError())
	assert.False(t, f.Node().IsDirty())

	assert.True(t, f.SetVisible(false))
	assert.True(t, f.Node().IsDirty())

	domain.CollectDirty(f.Node())
	assert.True(t, f.SetError(domain.KeyMandatory))
	assert.False(t, f.SetError(domain.KeyMandatory))
	assert.True(t, f.HasError())
}

func TestField_EffectiveValue(t *testing.T) {
	f := cleanField("variant")
	f.SetValue("POSIX")

	v, ok := f.EffectiveValue()
	assert.True(t, ok)
	assert.Equal(t, "POSIX", v)

	f.SetVisible(false)
	_, ok = f.EffectiveValue()
	assert.False(t, ok)

	f.SetVisible(true)
	f.SetEnabled(false)
	_, ok = f.EffectiveValue()
	assert.False(t, ok)
}

func TestField_Validate(t *testing.T) {
	newLang := func() *domain.Field {
		f := domain.NewField("language", domain.FieldText)
		f.Mandatory = true
		f.MaxLength = 2
		require.NoError(t, f.SetRegexCheck("[a-z]{2}", "configuration.newlang.language.error"))
		return f
	}

	f := newLang()
	err := f.Validate()
	require.NotNil(t, err)
	assert.Equal(t, domain.KeyMandatory, err.ErrorKey)

	f = newLang()
	f.SetValue("deu")
	err = f.Validate()
	require.NotNil(t, err)
	assert.Equal(t, domain.KeyTooLong, err.ErrorKey)
	assert.Equal(t, []string{"2"}, err.Args)

	f = newLang()
	f.SetValue("D1")
	err = f.Validate()
	require.NotNil(t, err)
	assert.Equal(t, "configuration.newlang.language.error", err.ErrorKey)

	f = newLang()
	f.SetValue("de")
	assert.Nil(t, f.Validate())

	optional := domain.NewField("country", domain.FieldText)
	require.NoError(t, optional.SetRegexCheck("[A-Z]{0,2}", "bad.country"))
	assert.Nil(t, optional.Validate())

	notEmpty := domain.NewField("inEnglish", domain.FieldText)
	notEmpty.NotEmptyKey = "configuration.newlang.inEnglish.error"
	notEmpty.SetValue("   ")
	err = notEmpty.Validate()
	require.NotNil(t, err)
	assert.Equal(t, "configuration.newlang.inEnglish.error", err.ErrorKey)

	submit := domain.NewField("submit", domain.FieldSubmit)
	submit.Mandatory = true
	assert.Nil(t, submit.Validate())
}

func TestField_SnapshotRestore(t *testing.T) {
	f := cleanField("country")
	f.SetValue("CH")
	f.SetError("bad", "x")
	snap := f.Snapshot()

	f.SetValue("DE")
	f.SetVisible(false)
	f.ClearError()

	f.Restore(snap)
	v, _ := f.Value()
	key, args := f.Error()
	assert.Equal(t, "CH", v)
	assert.True(t, f.Visible())
	assert.Equal(t, "bad", key)
	assert.Equal(t, []string{"x"}, args)
}
