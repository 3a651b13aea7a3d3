package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/internal/testutils"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

func TestLoader(t *testing.T) {
	other := &form.Definition{
		ID:     "feedback",
		Fields: []form.FieldSpec{{ID: "comment", Kind: domain.FieldText}},
	}
	loader, err := memory.NewLoader(testutils.NewLanguageDefinition(), other)
	require.NoError(t, err)

	ids, err := loader.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"feedback", testutils.NewLanguageFormID}, ids)

	def, err := loader.Load("feedback")
	require.NoError(t, err)
	assert.Same(t, other, def)

	_, err = loader.Load("missing")
	assert.ErrorIs(t, err, domain.ErrFormNotFound)
}

func TestLoader_RejectsInvalid(t *testing.T) {
	bad := testutils.NewLanguageDefinition()
	bad.Rules[0].Targets = []string{"nowhere"}
	_, err := memory.NewLoader(bad)
	assert.True(t, domain.IsConfiguration(err))

	_, err = memory.NewLoader(testutils.NewLanguageDefinition(), testutils.NewLanguageDefinition())
	assert.True(t, domain.IsConfiguration(err))
}
