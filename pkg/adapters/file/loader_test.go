package file_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/internal/testutils"
	"github.com/aretw0/formwire/pkg/adapters/file"
	"github.com/aretw0/formwire/pkg/domain"
)

func TestParse_MatchesCodeDefinition(t *testing.T) {
	defs, err := file.Parse([]byte(testutils.NewLanguageYAML))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, testutils.NewLanguageDefinition(), defs[0])
}

func TestParse_WeakTypesAndMultipleDocuments(t *testing.T) {
	src := `id: a
fields:
  - id: code
    kind: text
    max_length: "3"
    mandatory: "true"
---
id: b
fields:
  - id: name
    kind: text
    value: 42
`
	defs, err := file.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, 3, defs[0].Fields[0].MaxLength)
	assert.True(t, defs[0].Fields[0].Mandatory)
	require.NotNil(t, defs[1].Fields[0].Value)
	assert.Equal(t, "42", *defs[1].Fields[0].Value)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"invalid yaml": "id: [unclosed",
		"unknown key":  "id: a\nfeilds: []\n",
		"wrong type":   "id: a\nfields: nope\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := file.Parse([]byte(src))
			require.Error(t, err)
			assert.True(t, domain.IsConfiguration(err))
		})
	}
}

func TestNewLoader(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "i18n/newlang.yaml", testutils.NewLanguageYAML)
	testutils.WriteFile(t, dir, "feedback.yml", "id: feedback\nfields:\n  - id: comment\n    kind: text\n")
	testutils.WriteFile(t, dir, "notes.txt", "not a form")

	l, err := file.NewLoader(dir)
	require.NoError(t, err)

	ids, err := l.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"feedback", testutils.NewLanguageFormID}, ids)

	def, err := l.Load(testutils.NewLanguageFormID)
	require.NoError(t, err)
	assert.Len(t, def.Rules, 2)

	_, err = l.Load("missing")
	assert.ErrorIs(t, err, domain.ErrFormNotFound)
}

func TestNewLoader_RejectsInvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "broken.yaml", `id: broken
fields:
  - id: a
    kind: text
rules:
  - trigger: a
    match: empty
    action: HIDE
    targets: [a]
`)
	_, err := file.NewLoader(dir)
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))

	_, err = file.NewLoader(dir + "/missing")
	assert.Error(t, err)
}

func TestNewLoader_RejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "a.yaml", "id: same\nfields: []\n")
	testutils.WriteFile(t, dir, "b.yaml", "id: same\nfields: []\n")
	_, err := file.NewLoader(dir)
	assert.Error(t, err)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "b.yml", "id: b\n")
	testutils.WriteFile(t, dir, "a/x.yaml", "id: x\n")
	testutils.WriteFile(t, dir, "readme.md", "# forms")

	paths, err := file.Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a", "x.yaml"), filepath.Join(dir, "b.yml")}, paths)

	defs, err := file.ParseFile(paths[0])
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "x", defs[0].ID)

	_, err = file.ParseFile(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}
