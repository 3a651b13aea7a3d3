package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// NewLanguageFormID is the id of the fixture form.
const NewLanguageFormID = "i18n.newlang"

func str(s string) *string { return &s }

// NewLanguageDefinition returns the "add a translation language" form used
// across tests: a mandatory language code, an optional country, a variant
// that is only shown once a two-letter country is entered and is reset with
// it, and two descriptive names.
func NewLanguageDefinition() *form.Definition {
	return &form.Definition{
		ID:           NewLanguageFormID,
		Title:        "configuration.newlang.title",
		BusinessPath: "[Admin:0][I18n:0][NewLanguage:0]",
		OnSubmit:     "i18n.create_language",
		Assets:       domain.Assets{CSS: []string{"css/i18n.css"}},
		Fields: []form.FieldSpec{
			{
				ID: "language", Kind: domain.FieldText, Label: "configuration.newlang.language",
				Mandatory: true, MaxLength: 2, Normalize: "language",
				Regex: &form.RegexSpec{Pattern: "[a-z]{2}", Error: "configuration.newlang.language.error"},
			},
			{
				ID: "country", Kind: domain.FieldText, Label: "configuration.newlang.country",
				Value: str(""), MaxLength: 2, Normalize: "region",
				Regex:  &form.RegexSpec{Pattern: "[A-Z]{0,2}", Error: "configuration.newlang.country.error"},
				Clears: []string{"variant"},
			},
			{
				ID: "variant", Kind: domain.FieldText, Label: "configuration.newlang.variant",
				MaxLength: 50,
				Regex:     &form.RegexSpec{Pattern: "[A-Za-z0-9_]*", Error: "configuration.newlang.variant.error"},
				Assets:    domain.Assets{JS: []string{"js/variant-hint.js"}},
				Requires:  &form.RequireSpec{Field: "country", Error: "configuration.newlang.variant.error.noCountry"},
			},
			{
				ID: "inEnglish", Kind: domain.FieldText, Label: "configuration.newlang.inEnglish",
				Mandatory: true, NotEmpty: "configuration.newlang.inEnglish.error",
			},
			{ID: "inYourLanguage", Kind: domain.FieldText, Label: "configuration.newlang.inYourLanguage"},
			{ID: "translator", Kind: domain.FieldText, Label: "configuration.newlang.translator"},
			{ID: "cancel", Kind: domain.FieldCancel, Label: "cancel"},
			{ID: "submit", Kind: domain.FieldSubmit, Label: "configuration.newlang.submit"},
		},
		Rules: []form.RuleSpec{
			{Trigger: "country", Match: "empty", Action: "HIDE", Targets: []string{"variant"}},
			{Trigger: "country", Match: "regex", Pattern: str(".{2}"), Action: "SHOW", Targets: []string{"variant"}},
		},
	}
}

// NewLanguageYAML is NewLanguageDefinition in its file form.
const NewLanguageYAML = `id: i18n.newlang
title: configuration.newlang.title
business_path: "[Admin:0][I18n:0][NewLanguage:0]"
on_submit: i18n.create_language
assets:
  css: [css/i18n.css]
fields:
  - id: language
    kind: text
    label: configuration.newlang.language
    mandatory: true
    max_length: 2
    normalize: language
    regex:
      pattern: "[a-z]{2}"
      error: configuration.newlang.language.error
  - id: country
    kind: text
    label: configuration.newlang.country
    value: ""
    max_length: 2
    normalize: region
    regex:
      pattern: "[A-Z]{0,2}"
      error: configuration.newlang.country.error
    clears: [variant]
  - id: variant
    kind: text
    label: configuration.newlang.variant
    max_length: 50
    regex:
      pattern: "[A-Za-z0-9_]*"
      error: configuration.newlang.variant.error
    assets:
      js: [js/variant-hint.js]
    requires:
      field: country
      error: configuration.newlang.variant.error.noCountry
  - id: inEnglish
    kind: text
    label: configuration.newlang.inEnglish
    mandatory: true
    not_empty: configuration.newlang.inEnglish.error
  - id: inYourLanguage
    kind: text
    label: configuration.newlang.inYourLanguage
  - id: translator
    kind: text
    label: configuration.newlang.translator
  - id: cancel
    kind: cancel
    label: cancel
  - id: submit
    kind: submit
    label: configuration.newlang.submit
rules:
  - trigger: country
    match: empty
    action: HIDE
    targets: [variant]
  - trigger: country
    match: regex
    pattern: ".{2}"
    action: SHOW
    targets: [variant]
`

// WriteFile creates name under dir with the given content, creating parent
// directories, and fails the test on error.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
