package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/aretw0/formwire"
	"github.com/aretw0/formwire/internal/cli"
	"github.com/aretw0/formwire/internal/testutils"
	"github.com/aretw0/formwire/pkg/adapters/i18n"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/adapters/routing"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
)

func newKernel(t *testing.T) *formwire.Kernel {
	t.Helper()
	loader, err := memory.NewLoader(testutils.NewLanguageDefinition())
	require.NoError(t, err)
	bundle := i18n.NewBundle(language.English)
	bundle.Add(language.English, map[string]string{
		"configuration.newlang.title":           "Add a language",
		"configuration.newlang.inEnglish.error": "Please enter the name in English",
	})
	resolver, err := routing.NewResolver("https://lms.example.org")
	require.NoError(t, err)
	handlers := registry.NewRegistry()
	handlers.RegisterFunc("i18n.create_language", func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		return ports.SubmitResult{BusinessPath: "[Admin:0][I18n:0][Language:" + req.Values["language"] + "]"}, nil
	})
	k, err := formwire.New(loader,
		formwire.WithTranslator(bundle),
		formwire.WithResolver(resolver),
		formwire.WithHandlers(handlers),
	)
	require.NoError(t, err)
	return k
}

func lines(ls ...string) *strings.Reader {
	return strings.NewReader(strings.Join(ls, "\n") + "\n")
}

func TestFiller_SubmitsAfterCorrection(t *testing.T) {
	k := newKernel(t)
	var out bytes.Buffer
	in := lines(
		// language, country, variant (shown by the country), inEnglish, inYourLanguage, translator
		"DE", "CH", "", "", "", "",
		"y",
		"", "", "", "German", "", "",
		"",
	)

	url, err := cli.NewFiller(k, in, &out, "en").Run(context.Background(), testutils.NewLanguageFormID)
	require.NoError(t, err)
	assert.Equal(t, "https://lms.example.org/url/Admin/0/I18n/0/Language/de", url)

	text := out.String()
	assert.Contains(t, text, "Add a language")
	assert.Contains(t, text, "inEnglish: Please enter the name in English")
	assert.Contains(t, text, "[de]", "the normalized value is shown on the second pass")
	assert.Zero(t, k.Sessions().Live(), "the session is closed")
}

func TestFiller_Cancel(t *testing.T) {
	k := newKernel(t)
	var out bytes.Buffer
	// The variant stays hidden, so five prompts precede the question.
	in := lines("", "", "", "", "", "c")

	_, err := cli.NewFiller(k, in, &out, "en").Run(context.Background(), testutils.NewLanguageFormID)
	assert.ErrorIs(t, err, cli.ErrCancelled)
}

func TestFiller_EndOfInputCancels(t *testing.T) {
	k := newKernel(t)
	_, err := cli.NewFiller(k, strings.NewReader(""), &bytes.Buffer{}, "en").Run(context.Background(), testutils.NewLanguageFormID)
	assert.ErrorIs(t, err, cli.ErrCancelled)
}

func TestFiller_UnknownForm(t *testing.T) {
	k := newKernel(t)
	_, err := cli.NewFiller(k, strings.NewReader(""), &bytes.Buffer{}, "en").Run(context.Background(), "nope")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, cli.ErrCancelled)
}
