package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/aretw0/formwire/internal/runtime"
	"github.com/aretw0/formwire/internal/testutils"
	"github.com/aretw0/formwire/pkg/adapters/i18n"
	"github.com/aretw0/formwire/pkg/adapters/markup"
	"github.com/aretw0/formwire/pkg/adapters/routing"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
	"github.com/aretw0/formwire/pkg/session"
)

type wireCommand struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

func decode(t *testing.T, payload []byte) []wireCommand {
	t.Helper()
	var out []wireCommand
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func kinds(cmds []wireCommand) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}

func redraws(cmds []wireCommand) []wireCommand {
	var out []wireCommand
	for _, c := range cmds {
		if c.Kind == "REDRAW_SUBTREE" {
			out = append(out, c)
		}
	}
	return out
}

// flakyRenderer fails the next fail calls.
type flakyRenderer struct {
	fail int
	next ports.Renderer
}

func (r *flakyRenderer) Render(ctx context.Context, req ports.RenderRequest) (string, error) {
	if r.fail > 0 {
		r.fail--
		return "", errors.New("template cache unavailable")
	}
	return r.next.Render(ctx, req)
}

type flakyResolver struct {
	fail int
	next ports.RedirectResolver
}

func (r *flakyResolver) Resolve(ctx context.Context, bp string) (string, error) {
	if r.fail > 0 {
		r.fail--
		return "", errors.New("routing service timeout")
	}
	return r.next.Resolve(ctx, bp)
}

type fixture struct {
	engine   *runtime.Engine
	sess     *session.Session
	renderer *flakyRenderer
	resolver *flakyResolver
	handlers *registry.Registry
	result   *ports.SubmitResult
	requests []ports.SubmitRequest
	states   []domain.LoopState
	rules    []*domain.RuleEvent
	cycles   []*domain.CycleEvent
}

func newFixture(t *testing.T, register bool) *fixture {
	t.Helper()

	bundle := i18n.NewBundle(language.English)
	bundle.Add(language.English, map[string]string{
		"form.error.mandatory":                  "This field is mandatory",
		"form.error.invalidinput":               "Invalid input",
		"configuration.newlang.inEnglish.error": "Please enter the name in English",
		"error.internal":                        "Internal error",
	})
	resolver, err := routing.NewResolver("https://lms.example.org")
	require.NoError(t, err)

	f := &fixture{
		renderer: &flakyRenderer{next: markup.NewRenderer("")},
		resolver: &flakyResolver{next: resolver},
		handlers: registry.NewRegistry(),
	}
	if register {
		f.handlers.RegisterFunc("i18n.create_language", func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
			f.requests = append(f.requests, req)
			if f.result != nil {
				return *f.result, nil
			}
			return ports.SubmitResult{BusinessPath: "[Admin:0][I18n:0][Language:" + req.Values["language"] + "]"}, nil
		})
	}

	hooks := domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) { f.states = append(f.states, e.To) },
		OnRuleApplied: func(_ context.Context, e *domain.RuleEvent) { f.rules = append(f.rules, e) },
		OnCycleEnd:    func(_ context.Context, e *domain.CycleEvent) { f.cycles = append(f.cycles, e) },
	}
	f.engine = runtime.NewEngine(f.renderer, f.resolver, bundle,
		runtime.WithHandlers(f.handlers),
		runtime.WithLifecycleHooks(hooks),
	)

	f.sess, err = session.New("s-1", testutils.NewLanguageDefinition(), "en")
	require.NoError(t, err)
	_, err = f.engine.Refresh(context.Background(), f.sess)
	require.NoError(t, err)
	return f
}

func (f *fixture) change(t *testing.T, fieldID, value string) []byte {
	t.Helper()
	out, err := f.engine.Process(context.Background(), f.sess, domain.Event{Kind: domain.EventChange, FieldID: fieldID, Value: value, Present: true})
	require.NoError(t, err)
	return out
}

func (f *fixture) submit() ([]byte, error) {
	return f.engine.Process(context.Background(), f.sess, domain.Event{Kind: domain.EventSubmit, FieldID: "submit"})
}

func (f *fixture) lastOutcome() string {
	return f.cycles[len(f.cycles)-1].Outcome
}

func TestEngine_RefreshRendersWholePage(t *testing.T) {
	sess, err := session.New("s-1", testutils.NewLanguageDefinition(), "en")
	require.NoError(t, err)
	resolver, err := routing.NewResolver("")
	require.NoError(t, err)
	e := runtime.NewEngine(markup.NewRenderer(""), resolver, i18n.NewBundle(language.English))

	out, err := e.Refresh(context.Background(), sess)
	require.NoError(t, err)
	cmds := decode(t, out)
	assert.Equal(t, []string{"PREPARE_CLIENT", "RESOLVE_ASSET_DEPENDENCIES", "REDRAW_SUBTREE"}, kinds(cmds))
	assert.Equal(t, "[Admin:0][I18n:0][NewLanguage:0]", cmds[0].Payload["businessPath"])
	assert.Equal(t, []any{"js/variant-hint.js"}, cmds[1].Payload["js"])
	assert.Equal(t, []any{"css/i18n.css"}, cmds[1].Payload["css"])
	assert.Equal(t, session.PageNodeID, cmds[2].Payload["nodeId"])

	out, err = e.Refresh(context.Background(), sess)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
}

func TestEngine_ChangeShowsDependentField(t *testing.T) {
	f := newFixture(t, true)
	variant, err := f.sess.Field("variant")
	require.NoError(t, err)
	require.False(t, variant.Visible())

	cmds := decode(t, f.change(t, "country", "CH"))

	assert.Equal(t, []string{"PREPARE_CLIENT", "RESOLVE_ASSET_DEPENDENCIES", "REDRAW_SUBTREE"}, kinds(cmds))
	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "variant", r[0].Payload["nodeId"])
	assert.Equal(t, map[string]any{"visible": true, "enabled": true}, r[0].Payload["annotations"])
	assert.True(t, variant.Visible())

	assert.Equal(t, []domain.LoopState{
		domain.StateEventReceived,
		domain.StateRulesEvaluated,
		domain.StateTreeDiffed,
		domain.StateCommandsBuilt,
		domain.StateDispatched,
		domain.StateIdle,
	}, f.states)
	require.Len(t, f.rules, 1)
	assert.Equal(t, domain.ActionShow, f.rules[0].Action)
	assert.Equal(t, []string{"variant"}, f.rules[0].Targets)
	assert.Equal(t, domain.OutcomeOK, f.lastOutcome())

	cmds = decode(t, f.change(t, "country", ""))
	r = redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "variant", r[0].Payload["nodeId"])
	assert.Equal(t, false, r[0].Payload["annotations"].(map[string]any)["visible"])
}

func TestEngine_EmptyCountryResetsVariant(t *testing.T) {
	f := newFixture(t, true)
	f.change(t, "country", "CH")
	f.change(t, "variant", "alemannic")

	cmds := decode(t, f.change(t, "country", ""))
	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "variant", r[0].Payload["nodeId"])
	_, ok := f.sess.Form().GetValue("variant")
	assert.False(t, ok)

	// The reset sticks when the country comes back.
	f.change(t, "country", "AT")
	_, ok = f.sess.Form().GetValue("variant")
	assert.False(t, ok)
}

func TestEngine_ChangeWithoutEffectIsEmpty(t *testing.T) {
	f := newFixture(t, true)
	assert.JSONEq(t, `[]`, string(f.change(t, "translator", "Ada")))

	v, ok := f.sess.Form().GetValue("translator")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)
}

func TestEngine_ChangeNormalizedValueIsRedrawn(t *testing.T) {
	f := newFixture(t, true)
	cmds := decode(t, f.change(t, "language", "DE"))

	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "language", r[0].Payload["nodeId"])
	v, _ := f.sess.Form().GetValue("language")
	assert.Equal(t, "de", v)
}

func TestEngine_SubmitMissingMandatoryField(t *testing.T) {
	f := newFixture(t, true)
	f.change(t, "language", "de")

	out, err := f.submit()
	require.NoError(t, err)
	cmds := decode(t, out)

	assert.Equal(t, []string{"PREPARE_CLIENT", "REDRAW_SUBTREE"}, kinds(cmds))
	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "inEnglish", r[0].Payload["nodeId"])
	assert.Equal(t, "Please enter the name in English", r[0].Payload["error"])
	assert.Empty(t, f.requests, "handler must not run for an invalid form")
	assert.Equal(t, domain.OutcomeInvalid, f.lastOutcome())

	// Submitting again without a fix redraws the same field again.
	out, err = f.submit()
	require.NoError(t, err)
	cmds = decode(t, out)
	assert.Equal(t, []string{"PREPARE_CLIENT", "REDRAW_SUBTREE"}, kinds(cmds))
	r = redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "inEnglish", r[0].Payload["nodeId"])
	assert.Equal(t, "Please enter the name in English", r[0].Payload["error"])

	// Editing the field clears the stale annotation.
	cmds = decode(t, f.change(t, "inEnglish", "Swiss German"))
	r = redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "inEnglish", r[0].Payload["nodeId"])
	assert.NotContains(t, r[0].Payload, "error")
}

func TestEngine_SubmitRedirects(t *testing.T) {
	f := newFixture(t, true)
	f.change(t, "language", "de")
	f.change(t, "inEnglish", "Swiss German")

	out, err := f.submit()
	require.NoError(t, err)
	cmds := decode(t, out)

	require.Len(t, cmds, 1)
	assert.Equal(t, "REPLACE_ROOT_VIA_REDIRECT", cmds[0].Kind)
	assert.Equal(t, "https://lms.example.org/url/Admin/0/I18n/0/Language/de", cmds[0].Payload["url"])

	require.Len(t, f.requests, 1)
	assert.Equal(t, map[string]string{
		"language":  "de",
		"country":   "",
		"inEnglish": "Swiss German",
	}, f.requests[0].Values, "hidden and null fields are not submitted")
	assert.Equal(t, "en", f.requests[0].Locale)
}

func TestEngine_SubmitBusinessFailure(t *testing.T) {
	f := newFixture(t, true)
	f.result = &ports.SubmitResult{ErrorKey: "configuration.newlang.exists", ErrorArgs: []string{"de"}}
	f.change(t, "language", "de")
	f.change(t, "inEnglish", "German")

	out, err := f.submit()
	require.NoError(t, err)
	cmds := decode(t, out)

	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, testutils.NewLanguageFormID, r[0].Payload["nodeId"])
	assert.Equal(t, "configuration.newlang.exists", r[0].Payload["error"])
	assert.Equal(t, "PREPARE_CLIENT", cmds[0].Kind)
	assert.Equal(t, domain.OutcomeInvalid, f.lastOutcome())
}

func TestEngine_SubmitExternalRedirect(t *testing.T) {
	f := newFixture(t, true)
	f.result = &ports.SubmitResult{ExternalURL: "https://translate.example.org/de"}
	f.change(t, "language", "de")
	f.change(t, "inEnglish", "German")

	out, err := f.submit()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"EXTERNAL_REDIRECT","payload":{"url":"https://translate.example.org/de","external":true}}]`, string(out))
}

func TestEngine_TransientFailureRollsBack(t *testing.T) {
	f := newFixture(t, true)
	f.change(t, "language", "de")
	f.change(t, "inEnglish", "German")
	before := f.sess.Form().Snapshot()

	f.resolver.fail = 1
	out, err := f.submit()
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Nil(t, out)
	assert.Equal(t, before, f.sess.Form().Snapshot())
	assert.Equal(t, domain.OutcomeTransient, f.lastOutcome())
	assert.Equal(t, domain.StateIdle, f.states[len(f.states)-1])

	out, err = f.submit()
	require.NoError(t, err)
	cmds := decode(t, out)
	require.Len(t, cmds, 1)
	assert.Equal(t, "REPLACE_ROOT_VIA_REDIRECT", cmds[0].Kind)
}

func TestEngine_RetryAfterRendererFailureIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	before := f.sess.Form().Snapshot()

	f.renderer.fail = 1
	_, err := f.engine.Process(context.Background(), f.sess, domain.Event{Kind: domain.EventChange, FieldID: "country", Value: "CH", Present: true})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, before, f.sess.Form().Snapshot())
	assert.False(t, f.sess.Root().IsDirty())

	cmds := decode(t, f.change(t, "country", "CH"))
	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "variant", r[0].Payload["nodeId"])
}

func TestEngine_ConfigurationErrorShowsErrorDisplay(t *testing.T) {
	f := newFixture(t, false)
	f.change(t, "language", "de")
	f.change(t, "inEnglish", "German")
	before := f.sess.Form().Snapshot()
	f.states = nil

	out, err := f.submit()
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
	assert.Equal(t, before, f.sess.Form().Snapshot())

	cmds := decode(t, out)
	assert.Equal(t, []string{"PREPARE_CLIENT", "REDRAW_SUBTREE"}, kinds(cmds))
	assert.Equal(t, "", cmds[0].Payload["businessPath"])
	assert.Equal(t, testutils.NewLanguageFormID, cmds[1].Payload["nodeId"])
	assert.Equal(t, "Internal error", cmds[1].Payload["error"])

	assert.NotContains(t, f.states, domain.StateDispatched)
	assert.Equal(t, domain.StateIdle, f.states[len(f.states)-1])
	assert.Equal(t, domain.OutcomeConfig, f.lastOutcome())
}

func TestEngine_Cancel(t *testing.T) {
	f := newFixture(t, true)
	f.change(t, "language", "de")
	before := f.sess.Form().Snapshot()

	out, err := f.engine.Process(context.Background(), f.sess, domain.Event{Kind: domain.EventCancel, FieldID: "cancel"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
	assert.Equal(t, before, f.sess.Form().Snapshot())
}

func TestEngine_RejectedEvents(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.engine.Process(ctx, f.sess, domain.Event{Kind: domain.EventChange, FieldID: "nope", Value: "x", Present: true})
	assert.ErrorIs(t, err, domain.ErrFieldNotFound)
	assert.Equal(t, domain.OutcomeRejected, f.lastOutcome())

	_, err = f.engine.Process(ctx, f.sess, domain.Event{Kind: domain.EventChange, FieldID: "submit", Value: "x", Present: true})
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)

	_, err = f.engine.Process(ctx, f.sess, domain.Event{Kind: domain.EventSubmit, FieldID: "language"})
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)
}

func TestEngine_InvalidInputIsAnnotated(t *testing.T) {
	f := newFixture(t, true)

	cmds := decode(t, f.change(t, "translator", "Ada\xff"))
	r := redraws(cmds)
	require.Len(t, r, 1)
	assert.Equal(t, "translator", r[0].Payload["nodeId"])
	assert.Equal(t, "Invalid input", r[0].Payload["error"])
	_, ok := f.sess.Form().GetValue("translator")
	assert.False(t, ok, "rejected input is not stored")
	assert.Equal(t, domain.OutcomeRejected, f.lastOutcome())
}

func TestEngine_HiddenFieldIgnoresInput(t *testing.T) {
	f := newFixture(t, true)

	assert.JSONEq(t, `[]`, string(f.change(t, "variant", "alemannic")))
	_, ok := f.sess.Form().GetValue("variant")
	assert.False(t, ok)
}

func TestEngine_NullValueClearsField(t *testing.T) {
	f := newFixture(t, true)
	f.change(t, "country", "CH")

	out, err := f.engine.Process(context.Background(), f.sess, domain.Event{Kind: domain.EventChange, FieldID: "country"})
	require.NoError(t, err)
	_, ok := f.sess.Form().GetValue("country")
	assert.False(t, ok)

	// Neither the empty matcher nor ".{2}" matches null, so variant stays
	// shown and only the cleared field is redrawn.
	r := redraws(decode(t, out))
	require.Len(t, r, 1)
	assert.Equal(t, "country", r[0].Payload["nodeId"])
	variant, err := f.sess.Field("variant")
	require.NoError(t, err)
	assert.True(t, variant.Visible())
}
