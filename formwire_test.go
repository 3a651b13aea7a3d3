package formwire_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/aretw0/formwire"
	"github.com/aretw0/formwire/internal/testutils"
	"github.com/aretw0/formwire/pkg/adapters/i18n"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/adapters/redis"
	"github.com/aretw0/formwire/pkg/adapters/routing"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/persistence/middleware"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
)

type command struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

func decode(t *testing.T, payload []byte) []command {
	t.Helper()
	var out []command
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func kinds(cmds []command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}

func redrawn(cmds []command) []string {
	var out []string
	for _, c := range cmds {
		if c.Kind == "REDRAW_SUBTREE" {
			out = append(out, c.Payload["nodeId"].(string))
		}
	}
	return out
}

func str(s string) *string { return &s }

func newKernel(t *testing.T, opts ...formwire.Option) *formwire.Kernel {
	t.Helper()
	loader, err := memory.NewLoader(testutils.NewLanguageDefinition())
	require.NoError(t, err)

	bundle := i18n.NewBundle(language.English)
	bundle.Add(language.English, map[string]string{
		"configuration.newlang.inEnglish.error": "Please enter the name in English",
	})
	bundle.Add(language.German, map[string]string{
		"configuration.newlang.inEnglish.error": "Bitte den englischen Namen angeben",
	})
	resolver, err := routing.NewResolver("https://lms.example.org")
	require.NoError(t, err)

	handlers := registry.NewRegistry()
	handlers.RegisterFunc("i18n.create_language", func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		return ports.SubmitResult{BusinessPath: "[Admin:0][I18n:0][Language:" + req.Values["language"] + "]"}, nil
	})

	base := []formwire.Option{
		formwire.WithTranslator(bundle),
		formwire.WithResolver(resolver),
		formwire.WithHandlers(handlers),
	}
	k, err := formwire.New(loader, append(base, opts...)...)
	require.NoError(t, err)
	return k
}

func TestNew_RequiresLoader(t *testing.T) {
	_, err := formwire.New(nil)
	assert.Error(t, err)
}

func TestKernel_Forms(t *testing.T) {
	k := newKernel(t)
	forms, err := k.Forms()
	require.NoError(t, err)
	assert.Equal(t, []string{testutils.NewLanguageFormID}, forms)
}

func TestKernel_AddLanguageFlow(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)

	id, page, err := k.Open(ctx, testutils.NewLanguageFormID, "de")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, []string{"PREPARE_CLIENT", "RESOLVE_ASSET_DEPENDENCIES", "REDRAW_SUBTREE"}, kinds(decode(t, page)))

	out, err := k.SubmitEvent(ctx, id, "country", str("CH"))
	require.NoError(t, err)
	assert.Equal(t, []string{"variant"}, redrawn(decode(t, out)))

	out, err = k.SubmitEvent(ctx, id, "language", str("de"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out), "an accepted value needs no redraw")

	out, err = k.SubmitEvent(ctx, id, "submit", nil)
	require.NoError(t, err)
	cmds := decode(t, out)
	assert.Equal(t, []string{"inEnglish"}, redrawn(cmds))
	assert.Equal(t, "Bitte den englischen Namen angeben", cmds[len(cmds)-1].Payload["error"])

	_, err = k.SubmitEvent(ctx, id, "inEnglish", str("German"))
	require.NoError(t, err)

	out, err = k.SubmitEvent(ctx, id, "submit", nil)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"kind":"REPLACE_ROOT_VIA_REDIRECT","payload":{"url":"https://lms.example.org/url/Admin/0/I18n/0/Language/de"}}]`,
		string(out))
}

func TestKernel_Errors(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)

	_, _, err := k.Open(ctx, "missing", "en")
	assert.ErrorIs(t, err, domain.ErrFormNotFound)

	_, err = k.SubmitEvent(ctx, "ghost", "country", str("CH"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	id, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)
	out, err := k.SubmitEvent(ctx, id, "nope", str("x"))
	assert.ErrorIs(t, err, domain.ErrFieldNotFound)
	assert.Nil(t, out)
}

func TestKernel_CancelAndClose(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	id, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	out, err := k.SubmitEvent(ctx, id, "cancel", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))

	require.NoError(t, k.Close(ctx, id))
	_, err = k.SubmitEvent(ctx, id, "country", str("CH"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestKernel_Reload(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	id, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	out, err := k.Reload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"page"}, redrawn(decode(t, out)))
}

func TestKernel_EventsOfOneSessionAreSerialized(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	id, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := k.SubmitEvent(ctx, id, "translator", str(fmt.Sprintf("t%d", i)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	state, err := k.Sessions().Store().Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(n), state.Revision, "every cycle saw the previous one")
}

// flakyStore fails the next fail saves.
type flakyStore struct {
	*memory.Store
	mu   sync.Mutex
	fail int
}

func (s *flakyStore) Save(ctx context.Context, id string, state *domain.SessionState) error {
	s.mu.Lock()
	failing := s.fail > 0
	if failing {
		s.fail--
	}
	s.mu.Unlock()
	if failing {
		return errors.New("connection reset")
	}
	return s.Store.Save(ctx, id, state)
}

func TestKernel_RetryAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore()}
	k := newKernel(t, formwire.WithStore(store))
	id, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	store.fail = 1
	out, err := k.SubmitEvent(ctx, id, "country", str("CH"))
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Nil(t, out)

	out, err = k.SubmitEvent(ctx, id, "country", str("CH"))
	require.NoError(t, err)
	assert.Equal(t, []string{"variant"}, redrawn(decode(t, out)), "the retry produces the original commands")
}

func TestKernel_SharedRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	shared := func() *formwire.Kernel {
		return newKernel(t,
			formwire.WithStore(redis.NewFromClient(client)),
			formwire.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
		)
	}
	k1, k2 := shared(), shared()

	id, _, err := k1.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	out, err := k2.SubmitEvent(ctx, id, "country", str("CH"))
	require.NoError(t, err)
	assert.Equal(t, []string{"variant"}, redrawn(decode(t, out)), "the second replica rebuilds the session")

	out, err = k1.SubmitEvent(ctx, id, "country", str(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"variant"}, redrawn(decode(t, out)), "the first replica sees the newer revision")
}

func TestKernel_SweepSparesSessionsServedByAnotherReplica(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	replica := func() *formwire.Kernel {
		return newKernel(t,
			formwire.WithClock(clock),
			formwire.WithStore(redis.NewFromClient(client)),
			formwire.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
		)
	}
	a, b := replica(), replica()

	id, _, err := a.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)
	for i := range 4 {
		advance(30 * time.Minute)
		_, err := b.SubmitEvent(ctx, id, "translator", str(fmt.Sprintf("t%d", i)))
		require.NoError(t, err)
	}

	n, err := a.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0, a.Sessions().Live())

	_, err = b.SubmitEvent(ctx, id, "country", str("CH"))
	require.NoError(t, err, "the session is still usable on the replica serving it")

	advance(2 * time.Hour)
	n, err = a.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "a no longer holds the session")
	n, err = b.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = a.SubmitEvent(ctx, id, "country", str(""))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestKernel_MaskedFieldsMustBeEnteredAgain(t *testing.T) {
	ctx := context.Background()
	pii, err := middleware.NewPIIMiddleware([]string{"^inEnglish$"})
	require.NoError(t, err)
	store := middleware.Chain(memory.NewStore(), pii)

	var got []ports.SubmitRequest
	first := newKernel(t, formwire.WithStore(store))
	id, _, err := first.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)
	_, err = first.SubmitEvent(ctx, id, "language", str("de"))
	require.NoError(t, err)
	_, err = first.SubmitEvent(ctx, id, "inEnglish", str("German"))
	require.NoError(t, err)

	// A restarted process only has what the store kept.
	handlers := registry.NewRegistry()
	handlers.RegisterFunc("i18n.create_language", func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		got = append(got, req)
		return ports.SubmitResult{BusinessPath: "[Admin:0]"}, nil
	})
	second := newKernel(t, formwire.WithStore(store), formwire.WithHandlers(handlers))

	snap, err := second.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.False(t, snap.Fields["inEnglish"].HasValue)
	assert.Equal(t, "de", snap.Fields["language"].Value)

	out, err := second.SubmitEvent(ctx, id, "submit", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"inEnglish"}, redrawn(decode(t, out)))
	assert.Empty(t, got, "the placeholder is never submitted")

	_, err = second.SubmitEvent(ctx, id, "inEnglish", str("German"))
	require.NoError(t, err)
	out, err = second.SubmitEvent(ctx, id, "submit", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"REPLACE_ROOT_VIA_REDIRECT"}, kinds(decode(t, out)))
	require.Len(t, got, 1)
	assert.Equal(t, "German", got[0].Values["inEnglish"])
}

func TestKernel_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var outcomes []string
	k := newKernel(t, formwire.WithLifecycleHooks(domain.LifecycleHooks{
		OnCycleEnd: func(_ context.Context, e *domain.CycleEvent) {
			mu.Lock()
			outcomes = append(outcomes, e.Outcome)
			mu.Unlock()
		},
	}))
	id, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	_, err = k.SubmitEvent(ctx, id, "country", str("CH"))
	require.NoError(t, err)
	_, err = k.SubmitEvent(ctx, id, "submit", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.OutcomeOK, domain.OutcomeInvalid}, outcomes)
}

func TestKernel_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	k := newKernel(t, formwire.WithClock(func() time.Time { return now }))
	_, _, err := k.Open(ctx, testutils.NewLanguageFormID, "en")
	require.NoError(t, err)

	n, err := k.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	now = now.Add(2 * time.Hour)
	n, err = k.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, k.Sessions().Live())
}

func TestVersion(t *testing.T) {
	assert.Regexp(t, `^\d+\.\d+\.\d+\s*$`, formwire.Version)
}
