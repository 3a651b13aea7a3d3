package formwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/aretw0/formwire/internal/logging"
	"github.com/aretw0/formwire/internal/runtime"
	"github.com/aretw0/formwire/pkg/adapters/i18n"
	"github.com/aretw0/formwire/pkg/adapters/markup"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/adapters/routing"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
	"github.com/aretw0/formwire/pkg/session"
)

// Kernel is the high-level entry point of formwire. It owns the sessions,
// serializes the events of each one and returns the command payloads the
// browser applies.
type Kernel struct {
	loader     ports.DefinitionLoader
	sessions   *session.Manager
	engine     *runtime.Engine
	translator ports.Translator

	store    ports.SessionStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	renderer ports.Renderer
	resolver ports.RedirectResolver
	handlers *registry.Registry
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxInput int
	newID    func() string
	now      func() time.Time
}

var _ ports.Kernel = (*Kernel)(nil)

// Option defines a functional option for configuring the Kernel.
type Option func(*Kernel)

// WithStore sets where session state is persisted. The default keeps it in
// memory.
func WithStore(store ports.SessionStore) Option {
	return func(k *Kernel) {
		k.store = store
	}
}

// WithLocker serializes the events of a session across processes sharing
// the store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(k *Kernel) {
		k.locker = locker
	}
}

// WithLockTTL bounds how long a crashed process can hold a session lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(k *Kernel) {
		k.lockTTL = ttl
	}
}

// WithRenderer plugs in the component that produces markup.
func WithRenderer(r ports.Renderer) Option {
	return func(k *Kernel) {
		k.renderer = r
	}
}

// WithResolver plugs in the business path to URL resolver.
func WithResolver(r ports.RedirectResolver) Option {
	return func(k *Kernel) {
		k.resolver = r
	}
}

// WithTranslator sets the message source. The default translates every key
// to itself.
func WithTranslator(t ports.Translator) Option {
	return func(k *Kernel) {
		k.translator = t
	}
}

// WithHandlers sets the submit handlers definitions refer to by name.
func WithHandlers(r *registry.Registry) Option {
	return func(k *Kernel) {
		k.handlers = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(k *Kernel) {
		k.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// WithMaxInputSize bounds the size of a field value in bytes.
func WithMaxInputSize(n int) Option {
	return func(k *Kernel) {
		k.maxInput = n
	}
}

// WithIDGenerator replaces the random session IDs, for tests.
func WithIDGenerator(fn func() string) Option {
	return func(k *Kernel) {
		k.newID = fn
	}
}

// WithClock replaces time.Now in the event loop and the session manager.
func WithClock(now func() time.Time) Option {
	return func(k *Kernel) {
		k.now = now
	}
}

// New creates a Kernel serving the forms of loader.
func New(loader ports.DefinitionLoader, opts ...Option) (*Kernel, error) {
	if loader == nil {
		return nil, errors.New("a definition loader is required")
	}
	k := &Kernel{
		loader:   loader,
		handlers: registry.NewRegistry(),
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}

	if k.store == nil {
		k.store = memory.NewStore()
	}
	if k.renderer == nil {
		k.renderer = markup.NewRenderer("")
	}
	if k.resolver == nil {
		r, err := routing.NewResolver("")
		if err != nil {
			return nil, err
		}
		k.resolver = r
	}
	if k.translator == nil {
		k.translator = i18n.NewBundle(language.English)
	}

	mgrOpts := []session.Option{
		session.WithLoader(loader),
		session.WithLogger(k.logger),
		session.WithLockTTL(k.lockTTL),
		session.WithClock(k.now),
	}
	if k.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(k.locker))
	}
	k.sessions = session.NewManager(k.store, mgrOpts...)

	engineOpts := []runtime.Option{
		runtime.WithHandlers(k.handlers),
		runtime.WithLifecycleHooks(k.hooks),
		runtime.WithLogger(k.logger),
		runtime.WithMaxInputSize(k.maxInput),
		runtime.WithClock(k.now),
	}
	k.engine = runtime.NewEngine(k.renderer, k.resolver, k.translator, engineOpts...)

	return k, nil
}

// Open starts a session on a form. The payload renders the whole page.
func (k *Kernel) Open(ctx context.Context, formID, locale string) (string, []byte, error) {
	def, err := k.loader.Load(formID)
	if err != nil {
		return "", nil, err
	}
	id := k.newID()
	sess, err := session.New(id, def, locale)
	if err != nil {
		return "", nil, err
	}

	payload, err := k.engine.Refresh(ctx, sess)
	if err != nil {
		return "", nil, fmt.Errorf("initial render of %s: %w", formID, err)
	}
	if err := k.sessions.Login(ctx, sess); err != nil {
		return "", nil, &domain.TransientError{Collaborator: "session store", Err: err}
	}
	k.logger.Debug("session opened", "session_id", id, "form_id", formID, "locale", locale)
	return id, payload, nil
}

// SubmitEvent processes one interaction with a field and returns the
// serialized command queue. The event kind follows the field: a submit
// button submits, a cancel button cancels, anything else is a value change.
// A nil newValue is a null value.
//
// Events of one session are processed one at a time. On a
// *domain.TransientError the session is unchanged and the call may be
// retried as is.
func (k *Kernel) SubmitEvent(ctx context.Context, sessionID, fieldID string, newValue *string) ([]byte, error) {
	var payload []byte
	err := k.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		ev, err := eventFor(s, fieldID, newValue)
		if err != nil {
			return err
		}
		out, err := k.engine.Process(ctx, s, ev)
		payload = out
		return err
	})
	if err != nil && !domain.IsConfiguration(err) {
		payload = nil
	}
	return payload, err
}

func eventFor(s *session.Session, fieldID string, newValue *string) (domain.Event, error) {
	f, err := s.Field(fieldID)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{FieldID: fieldID, Kind: domain.EventChange}
	switch f.Kind() {
	case domain.FieldSubmit:
		ev.Kind = domain.EventSubmit
	case domain.FieldCancel:
		ev.Kind = domain.EventCancel
	}
	if newValue != nil {
		ev.Value, ev.Present = *newValue, true
	}
	return ev, nil
}

// Reload renders the whole page of an existing session again, e.g. after
// the browser lost its DOM.
func (k *Kernel) Reload(ctx context.Context, sessionID string) ([]byte, error) {
	var payload []byte
	err := k.sessions.WithSession(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		cp := s.Checkpoint()
		s.Root().MarkDirty()
		out, err := k.engine.Refresh(ctx, s)
		if err != nil {
			if rerr := s.Rollback(cp); rerr != nil {
				k.logger.Error("rollback failed", "session_id", sessionID, "err", rerr)
			}
			return err
		}
		payload = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Snapshot returns the current state of the session's form.
func (k *Kernel) Snapshot(ctx context.Context, sessionID string) (domain.FormSnapshot, error) {
	var snap domain.FormSnapshot
	err := k.sessions.View(ctx, sessionID, func(s *session.Session) error {
		snap = s.Form().Snapshot()
		return nil
	})
	return snap, err
}

// Close tears the session down.
func (k *Kernel) Close(ctx context.Context, sessionID string) error {
	return k.sessions.Logout(ctx, sessionID)
}

// Forms lists the available form IDs.
func (k *Kernel) Forms() ([]string, error) {
	return k.loader.List()
}

// Definition returns the definition of a form.
func (k *Kernel) Definition(formID string) (*form.Definition, error) {
	return k.loader.Load(formID)
}

// Translate resolves a message key for a locale.
func (k *Kernel) Translate(locale, key string, args ...string) string {
	return k.translator.Translate(locale, key, args...)
}

// Sweep closes sessions idle for longer than maxIdle.
func (k *Kernel) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	return k.sessions.Sweep(ctx, maxIdle)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (k *Kernel) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := k.Sweep(ctx, maxIdle); err != nil {
				k.logger.Warn("session sweep failed", "err", err)
			}
		}
	}
}

// Sessions returns the session manager.
func (k *Kernel) Sessions() *session.Manager {
	return k.sessions
}
