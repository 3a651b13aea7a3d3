package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aretw0/formwire/internal/logging"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/protocol"
	"github.com/aretw0/formwire/pkg/registry"
	"github.com/aretw0/formwire/pkg/rules"
	"github.com/aretw0/formwire/pkg/session"
)

var _ ports.FieldValues = (*form.Form)(nil)

// Engine is the form event loop. It processes one event per cycle against a
// session the caller has locked, and turns the resulting tree changes into a
// dispatched command queue.
type Engine struct {
	renderer   ports.Renderer
	resolver   ports.RedirectResolver
	translator ports.Translator
	handlers   *registry.Registry

	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxInput int
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHandlers sets the registry submit handlers are looked up in.
func WithHandlers(r *registry.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.handlers = r
		}
	}
}

// WithMaxInputSize overrides the input size limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with its collaborators.
func NewEngine(renderer ports.Renderer, resolver ports.RedirectResolver, translator ports.Translator, opts ...Option) *Engine {
	e := &Engine{
		renderer:   renderer,
		resolver:   resolver,
		translator: translator,
		handlers:   registry.NewRegistry(),
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cycle is the state of one pass through the loop.
type cycle struct {
	ctx   context.Context
	sess  *session.Session
	event domain.Event
	state domain.LoopState
	queue []protocol.Command
}

func (e *Engine) enter(c *cycle, to domain.LoopState) {
	from := c.state
	c.state = to
	if e.hooks.OnStateChange != nil {
		e.hooks.OnStateChange(c.ctx, &domain.StateEvent{SessionID: c.sess.ID, From: from, To: to})
	}
}

// Process runs one event cycle and returns the serialized command queue.
//
// Validation failures are not errors: the payload redraws the offending
// fields. A *domain.TransientError leaves the session exactly as it was
// before the event, so the same event can be retried. A
// *domain.ConfigurationError also rolls the session back and comes with an
// error-display payload. Events for unknown fields, or of a kind the field
// does not accept, are rejected without touching the session.
func (e *Engine) Process(ctx context.Context, sess *session.Session, ev domain.Event) ([]byte, error) {
	start := e.now()
	c := &cycle{ctx: ctx, sess: sess, event: ev, state: domain.StateIdle}
	cev := &domain.CycleEvent{
		Timestamp: start,
		SessionID: sess.ID,
		FormID:    sess.Form().ID(),
		Event:     ev,
	}
	if e.hooks.OnCycleStart != nil {
		e.hooks.OnCycleStart(ctx, cev)
	}

	checkpoint := sess.Checkpoint()
	e.enter(c, domain.StateEventReceived)

	outcome, err := e.run(c)
	var payload []byte
	if err == nil {
		payload, err = protocol.Dispatch(c.queue)
	}

	switch {
	case err == nil:
		e.enter(c, domain.StateDispatched)
		cev.Commands = protocol.Kinds(protocol.Order(c.queue))
	case domain.IsConfiguration(err):
		outcome = domain.OutcomeConfig
		e.rollback(sess, checkpoint)
		e.logger.Error("configuration error", "session_id", sess.ID, "field_id", ev.FieldID, "state", c.state, "err", err)
		var shown []protocol.Command
		payload, shown = e.errorDisplay(ctx, sess)
		cev.Commands = protocol.Kinds(shown)
	case domain.IsTransient(err):
		outcome = domain.OutcomeTransient
		e.rollback(sess, checkpoint)
		e.logger.Warn("transient failure, session rolled back", "session_id", sess.ID, "field_id", ev.FieldID, "state", c.state, "err", err)
	default:
		outcome = domain.OutcomeRejected
		e.rollback(sess, checkpoint)
	}
	e.enter(c, domain.StateIdle)

	cev.Outcome = outcome
	cev.Duration = e.now().Sub(start)
	cev.Err = err
	if e.hooks.OnCycleEnd != nil {
		e.hooks.OnCycleEnd(ctx, cev)
	}
	return payload, err
}

func (e *Engine) rollback(sess *session.Session, cp session.Checkpoint) {
	if err := sess.Rollback(cp); err != nil {
		e.logger.Error("rollback failed", "session_id", sess.ID, "err", err)
	}
}

func (e *Engine) run(c *cycle) (string, error) {
	field, err := c.sess.Field(c.event.FieldID)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	if !accepts(field.Kind(), c.event.Kind) {
		return domain.OutcomeRejected, fmt.Errorf("%w: %s on %s field %q", domain.ErrUnknownEvent, c.event.Kind, field.Kind(), field.FieldID())
	}
	if !field.Visible() || !field.Enabled() {
		// A stale client can still post to a field it was told to hide.
		e.logger.Debug("event on inactive field ignored", "session_id", c.sess.ID, "field_id", field.FieldID())
		e.enter(c, domain.StateRulesEvaluated)
		e.enter(c, domain.StateTreeDiffed)
		e.enter(c, domain.StateCommandsBuilt)
		return domain.OutcomeOK, nil
	}

	switch c.event.Kind {
	case domain.EventChange:
		return e.change(c, field)
	case domain.EventSubmit:
		return e.submit(c)
	default:
		e.enter(c, domain.StateRulesEvaluated)
		e.enter(c, domain.StateTreeDiffed)
		e.enter(c, domain.StateCommandsBuilt)
		return domain.OutcomeOK, nil
	}
}

func accepts(kind domain.FieldKind, ev domain.EventKind) bool {
	switch ev {
	case domain.EventChange:
		return kind == domain.FieldText
	case domain.EventSubmit:
		return kind == domain.FieldSubmit
	case domain.EventCancel:
		return kind == domain.FieldCancel
	}
	return false
}

func (e *Engine) change(c *cycle, field *domain.Field) (string, error) {
	outcome := domain.OutcomeOK

	value, err := SanitizeInput(c.event.Value, e.maxInput)
	switch {
	case err != nil:
		outcome = domain.OutcomeRejected
		field.SetError(domain.KeyInvalidInput)
		e.logger.Warn("input rejected", "session_id", c.sess.ID, "field_id", field.FieldID(), "err", err)
	case field.ApplyInput(value, c.event.Present):
		field.ClearError()
		for _, ev := range c.sess.Form().Propagate(field) {
			e.emitRules(c, ev)
		}
	}
	e.enter(c, domain.StateRulesEvaluated)

	dirty := domain.CollectDirty(c.sess.Root())
	e.enter(c, domain.StateTreeDiffed)

	if err := e.appendRedraws(c, dirty); err != nil {
		return outcome, err
	}
	e.enter(c, domain.StateCommandsBuilt)
	return outcome, nil
}

func (e *Engine) emitRules(c *cycle, ev rules.Evaluation) {
	if e.hooks.OnRuleApplied == nil {
		return
	}
	for _, a := range ev.Applied {
		targets := make([]string, 0, len(a.Rule.Targets()))
		for _, t := range a.Rule.Targets() {
			targets = append(targets, t.FieldID())
		}
		e.hooks.OnRuleApplied(c.ctx, &domain.RuleEvent{
			SessionID: c.sess.ID,
			TriggerID: a.Rule.Trigger().FieldID(),
			Action:    a.Rule.Action(),
			Targets:   targets,
			Pass:      a.Pass,
		})
	}
}

func (e *Engine) submit(c *cycle) (string, error) {
	f := c.sess.Form()
	f.ClearError()
	errs := f.Validate()
	// A repeated failure leaves the annotations unchanged, yet every failed
	// submit redraws the offending fields.
	for _, verr := range errs {
		if field, ok := f.Field(verr.FieldID); ok {
			field.Node().MarkDirty()
		}
	}
	e.enter(c, domain.StateRulesEvaluated)

	dirty := domain.CollectDirty(c.sess.Root())
	e.enter(c, domain.StateTreeDiffed)

	if len(errs) > 0 {
		e.logger.Warn("validation failed", "session_id", c.sess.ID, "form_id", f.ID(), "err", errs)
		if err := e.appendRedraws(c, dirty); err != nil {
			return domain.OutcomeInvalid, err
		}
		e.enter(c, domain.StateCommandsBuilt)
		return domain.OutcomeInvalid, nil
	}

	res, err := e.callHandler(c)
	if err != nil {
		return domain.OutcomeOK, err
	}

	if res.ErrorKey != "" {
		f.SetError(res.ErrorKey, res.ErrorArgs...)
		if err := e.appendRedraws(c, domain.CollectDirty(c.sess.Root())); err != nil {
			return domain.OutcomeInvalid, err
		}
		e.enter(c, domain.StateCommandsBuilt)
		return domain.OutcomeInvalid, nil
	}

	var cmd protocol.Command
	if res.ExternalURL != "" {
		cmd, err = protocol.NewExternalRedirect(res.ExternalURL)
	} else {
		var url string
		url, err = e.resolver.Resolve(c.ctx, res.BusinessPath)
		if err != nil {
			return domain.OutcomeOK, collaboratorError("redirect resolver", err)
		}
		cmd, err = protocol.NewParentRedirect(url)
	}
	if err != nil {
		return domain.OutcomeOK, err
	}
	c.queue = append(c.queue, cmd)
	e.enter(c, domain.StateCommandsBuilt)
	return domain.OutcomeOK, nil
}

// callHandler runs the form's submit handler. A form without one returns to
// its own business path.
func (e *Engine) callHandler(c *cycle) (ports.SubmitResult, error) {
	f := c.sess.Form()
	name := f.Definition().OnSubmit
	if name == "" {
		return ports.SubmitResult{BusinessPath: c.sess.BusinessPath()}, nil
	}
	h, ok := e.handlers.Lookup(name)
	if !ok {
		return ports.SubmitResult{}, &domain.ConfigurationError{
			Component: "form " + f.ID(),
			Reason:    fmt.Sprintf("submit handler %q is not registered", name),
		}
	}
	res, err := h.Submit(c.ctx, ports.SubmitRequest{
		SessionID: c.sess.ID,
		FormID:    f.ID(),
		Locale:    c.sess.Locale,
		Values:    f.Values(),
	})
	if err != nil {
		return ports.SubmitResult{}, collaboratorError("submit handler "+name, err)
	}
	return res, nil
}

// collaboratorError keeps configuration errors as they are and marks
// everything else as transient.
func collaboratorError(name string, err error) error {
	if domain.IsConfiguration(err) || domain.IsTransient(err) {
		return err
	}
	return &domain.TransientError{Collaborator: name, Err: err}
}

// Refresh builds the commands for whatever is dirty in the session tree
// without processing an event. After Login this is the whole-page redraw.
func (e *Engine) Refresh(ctx context.Context, sess *session.Session) ([]byte, error) {
	checkpoint := sess.Checkpoint()
	c := &cycle{ctx: ctx, sess: sess, state: domain.StateIdle}
	err := e.appendRedraws(c, domain.CollectDirty(sess.Root()))
	var payload []byte
	if err == nil {
		payload, err = protocol.Dispatch(c.queue)
	}
	if err != nil {
		e.rollback(sess, checkpoint)
		return nil, err
	}
	return payload, nil
}

// appendRedraws queues PREPARE_CLIENT, the assets the dirty subtrees need
// and one REDRAW_SUBTREE per boundary. Nothing is queued for a clean tree.
func (e *Engine) appendRedraws(c *cycle, dirty []*domain.ComponentNode) error {
	if len(dirty) == 0 {
		return nil
	}
	prep, err := protocol.NewPrepareClient(c.sess.BusinessPath())
	if err != nil {
		return err
	}
	c.queue = append(c.queue, prep)

	if assets := mergeAssets(dirty); !assets.IsZero() {
		cmd, err := protocol.NewResolveAssets(assets)
		if err != nil {
			return err
		}
		c.queue = append(c.queue, cmd)
	}

	for _, n := range dirty {
		cmd, err := e.redraw(c.ctx, c.sess, n)
		if err != nil {
			return err
		}
		c.queue = append(c.queue, cmd)
	}
	return nil
}

func (e *Engine) redraw(ctx context.Context, sess *session.Session, n *domain.ComponentNode) (protocol.Command, error) {
	req := e.renderRequest(sess, n)
	token, err := e.renderer.Render(ctx, req)
	if err != nil {
		return protocol.Command{}, collaboratorError("renderer", err)
	}
	p := protocol.RedrawPayload{NodeID: n.ID, MarkupToken: token, Error: req.Error}
	if fs, ok := req.Fields[n.ID]; ok {
		p.Annotations = map[string]any{"visible": fs.Visible, "enabled": fs.Enabled}
	}
	return protocol.NewRedraw(p)
}

func (e *Engine) renderRequest(sess *session.Session, n *domain.ComponentNode) ports.RenderRequest {
	f := sess.Form()
	req := ports.RenderRequest{
		SessionID: sess.ID,
		FormID:    f.ID(),
		Locale:    sess.Locale,
		Node:      n,
		Fields:    make(map[string]domain.FieldSnapshot),
	}
	n.Walk(func(c *domain.ComponentNode) bool {
		if field, ok := f.Field(c.ID); ok && c.Kind == domain.NodeKindField {
			req.Fields[c.ID] = field.Snapshot()
		}
		return true
	})

	var key string
	var args []string
	switch {
	case n == f.Node():
		key, args = f.Error()
	case n.Kind == domain.NodeKindField:
		if field, ok := f.Field(n.ID); ok {
			key, args = field.Error()
		}
	}
	if key != "" {
		req.Error = e.translator.Translate(sess.Locale, key, args...)
	}
	return req
}

// errorDisplay builds the payload shown after a configuration error: the
// form redrawn with a generic message. It never fails; at worst the client
// receives an empty queue.
func (e *Engine) errorDisplay(ctx context.Context, sess *session.Session) ([]byte, []protocol.Command) {
	node := sess.Form().Node()
	msg := e.translator.Translate(sess.Locale, domain.KeyInternal)

	req := e.renderRequest(sess, node)
	req.Error = msg
	token, err := e.renderer.Render(ctx, req)
	if err != nil {
		e.logger.Warn("error display rendered without markup", "session_id", sess.ID, "err", err)
		token = ""
	}

	prep, err1 := protocol.NewPrepareClient("")
	redraw, err2 := protocol.NewRedraw(protocol.RedrawPayload{NodeID: node.ID, MarkupToken: token, Error: msg})
	if err := errors.Join(err1, err2); err != nil {
		e.logger.Error("error display failed", "session_id", sess.ID, "err", err)
		return []byte("[]"), nil
	}
	queue := []protocol.Command{prep, redraw}
	payload, err := protocol.Dispatch(queue)
	if err != nil {
		return []byte("[]"), nil
	}
	return payload, queue
}

// mergeAssets collects the assets of every dirty subtree, de-duplicated in
// first-seen order.
func mergeAssets(dirty []*domain.ComponentNode) domain.Assets {
	var out domain.Assets
	js := mapset.NewThreadUnsafeSet[string]()
	css := mapset.NewThreadUnsafeSet[string]()
	for _, n := range dirty {
		a := domain.SubtreeAssets(n)
		for _, s := range a.JS {
			if js.Add(s) {
				out.JS = append(out.JS, s)
			}
		}
		for _, s := range a.CSS {
			if css.Add(s) {
				out.CSS = append(out.CSS, s)
			}
		}
	}
	return out
}
