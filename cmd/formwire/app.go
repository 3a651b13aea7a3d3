package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/language"

	"github.com/aretw0/formwire"
	"github.com/aretw0/formwire/internal/config"
	"github.com/aretw0/formwire/internal/logging"
	"github.com/aretw0/formwire/pkg/adapters/i18n"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/adapters/process"
	"github.com/aretw0/formwire/pkg/adapters/redis"
	"github.com/aretw0/formwire/pkg/adapters/routing"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/observability"
	"github.com/aretw0/formwire/pkg/persistence/middleware"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
)

// LogHandler is the submit handler available to every form served by the
// CLI. It logs the submitted values and redirects to the application root.
const LogHandler = "log"

// app bundles what the long-running commands share. ready reports whether
// the session store is reachable.
type app struct {
	logger *slog.Logger
	kernel *formwire.Kernel
	bundle *i18n.Bundle
	ready  func(context.Context) error
	close  func() error
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(os.Stderr, level, logging.Format(cfg.LogFormat)), nil
}

// loadBundle reads the message catalogs. A missing directory leaves the
// bundle empty, so every key translates to itself.
func loadBundle(cfg config.Config) (*i18n.Bundle, error) {
	fallback, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("locale: %w", err)
	}
	bundle := i18n.NewBundle(fallback)
	if cfg.Messages == "" {
		return bundle, nil
	}
	if _, err := os.Stat(cfg.Messages); errors.Is(err, fs.ErrNotExist) {
		return bundle, nil
	}
	if err := bundle.LoadDir(cfg.Messages); err != nil {
		return nil, err
	}
	return bundle, nil
}

// newApp builds a kernel from the configuration. hooks are added to the
// logging hooks every kernel gets.
func newApp(cfg config.Config, hooks ...domain.LifecycleHooks) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := readForms(context.Background(), cfg.Forms)
	if err != nil {
		return nil, fmt.Errorf("load forms: %w", err)
	}
	bundle, err := loadBundle(cfg)
	if err != nil {
		return nil, err
	}
	resolver, err := routing.NewResolver(cfg.Server.BaseURL)
	if err != nil {
		return nil, err
	}

	handlers := registry.NewRegistry()
	handlers.RegisterFunc(LogHandler, func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		logger.Info("form submitted", "session_id", req.SessionID, "form_id", req.FormID, "fields", len(req.Values))
		return ports.SubmitResult{}, nil
	})
	if cfg.Handlers != "" {
		procs, err := process.LoadHandlers(cfg.Handlers)
		if err != nil {
			return nil, err
		}
		process.NewRunner(process.WithRegistry(procs), process.WithBaseDir(filepath.Dir(cfg.Handlers))).Install(handlers)
	}

	a := &app{
		logger: logger,
		bundle: bundle,
		ready:  func(context.Context) error { return nil },
		close:  func() error { return nil },
	}

	opts := []formwire.Option{
		formwire.WithLogger(logger),
		formwire.WithTranslator(bundle),
		formwire.WithResolver(resolver),
		formwire.WithHandlers(handlers),
		formwire.WithMaxInputSize(cfg.Session.MaxInput),
		formwire.WithLockTTL(cfg.Session.LockTTL),
		formwire.WithLifecycleHooks(observability.Combine(append([]domain.LifecycleHooks{observability.LoggingHooks(logger)}, hooks...)...)),
	}

	var store ports.SessionStore = memory.NewStore()
	if cfg.Redis.Addr != "" {
		rs := redis.New(cfg.Redis.Addr, "", 0, redis.WithTTL(cfg.Session.TTL), redis.WithPrefix(cfg.Redis.Prefix))
		store = rs
		a.ready = rs.Ping
		a.close = rs.Close
		opts = append(opts, formwire.WithLocker(redis.NewLocker(rs.Client(), cfg.Redis.Prefix)))
		logger.Info("sessions stored in redis", "addr", cfg.Redis.Addr)
	}

	var mws []middleware.Middleware
	if len(cfg.Session.MaskFields) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Session.MaskFields)
		if err != nil {
			return nil, fmt.Errorf("session.mask_fields: %w", err)
		}
		mws = append(mws, pii)
	}
	if cfg.Session.KeyFile != "" {
		key, err := config.ReadKey(cfg.Session.KeyFile)
		if err != nil {
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	opts = append(opts, formwire.WithStore(middleware.Chain(store, mws...)))

	a.kernel, err = formwire.New(loader, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}
