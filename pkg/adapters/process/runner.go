package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
)

// EnvPrefix starts the name of every variable the runner sets.
const EnvPrefix = "FORMWIRE_"

var nonWord = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Runner executes allow-listed local commands as submit handlers. The
// submitted values are passed as environment variables, never as arguments,
// so user input cannot inject flags.
type Runner struct {
	registry map[string]HandlerConfig
	baseDir  string
	timeout  time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(handlers map[string]HandlerConfig) RunnerOption {
	return func(r *Runner) {
		for _, h := range handlers {
			r.registry[h.Name] = h
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds each execution.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]HandlerConfig),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.registry[name] = HandlerConfig{Name: name, Command: command, Args: args}
}

// Names returns the allow-listed handler names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for n := range r.registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Install registers every allow-listed command with reg.
func (r *Runner) Install(reg *registry.Registry) {
	for _, name := range r.Names() {
		reg.Register(name, r.Handler(name))
	}
}

// Handler returns the submit handler running the named command.
func (r *Runner) Handler(name string) ports.SubmitHandler {
	return ports.SubmitHandlerFunc(func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		return r.Execute(ctx, name, req)
	})
}

// output is what a handler may print on stdout. Plain text is read as a
// business path.
type output struct {
	BusinessPath string   `json:"business_path"`
	ExternalURL  string   `json:"external_url"`
	ErrorKey     string   `json:"error_key"`
	ErrorArgs    []string `json:"error_args"`
}

// Execute runs the named command for one submit. A command that cannot be
// started, fails or times out returns an error.
func (r *Runner) Execute(ctx context.Context, name string, req ports.SubmitRequest) (ports.SubmitResult, error) {
	proc, ok := r.registry[name]
	if !ok {
		return ports.SubmitResult{}, fmt.Errorf("process handler not registered: %s", name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), Environment(proc, req)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ports.SubmitResult{}, fmt.Errorf("handler %s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return parseOutput(stdout.String())
}

// Environment returns the variables describing req, plus the handler's own.
func Environment(proc HandlerConfig, req ports.SubmitRequest) []string {
	env := []string{
		EnvPrefix + "SESSION_ID=" + req.SessionID,
		EnvPrefix + "FORM_ID=" + req.FormID,
		EnvPrefix + "LOCALE=" + req.Locale,
	}
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	ids := make([]string, 0, len(req.Values))
	for id := range req.Values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		env = append(env, fmt.Sprintf("%sFIELD_%s=%s", EnvPrefix, envName(id), req.Values[id]))
	}
	return env
}

// envName upper-cases id and replaces runs of other characters with "_".
func envName(id string) string {
	return strings.ToUpper(nonWord.ReplaceAllString(id, "_"))
}

func parseOutput(raw string) (ports.SubmitResult, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return ports.SubmitResult{BusinessPath: trimmed}, nil
	}
	var out output
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return ports.SubmitResult{}, fmt.Errorf("handler output is not valid JSON: %w", err)
	}
	return ports.SubmitResult{
		BusinessPath: out.BusinessPath,
		ExternalURL:  out.ExternalURL,
		ErrorKey:     out.ErrorKey,
		ErrorArgs:    out.ErrorArgs,
	}, nil
}
