package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/protocol"
)

// ClearValue typed at a prompt sends a null value.
const ClearValue = "-"

// ErrCancelled is returned by Run when the user cancels the form.
var ErrCancelled = errors.New("form cancelled")

// Kernel is what the Filler drives. *formwire.Kernel implements it.
type Kernel interface {
	ports.Kernel
	Definition(formID string) (*form.Definition, error)
}

// Filler walks a terminal user through a form, one field at a time, sending
// the same events a browser would.
type Filler struct {
	kernel Kernel
	in     *bufio.Reader
	out    io.Writer
	style  *termenv.Output
	locale string
}

// NewFiller creates a Filler reading answers from r and writing prompts to w.
func NewFiller(k Kernel, r io.Reader, w io.Writer, locale string) *Filler {
	return &Filler{
		kernel: k,
		in:     bufio.NewReader(r),
		out:    w,
		style:  termenv.NewOutput(w),
		locale: locale,
	}
}

// Run opens a session on formID and prompts until the form is submitted. It
// returns the redirect URL of the successful submit. The session is closed
// on return.
func (f *Filler) Run(ctx context.Context, formID string) (string, error) {
	def, err := f.kernel.Definition(formID)
	if err != nil {
		return "", err
	}
	submitID, cancelID := buttons(def)
	if submitID == "" {
		return "", fmt.Errorf("form %s has no submit button", formID)
	}

	id, _, err := f.kernel.Open(ctx, formID, f.locale)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.kernel.Close(context.WithoutCancel(ctx), id)
	}()

	fmt.Fprintln(f.out, f.style.String(f.tr(def.Title)).Bold())
	f.hint("Enter keeps the current value, %q clears it.", ClearValue)

	for {
		if err := f.fillFields(ctx, id, def); err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrCancelled
			}
			return "", err
		}

		answer, err := f.ask(fmt.Sprintf("%s? [Y]es / [e]dit / [c]ancel", f.tr(label(def, submitID))))
		if err != nil {
			return "", ErrCancelled
		}
		switch strings.ToLower(answer) {
		case "e", "edit":
			continue
		case "c", "cancel":
			if cancelID != "" {
				if _, err := f.kernel.SubmitEvent(ctx, id, cancelID, nil); err != nil {
					return "", err
				}
			}
			return "", ErrCancelled
		}

		url, err := f.send(ctx, id, submitID, nil)
		if err != nil {
			return "", err
		}
		if url != "" {
			return url, nil
		}
	}
}

// fillFields prompts for every visible, enabled input field in definition
// order. The state is re-read after each answer, since rules can show or
// hide the fields that follow.
func (f *Filler) fillFields(ctx context.Context, id string, def *form.Definition) error {
	for _, spec := range def.Fields {
		if spec.Kind != domain.FieldText {
			continue
		}
		snap, err := f.kernel.Snapshot(ctx, id)
		if err != nil {
			return err
		}
		fs, ok := snap.Fields[spec.ID]
		if !ok || !fs.Visible || !fs.Enabled {
			continue
		}

		prompt := f.tr(spec.Label)
		if spec.Mandatory {
			prompt += " *"
		}
		if fs.HasValue && fs.Value != "" {
			prompt += fmt.Sprintf(" [%s]", fs.Value)
		}
		answer, err := f.ask(prompt)
		if err != nil {
			return err
		}

		var value *string
		switch answer {
		case "":
			continue
		case ClearValue:
		default:
			value = &answer
		}
		if _, err := f.send(ctx, id, spec.ID, value); err != nil {
			return err
		}
	}
	return nil
}

// send submits one event and prints what the commands report. It returns
// the target of a redirect command, if any. A transient failure is reported
// and swallowed; the user can simply answer again.
func (f *Filler) send(ctx context.Context, id, fieldID string, value *string) (string, error) {
	payload, err := f.kernel.SubmitEvent(ctx, id, fieldID, value)
	switch {
	case domain.IsTransient(err):
		f.warn(f.tr(domain.KeyRetry))
		return "", nil
	case err != nil:
		return "", err
	}

	var queue []protocol.Command
	if err := json.Unmarshal(payload, &queue); err != nil {
		return "", fmt.Errorf("decode commands: %w", err)
	}
	for _, c := range queue {
		switch {
		case c.Kind().IsRedirect():
			var r protocol.RedirectPayload
			if err := json.Unmarshal(c.Payload(), &r); err != nil {
				return "", err
			}
			return r.URL, nil
		case c.Kind() == protocol.KindRedrawSubtree:
			var r protocol.RedrawPayload
			if err := json.Unmarshal(c.Payload(), &r); err != nil {
				return "", err
			}
			if r.Error != "" {
				f.warn(fmt.Sprintf("%s: %s", r.NodeID, r.Error))
			}
		}
	}
	return "", nil
}

func (f *Filler) ask(prompt string) (string, error) {
	fmt.Fprintf(f.out, "%s %s ", prompt, f.style.String(">").Foreground(f.style.Color("6")))
	text, err := f.in.ReadString('\n')
	if err != nil && (text == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (f *Filler) hint(format string, args ...any) {
	fmt.Fprintln(f.out, f.style.String(fmt.Sprintf(format, args...)).Faint())
}

func (f *Filler) warn(msg string) {
	fmt.Fprintln(f.out, f.style.String("  ! "+msg).Foreground(f.style.Color("3")))
}

func (f *Filler) tr(key string) string {
	return f.kernel.Translate(f.locale, key)
}

func buttons(def *form.Definition) (submit, cancel string) {
	for _, spec := range def.Fields {
		switch spec.Kind {
		case domain.FieldSubmit:
			if submit == "" {
				submit = spec.ID
			}
		case domain.FieldCancel:
			if cancel == "" {
				cancel = spec.ID
			}
		}
	}
	return submit, cancel
}

func label(def *form.Definition, id string) string {
	if spec, ok := def.Field(id); ok && spec.Label != "" {
		return spec.Label
	}
	return id
}
