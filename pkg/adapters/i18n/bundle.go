package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/formwire/pkg/ports"
)

// Bundle resolves message keys from per-language catalogs. A locale is
// matched to the closest catalog; a key missing there falls back to the
// default language and finally to the key itself.
type Bundle struct {
	mu       sync.RWMutex
	fallback language.Tag
	tags     []language.Tag
	catalogs map[language.Tag]map[string]string
	matcher  language.Matcher
}

var _ ports.Translator = (*Bundle)(nil)

// NewBundle creates an empty bundle falling back to the given language.
func NewBundle(fallback language.Tag) *Bundle {
	return &Bundle{
		fallback: fallback,
		catalogs: make(map[language.Tag]map[string]string),
	}
}

// Add merges messages into the catalog of tag.
func (b *Bundle) Add(tag language.Tag, messages map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	catalog, ok := b.catalogs[tag]
	if !ok {
		catalog = make(map[string]string, len(messages))
		b.catalogs[tag] = catalog
		b.tags = append(b.tags, tag)
		b.matcher = nil
	}
	for k, v := range messages {
		catalog[k] = v
	}
}

// LoadDir reads every <lang>.yaml (or .yml) file of dir. Nested maps are
// flattened into dotted keys.
func (b *Bundle) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read messages: %w", err)
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		tag, err := language.Parse(name)
		if err != nil {
			return fmt.Errorf("messages %s: %w", e.Name(), err)
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read messages: %w", err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("parse messages %s: %w", e.Name(), err)
		}
		messages := make(map[string]string)
		flatten("", tree, messages)
		b.Add(tag, messages)
	}
	return nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Languages returns the loaded catalog languages, sorted.
func (b *Bundle) Languages() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.tags))
	for i, t := range b.tags {
		out[i] = t.String()
	}
	sort.Strings(out)
	return out
}

func (b *Bundle) match(locale string) language.Tag {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tags) == 0 {
		return b.fallback
	}
	if b.matcher == nil {
		b.matcher = language.NewMatcher(b.tags)
	}
	desired, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(desired) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(desired...)
	if conf == language.No {
		return b.fallback
	}
	return b.tags[idx]
}

// Translate resolves key for locale and substitutes {0}, {1}, ... with args.
func (b *Bundle) Translate(locale, key string, args ...string) string {
	tag := b.match(locale)

	b.mu.RLock()
	msg, ok := b.catalogs[tag][key]
	if !ok {
		msg, ok = b.catalogs[b.fallback][key]
	}
	b.mu.RUnlock()
	if !ok {
		msg = key
	}

	for i, a := range args {
		msg = strings.ReplaceAll(msg, "{"+strconv.Itoa(i)+"}", a)
	}
	return msg
}
