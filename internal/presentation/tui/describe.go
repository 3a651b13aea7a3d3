package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/formwire/pkg/form"
	"github.com/aretw0/formwire/pkg/ports"
)

// Describe summarises a form definition as markdown. Message keys are
// resolved through tr for the given locale; tr may be nil.
func Describe(def *form.Definition, tr ports.Translator, locale string) string {
	t := func(key string) string {
		if key == "" || tr == nil {
			return key
		}
		return tr.Translate(locale, key)
	}

	var sb strings.Builder
	title := def.ID
	if def.Title != "" {
		title = t(def.Title)
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if def.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", t(def.Description))
	}
	fmt.Fprintf(&sb, "- **ID:** `%s`\n", def.ID)
	if def.BusinessPath != "" {
		fmt.Fprintf(&sb, "- **Business path:** `%s`\n", def.BusinessPath)
	}
	if def.OnSubmit != "" {
		fmt.Fprintf(&sb, "- **Submit handler:** `%s`\n", def.OnSubmit)
	}
	if assets := append(append([]string(nil), def.Assets.JS...), def.Assets.CSS...); len(assets) > 0 {
		fmt.Fprintf(&sb, "- **Assets:** %s\n", strings.Join(assets, ", "))
	}

	sb.WriteString("\n## Fields\n\n")
	sb.WriteString("| ID | Kind | Label | Constraints |\n")
	sb.WriteString("|----|------|-------|-------------|\n")
	for _, f := range def.Fields {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", f.ID, f.Kind, escapeCell(t(f.Label)), escapeCell(constraints(f)))
	}

	if len(def.Rules) > 0 {
		sb.WriteString("\n## Rules\n\n")
		for _, r := range def.Rules {
			fmt.Fprintf(&sb, "- when `%s` %s: **%s** %s\n", r.Trigger, matchText(r), r.Action, codeList(r.Targets))
		}
	}
	return sb.String()
}

func constraints(f form.FieldSpec) string {
	var c []string
	if f.Mandatory {
		c = append(c, "mandatory")
	}
	if f.MaxLength > 0 {
		c = append(c, fmt.Sprintf("max %d", f.MaxLength))
	}
	if f.Regex != nil {
		c = append(c, "matches `"+f.Regex.Pattern+"`")
	}
	if f.Normalize != "" {
		c = append(c, "normalize "+f.Normalize)
	}
	if f.Hidden {
		c = append(c, "hidden")
	}
	if f.Disabled {
		c = append(c, "disabled")
	}
	return strings.Join(c, ", ")
}

func matchText(r form.RuleSpec) string {
	switch r.Match {
	case "regex":
		if r.Pattern == nil {
			return "is null"
		}
		return "matches `" + *r.Pattern + "`"
	case "literal":
		return fmt.Sprintf("is %q", r.Literal)
	case "empty":
		return "is empty"
	}
	return r.Match
}

func codeList(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "`" + id + "`"
	}
	return strings.Join(out, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
