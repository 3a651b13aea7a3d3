package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// Overlay contains session state to visualize on the graph.
type Overlay struct {
	Hidden   []string
	Disabled []string
	Errors   []string
}

// OverlayFromSnapshot builds an overlay from a persisted form state.
func OverlayFromSnapshot(s domain.FormSnapshot) *Overlay {
	o := &Overlay{}
	for id, f := range s.Fields {
		if !f.Visible {
			o.Hidden = append(o.Hidden, id)
		}
		if !f.Enabled {
			o.Disabled = append(o.Disabled, id)
		}
		if f.ErrorKey != "" {
			o.Errors = append(o.Errors, id)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the form's rule graph.
// Fields are shaped by kind:
// - Text: [Rectangle]
// - Static: [/Parallelogram/]
// - Submit/Cancel: ([Stadium])
// Each rule contributes one edge per target, labelled with its match and
// action. Fields that start hidden or disabled are drawn dashed.
func GenerateMermaid(def *form.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var initial []string
	for _, f := range def.Fields {
		safeID := sanitizeMermaidID(f.ID)

		opener, closer := "[", "]"
		switch f.Kind {
		case domain.FieldStatic:
			opener, closer = "[/", "/]"
		case domain.FieldSubmit, domain.FieldCancel:
			opener, closer = "([", "])"
		}

		label := f.ID
		if f.Mandatory {
			label += " *"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
		if f.Hidden || f.Disabled {
			initial = append(initial, safeID)
		}
	}

	for _, r := range def.Rules {
		from := sanitizeMermaidID(r.Trigger)
		edge := strings.ReplaceAll(ruleLabel(r), "\"", "'")
		for _, t := range r.Targets {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, edge, sanitizeMermaidID(t))
		}
	}

	if len(initial) > 0 {
		sb.WriteString("    classDef initial stroke-dasharray: 5 5;\n")
		for _, id := range initial {
			fmt.Fprintf(&sb, "    class %s initial;\n", id)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef hidden fill:#eeeeee,stroke:#9e9e9e,color:#000;\n")
		sb.WriteString("    classDef disabled fill:#fff3e0,stroke:#ef6c00,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		writeClass(&sb, "hidden", overlay.Hidden)
		writeClass(&sb, "disabled", overlay.Disabled)
		writeClass(&sb, "error", overlay.Errors)
	}

	return sb.String()
}

func ruleLabel(r form.RuleSpec) string {
	switch domain.MatchKind(r.Match) {
	case domain.MatchRegex:
		if r.Pattern == nil {
			return "null: " + r.Action
		}
		return "/" + *r.Pattern + "/: " + r.Action
	case domain.MatchLiteral:
		return "= " + r.Literal + ": " + r.Action
	}
	return r.Match + ": " + r.Action
}

func writeClass(sb *strings.Builder, class string, ids []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
