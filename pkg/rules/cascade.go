package rules

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aretw0/formwire/pkg/domain"
)

// Edge is a trigger-to-target dependency contributed by one rule.
type Edge struct {
	From string
	To   string
}

// edges returns the dependency graph in registration order, de-duplicated.
func edges(rules []*domain.DependencyRule) []Edge {
	seen := mapset.NewThreadUnsafeSet[Edge]()
	var out []Edge
	for _, r := range rules {
		for _, t := range r.Targets() {
			e := Edge{From: r.Trigger().FieldID(), To: t.FieldID()}
			if seen.Add(e) {
				out = append(out, e)
			}
		}
	}
	return out
}

// checkCascade rejects dependency cycles and trigger chains longer than
// domain.MaxCascadeDepth rules.
func checkCascade(rules []*domain.DependencyRule) error {
	adj := make(map[string][]string)
	var order []string
	for _, e := range edges(rules) {
		if _, ok := adj[e.From]; !ok {
			order = append(order, e.From)
		}
		adj[e.From] = append(adj[e.From], e.To)
	}

	depth := make(map[string]int)
	visiting := mapset.NewThreadUnsafeSet[string]()

	var longest func(id string, path []string) (int, error)
	longest = func(id string, path []string) (int, error) {
		if d, ok := depth[id]; ok {
			return d, nil
		}
		if !visiting.Add(id) {
			return 0, &domain.ConfigurationError{
				Component: "ruleset",
				Reason:    fmt.Sprintf("dependency cycle %s", strings.Join(append(path, id), " -> ")),
			}
		}
		best := 0
		for _, next := range adj[id] {
			d, err := longest(next, append(path, id))
			if err != nil {
				return 0, err
			}
			if d+1 > best {
				best = d + 1
			}
		}
		visiting.Remove(id)
		depth[id] = best
		return best, nil
	}

	for _, id := range order {
		d, err := longest(id, nil)
		if err != nil {
			return err
		}
		if d > domain.MaxCascadeDepth {
			return &domain.ConfigurationError{
				Component: "ruleset",
				Reason:    fmt.Sprintf("trigger %q starts a cascade of depth %d, at most %d allowed", id, d, domain.MaxCascadeDepth),
			}
		}
	}
	return nil
}
