package protocol

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/formwire/pkg/domain"
)

var rank = map[Kind]int{
	KindPrepareClient: 0,
	KindResolveAssets: 1,
	KindRedrawSubtree: 2,
}

// Order returns the queue in dispatch order. A redirect ends the response:
// if the queue holds one, the result is exactly the first redirect. Otherwise
// PREPARE_CLIENT precedes RESOLVE_ASSET_DEPENDENCIES, which precedes
// REDRAW_SUBTREE, keeping construction order within a kind.
func Order(queue []Command) []Command {
	for _, c := range queue {
		if c.kind.IsRedirect() {
			return []Command{c}
		}
	}
	out := make([]Command, len(queue))
	copy(out, queue)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].kind] < rank[out[j].kind]
	})
	return out
}

// Dispatch orders and serializes the queue into one response payload, a JSON
// array. An empty queue yields "[]".
func Dispatch(queue []Command) ([]byte, error) {
	for i, c := range queue {
		if c.IsZero() {
			return nil, &domain.ConfigurationError{
				Component: "dispatcher",
				Reason:    fmt.Sprintf("command %d was not built by a factory", i),
			}
		}
		if _, ok := rank[c.kind]; !ok && !c.kind.IsRedirect() {
			return nil, &domain.ConfigurationError{
				Component: "dispatcher",
				Reason:    fmt.Sprintf("command %d has unknown kind %q", i, c.kind),
			}
		}
	}
	ordered := Order(queue)
	if len(ordered) == 0 {
		return []byte("[]"), nil
	}
	out, err := json.Marshal(ordered)
	if err != nil {
		return nil, &domain.ConfigurationError{Component: "dispatcher", Reason: "serialize queue", Err: err}
	}
	return out, nil
}

// Kinds lists the kinds of an ordered queue, for logs and metrics.
func Kinds(queue []Command) []string {
	out := make([]string, len(queue))
	for i, c := range queue {
		out[i] = string(c.kind)
	}
	return out
}
