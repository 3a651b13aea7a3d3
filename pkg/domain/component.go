package domain

// Node kinds used by the form layer. The kernel itself only distinguishes
// nodes by identity; kinds are carried for renderers and diagnostics.
const (
	NodeKindPage      = "page"
	NodeKindForm      = "form"
	NodeKindField     = "field"
	NodeKindContainer = "container"
)

// Assets lists the client-side resources a component needs once its markup is on the page.
type Assets struct {
	JS  []string `json:"js,omitempty" yaml:"js,omitempty" mapstructure:"js"`
	CSS []string `json:"css,omitempty" yaml:"css,omitempty" mapstructure:"css"`
}

// IsZero reports whether no asset is declared.
func (a Assets) IsZero() bool {
	return len(a.JS) == 0 && len(a.CSS) == 0
}

// ComponentNode is a node in a per-session UI tree.
//
// A node carries two marks: dirty (its own markup is stale) and dirtyBelow
// (some descendant is stale). Marking a node dirty sets dirtyBelow on every
// ancestor, so IsDirty holds for the whole path up to the root and a
// collection pass can find the minimal redraw boundaries without visiting
// clean subtrees.
type ComponentNode struct {
	ID     string
	Kind   string
	Assets Assets

	dirty      bool
	dirtyBelow bool
	children   []*ComponentNode
	parent     *ComponentNode
}

// NewComponentNode creates a detached node. New nodes have never been sent to
// a client, so they start dirty.
func NewComponentNode(id, kind string) *ComponentNode {
	return &ComponentNode{
		ID:    id,
		Kind:  kind,
		dirty: true,
	}
}

// Add appends children in rendering order. A child attached elsewhere is
// moved. The receiver becomes dirty because its markup now lacks the children.
func (n *ComponentNode) Add(children ...*ComponentNode) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.detach(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
	n.MarkDirty()
}

func (n *ComponentNode) detach(child *ComponentNode) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			n.MarkDirty()
			return
		}
	}
}

// MarkDirty flags the node for redraw and propagates the mark to every ancestor.
func (n *ComponentNode) MarkDirty() {
	n.dirty = true
	for p := n.parent; p != nil; p = p.parent {
		p.dirtyBelow = true
	}
}

// IsDirty reports whether the node or any of its descendants is stale.
func (n *ComponentNode) IsDirty() bool {
	return n.dirty || n.dirtyBelow
}

// NeedsRedraw reports whether the node's own markup is stale.
func (n *ComponentNode) NeedsRedraw() bool {
	return n.dirty
}

// Parent returns the enclosing node, or nil for a root.
func (n *ComponentNode) Parent() *ComponentNode {
	return n.parent
}

// Children returns the children in rendering order. The slice must not be modified.
func (n *ComponentNode) Children() []*ComponentNode {
	return n.children
}

// Root walks the parent chain up to the tree root.
func (n *ComponentNode) Root() *ComponentNode {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Find returns the node with the given id in the subtree, pre-order.
func (n *ComponentNode) Find(id string) *ComponentNode {
	if n.ID == id {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits the subtree in pre-order until fn returns false.
func (n *ComponentNode) Walk(fn func(*ComponentNode) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

func (n *ComponentNode) clearSubtree() {
	n.Walk(func(c *ComponentNode) bool {
		c.dirty = false
		c.dirtyBelow = false
		return true
	})
}
