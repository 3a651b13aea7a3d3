package domain

import mapset "github.com/deckarep/golang-set/v2"

// CollectDirty returns the redraw boundaries of the tree rooted at root and
// clears their marks.
//
// Nodes are visited in pre-order. The first dirty node on a path is reported
// and its subtree is not descended into: redrawing an ancestor replaces the
// markup of every descendant. A dirty root therefore yields a single
// whole-page entry. Marks are cleared on everything the walk covers, so a node
// dirtied several times between two collections is reported once, and a
// second call without intervening mutation returns an empty slice.
func CollectDirty(root *ComponentNode) []*ComponentNode {
	out := make([]*ComponentNode, 0)
	if root == nil {
		return out
	}
	collect(root, &out)
	return out
}

func collect(n *ComponentNode, out *[]*ComponentNode) {
	switch {
	case n.dirty:
		*out = append(*out, n)
		n.clearSubtree()
	case n.dirtyBelow:
		n.dirtyBelow = false
		for _, c := range n.children {
			collect(c, out)
		}
	}
}

// SubtreeAssets returns the assets declared in the subtree rooted at n,
// de-duplicated in first-seen pre-order.
func SubtreeAssets(n *ComponentNode) Assets {
	var out Assets
	seenJS := mapset.NewThreadUnsafeSet[string]()
	seenCSS := mapset.NewThreadUnsafeSet[string]()
	n.Walk(func(c *ComponentNode) bool {
		for _, js := range c.Assets.JS {
			if seenJS.Add(js) {
				out.JS = append(out.JS, js)
			}
		}
		for _, css := range c.Assets.CSS {
			if seenCSS.Add(css) {
				out.CSS = append(out.CSS, css)
			}
		}
		return true
	})
	return out
}

type mark struct {
	dirty, below bool
}

// Marks is a saved copy of the dirty marks of a tree.
type Marks map[*ComponentNode]mark

// SaveMarks records the marks of every node in the tree rooted at root.
func SaveMarks(root *ComponentNode) Marks {
	m := make(Marks)
	if root == nil {
		return m
	}
	root.Walk(func(n *ComponentNode) bool {
		m[n] = mark{dirty: n.dirty, below: n.dirtyBelow}
		return true
	})
	return m
}

// Restore puts the saved marks back. Nodes added after the save keep theirs.
func (m Marks) Restore() {
	for n, mk := range m {
		n.dirty = mk.dirty
		n.dirtyBelow = mk.below
	}
}
