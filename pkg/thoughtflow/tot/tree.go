package tot

import (
	"fmt"
	"strings"
)

// Node is one branch point in a thought tree. Nodes live in a flat
// arena and address each other by integer id; there are no live
// object references between nodes.
type Node struct {
	// ID is the node's index in the arena.
	ID int
	// Parent is the parent's arena index, -1 for roots.
	Parent int
	// Children are the arena indices of this node's children.
	Children []int
	// Depth is 1 for roots and parent depth + 1 below.
	Depth int
	// Content is the thought text.
	Content string
}

// Tree is the branching structure built during one invocation. It is
// transient: only the distilled result and step trace outlive the run.
// A Tree is owned by a single invocation and is not safe for
// concurrent mutation.
type Tree struct {
	nodes []Node
	roots []int
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// AddRoot appends a depth-1 node and returns its id.
func (t *Tree) AddRoot(content string) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:      id,
		Parent:  -1,
		Depth:   1,
		Content: content,
	})
	t.roots = append(t.roots, id)
	return id
}

// AddChild appends a child under parent and returns its id.
// Panics if parent is not a valid node id.
func (t *Tree) AddChild(parent int, content string) int {
	if parent < 0 || parent >= len(t.nodes) {
		panic(fmt.Sprintf("tot: invalid parent node id %d", parent))
	}
	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:      id,
		Parent:  parent,
		Depth:   t.nodes[parent].Depth + 1,
		Content: content,
	})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id
}

// Node returns the node with the given id.
// Panics if id is not a valid node id.
func (t *Tree) Node(id int) Node {
	if id < 0 || id >= len(t.nodes) {
		panic(fmt.Sprintf("tot: invalid node id %d", id))
	}
	return t.nodes[id]
}

// Roots returns the ids of the depth-1 nodes in creation order.
func (t *Tree) Roots() []int {
	out := make([]int, len(t.roots))
	copy(out, t.roots)
	return out
}

// NodesAtDepth returns the ids of all nodes at the given depth, in
// creation order.
func (t *Tree) NodesAtDepth(depth int) []int {
	var ids []int
	for _, n := range t.nodes {
		if n.Depth == depth {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// TotalNodes returns the number of nodes in the tree.
func (t *Tree) TotalNodes() int {
	return len(t.nodes)
}

// Chain returns the contents along the root-to-node path ending at id.
func (t *Tree) Chain(id int) []string {
	var rev []string
	for cur := id; cur != -1; cur = t.nodes[cur].Parent {
		rev = append(rev, t.nodes[cur].Content)
	}
	out := make([]string, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}

// Path is one complete root-to-leaf reasoning chain.
type Path struct {
	// NodeIDs are the arena indices from root to leaf.
	NodeIDs []int
	// Contents are the thought texts from root to leaf.
	Contents []string
}

// Depth returns the number of nodes on the path.
func (p Path) Depth() int {
	return len(p.NodeIDs)
}

// CombinedLength returns the cumulative content length in characters.
func (p Path) CombinedLength() int {
	total := 0
	for _, c := range p.Contents {
		total += len(c)
	}
	return total
}

// Reasoning renders the path as a numbered narrative.
func (p Path) Reasoning() string {
	var b strings.Builder
	for i, c := range p.Contents {
		fmt.Fprintf(&b, "Step %d: %s\n", i+1, c)
	}
	return strings.TrimRight(b.String(), "\n")
}

// AllPaths materializes every root-to-leaf traversal, in depth-first
// order over creation order, so path enumeration is deterministic for
// a given tree.
func (t *Tree) AllPaths() []Path {
	var paths []Path
	var walk func(id int, trail []int)
	walk = func(id int, trail []int) {
		trail = append(trail, id)
		node := t.nodes[id]
		if len(node.Children) == 0 {
			ids := make([]int, len(trail))
			copy(ids, trail)
			contents := make([]string, len(trail))
			for i, nid := range trail {
				contents[i] = t.nodes[nid].Content
			}
			paths = append(paths, Path{NodeIDs: ids, Contents: contents})
			return
		}
		for _, child := range node.Children {
			walk(child, trail)
		}
	}
	for _, root := range t.roots {
		walk(root, nil)
	}
	return paths
}

// FormatOutline renders the whole tree as an indented outline, one
// line per node.
func (t *Tree) FormatOutline() string {
	var b strings.Builder
	var walk func(id int)
	walk = func(id int) {
		node := t.nodes[id]
		indent := strings.Repeat("  ", node.Depth-1)
		fmt.Fprintf(&b, "%s- %s\n", indent, node.Content)
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, root := range t.roots {
		walk(root)
	}
	return strings.TrimRight(b.String(), "\n")
}
