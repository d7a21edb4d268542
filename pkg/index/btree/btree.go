// Package btree implements the order-5 in-memory B-tree used for
// secondary indexes: string keys (the textual encoding of column
// values) mapping to tuple ids. The tree is rebuilt on index creation
// and is not persisted.
package btree

import (
	"sort"

	"relstore/pkg/primitives"
)

const (
	// maxKeys is the capacity of a node (order 5).
	maxKeys = 4
	// minKeys is the lower bound for non-root nodes.
	minKeys = maxKeys / 2
)

type node struct {
	keys     []string
	values   []primitives.TupleID
	children []*node
	leaf     bool
}

func newNode(leaf bool) *node {
	return &node{
		keys:   make([]string, 0, maxKeys),
		values: make([]primitives.TupleID, 0, maxKeys),
		leaf:   leaf,
	}
}

func (n *node) full() bool {
	return len(n.keys) >= maxKeys
}

// BTree maps stringified column values to tuple ids. Inserting an
// existing key overwrites its value, so an exact lookup always returns
// the most recently inserted id for that key.
type BTree struct {
	root *node
	size int
}

// New creates an empty tree.
func New() *BTree {
	return &BTree{root: newNode(true)}
}

// Len returns the number of distinct keys in the tree.
func (t *BTree) Len() int {
	return t.size
}

// Insert adds a key/tuple-id pair. A key already present has its value
// replaced (last insertion wins).
func (t *BTree) Insert(key string, id primitives.TupleID) {
	if t.root.full() {
		// Grow upward: a new empty internal root adopts the old root as
		// its first child, then the old root splits.
		newRoot := newNode(false)
		newRoot.children = append(newRoot.children, t.root)
		t.root = newRoot
		t.splitChild(newRoot, 0)
	}
	if t.insertNonFull(t.root, key, id) {
		t.size++
	}
}

// insertNonFull descends from a non-full node, splitting full children
// before entering them. Returns true when a new key was added rather
// than an existing one overwritten.
func (t *BTree) insertNonFull(n *node, key string, id primitives.TupleID) bool {
	for {
		i := sort.SearchStrings(n.keys, key)
		if i < len(n.keys) && n.keys[i] == key {
			n.values[i] = id
			return false
		}

		if n.leaf {
			n.keys = append(n.keys, "")
			copy(n.keys[i+1:], n.keys[i:])
			n.keys[i] = key

			n.values = append(n.values, 0)
			copy(n.values[i+1:], n.values[i:])
			n.values[i] = id
			return true
		}

		if n.children[i].full() {
			t.splitChild(n, i)
			// The promoted key now sits at index i; re-aim around it.
			switch {
			case key == n.keys[i]:
				n.values[i] = id
				return false
			case key > n.keys[i]:
				i++
			}
		}
		n = n.children[i]
	}
}

// splitChild splits the full child at index i of parent. The middle
// key/value (index len/2, truncating) is promoted into the parent; keys
// right of the middle move to a new sibling.
func (t *BTree) splitChild(parent *node, i int) {
	child := parent.children[i]
	sibling := newNode(child.leaf)

	mid := len(child.keys) / 2
	midKey := child.keys[mid]
	midValue := child.values[mid]

	sibling.keys = append(sibling.keys, child.keys[mid+1:]...)
	sibling.values = append(sibling.values, child.values[mid+1:]...)
	if !child.leaf {
		sibling.children = append(sibling.children, child.children[mid+1:]...)
		child.children = child.children[:mid+1]
	}
	child.keys = child.keys[:mid]
	child.values = child.values[:mid]

	parent.keys = append(parent.keys, "")
	copy(parent.keys[i+1:], parent.keys[i:])
	parent.keys[i] = midKey

	parent.values = append(parent.values, 0)
	copy(parent.values[i+1:], parent.values[i:])
	parent.values[i] = midValue

	parent.children = append(parent.children, nil)
	copy(parent.children[i+2:], parent.children[i+1:])
	parent.children[i+1] = sibling
}

// Search performs an exact lookup: at each node, find the first key
// greater than or equal to the query; equal returns the associated
// value, otherwise descend into the i-th child.
func (t *BTree) Search(key string) (primitives.TupleID, bool) {
	n := t.root
	for {
		i := sort.SearchStrings(n.keys, key)
		if i < len(n.keys) && n.keys[i] == key {
			return n.values[i], true
		}
		if n.leaf {
			return 0, false
		}
		n = n.children[i]
	}
}

// Range collects the tuple ids of every key in [lo, hi], in key order.
// Present for completeness; no query path uses it yet.
func (t *BTree) Range(lo, hi string) []primitives.TupleID {
	var out []primitives.TupleID
	t.walk(t.root, lo, hi, &out)
	return out
}

func (t *BTree) walk(n *node, lo, hi string, out *[]primitives.TupleID) {
	for i, key := range n.keys {
		if !n.leaf {
			t.walk(n.children[i], lo, hi, out)
		}
		if key >= lo && key <= hi {
			*out = append(*out, n.values[i])
		}
	}
	if !n.leaf {
		t.walk(n.children[len(n.keys)], lo, hi, out)
	}
}

// Depth returns the height of the tree, for tests asserting split
// behavior.
func (t *BTree) Depth() int {
	depth := 1
	for n := t.root; !n.leaf; n = n.children[0] {
		depth++
	}
	return depth
}
