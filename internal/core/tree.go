package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Tree is the composed structure of expected calls a test body must satisfy.
// Nodes live in an arena and refer to each other by index. A well-formed tree
// is a single chain: root, any number of sequence and group nodes, terminus.
type Tree struct {
	nodes            []node
	root             nodeID
	terminus         nodeID
	ignoreOtherCalls bool

	// merged points at the tree this one was combined into. Once set, this
	// tree's own nodes are dead and every operation goes through resolve.
	merged *Tree
}

// NewTree creates a tree holding a single sequence node for call.
func NewTree(call *ExpectedCall) *Tree {
	tree := newEmptyTree()
	tree.then(&Tree{
		nodes: []node{
			{kind: rootNode, parent: noNode, child: 1},
			{kind: sequenceNode, parent: 0, child: 2, calls: []*ExpectedCall{call}},
			{kind: terminusNode, parent: 1, child: noNode},
		},
		root:     0,
		terminus: 2,
	})

	return tree
}

// Calls returns every expected call in the tree, in chain order.
func (t *Tree) Calls() []*ExpectedCall {
	t = t.resolve()

	return t.callsAfter(t.root)
}

// IgnoresOtherCalls reports whether unmatched calls are silently accepted.
func (t *Tree) IgnoresOtherCalls() bool {
	return t.resolve().ignoreOtherCalls
}

// String renders the chain, e.g. "{ ROOT [{ f [{ AND {{ g, h }} [{ TERMINUS }] }] }] }".
func (t *Tree) String() string {
	t = t.resolve()

	return t.render(t.root)
}

// and merges other into this tree as an unordered group: the tail of this
// tree and the head of other may be satisfied in any relative order.
func (t *Tree) and(other *Tree) {
	t = t.resolve()
	other = other.resolve()

	if t == other {
		return
	}

	last := t.lastNode()
	head := other.nodes[other.root].child

	switch t.nodes[last].kind {
	case rootNode:
		t.then(other)

		return
	case sequenceNode:
		t.nodes[last].kind = groupNode
	case groupNode:
	case terminusNode:
		panic("tree: last node can not be the terminus")
	}

	rest := head

	switch other.nodes[head].kind {
	case sequenceNode, groupNode:
		t.nodes[last].calls = append(t.nodes[last].calls, other.nodes[head].calls...)
		rest = other.nodes[head].child
	case terminusNode:
	case rootNode:
		panic("tree: root can not follow root")
	}

	t.importChain(other, rest, last)
	t.absorb(other)
}

// absorb finishes a merge: other forwards to t from now on.
func (t *Tree) absorb(other *Tree) {
	t.ignoreOtherCalls = t.ignoreOtherCalls || other.ignoreOtherCalls
	other.merged = t
	other.nodes = nil
}

// callsAfter returns the calls of every node following id.
func (t *Tree) callsAfter(id nodeID) []*ExpectedCall {
	var calls []*ExpectedCall

	for next := t.nodes[id].child; next != noNode; next = t.nodes[next].child {
		calls = append(calls, t.nodes[next].calls...)
	}

	return calls
}

// importChain copies other's chain starting at from onto parent, replacing
// everything that used to follow parent. The copied terminus becomes this
// tree's terminus.
func (t *Tree) importChain(other *Tree, from, parent nodeID) {
	prev := parent

	for id := from; id != noNode; id = other.nodes[id].child {
		src := other.nodes[id]
		newID := nodeID(len(t.nodes))

		t.nodes = append(t.nodes, node{
			kind:   src.kind,
			parent: prev,
			child:  noNode,
			calls:  slices.Clone(src.calls),
		})
		t.nodes[prev].child = newID

		if src.kind == terminusNode {
			t.terminus = newID
		}

		prev = newID
	}
}

// lastNode returns the last node before the terminus (the root for an empty tree).
func (t *Tree) lastNode() nodeID {
	return t.nodes[t.terminus].parent
}

func (t *Tree) render(id nodeID) string {
	current := t.nodes[id]
	result := "{ " + current.name()

	if current.child != noNode {
		result += " [" + t.render(current.child) + "]"
	}

	return result + " }"
}

// resolve follows merges to the tree that currently owns the structure.
func (t *Tree) resolve() *Tree {
	for t.merged != nil {
		t = t.merged
	}

	return t
}

// then appends other's chain after this tree's tail, so everything in other
// must happen after everything already in this tree.
func (t *Tree) then(other *Tree) {
	t = t.resolve()
	other = other.resolve()

	if t == other {
		return
	}

	t.importChain(other, other.nodes[other.root].child, t.lastNode())
	t.absorb(other)
}

// wellFormed checks the chain invariant: exactly one root, one terminus,
// consistent parent links, and only sequence/group nodes in between.
func (t *Tree) wellFormed() error {
	t = t.resolve()

	if t.nodes[t.root].kind != rootNode || t.nodes[t.root].parent != noNode {
		return errMalformedTree
	}

	prev := t.root

	for id := t.nodes[t.root].child; ; id = t.nodes[id].child {
		if id == noNode {
			return fmt.Errorf("%w: chain ends without a terminus", errMalformedTree)
		}

		if t.nodes[id].parent != prev {
			return fmt.Errorf("%w: node %d has parent %d, want %d", errMalformedTree, id, t.nodes[id].parent, prev)
		}

		switch t.nodes[id].kind {
		case terminusNode:
			if id != t.terminus || t.nodes[id].child != noNode {
				return fmt.Errorf("%w: stray terminus %d", errMalformedTree, id)
			}

			return nil
		case sequenceNode:
			if len(t.nodes[id].calls) != 1 {
				return fmt.Errorf("%w: sequence node %d holds %d calls", errMalformedTree, id, len(t.nodes[id].calls))
			}
		case groupNode:
			if len(t.nodes[id].calls) == 0 {
				return fmt.Errorf("%w: empty group node %d", errMalformedTree, id)
			}
		case rootNode:
			return fmt.Errorf("%w: second root %d", errMalformedTree, id)
		}

		prev = id
	}
}

type node struct {
	kind   nodeKind
	parent nodeID
	child  nodeID
	// calls holds one call for a sequence node and the members of a group node.
	calls []*ExpectedCall
}

func (n node) name() string {
	switch n.kind {
	case rootNode:
		return "ROOT"
	case terminusNode:
		return "TERMINUS"
	case sequenceNode:
		return n.calls[0].Name()
	case groupNode:
		names := make([]string, len(n.calls))
		for i, call := range n.calls {
			names[i] = call.Name()
		}

		return "AND {{ " + strings.Join(names, ", ") + " }}"
	default:
		panic(fmt.Sprintf("tree: unknown node kind %d", n.kind))
	}
}

type nodeID int

type nodeKind int

const (
	rootNode nodeKind = iota
	terminusNode
	sequenceNode
	groupNode
)

const noNode nodeID = -1

var errMalformedTree = errors.New("malformed expectation tree")

func newEmptyTree() *Tree {
	return &Tree{
		nodes: []node{
			{kind: rootNode, parent: noNode, child: 1},
			{kind: terminusNode, parent: 0, child: noNode},
		},
		root:     0,
		terminus: 1,
	}
}
