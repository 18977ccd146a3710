package dataType

import "fmt"

type nodeHandle int32

const (
	noNode     nodeHandle = -1
	rootHandle nodeHandle = 0
)

type nodeKind uint8

const (
	nodeFree nodeKind = iota
	nodeInternal
	nodeLeaf
)

type trieNode struct {
	kind     nodeKind
	parent   nodeHandle
	children [2]nodeHandle
}

func (n *trieNode) reset(kind nodeKind) {
	n.kind = kind
	n.parent = noNode
	n.children = [2]nodeHandle{noNode, noNode}
}

// nodeArena hands out trie nodes by handle. Released slots are kept on a
// free stack and reused before the slice grows.
type nodeArena struct {
	nodes     []trieNode
	free      []nodeHandle
	used      int
	maxNodes  int
	destroyed bool
}

func newNodeArena(maxNodes int) *nodeArena {
	return &nodeArena{maxNodes: maxNodes}
}

func (a *nodeArena) acquire() (nodeHandle, error) {
	a.mustBeAlive()
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.nodes[h].reset(nodeInternal)
		a.used++
		return h, nil
	}
	if a.maxNodes > 0 && len(a.nodes) >= a.maxNodes {
		return noNode, fmt.Errorf("%w: limit %d reached", ErrOutOfMemory, a.maxNodes)
	}
	h := nodeHandle(len(a.nodes))
	a.nodes = append(a.nodes, trieNode{})
	a.nodes[h].reset(nodeInternal)
	a.used++
	return h, nil
}

func (a *nodeArena) release(h nodeHandle) {
	a.mustBeAlive()
	if h == rootHandle {
		panic("dataType: root node can not be released")
	}
	if a.nodes[h].kind == nodeFree {
		panic(fmt.Sprintf("dataType: node %d released twice", h))
	}
	a.nodes[h].reset(nodeFree)
	a.free = append(a.free, h)
	a.used--
}

// compact drops every free slot. Live nodes are moved down so the slice
// holds exactly the used nodes; the root keeps handle 0.
func (a *nodeArena) compact() {
	a.mustBeAlive()
	if len(a.free) == 0 {
		return
	}
	remap := make([]nodeHandle, len(a.nodes))
	next := nodeHandle(0)
	for i := range a.nodes {
		if a.nodes[i].kind == nodeFree {
			remap[i] = noNode
			continue
		}
		remap[i] = next
		next++
	}

	moved := make([]trieNode, 0, int(next))
	for i := range a.nodes {
		n := a.nodes[i]
		if n.kind == nodeFree {
			continue
		}
		if n.parent != noNode {
			n.parent = remap[n.parent]
		}
		for c := range n.children {
			if n.children[c] != noNode {
				n.children[c] = remap[n.children[c]]
			}
		}
		moved = append(moved, n)
	}
	a.nodes = moved
	a.free = nil
}

func (a *nodeArena) destroy() {
	a.nodes = nil
	a.free = nil
	a.used = 0
	a.destroyed = true
}

func (a *nodeArena) mustBeAlive() {
	if a.destroyed {
		panic("dataType: use of destroyed node arena")
	}
}

func (a *nodeArena) Used() int {
	return a.used
}

func (a *nodeArena) Free() int {
	return len(a.free)
}
