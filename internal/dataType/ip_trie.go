package dataType

import "fmt"

// RadixTree is a binary trie over the IPv4 address space. A leaf marks its
// whole subtree as covered, and two sibling leaves are always merged into
// their parent, so every covered range sits at the coarsest depth possible.
//
// A RadixTree is not safe for concurrent use.
type RadixTree struct {
	arena *nodeArena
}

// NewRadixTree returns an empty tree. maxNodes caps the number of node slots
// (root included); zero means no limit.
func NewRadixTree(maxNodes int) *RadixTree {
	t := &RadixTree{arena: newNodeArena(maxNodes)}
	// the first slot always fits, whatever the limit
	if h, err := t.arena.acquire(); err != nil || h != rootHandle {
		panic(fmt.Sprintf("dataType: root node got handle %d: %v", h, err))
	}
	return t
}

func (t *RadixTree) node(h nodeHandle) *trieNode {
	return &t.arena.nodes[h]
}

func (t *RadixTree) isLeaf(h nodeHandle) bool {
	return t.arena.nodes[h].kind == nodeLeaf
}

func (t *RadixTree) makeLeaf(h nodeHandle) {
	n := t.node(h)
	n.kind = nodeLeaf
	n.children = [2]nodeHandle{noNode, noNode}
}

func (t *RadixTree) sibling(h nodeHandle) nodeHandle {
	p := t.node(h).parent
	if p == noNode {
		return noNode
	}
	pn := t.node(p)
	if pn.children[0] == h {
		return pn.children[1]
	}
	return pn.children[0]
}

// Insert adds the prefix addr/mask. Only the leading ones of mask are
// significant. An ErrOutOfMemory leaves the tree valid but the prefix may be
// only partly inserted.
func (t *RadixTree) Insert(addr, mask uint32) error {
	t.arena.mustBeAlive()
	cur := rootHandle
	if t.isLeaf(cur) {
		return nil
	}

	extended := false
	for m := uint32(1) << 31; m&mask != 0; m >>= 1 {
		bit := 0
		if addr&m != 0 {
			bit = 1
		}
		next := t.node(cur).children[bit]
		if next == noNode {
			h, err := t.arena.acquire()
			if err != nil {
				return err
			}
			t.node(h).parent = cur
			t.node(cur).children[bit] = h
			extended = true
			next = h
		} else if t.isLeaf(next) {
			return nil
		}
		cur = next
	}

	if !extended {
		// an existing internal node sits at the target depth: the shorter
		// prefix now covers everything below it
		t.pruneDown(cur)
	}
	t.pruneUp(cur)
	return nil
}

// pruneDown releases every descendant of h.
func (t *RadixTree) pruneDown(h nodeHandle) {
	work := make([]nodeHandle, 0, 64)
	for _, c := range t.node(h).children {
		if c != noNode {
			work = append(work, c)
		}
	}
	t.node(h).children = [2]nodeHandle{noNode, noNode}

	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		for _, c := range t.node(cur).children {
			if c != noNode {
				work = append(work, c)
			}
		}
		t.arena.release(cur)
	}
}

// pruneUp turns h into a leaf, merging it with a leaf sibling as long as
// there is one.
func (t *RadixTree) pruneUp(h nodeHandle) {
	cur := h
	for {
		sib := t.sibling(cur)
		if sib == noNode || !t.isLeaf(sib) {
			t.makeLeaf(cur)
			return
		}
		parent := t.node(cur).parent
		t.arena.release(cur)
		t.arena.release(sib)
		cur = parent
	}
}

// Lookup reports whether addr/mask lies inside a covered range.
func (t *RadixTree) Lookup(addr, mask uint32) bool {
	t.arena.mustBeAlive()
	cur := rootHandle
	for m := uint32(1) << 31; m&mask != 0; m >>= 1 {
		if t.isLeaf(cur) {
			return true
		}
		bit := 0
		if addr&m != 0 {
			bit = 1
		}
		cur = t.node(cur).children[bit]
		if cur == noNode {
			return false
		}
	}
	return t.isLeaf(cur)
}

// Contains is a single address lookup.
func (t *RadixTree) Contains(addr uint32) bool {
	return t.Lookup(addr, 0xFFFFFFFF)
}

// Compact gives the memory of released nodes back to the runtime.
func (t *RadixTree) Compact() {
	t.arena.compact()
}

// Destroy drops every node. The tree must not be used afterwards.
func (t *RadixTree) Destroy() {
	t.arena.destroy()
}

func (t *RadixTree) Stats() TreeStats {
	return TreeStats{Used: t.arena.Used(), Free: t.arena.Free()}
}
