package blockpool

// tree is the block index tree (spec §4.4): an ordered search tree keyed by
// rx address across every block of every pool, with a second comparator
// that matches a node against any pointer inside its mapping so release,
// shrink and query can find the owning block directly from a user pointer.
// Grounded on AsmJit's ZoneTree<JitAllocatorBlock>, reimplemented as an
// intrusive left/right/parent/color red-black tree since no ordered-map
// library in the retrieved pack supports a custom range-containment
// comparator (SPEC_FULL.md §13).
//
// nilLeaf is this tree's own sentinel leaf (CLRS, "Red-Black Trees", 3rd
// ed.), not a package-level global: CLRS's fixup algorithms use the
// sentinel's parent pointer as scratch space while rebalancing, and a
// shared global sentinel would let two unrelated Allocators (each with its
// own mutex, but sharing one process) race on that scratch field. Every
// real node — including the root — gets a non-nil parent/children pointing
// at nilLeaf, which keeps rotation and fixup free of nil special-casing.
type tree struct {
	root    *Block
	nilLeaf *Block
}

func newTree() *tree {
	leaf := &Block{}
	return &tree{root: leaf, nilLeaf: leaf}
}

func (t *tree) reset() {
	t.root = t.nilLeaf
}

func (t *tree) leftRotate(x *Block) {
	y := x.treeRight
	x.treeRight = y.treeLeft
	if y.treeLeft != t.nilLeaf {
		y.treeLeft.treeParent = x
	}
	y.treeParent = x.treeParent
	switch {
	case x.treeParent == t.nilLeaf:
		t.root = y
	case x == x.treeParent.treeLeft:
		x.treeParent.treeLeft = y
	default:
		x.treeParent.treeRight = y
	}
	y.treeLeft = x
	x.treeParent = y
}

func (t *tree) rightRotate(x *Block) {
	y := x.treeLeft
	x.treeLeft = y.treeRight
	if y.treeRight != t.nilLeaf {
		y.treeRight.treeParent = x
	}
	y.treeParent = x.treeParent
	switch {
	case x.treeParent == t.nilLeaf:
		t.root = y
	case x == x.treeParent.treeRight:
		x.treeParent.treeRight = y
	default:
		x.treeParent.treeLeft = y
	}
	y.treeRight = x
	x.treeParent = y
}

// insert adds z, keyed by z.rxBase(). Callers must ensure no existing block
// overlaps z's range (spec invariant 6: "intervals are disjoint").
func (t *tree) insert(z *Block) {
	y := t.nilLeaf
	x := t.root
	for x != t.nilLeaf {
		y = x
		if z.rxBase() < x.rxBase() {
			x = x.treeLeft
		} else {
			x = x.treeRight
		}
	}
	z.treeParent = y
	switch {
	case y == t.nilLeaf:
		t.root = z
	case z.rxBase() < y.rxBase():
		y.treeLeft = z
	default:
		y.treeRight = z
	}
	z.treeLeft = t.nilLeaf
	z.treeRight = t.nilLeaf
	z.treeRed = true
	t.insertFixup(z)
}

func (t *tree) insertFixup(z *Block) {
	for z.treeParent.treeRed {
		if z.treeParent == z.treeParent.treeParent.treeLeft {
			y := z.treeParent.treeParent.treeRight
			if y.treeRed {
				z.treeParent.treeRed = false
				y.treeRed = false
				z.treeParent.treeParent.treeRed = true
				z = z.treeParent.treeParent
				continue
			}
			if z == z.treeParent.treeRight {
				z = z.treeParent
				t.leftRotate(z)
			}
			z.treeParent.treeRed = false
			z.treeParent.treeParent.treeRed = true
			t.rightRotate(z.treeParent.treeParent)
		} else {
			y := z.treeParent.treeParent.treeLeft
			if y.treeRed {
				z.treeParent.treeRed = false
				y.treeRed = false
				z.treeParent.treeParent.treeRed = true
				z = z.treeParent.treeParent
				continue
			}
			if z == z.treeParent.treeLeft {
				z = z.treeParent
				t.rightRotate(z)
			}
			z.treeParent.treeRed = false
			z.treeParent.treeParent.treeRed = true
			t.leftRotate(z.treeParent.treeParent)
		}
	}
	t.root.treeRed = false
}

func (t *tree) transplant(u, v *Block) {
	switch {
	case u.treeParent == t.nilLeaf:
		t.root = v
	case u == u.treeParent.treeLeft:
		u.treeParent.treeLeft = v
	default:
		u.treeParent.treeRight = v
	}
	v.treeParent = u.treeParent
}

func (t *tree) minimum(x *Block) *Block {
	for x.treeLeft != t.nilLeaf {
		x = x.treeLeft
	}
	return x
}

// remove detaches z from the tree.
func (t *tree) remove(z *Block) {
	y := z
	yOriginalRed := y.treeRed
	var x *Block

	switch {
	case z.treeLeft == t.nilLeaf:
		x = z.treeRight
		t.transplant(z, z.treeRight)
	case z.treeRight == t.nilLeaf:
		x = z.treeLeft
		t.transplant(z, z.treeLeft)
	default:
		y = t.minimum(z.treeRight)
		yOriginalRed = y.treeRed
		x = y.treeRight
		if y.treeParent == z {
			x.treeParent = y
		} else {
			t.transplant(y, y.treeRight)
			y.treeRight = z.treeRight
			y.treeRight.treeParent = y
		}
		t.transplant(z, y)
		y.treeLeft = z.treeLeft
		y.treeLeft.treeParent = y
		y.treeRed = z.treeRed
	}

	if !yOriginalRed {
		t.removeFixup(x)
	}

	z.treeLeft, z.treeRight, z.treeParent = nil, nil, nil
}

func (t *tree) removeFixup(x *Block) {
	for x != t.root && !x.treeRed {
		if x == x.treeParent.treeLeft {
			w := x.treeParent.treeRight
			if w.treeRed {
				w.treeRed = false
				x.treeParent.treeRed = true
				t.leftRotate(x.treeParent)
				w = x.treeParent.treeRight
			}
			if !w.treeLeft.treeRed && !w.treeRight.treeRed {
				w.treeRed = true
				x = x.treeParent
				continue
			}
			if !w.treeRight.treeRed {
				w.treeLeft.treeRed = false
				w.treeRed = true
				t.rightRotate(w)
				w = x.treeParent.treeRight
			}
			w.treeRed = x.treeParent.treeRed
			x.treeParent.treeRed = false
			w.treeRight.treeRed = false
			t.leftRotate(x.treeParent)
			x = t.root
		} else {
			w := x.treeParent.treeLeft
			if w.treeRed {
				w.treeRed = false
				x.treeParent.treeRed = true
				t.rightRotate(x.treeParent)
				w = x.treeParent.treeLeft
			}
			if !w.treeRight.treeRed && !w.treeLeft.treeRed {
				w.treeRed = true
				x = x.treeParent
				continue
			}
			if !w.treeLeft.treeRed {
				w.treeRight.treeRed = false
				w.treeRed = true
				t.leftRotate(w)
				w = x.treeParent.treeLeft
			}
			w.treeRed = x.treeParent.treeRed
			x.treeParent.treeRed = false
			w.treeLeft.treeRed = false
			t.rightRotate(x.treeParent)
			x = t.root
		}
	}
	x.treeRed = false
}

// find returns the block whose mapping contains addr, or nil.
func (t *tree) find(addr uintptr) *Block {
	x := t.root
	for x != t.nilLeaf {
		switch {
		case addr < x.rxBase():
			x = x.treeLeft
		case addr >= x.rxBase()+uintptr(x.blockSize):
			x = x.treeRight
		default:
			return x
		}
	}
	return nil
}
