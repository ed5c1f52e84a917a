package broadphase

import (
	"fmt"
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

const nullNode = -1

// treeNode is either a leaf wrapping one proxy or an internal node with two
// children. Free nodes reuse parent as the next link of the free list.
type treeNode struct {
	aabb     actor.AABB
	userData any

	parent int
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == nullNode
}

// DynamicTree is a bounding volume hierarchy over fattened AABBs. Nodes live
// in a dense array and reference each other by index; freed nodes are
// recycled through a free list. Leaves are proxies, and the proxy id is the
// leaf node index.
type DynamicTree struct {
	root     int
	nodes    []treeNode
	count    int
	freeList int

	proxyCount     int
	insertionCount int

	extension  float64
	multiplier float64
}

// NewDynamicTree creates a tree with the default fattening margins
func NewDynamicTree() *DynamicTree {
	return NewDynamicTreeWith(settings.AABBExtension, settings.AABBMultiplier)
}

// NewDynamicTreeWith creates a tree with the given margin and predictive
// displacement multiplier.
func NewDynamicTreeWith(extension, multiplier float64) *DynamicTree {
	t := &DynamicTree{
		root:       nullNode,
		extension:  extension,
		multiplier: multiplier,
	}
	t.grow(16)

	return t
}

// grow appends capacity free nodes and links them into the free list
func (t *DynamicTree) grow(capacity int) {
	start := len(t.nodes)
	t.nodes = append(t.nodes, make([]treeNode, capacity)...)
	for i := start; i < len(t.nodes)-1; i++ {
		t.nodes[i].parent = i + 1
		t.nodes[i].height = -1
	}
	t.nodes[len(t.nodes)-1].parent = nullNode
	t.nodes[len(t.nodes)-1].height = -1
	t.freeList = start
}

func (t *DynamicTree) allocateNode() int {
	if t.freeList == nullNode {
		settings.Assert(t.count == len(t.nodes), "node count %d does not match capacity %d", t.count, len(t.nodes))
		t.grow(len(t.nodes))
	}

	id := t.freeList
	t.freeList = t.nodes[id].parent
	t.nodes[id] = treeNode{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
	}
	t.count++

	return id
}

func (t *DynamicTree) freeNode(id int) {
	settings.Assert(0 <= id && id < len(t.nodes), "node %d out of range", id)
	settings.Assert(t.count > 0, "freeing node %d from an empty tree", id)

	t.nodes[id] = treeNode{parent: t.freeList, child1: nullNode, child2: nullNode, height: -1}
	t.freeList = id
	t.count--
}

func (t *DynamicTree) assertProxy(id int) {
	settings.Assert(0 <= id && id < len(t.nodes), "proxy %d out of range", id)
	settings.Assert(t.nodes[id].height == 0 && t.nodes[id].isLeaf(), "proxy %d is not a live leaf", id)
}

// CreateProxy inserts a fattened copy of aabb as a new leaf and returns its id
func (t *DynamicTree) CreateProxy(aabb actor.AABB, userData any) int {
	id := t.allocateNode()

	t.nodes[id].aabb = aabb.Fatten(t.extension)
	t.nodes[id].userData = userData
	t.nodes[id].height = 0

	t.insertLeaf(id)
	t.proxyCount++

	return id
}

// DestroyProxy removes the leaf. An invalid id panics.
func (t *DynamicTree) DestroyProxy(id int) {
	t.assertProxy(id)

	t.removeLeaf(id)
	t.freeNode(id)
	t.proxyCount--
}

// MoveProxy refits the proxy when aabb escapes its fattened box. The new box
// is fattened by the margin and extended along the displacement. It reports
// whether the proxy was reinserted.
func (t *DynamicTree) MoveProxy(id int, aabb actor.AABB, displacement mgl64.Vec2) bool {
	t.assertProxy(id)

	if t.nodes[id].aabb.Contains(aabb) {
		return false
	}

	t.removeLeaf(id)

	fat := aabb.Fatten(t.extension)
	d := displacement.Mul(t.multiplier)
	for i := 0; i < 2; i++ {
		if d[i] < 0 {
			fat.Min[i] += d[i]
		} else {
			fat.Max[i] += d[i]
		}
	}
	t.nodes[id].aabb = fat

	t.insertLeaf(id)

	return true
}

// UserData returns the payload stored with the proxy
func (t *DynamicTree) UserData(id int) any {
	t.assertProxy(id)
	return t.nodes[id].userData
}

// FatAABB returns the fattened box of the proxy
func (t *DynamicTree) FatAABB(id int) actor.AABB {
	t.assertProxy(id)
	return t.nodes[id].aabb
}

// ProxyCount is the number of live leaves
func (t *DynamicTree) ProxyCount() int {
	return t.proxyCount
}

// insertLeaf descends from the root choosing the cheapest sibling by the
// perimeter heuristic, then refits and rebalances the ancestors.
func (t *DynamicTree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedArea := t.nodes[index].aabb.Combine(leafAABB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2.0 * combinedArea
		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Combine(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.refit(t.nodes[leaf].parent)
}

func (t *DynamicTree) descendCost(child int, leafAABB actor.AABB) float64 {
	combined := leafAABB.Combine(t.nodes[child].aabb).Perimeter()
	if t.nodes[child].isLeaf() {
		return combined
	}
	return combined - t.nodes[child].aabb.Perimeter()
}

// refit walks up from index, rebalancing and recomputing heights and boxes
func (t *DynamicTree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		settings.Assert(child1 != nullNode && child2 != nullNode, "internal node %d lost a child", index)

		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].aabb = t.nodes[child1].aabb.Combine(t.nodes[child2].aabb)

		index = t.nodes[index].parent
	}
}

// removeLeaf replaces the leaf's parent by its sibling
func (t *DynamicTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent != nullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the index of the new subtree root.
//
//	    A
//	  /   \
//	 B     C
//	/ \   / \
//	D  E F   G
func (t *DynamicTree) balance(iA int) int {
	n := t.nodes
	A := &n[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	B := &n[iB]
	C := &n[iC]

	balance := C.height - B.height

	// Rotate C up
	if balance > 1 {
		iF := C.child1
		iG := C.child2
		F := &n[iF]
		G := &n[iG]

		C.child1 = iA
		C.parent = A.parent
		A.parent = iC

		t.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.aabb = B.aabb.Combine(G.aabb)
			C.aabb = A.aabb.Combine(F.aabb)

			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.aabb = B.aabb.Combine(F.aabb)
			C.aabb = A.aabb.Combine(G.aabb)

			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}

		return iC
	}

	// Rotate B up
	if balance < -1 {
		iD := B.child1
		iE := B.child2
		D := &n[iD]
		E := &n[iE]

		B.child1 = iA
		B.parent = A.parent
		A.parent = iB

		t.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.aabb = C.aabb.Combine(E.aabb)
			B.aabb = A.aabb.Combine(D.aabb)

			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.aabb = C.aabb.Combine(D.aabb)
			B.aabb = A.aabb.Combine(E.aabb)

			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}

		return iB
	}

	return iA
}

// replaceChild points parent (or the root) at newChild instead of oldChild
func (t *DynamicTree) replaceChild(parent, oldChild, newChild int) {
	if parent == nullNode {
		t.root = newChild
		return
	}
	if t.nodes[parent].child1 == oldChild {
		t.nodes[parent].child1 = newChild
	} else {
		settings.Assert(t.nodes[parent].child2 == oldChild, "node %d is not a child of %d", oldChild, parent)
		t.nodes[parent].child2 = newChild
	}
}

// Query calls callback with the id of every proxy whose fattened box overlaps
// aabb. Returning false from the callback stops the query.
func (t *DynamicTree) Query(aabb actor.AABB, callback func(proxyID int) bool) {
	stack := make([]int, 0, 256)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}

		node := &t.nodes[id]
		if !node.aabb.Overlaps(aabb) {
			continue
		}

		if node.isLeaf() {
			if !callback(id) {
				return
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// RayCast visits the proxies whose fattened box may intersect the segment.
// The callback performs the exact test and returns:
//   - 0 to terminate the cast
//   - a value in (0, 1] to clip the segment to that fraction
//   - a negative value to ignore the proxy and continue
//
// A zero-length segment hits nothing.
func (t *DynamicTree) RayCast(input actor.RayCastInput, callback func(input actor.RayCastInput, proxyID int) float64) {
	p1 := input.P1
	p2 := input.P2
	r, length := actor.Normalize(p2.Sub(p1))
	if length == 0 {
		return
	}

	// Separating axis for the segment: |dot(v, p1 - c)| > dot(|v|, h)
	v := actor.CrossSV(1.0, r)
	absV := actor.AbsVec(v)

	maxFraction := input.MaxFraction
	segmentAABB := segmentBounds(p1, p2, maxFraction)

	stack := make([]int, 0, 256)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}

		node := &t.nodes[id]
		if !node.aabb.Overlaps(segmentAABB) {
			continue
		}

		c := node.aabb.Center()
		h := node.aabb.Extents()
		separation := math.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0 {
			continue
		}

		if node.isLeaf() {
			value := callback(actor.RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}, id)
			if value == 0 {
				return
			}
			if value > 0 {
				maxFraction = value
				segmentAABB = segmentBounds(p1, p2, maxFraction)
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

func segmentBounds(p1, p2 mgl64.Vec2, fraction float64) actor.AABB {
	end := p1.Add(p2.Sub(p1).Mul(fraction))
	return actor.AABB{Min: actor.MinVec(p1, end), Max: actor.MaxVec(p1, end)}
}

// Height of the tree, 0 for a single leaf
func (t *DynamicTree) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// MaxBalance is the largest height difference between two siblings
func (t *DynamicTree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		node := &t.nodes[i]
		if node.height <= 1 {
			continue
		}
		balance := t.nodes[node.child2].height - t.nodes[node.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}
	return maxBalance
}

// AreaRatio is the summed perimeter of all nodes over the root perimeter
func (t *DynamicTree) AreaRatio() float64 {
	if t.root == nullNode {
		return 0
	}

	rootArea := t.nodes[t.root].aabb.Perimeter()
	totalArea := 0.0
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}

	return totalArea / rootArea
}

// ShiftOrigin translates every box by -newOrigin
func (t *DynamicTree) ShiftOrigin(newOrigin mgl64.Vec2) {
	for i := range t.nodes {
		t.nodes[i].aabb.Min = t.nodes[i].aabb.Min.Sub(newOrigin)
		t.nodes[i].aabb.Max = t.nodes[i].aabb.Max.Sub(newOrigin)
	}
}

// RebuildBottomUp discards the internal nodes and rebuilds an optimal-ish
// tree by greedily merging the cheapest pairs. It is quadratic in the leaf count.
func (t *DynamicTree) RebuildBottomUp() {
	leaves := make([]int, 0, t.proxyCount)

	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		if t.nodes[i].isLeaf() {
			t.nodes[i].parent = nullNode
			leaves = append(leaves, i)
		} else {
			t.freeNode(i)
		}
	}

	for len(leaves) > 1 {
		minCost := math.MaxFloat64
		iMin, jMin := -1, -1
		for i := 0; i < len(leaves); i++ {
			aabbI := t.nodes[leaves[i]].aabb
			for j := i + 1; j < len(leaves); j++ {
				cost := aabbI.Combine(t.nodes[leaves[j]].aabb).Perimeter()
				if cost < minCost {
					iMin, jMin = i, j
					minCost = cost
				}
			}
		}

		index1 := leaves[iMin]
		index2 := leaves[jMin]

		parent := t.allocateNode()
		t.nodes[parent].child1 = index1
		t.nodes[parent].child2 = index2
		t.nodes[parent].height = 1 + max(t.nodes[index1].height, t.nodes[index2].height)
		t.nodes[parent].aabb = t.nodes[index1].aabb.Combine(t.nodes[index2].aabb)
		t.nodes[index1].parent = parent
		t.nodes[index2].parent = parent

		leaves[jMin] = leaves[len(leaves)-1]
		leaves[iMin] = parent
		leaves = leaves[:len(leaves)-1]
	}

	if len(leaves) == 1 {
		t.root = leaves[0]
	} else {
		t.root = nullNode
	}
}

// Validate checks the structure and the metrics of the whole tree
func (t *DynamicTree) Validate() error {
	if t.root != nullNode && t.nodes[t.root].parent != nullNode {
		return fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}

	leaves, err := t.validateNode(t.root)
	if err != nil {
		return err
	}
	if leaves != t.proxyCount {
		return fmt.Errorf("found %d leaves, expected %d proxies", leaves, t.proxyCount)
	}

	freeCount := 0
	for index := t.freeList; index != nullNode; index = t.nodes[index].parent {
		if index < 0 || index >= len(t.nodes) {
			return fmt.Errorf("free list index %d out of range", index)
		}
		freeCount++
	}
	if t.count+freeCount != len(t.nodes) {
		return fmt.Errorf("%d used + %d free nodes, capacity %d", t.count, freeCount, len(t.nodes))
	}

	return nil
}

func (t *DynamicTree) validateNode(index int) (int, error) {
	if index == nullNode {
		return 0, nil
	}

	node := &t.nodes[index]
	if node.isLeaf() {
		if node.child2 != nullNode {
			return 0, fmt.Errorf("leaf %d has a second child", index)
		}
		if node.height != 0 {
			return 0, fmt.Errorf("leaf %d has height %d", index, node.height)
		}
		return 1, nil
	}

	child1, child2 := node.child1, node.child2
	if child1 < 0 || child1 >= len(t.nodes) || child2 < 0 || child2 >= len(t.nodes) {
		return 0, fmt.Errorf("node %d has children out of range", index)
	}
	if t.nodes[child1].parent != index || t.nodes[child2].parent != index {
		return 0, fmt.Errorf("children of node %d do not point back to it", index)
	}

	if height := 1 + max(t.nodes[child1].height, t.nodes[child2].height); node.height != height {
		return 0, fmt.Errorf("node %d has height %d, expected %d", index, node.height, height)
	}
	if union := t.nodes[child1].aabb.Combine(t.nodes[child2].aabb); node.aabb != union {
		return 0, fmt.Errorf("node %d box %v is not the union of its children %v", index, node.aabb, union)
	}

	leaves1, err := t.validateNode(child1)
	if err != nil {
		return 0, err
	}
	leaves2, err := t.validateNode(child2)
	if err != nil {
		return 0, err
	}

	return leaves1 + leaves2, nil
}
