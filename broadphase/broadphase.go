package broadphase

import (
	"sort"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// Pair of proxies whose fattened boxes overlap. ProxyIDA < ProxyIDB.
type Pair struct {
	ProxyIDA int
	ProxyIDB int
}

// BroadPhase wraps a dynamic tree and buffers the proxies that moved since
// the last pair update. Only pairs involving at least one buffered proxy are
// reported by UpdatePairs.
type BroadPhase struct {
	tree *DynamicTree

	moveBuffer []int
	pairBuffer []Pair

	queryProxyID int
}

// ============================================================================
// Constructor
// ============================================================================

func NewBroadPhase() *BroadPhase {
	return NewBroadPhaseWith(NewDynamicTree())
}

// NewBroadPhaseWith uses an existing tree, typically one built with custom margins
func NewBroadPhaseWith(tree *DynamicTree) *BroadPhase {
	return &BroadPhase{
		tree:         tree,
		moveBuffer:   make([]int, 0, 16),
		pairBuffer:   make([]Pair, 0, 16),
		queryProxyID: actor.NullProxy,
	}
}

// ============================================================================
// Proxies
// ============================================================================

// CreateProxy inserts a proxy and buffers it for the next pair update
func (bp *BroadPhase) CreateProxy(aabb actor.AABB, userData any) int {
	id := bp.tree.CreateProxy(aabb, userData)
	bp.bufferMove(id)
	return id
}

// DestroyProxy removes the proxy from the tree and the move buffer
func (bp *BroadPhase) DestroyProxy(id int) {
	bp.unbufferMove(id)
	bp.tree.DestroyProxy(id)
}

// MoveProxy refits the proxy; it is buffered only when the tree reinserted it
func (bp *BroadPhase) MoveProxy(id int, aabb actor.AABB, displacement mgl64.Vec2) {
	if bp.tree.MoveProxy(id, aabb, displacement) {
		bp.bufferMove(id)
	}
}

// TouchProxy forces the proxy to be considered at the next pair update
func (bp *BroadPhase) TouchProxy(id int) {
	bp.bufferMove(id)
}

func (bp *BroadPhase) bufferMove(id int) {
	bp.moveBuffer = append(bp.moveBuffer, id)
}

func (bp *BroadPhase) unbufferMove(id int) {
	for i := range bp.moveBuffer {
		if bp.moveBuffer[i] == id {
			bp.moveBuffer[i] = actor.NullProxy
		}
	}
}

func (bp *BroadPhase) FatAABB(id int) actor.AABB {
	return bp.tree.FatAABB(id)
}

func (bp *BroadPhase) UserData(id int) any {
	return bp.tree.UserData(id)
}

// TestOverlap reports whether the fattened boxes of the two proxies overlap
func (bp *BroadPhase) TestOverlap(idA, idB int) bool {
	return bp.tree.FatAABB(idA).Overlaps(bp.tree.FatAABB(idB))
}

func (bp *BroadPhase) ProxyCount() int {
	return bp.tree.ProxyCount()
}

// ============================================================================
// Pairs
// ============================================================================

// UpdatePairs queries the tree for every buffered proxy and reports each new
// overlapping pair once, in a deterministic order, then clears the buffer.
func (bp *BroadPhase) UpdatePairs(callback func(userDataA, userDataB any)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, id := range bp.moveBuffer {
		bp.queryProxyID = id
		if id == actor.NullProxy {
			continue
		}

		bp.tree.Query(bp.tree.FatAABB(id), bp.queryCallback)
	}
	bp.queryProxyID = actor.NullProxy
	bp.moveBuffer = bp.moveBuffer[:0]

	sort.Slice(bp.pairBuffer, func(i, j int) bool {
		if bp.pairBuffer[i].ProxyIDA != bp.pairBuffer[j].ProxyIDA {
			return bp.pairBuffer[i].ProxyIDA < bp.pairBuffer[j].ProxyIDA
		}
		return bp.pairBuffer[i].ProxyIDB < bp.pairBuffer[j].ProxyIDB
	})

	for i := 0; i < len(bp.pairBuffer); {
		primary := bp.pairBuffer[i]
		callback(bp.tree.UserData(primary.ProxyIDA), bp.tree.UserData(primary.ProxyIDB))
		i++

		// Skip duplicates
		for i < len(bp.pairBuffer) && bp.pairBuffer[i] == primary {
			i++
		}
	}
}

func (bp *BroadPhase) queryCallback(proxyID int) bool {
	if proxyID == bp.queryProxyID {
		return true
	}

	bp.pairBuffer = append(bp.pairBuffer, Pair{
		ProxyIDA: min(proxyID, bp.queryProxyID),
		ProxyIDB: max(proxyID, bp.queryProxyID),
	})

	return true
}

// ============================================================================
// Queries
// ============================================================================

// Query forwards to the tree; see DynamicTree.Query
func (bp *BroadPhase) Query(aabb actor.AABB, callback func(proxyID int) bool) {
	bp.tree.Query(aabb, callback)
}

// RayCast forwards to the tree; see DynamicTree.RayCast
func (bp *BroadPhase) RayCast(input actor.RayCastInput, callback func(input actor.RayCastInput, proxyID int) float64) {
	bp.tree.RayCast(input, callback)
}

func (bp *BroadPhase) TreeHeight() int {
	return bp.tree.Height()
}

func (bp *BroadPhase) TreeBalance() int {
	return bp.tree.MaxBalance()
}

func (bp *BroadPhase) TreeQuality() float64 {
	return bp.tree.AreaRatio()
}

// ShiftOrigin translates every proxy by -newOrigin
func (bp *BroadPhase) ShiftOrigin(newOrigin mgl64.Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}
