package broadphase

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

type pairKey struct{ a, b string }

func collectPairs(bp *BroadPhase) []pairKey {
	pairs := []pairKey{}
	bp.UpdatePairs(func(a, b any) {
		pairs = append(pairs, pairKey{a.(string), b.(string)})
	})
	return pairs
}

func TestBroadPhase_UpdatePairs(t *testing.T) {
	t.Run("reports overlapping pairs once", func(t *testing.T) {
		bp := NewBroadPhase()
		bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(1.5, 0, 1, 1), "b")
		bp.CreateProxy(box(10, 0, 1, 1), "c")

		pairs := collectPairs(bp)

		assert.Equal(t, []pairKey{{"a", "b"}}, pairs)
	})

	t.Run("buffer is cleared after an update", func(t *testing.T) {
		bp := NewBroadPhase()
		bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(1.5, 0, 1, 1), "b")

		collectPairs(bp)

		assert.Empty(t, collectPairs(bp))
	})

	t.Run("small motion inside the fat box reports nothing", func(t *testing.T) {
		bp := NewBroadPhase()
		a := bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(1.5, 0, 1, 1), "b")
		collectPairs(bp)

		bp.MoveProxy(a, box(0.01, 0, 1, 1), mgl64.Vec2{0.01, 0})

		assert.Empty(t, collectPairs(bp))
	})

	t.Run("touch forces a report", func(t *testing.T) {
		bp := NewBroadPhase()
		a := bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(1.5, 0, 1, 1), "b")
		collectPairs(bp)

		bp.TouchProxy(a)

		assert.Equal(t, []pairKey{{"a", "b"}}, collectPairs(bp))
	})

	t.Run("moving into a proxy creates a pair", func(t *testing.T) {
		bp := NewBroadPhase()
		a := bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(10, 0, 1, 1), "b")
		assert.Empty(t, collectPairs(bp))

		bp.MoveProxy(a, box(9, 0, 1, 1), mgl64.Vec2{9, 0})

		assert.Equal(t, []pairKey{{"a", "b"}}, collectPairs(bp))
	})

	t.Run("destroyed proxy is unbuffered", func(t *testing.T) {
		bp := NewBroadPhase()
		a := bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(1.5, 0, 1, 1), "b")

		bp.DestroyProxy(a)

		assert.Empty(t, collectPairs(bp))
		assert.Equal(t, 1, bp.ProxyCount())
	})

	t.Run("pairs are ordered by proxy id", func(t *testing.T) {
		bp := NewBroadPhase()
		bp.CreateProxy(box(0, 0, 1, 1), "a")
		bp.CreateProxy(box(1, 0, 1, 1), "b")
		bp.CreateProxy(box(2, 0, 1, 1), "c")

		pairs := collectPairs(bp)

		assert.Equal(t, []pairKey{{"a", "b"}, {"a", "c"}, {"b", "c"}}, pairs)
	})
}

func TestBroadPhase_TestOverlap(t *testing.T) {
	bp := NewBroadPhase()
	a := bp.CreateProxy(box(0, 0, 1, 1), "a")
	b := bp.CreateProxy(box(2.1, 0, 1, 1), "b")
	c := bp.CreateProxy(box(5, 0, 1, 1), "c")

	// Tight boxes are apart but the fat margins overlap.
	assert.True(t, bp.TestOverlap(a, b))
	assert.False(t, bp.TestOverlap(a, c))
}

func TestBroadPhase_Query(t *testing.T) {
	bp := NewBroadPhase()
	bp.CreateProxy(box(0, 0, 1, 1), "a")
	bp.CreateProxy(box(10, 0, 1, 1), "b")

	found := []string{}
	bp.Query(box(10, 0, 0.5, 0.5), func(id int) bool {
		found = append(found, bp.UserData(id).(string))
		return true
	})

	assert.Equal(t, []string{"b"}, found)
	assert.Equal(t, 1, bp.TreeHeight())
	assert.Equal(t, 0, bp.TreeBalance())
	assert.Greater(t, bp.TreeQuality(), 1.0)
}
