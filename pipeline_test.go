package impact

import (
	"sync/atomic"
	"testing"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		size    int
	}{
		{"single worker", 1, 10},
		{"more workers than data", 8, 3},
		{"uneven chunks", 3, 10},
		{"empty", 4, 0},
		{"non-positive workers", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]int, tt.size)
			for i := range data {
				data[i] = i
			}
			visits := make([]int32, tt.size)

			task(tt.workers, data, func(i int) {
				atomic.AddInt32(&visits[i], 1)
			})

			for i, v := range visits {
				assert.Equal(t, int32(1), v, "element %d", i)
			}
		})
	}
}

func TestStepWorlds(t *testing.T) {
	build := func(t *testing.T) (*World, *actor.RigidBody) {
		w := newTestWorld(t)
		addGround(t, w)
		ball, _ := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 2.9}, LinearVelocity: mgl64.Vec2{0, -60}}, actor.NewCircle(mgl64.Vec2{}, 0.5))
		return w, ball
	}

	var worlds []*World
	var balls []*actor.RigidBody
	begins := make([]int, 4)
	for i := range 4 {
		w, ball := build(t)
		w.Events.Subscribe(CONTACT_BEGIN, func(Event) { begins[i]++ })
		worlds = append(worlds, w)
		balls = append(balls, ball)
	}

	reference, referenceBall := build(t)

	for range 3 {
		require.NoError(t, StepWorlds(worlds, dt, 4))
		require.NoError(t, reference.Step(dt))
	}

	for i, ball := range balls {
		assert.Equal(t, referenceBall.Transform.Position, ball.Transform.Position)
		assert.Equal(t, reference.ContactCount(), worlds[i].ContactCount())
		assert.Equal(t, 1, begins[i])
	}
}

func TestStepWorlds_ReturnsError(t *testing.T) {
	w := newTestWorld(t)
	w.locked = true

	err := StepWorlds([]*World{w, newTestWorld(t)}, dt, 2)

	assert.ErrorIs(t, err, ErrWorldLocked)
}
