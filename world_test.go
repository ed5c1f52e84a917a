package impact

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/contact"
	"github.com/akmonengine/impact/controller"
	"github.com/akmonengine/impact/manifold"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(DefaultConfig(), nil)
	require.NoError(t, err)
	return w
}

func addBody(t *testing.T, w *World, def BodyDef, shape actor.ShapeInterface) (*actor.RigidBody, *actor.Fixture) {
	t.Helper()
	body, err := w.CreateBody(def)
	require.NoError(t, err)
	fixture, err := w.CreateFixture(body, DefaultFixtureDef(shape))
	require.NoError(t, err)
	return body, fixture
}

func addGround(t *testing.T, w *World) (*actor.RigidBody, *actor.Fixture) {
	return addBody(t, w, BodyDef{Type: actor.BodyTypeStatic}, actor.NewBox(5, 0.5))
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func (ec *eventCapture) ofType(eventType EventType) []Event {
	var out []Event
	for _, e := range ec.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (ec *eventCapture) subscribe(w *World, types ...EventType) {
	for _, eventType := range types {
		w.Events.Subscribe(eventType, ec.capture)
	}
}

// =============================================================================
// Construction and mutation
// =============================================================================

func TestNewWorld(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		w, err := NewWorld(DefaultConfig(), nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), w.Config())
		assert.Equal(t, 0, w.ProxyCount())
	})

	t.Run("invalid config", func(t *testing.T) {
		config := DefaultConfig()
		config.MaxTOIContacts = 0

		w, err := NewWorld(config, nil)

		assert.Nil(t, w)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestWorld_CreateBodyAndFixture(t *testing.T) {
	w := newTestWorld(t)

	body, err := w.CreateBody(BodyDef{
		Position:       mgl64.Vec2{1, 2},
		Angle:          math.Pi / 2,
		LinearVelocity: mgl64.Vec2{3, 0},
		IsBullet:       true,
		UserData:       "ship",
	})
	require.NoError(t, err)

	assert.InDelta(t, math.Pi/2, body.Transform.Angle(), 1e-12)
	assert.Equal(t, mgl64.Vec2{3, 0}, body.LinearVelocity)
	assert.True(t, body.IsBullet)
	assert.Equal(t, "ship", body.UserData)

	found, ok := w.Body(body.ID)
	assert.True(t, ok)
	assert.Same(t, body, found)

	fixture, err := w.CreateFixture(body, FixtureDef{Shape: actor.NewCircle(mgl64.Vec2{}, 1), Density: 2})
	require.NoError(t, err)

	assert.Same(t, body, fixture.Body)
	assert.NotEqual(t, actor.NullProxy, fixture.ProxyID)
	assert.Equal(t, actor.DefaultFilter(), fixture.Filter, "zero filter falls back to the default")
	assert.InDelta(t, 2*math.Pi, body.Mass, 1e-9)
	assert.Equal(t, 1, w.ProxyCount())

	t.Run("unknown body", func(t *testing.T) {
		stranger := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeDynamic)
		_, err := w.CreateFixture(stranger, DefaultFixtureDef(actor.NewBox(1, 1)))
		assert.ErrorIs(t, err, ErrBodyNotFound)
	})
}

func TestWorld_DestroyFixture(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball, fixture := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))
	require.NoError(t, w.Step(dt))
	require.Equal(t, 1, w.ContactCount())

	require.NoError(t, w.DestroyFixture(fixture))

	assert.Equal(t, 0, w.ContactCount())
	assert.Equal(t, 1, w.ProxyCount())
	assert.Empty(t, ball.Fixtures)
	assert.Nil(t, fixture.Body)

	err := w.DestroyFixture(fixture)
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestWorld_DestroyBody(t *testing.T) {
	w := newTestWorld(t)
	capture := &eventCapture{}
	capture.subscribe(w, CONTACT_BEGIN, CONTACT_END)

	addGround(t, w)
	ball, _ := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))
	friction := controller.NewTensorDryFriction(mgl64.Ident2().Mul(-1), mgl64.Vec2{1, 1})
	friction.AddBody(ball)
	require.NoError(t, w.AddController(friction))

	require.NoError(t, w.Step(dt))
	require.Len(t, capture.ofType(CONTACT_BEGIN), 1)

	require.NoError(t, w.DestroyBody(ball))

	assert.Equal(t, 0, w.ContactCount())
	assert.Equal(t, 1, w.ProxyCount())
	assert.Len(t, w.Bodies(), 1)
	assert.Empty(t, friction.Bodies)
	_, ok := w.Body(ball.ID)
	assert.False(t, ok)

	// The end of the destroyed contact is delivered with the next step.
	require.NoError(t, w.Step(dt))
	assert.Len(t, capture.ofType(CONTACT_END), 1)

	err := w.DestroyBody(ball)
	assert.ErrorIs(t, err, ErrBodyNotFound)
}

func TestWorld_LockedDuringStep(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball, _ := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	var errs []error
	w.Events.OnPreSolve(func(c *contact.Contact, _ *manifold.Manifold) {
		assert.True(t, w.IsLocked())

		_, err := w.CreateBody(BodyDef{})
		errs = append(errs, err)
		_, err = w.CreateFixture(ball, DefaultFixtureDef(actor.NewBox(1, 1)))
		errs = append(errs, err)
		errs = append(errs, w.DestroyBody(ball))
		errs = append(errs, w.DestroyFixture(ball.Fixtures[0]))
		errs = append(errs, w.AddController(&controller.TensorDryFriction{}))
		errs = append(errs, w.Step(dt))
		errs = append(errs, w.ShiftOrigin(mgl64.Vec2{}))
	})

	require.NoError(t, w.Step(dt))

	require.Len(t, errs, 7)
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrWorldLocked), "got %v", err)
	}
	assert.False(t, w.IsLocked())
}

func TestWorld_ListenersMayMutate(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball, _ := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	w.Events.Subscribe(CONTACT_BEGIN, func(Event) {
		assert.NoError(t, w.DestroyBody(ball))
	})

	require.NoError(t, w.Step(dt))

	assert.Len(t, w.Bodies(), 1)
	assert.Equal(t, 0, w.ContactCount())
}

// =============================================================================
// Step
// =============================================================================

func TestWorld_StepContactEvents(t *testing.T) {
	w := newTestWorld(t)
	capture := &eventCapture{}
	capture.subscribe(w, CONTACT_BEGIN, CONTACT_END)

	_, groundFixture := addGround(t, w)
	ball, ballFixture := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	require.NoError(t, w.Step(dt))

	begins := capture.ofType(CONTACT_BEGIN)
	require.Len(t, begins, 1)
	begin := begins[0].(ContactBeginEvent)
	assert.Same(t, groundFixture, begin.FixtureA)
	assert.Same(t, ballFixture, begin.FixtureB)
	assert.InDelta(t, 1.0, begin.Normal.Y(), 1e-9)
	assert.Len(t, begin.Points, 1)
	assert.True(t, w.Events.IsTouching(ball, groundFixture.Body))

	// Still touching: no new event.
	capture.reset()
	require.NoError(t, w.Step(dt))
	assert.Empty(t, capture.events)

	// Jump off the ground in one step.
	ball.LinearVelocity = mgl64.Vec2{0, 60}
	require.NoError(t, w.Step(dt))

	ends := capture.ofType(CONTACT_END)
	require.Len(t, ends, 1)
	assert.False(t, w.Events.IsTouching(ball, groundFixture.Body))
	assert.InDelta(t, 1.9, ball.Transform.Position.Y(), 1e-9)
}

func TestWorld_StepDestroysSeparatedContacts(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball, _ := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	require.NoError(t, w.Step(dt))
	require.Equal(t, 1, w.ContactCount())

	ball.LinearVelocity = mgl64.Vec2{0, 600}
	require.NoError(t, w.Step(dt))
	// The swept box still covers the start of the motion.
	assert.Equal(t, 1, w.ContactCount())

	// The contact lives until the ball leaves its predictively extended box.
	for i := 0; i < 10 && w.ContactCount() > 0; i++ {
		require.NoError(t, w.Step(dt))
	}
	assert.Equal(t, 0, w.ContactCount())
	assert.Empty(t, ball.ContactEdges)
}

func TestWorld_SensorEvents(t *testing.T) {
	w := newTestWorld(t)
	capture := &eventCapture{}
	capture.subscribe(w, SENSOR_ENTER, SENSOR_EXIT, CONTACT_BEGIN)

	zoneBody, err := w.CreateBody(BodyDef{Type: actor.BodyTypeStatic})
	require.NoError(t, err)
	def := DefaultFixtureDef(actor.NewBox(1, 1))
	def.IsSensor = true
	zone, err := w.CreateFixture(zoneBody, def)
	require.NoError(t, err)

	ball, ballFixture := addBody(t, w, BodyDef{Position: mgl64.Vec2{-3, 0}, LinearVelocity: mgl64.Vec2{60, 0}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	// -3 -> -2: outside
	require.NoError(t, w.Step(dt))
	assert.Empty(t, capture.events)

	// -2 -> -1: overlapping
	require.NoError(t, w.Step(dt))
	enters := capture.ofType(SENSOR_ENTER)
	require.Len(t, enters, 1)
	assert.Same(t, zone, enters[0].(SensorEnterEvent).Sensor)
	assert.Same(t, ballFixture, enters[0].(SensorEnterEvent).Other)
	assert.Empty(t, capture.ofType(CONTACT_BEGIN))
	assert.False(t, w.Events.IsTouching(ball, zoneBody))

	// The ball crosses the zone and leaves it at x = 2.
	for range 3 {
		require.NoError(t, w.Step(dt))
	}
	assert.Len(t, capture.ofType(SENSOR_EXIT), 1)
}

func TestWorld_PreSolveDisablesContact(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	calls := 0
	w.Events.OnPreSolve(func(c *contact.Contact, old *manifold.Manifold) {
		calls++
		c.SetEnabled(false)
	})

	require.NoError(t, w.Step(dt))
	require.NoError(t, w.Step(dt))

	assert.Equal(t, 2, calls)
	for c := range w.Contacts() {
		assert.False(t, c.IsEnabled())
		assert.True(t, c.IsTouching())
	}
}

func TestWorld_PreSolveEmptiedManifoldEndsContact(t *testing.T) {
	w := newTestWorld(t)
	ground, _ := addGround(t, w)
	ball, _ := addBody(t, w, BodyDef{Position: mgl64.Vec2{0, 0.9}}, actor.NewCircle(mgl64.Vec2{}, 0.5))

	capture := &eventCapture{}
	capture.subscribe(w, CONTACT_BEGIN, CONTACT_END)

	emptied := false
	w.Events.OnPreSolve(func(c *contact.Contact, old *manifold.Manifold) {
		if !emptied {
			emptied = true
			c.Manifold().PointCount = 0
		}
	})

	for range 3 {
		require.NoError(t, w.Step(dt))
	}
	assert.True(t, w.Events.IsTouching(ball, ground))
	assert.Len(t, capture.ofType(CONTACT_BEGIN), 2)
	assert.Len(t, capture.ofType(CONTACT_END), 1)

	require.NoError(t, w.DestroyBody(ball))
	assert.False(t, w.Events.IsTouching(ball, ground))

	require.NoError(t, w.Step(dt))
	assert.Len(t, capture.ofType(CONTACT_BEGIN), 2)
	assert.Len(t, capture.ofType(CONTACT_END), 2)
	assert.Empty(t, w.Events.touching)
	assert.Empty(t, w.Events.touchingContacts)
}

func TestWorld_ContinuousCollision(t *testing.T) {
	tests := []struct {
		name       string
		bullet     bool
		continuous bool
		impact     bool
	}{
		{"bullet is clamped", true, true, true},
		{"regular bodies tunnel", false, true, false},
		{"continuous physics disabled", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.ContinuousPhysics = tt.continuous
			w, err := NewWorld(config, nil)
			require.NoError(t, err)

			capture := &eventCapture{}
			capture.subscribe(w, TIME_OF_IMPACT)

			_, boxFixture := addBody(t, w, BodyDef{}, actor.NewBox(0.5, 0.5))
			bullet, bulletFixture := addBody(t, w, BodyDef{
				Position:       mgl64.Vec2{-5, 0},
				LinearVelocity: mgl64.Vec2{600, 0},
				IsBullet:       tt.bullet,
			}, actor.NewCircle(mgl64.Vec2{}, 0.25))

			require.NoError(t, w.Step(dt))

			impacts := capture.ofType(TIME_OF_IMPACT)
			if !tt.impact {
				assert.Empty(t, impacts)
				assert.InDelta(t, 5.0, bullet.Transform.Position.X(), 1e-9)
				return
			}

			require.Len(t, impacts, 1)
			impact := impacts[0].(TimeOfImpactEvent)
			assert.ElementsMatch(t, []*actor.Fixture{boxFixture, bulletFixture}, []*actor.Fixture{impact.FixtureA, impact.FixtureB})
			// 4.25m to close at 10m per step, stopping short by the tolerance.
			assert.Greater(t, impact.Alpha, 0.40)
			assert.Less(t, impact.Alpha, 0.425)

			x := bullet.Transform.Position.X()
			assert.Greater(t, x, -0.85)
			assert.Less(t, x, -0.75)

			gap := w.Distance(boxFixture, bulletFixture).Distance
			assert.Greater(t, gap, 0.0)
			assert.Less(t, gap, 2*config.TOITolerance)
			assert.Positive(t, w.TOIStatistics().Calls)
		})
	}
}

func TestWorld_Sleep(t *testing.T) {
	w := newTestWorld(t)
	capture := &eventCapture{}
	capture.subscribe(w, ON_SLEEP, ON_WAKE)

	box, _ := addBody(t, w, BodyDef{}, actor.NewBox(0.5, 0.5))

	for range 4 {
		require.NoError(t, w.Step(0.1))
	}
	assert.False(t, box.IsSleeping)
	assert.Empty(t, capture.events)

	for range 2 {
		require.NoError(t, w.Step(0.1))
	}
	require.True(t, box.IsSleeping)
	sleeps := capture.ofType(ON_SLEEP)
	require.Len(t, sleeps, 1)
	assert.Same(t, box, sleeps[0].(SleepEvent).Body)

	// A new solid contact wakes the body.
	addBody(t, w, BodyDef{Position: mgl64.Vec2{0.9, 0}}, actor.NewBox(0.5, 0.5))
	require.NoError(t, w.Step(0.1))

	assert.False(t, box.IsSleeping)
	wakes := capture.ofType(ON_WAKE)
	require.Len(t, wakes, 1)
	assert.Same(t, box, wakes[0].(WakeEvent).Body)
}

func TestWorld_Controllers(t *testing.T) {
	w := newTestWorld(t)
	box, _ := addBody(t, w, BodyDef{LinearVelocity: mgl64.Vec2{10, 0}}, actor.NewBox(0.5, 0.5))

	friction := &controller.TensorDryFriction{}
	friction.SetAxisFrictionForce(60, 60)
	friction.AddBody(box)
	require.NoError(t, w.AddController(friction))

	require.NoError(t, w.Step(dt))
	// 1kg box, 60N for 1/60s.
	assert.InDelta(t, 9.0, box.LinearVelocity.X(), 1e-9)

	require.NoError(t, w.RemoveController(friction))
	require.NoError(t, w.Step(dt))
	assert.InDelta(t, 9.0, box.LinearVelocity.X(), 1e-9)
}

// =============================================================================
// Queries
// =============================================================================

func TestWorld_QueryAABB(t *testing.T) {
	w := newTestWorld(t)
	var fixtures []*actor.Fixture
	for i := range 3 {
		_, f := addBody(t, w, BodyDef{Type: actor.BodyTypeStatic, Position: mgl64.Vec2{float64(i) * 5, 0}}, actor.NewBox(1, 1))
		fixtures = append(fixtures, f)
	}

	var found []*actor.Fixture
	w.QueryAABB(actor.AABB{Min: mgl64.Vec2{4, -1}, Max: mgl64.Vec2{6, 1}}, func(f *actor.Fixture) bool {
		found = append(found, f)
		return true
	})
	assert.Equal(t, []*actor.Fixture{fixtures[1]}, found)

	count := 0
	w.QueryAABB(actor.AABB{Min: mgl64.Vec2{-10, -10}, Max: mgl64.Vec2{20, 10}}, func(f *actor.Fixture) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestWorld_RayCast(t *testing.T) {
	w := newTestWorld(t)
	var fixtures []*actor.Fixture
	for i := range 3 {
		_, f := addBody(t, w, BodyDef{Type: actor.BodyTypeStatic, Position: mgl64.Vec2{float64(i) * 5, 0}}, actor.NewBox(1, 1))
		fixtures = append(fixtures, f)
	}

	t.Run("closest hit", func(t *testing.T) {
		var closest *actor.Fixture
		var point, normal mgl64.Vec2
		w.RayCast(mgl64.Vec2{-5, 0}, mgl64.Vec2{15, 0}, func(f *actor.Fixture, p, n mgl64.Vec2, fraction float64) float64 {
			closest, point, normal = f, p, n
			return fraction
		})

		assert.Same(t, fixtures[0], closest)
		assert.InDelta(t, -1.0, point.X(), 1e-9)
		assert.InDelta(t, -1.0, normal.X(), 1e-9)
	})

	t.Run("every hit", func(t *testing.T) {
		hits := 0
		w.RayCast(mgl64.Vec2{-5, 0}, mgl64.Vec2{15, 0}, func(*actor.Fixture, mgl64.Vec2, mgl64.Vec2, float64) float64 {
			hits++
			return 1
		})
		assert.Equal(t, 3, hits)
	})

	t.Run("filtered hit", func(t *testing.T) {
		hits := 0
		w.RayCast(mgl64.Vec2{-5, 0}, mgl64.Vec2{15, 0}, func(f *actor.Fixture, _, _ mgl64.Vec2, _ float64) float64 {
			hits++
			if f == fixtures[0] {
				return -1
			}
			return 0
		})
		assert.LessOrEqual(t, hits, 2)
	})

	t.Run("miss", func(t *testing.T) {
		hits := 0
		w.RayCast(mgl64.Vec2{-5, 5}, mgl64.Vec2{15, 5}, func(*actor.Fixture, mgl64.Vec2, mgl64.Vec2, float64) float64 {
			hits++
			return 1
		})
		assert.Equal(t, 0, hits)
	})

	t.Run("degenerate segment", func(t *testing.T) {
		hits := 0
		require.NotPanics(t, func() {
			w.RayCast(mgl64.Vec2{0, 0}, mgl64.Vec2{0, 0}, func(*actor.Fixture, mgl64.Vec2, mgl64.Vec2, float64) float64 {
				hits++
				return 1
			})
		})
		assert.Equal(t, 0, hits)
	})
}

func TestWorld_Distance(t *testing.T) {
	w := newTestWorld(t)
	_, a := addBody(t, w, BodyDef{}, actor.NewCircle(mgl64.Vec2{}, 1))
	_, b := addBody(t, w, BodyDef{Position: mgl64.Vec2{5, 0}}, actor.NewCircle(mgl64.Vec2{}, 1))

	output := w.Distance(a, b)

	assert.InDelta(t, 3.0, output.Distance, 1e-9)
	assert.InDelta(t, 1.0, output.PointA.X(), 1e-9)
	assert.InDelta(t, 4.0, output.PointB.X(), 1e-9)
}

func TestWorld_ShiftOrigin(t *testing.T) {
	w := newTestWorld(t)
	body, fixture := addBody(t, w, BodyDef{Type: actor.BodyTypeStatic, Position: mgl64.Vec2{100, 0}}, actor.NewBox(1, 1))

	require.NoError(t, w.ShiftOrigin(mgl64.Vec2{100, 0}))

	assert.InDelta(t, 0.0, body.Transform.Position.X(), 1e-9)
	var found []*actor.Fixture
	w.QueryAABB(actor.AABB{Min: mgl64.Vec2{-0.5, -0.5}, Max: mgl64.Vec2{0.5, 0.5}}, func(f *actor.Fixture) bool {
		found = append(found, f)
		return true
	})
	assert.Equal(t, []*actor.Fixture{fixture}, found)
}

func TestWorld_Filtering(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball, err := w.CreateBody(BodyDef{Position: mgl64.Vec2{0, 0.9}})
	require.NoError(t, err)
	def := DefaultFixtureDef(actor.NewCircle(mgl64.Vec2{}, 0.5))
	def.Filter = actor.Filter{CategoryBits: 0x0002, MaskBits: 0xFFFE}
	_, err = w.CreateFixture(ball, def)
	require.NoError(t, err)

	require.NoError(t, w.Step(dt))

	assert.Equal(t, 0, w.ContactCount())
}

func TestWorld_StepIgnoresNonPositiveDt(t *testing.T) {
	w := newTestWorld(t)
	box, _ := addBody(t, w, BodyDef{LinearVelocity: mgl64.Vec2{1, 0}}, actor.NewBox(0.5, 0.5))

	require.NoError(t, w.Step(0))
	require.NoError(t, w.Step(-1))

	assert.Equal(t, mgl64.Vec2{}, box.Transform.Position)
}
