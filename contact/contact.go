package contact

import (
	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/manifold"
)

type flags uint8

const (
	// Fixtures are touching: the manifold has points
	flagTouching flags = 1 << iota
	// At least one fixture is a sensor. Fixed at creation.
	flagSensor
	// The contact is skipped by continuous collision
	flagSlow
	// toi holds a valid time of impact for the current step
	flagTOI
	// Cleared by PreSolve listeners to drop the contact for one step
	flagEnabled
)

// Contact tracks the manifold between two fixtures whose fattened boxes
// overlap. Contacts are created and destroyed by the Manager; the fixtures
// are referenced, not owned.
type Contact struct {
	flags flags

	fixtureA *actor.Fixture
	fixtureB *actor.Fixture

	manifold manifold.Manifold
	evaluate Evaluator

	// handle is the index in the manager arena
	handle int
	// slotA and slotB are the positions in the bodies' ContactEdges
	slotA int
	slotB int

	toi float64

	friction    float64
	restitution float64
}

func (c *Contact) init(fixtureA, fixtureB *actor.Fixture, evaluate Evaluator) {
	*c = Contact{
		flags:       flagEnabled,
		fixtureA:    fixtureA,
		fixtureB:    fixtureB,
		evaluate:    evaluate,
		handle:      -1,
		slotA:       -1,
		slotB:       -1,
		friction:    MixFriction(fixtureA.Friction, fixtureB.Friction),
		restitution: MixRestitution(fixtureA.Restitution, fixtureB.Restitution),
	}

	if fixtureA.IsSensor || fixtureB.IsSensor {
		c.flags |= flagSensor
	}
}

func (c *Contact) FixtureA() *actor.Fixture {
	return c.fixtureA
}

func (c *Contact) FixtureB() *actor.Fixture {
	return c.fixtureB
}

// Manifold is shared with the solver, which writes the accumulated impulses back
func (c *Contact) Manifold() *manifold.Manifold {
	return &c.manifold
}

// WorldManifold evaluates the manifold at the current body transforms
func (c *Contact) WorldManifold() manifold.WorldManifold {
	var wm manifold.WorldManifold
	wm.Initialize(&c.manifold,
		c.fixtureA.Body.Transform, c.fixtureA.Shape.GetRadius(),
		c.fixtureB.Body.Transform, c.fixtureB.Shape.GetRadius(),
	)
	return wm
}

// Handle is the stable index of the contact in its manager
func (c *Contact) Handle() int {
	return c.handle
}

func (c *Contact) IsTouching() bool {
	return c.flags&flagTouching != 0
}

func (c *Contact) IsSensor() bool {
	return c.flags&flagSensor != 0
}

// IsSolid is the opposite of IsSensor: the contact produces a response
func (c *Contact) IsSolid() bool {
	return !c.IsSensor()
}

// IsSlow is true unless both bodies are dynamic and one is a bullet
func (c *Contact) IsSlow() bool {
	return c.flags&flagSlow != 0
}

func (c *Contact) IsEnabled() bool {
	return c.flags&flagEnabled != 0
}

// SetEnabled disables the contact until the next Update
func (c *Contact) SetEnabled(enabled bool) {
	if enabled {
		c.flags |= flagEnabled
	} else {
		c.flags &^= flagEnabled
	}
}

// TOI returns the cached time of impact; only meaningful when HasTOI
func (c *Contact) TOI() float64 {
	return c.toi
}

func (c *Contact) HasTOI() bool {
	return c.flags&flagTOI != 0
}

func (c *Contact) SetTOI(toi float64) {
	c.toi = toi
	c.flags |= flagTOI
}

func (c *Contact) ClearTOI() {
	c.flags &^= flagTOI
}

func (c *Contact) Friction() float64 {
	return c.friction
}

func (c *Contact) Restitution() float64 {
	return c.restitution
}

// Update evaluates the manifold at the current transforms, carries the
// accumulated impulses over and notifies the listener of state changes.
func (c *Contact) Update(listener Listener) {
	oldManifold := c.manifold

	// Re-enable every step; PreSolve may disable again.
	c.flags |= flagEnabled

	bodyA := c.fixtureA.Body
	bodyB := c.fixtureB.Body

	c.evaluate(&c.manifold, c.fixtureA.Shape, bodyA.Transform, c.fixtureB.Shape, bodyB.Transform)

	oldCount := oldManifold.PointCount
	newCount := c.manifold.PointCount

	// A broken contact may leave a body floating.
	if newCount == 0 && oldCount > 0 {
		bodyA.Awake()
		bodyB.Awake()
	}

	// Slow contacts do not take part in continuous collision.
	if !bodyA.IsStatic() && !bodyB.IsStatic() && (bodyA.IsBullet || bodyB.IsBullet) {
		c.flags &^= flagSlow
	} else {
		c.flags |= flagSlow
	}

	// Match old ids to new ids and copy the impulses for warm starting.
	for i := 0; i < newCount; i++ {
		mp2 := &c.manifold.Points[i]
		mp2.NormalImpulse = 0
		mp2.TangentImpulse = 0
		key := mp2.ID.Key()

		for j := 0; j < oldCount; j++ {
			mp1 := &oldManifold.Points[j]
			if mp1.ID.Key() == key {
				mp2.NormalImpulse = mp1.NormalImpulse
				mp2.TangentImpulse = mp1.TangentImpulse
				break
			}
		}
	}

	if oldCount == 0 && newCount > 0 {
		c.flags |= flagTouching
		listener.BeginContact(c)
	}

	if oldCount > 0 && newCount == 0 {
		c.flags &^= flagTouching
		listener.EndContact(c)
	}

	if c.IsSolid() {
		listener.PreSolve(c, &oldManifold)

		// The listener may have disabled the contact.
		if c.manifold.PointCount == 0 {
			c.flags &^= flagTouching
		}
	}
}
