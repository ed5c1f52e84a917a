// Package impact drives the collision pipeline of a 2D physics world: bodies
// are advanced along their velocities, the broad phase reports new pairs,
// contacts are updated and bullets are clamped at their time of impact.
package impact

import (
	"fmt"
	"iter"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/broadphase"
	"github.com/akmonengine/impact/contact"
	"github.com/akmonengine/impact/controller"
	"github.com/akmonengine/impact/gjk"
	"github.com/akmonengine/impact/settings"
	"github.com/akmonengine/impact/toi"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const DEFAULT_WORKERS = 1

// BodyDef holds the initial state of a body
type BodyDef struct {
	Type            actor.BodyType
	Position        mgl64.Vec2
	Angle           float64
	LinearVelocity  mgl64.Vec2
	AngularVelocity float64
	IsBullet        bool
	IsSleeping      bool
	UserData        any
}

// FixtureDef holds the material of a fixture. A zero Filter stands for
// actor.DefaultFilter().
type FixtureDef struct {
	Shape       actor.ShapeInterface
	Density     float64
	Friction    float64
	Restitution float64
	IsSensor    bool
	Filter      actor.Filter
	UserData    any
}

// DefaultFixtureDef uses a unit density and the default friction
func DefaultFixtureDef(shape actor.ShapeInterface) FixtureDef {
	return FixtureDef{
		Shape:    shape,
		Density:  1,
		Friction: 0.2,
		Filter:   actor.DefaultFilter(),
	}
}

type World struct {
	config Config
	logger Logger

	// List of all rigid bodies in the world
	bodies      []*actor.RigidBody
	bodyIndex   map[uuid.UUID]*actor.RigidBody
	controllers []controller.Controller

	broadPhase *broadphase.BroadPhase
	contacts   *contact.Manager
	toiStats   toi.Statistics

	// locked is set for the duration of Step
	locked bool

	Events Events
}

// NewWorld validates the config and creates an empty world. A nil logger
// discards everything.
func NewWorld(config Config, logger Logger) (*World, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}
	if logger == nil {
		logger = NopLogger{}
	}
	if config.Debug {
		logger.SetDebug(true)
	}

	w := &World{
		config:     config,
		logger:     logger,
		bodyIndex:  make(map[uuid.UUID]*actor.RigidBody),
		broadPhase: broadphase.NewBroadPhaseWith(broadphase.NewDynamicTreeWith(config.AABBExtension, config.AABBMultiplier)),
		Events:     NewEvents(),
	}
	w.contacts = contact.NewManager(contact.NewRegistry(), w.broadPhase, &w.Events, nil)

	return w, nil
}

func (w *World) Config() Config {
	return w.config
}

// SetContactFilter replaces the fixture filter rules; nil restores them
func (w *World) SetContactFilter(filter contact.ContactFilter) {
	w.contacts.SetFilter(filter)
}

// IsLocked is true while the world steps
func (w *World) IsLocked() bool {
	return w.locked
}

// CreateBody adds a body without fixtures
func (w *World) CreateBody(def BodyDef) (*actor.RigidBody, error) {
	if w.locked {
		return nil, fmt.Errorf("create body: %w", ErrWorldLocked)
	}

	body := actor.NewRigidBody(actor.NewTransform(def.Position, def.Angle), def.Type)
	body.LinearVelocity = def.LinearVelocity
	body.AngularVelocity = def.AngularVelocity
	body.IsBullet = def.IsBullet
	body.IsSleeping = def.IsSleeping && !body.IsStatic()
	body.UserData = def.UserData
	body.ResetMassData()

	w.bodies = append(w.bodies, body)
	w.bodyIndex[body.ID] = body

	return body, nil
}

// DestroyBody removes the body, its fixtures and their contacts. Touching
// contacts report their end.
func (w *World) DestroyBody(body *actor.RigidBody) error {
	if w.locked {
		return fmt.Errorf("destroy body: %w", ErrWorldLocked)
	}

	k := w.indexOf(body)
	if k == -1 {
		w.logger.Warnf("destroy body: %v is not in the world", body.ID)
		return fmt.Errorf("destroy body %v: %w", body.ID, ErrBodyNotFound)
	}

	w.contacts.DestroyBody(body)
	for _, f := range body.Fixtures {
		w.destroyProxy(f)
	}
	body.Fixtures = nil

	for _, c := range w.controllers {
		c.RemoveBody(body)
	}

	w.bodies = append(w.bodies[:k], w.bodies[k+1:]...)
	delete(w.bodyIndex, body.ID)
	w.Events.forget(body)

	return nil
}

func (w *World) indexOf(body *actor.RigidBody) int {
	if body == nil || w.bodyIndex[body.ID] != body {
		return -1
	}
	for i, b := range w.bodies {
		if b == body {
			return i
		}
	}
	return -1
}

// CreateFixture attaches a shape to the body and registers its proxy
func (w *World) CreateFixture(body *actor.RigidBody, def FixtureDef) (*actor.Fixture, error) {
	if w.locked {
		return nil, fmt.Errorf("create fixture: %w", ErrWorldLocked)
	}
	if w.indexOf(body) == -1 {
		return nil, fmt.Errorf("create fixture: %w", ErrBodyNotFound)
	}
	settings.Assert(def.Shape != nil, "fixture definition has no shape")

	fixture := actor.NewFixture(def.Shape, def.Density)
	fixture.Friction = def.Friction
	fixture.Restitution = def.Restitution
	fixture.IsSensor = def.IsSensor
	fixture.UserData = def.UserData
	if def.Filter != (actor.Filter{}) {
		fixture.Filter = def.Filter
	}

	body.AddFixture(fixture)
	fixture.ProxyID = w.broadPhase.CreateProxy(fixture.ComputeAABB(), fixture)

	return fixture, nil
}

// DestroyFixture detaches the fixture and destroys its contacts
func (w *World) DestroyFixture(fixture *actor.Fixture) error {
	if w.locked {
		return fmt.Errorf("destroy fixture: %w", ErrWorldLocked)
	}
	if fixture == nil || fixture.Body == nil || w.indexOf(fixture.Body) == -1 {
		w.logger.Warnf("destroy fixture: fixture is not in the world")
		return fmt.Errorf("destroy fixture: %w", ErrFixtureNotFound)
	}

	body := fixture.Body
	w.contacts.DestroyFixture(fixture)
	w.destroyProxy(fixture)
	body.RemoveFixture(fixture)

	return nil
}

func (w *World) destroyProxy(fixture *actor.Fixture) {
	if fixture.ProxyID == actor.NullProxy {
		return
	}
	w.broadPhase.DestroyProxy(fixture.ProxyID)
	fixture.ProxyID = actor.NullProxy
}

// AddController registers a controller; it runs at the start of every step
func (w *World) AddController(c controller.Controller) error {
	if w.locked {
		return fmt.Errorf("add controller: %w", ErrWorldLocked)
	}
	w.controllers = append(w.controllers, c)
	return nil
}

func (w *World) RemoveController(c controller.Controller) error {
	if w.locked {
		return fmt.Errorf("remove controller: %w", ErrWorldLocked)
	}
	for i, existing := range w.controllers {
		if existing == c {
			w.controllers = append(w.controllers[:i], w.controllers[i+1:]...)
			return nil
		}
	}
	return nil
}

// Bodies lists the bodies in creation order. The slice must not be modified.
func (w *World) Bodies() []*actor.RigidBody {
	return w.bodies
}

// Body looks a body up by its ID
func (w *World) Body(id uuid.UUID) (*actor.RigidBody, bool) {
	body, ok := w.bodyIndex[id]
	return body, ok
}

// Step advances the world by dt seconds. Buffered events are delivered once
// the world is unlocked, so listeners may mutate it.
func (w *World) Step(dt float64) error {
	if w.locked {
		return fmt.Errorf("step: %w", ErrWorldLocked)
	}
	if dt <= 0 {
		return nil
	}

	w.step(dt)

	w.Events.processSleepEvents(w.bodies)
	w.Events.flush()

	return nil
}

func (w *World) step(dt float64) {
	w.locked = true
	defer func() { w.locked = false }()

	for _, c := range w.controllers {
		c.Step(dt)
	}

	w.integrate(dt)
	w.synchronizeFixtures()

	// Phase 1: new pairs from the proxies that moved
	w.contacts.FindNewContacts()

	// Phase 2: manifolds of the live contacts
	w.contacts.Collide()

	// Phase 3: clamp bullets at their first impact
	if w.config.ContinuousPhysics {
		w.solveTOI()
	}

	w.trySleep(dt)

	if w.logger.DebugEnabled() {
		w.logger.Debugf("step: %d bodies, %d proxies, %d contacts, tree height %d",
			len(w.bodies), w.broadPhase.ProxyCount(), w.contacts.Count(), w.broadPhase.TreeHeight())
	}
}

func (w *World) integrate(dt float64) {
	task(w.config.Workers, w.bodies, func(body *actor.RigidBody) {
		body.Integrate(dt)
	})
}

// trySleep sets the body to sleep if its velocity is lower than the threshold, for a given duration
// this method is too simple to use a task, it slows down in multiple goroutines
func (w *World) trySleep(dt float64) {
	for _, body := range w.bodies {
		body.TrySleep(dt, settings.TimeToSleep, settings.LinearSleepTolerance, settings.AngularSleepTolerance)
	}
}

// QueryAABB calls back every fixture whose fattened box overlaps aabb,
// until the callback returns false.
func (w *World) QueryAABB(aabb actor.AABB, callback func(fixture *actor.Fixture) bool) {
	w.broadPhase.Query(aabb, func(proxyID int) bool {
		return callback(w.broadPhase.UserData(proxyID).(*actor.Fixture))
	})
}

// RayCastCallback receives each fixture hit by the ray. It returns -1 to
// ignore the fixture, 0 to stop, the fraction to clip the ray at this hit
// or 1 to continue unchanged.
type RayCastCallback func(fixture *actor.Fixture, point, normal mgl64.Vec2, fraction float64) float64

// RayCast casts the segment p1-p2 against every fixture. Hits are not
// reported in order; a zero-length segment reports none.
func (w *World) RayCast(p1, p2 mgl64.Vec2, callback RayCastCallback) {
	input := actor.RayCastInput{P1: p1, P2: p2, MaxFraction: 1}

	w.broadPhase.RayCast(input, func(subInput actor.RayCastInput, proxyID int) float64 {
		fixture := w.broadPhase.UserData(proxyID).(*actor.Fixture)

		output, hit := fixture.RayCast(subInput)
		if !hit {
			return subInput.MaxFraction
		}

		point := p1.Mul(1 - output.Fraction).Add(p2.Mul(output.Fraction))
		return callback(fixture, point, output.Normal, output.Fraction)
	})
}

// Distance returns the closest points between two fixtures
func (w *World) Distance(fixtureA, fixtureB *actor.Fixture) gjk.DistanceOutput {
	var cache gjk.SimplexCache
	return gjk.ShapeDistance(&cache, fixtureA.Shape, fixtureA.Body.Transform, fixtureB.Shape, fixtureB.Body.Transform)
}

// ShiftOrigin moves the world origin to newOrigin, for large worlds
func (w *World) ShiftOrigin(newOrigin mgl64.Vec2) error {
	if w.locked {
		return fmt.Errorf("shift origin: %w", ErrWorldLocked)
	}

	for _, body := range w.bodies {
		body.Transform.Position = body.Transform.Position.Sub(newOrigin)
		body.Sweep.C0 = body.Sweep.C0.Sub(newOrigin)
		body.Sweep.C = body.Sweep.C.Sub(newOrigin)
	}
	w.broadPhase.ShiftOrigin(newOrigin)

	return nil
}

// Contacts iterates the live contacts
func (w *World) Contacts() iter.Seq[*contact.Contact] {
	return w.contacts.All()
}

// ContactsOf iterates the contacts of a body
func (w *World) ContactsOf(body *actor.RigidBody) iter.Seq[*contact.Contact] {
	return w.contacts.Of(body)
}

func (w *World) ContactCount() int {
	return w.contacts.Count()
}

func (w *World) ProxyCount() int {
	return w.broadPhase.ProxyCount()
}

func (w *World) TreeHeight() int {
	return w.broadPhase.TreeHeight()
}

// TOIStatistics accumulates over the life of the world
func (w *World) TOIStatistics() toi.Statistics {
	return w.toiStats
}
