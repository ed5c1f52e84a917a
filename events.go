package impact

import (
	"bytes"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/contact"
	"github.com/akmonengine/impact/manifold"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const (
	CONTACT_BEGIN EventType = iota
	CONTACT_END
	SENSOR_ENTER
	SENSOR_EXIT
	TIME_OF_IMPACT
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case CONTACT_BEGIN:
		return "CONTACT_BEGIN"
	case CONTACT_END:
		return "CONTACT_END"
	case SENSOR_ENTER:
		return "SENSOR_ENTER"
	case SENSOR_EXIT:
		return "SENSOR_EXIT"
	case TIME_OF_IMPACT:
		return "TIME_OF_IMPACT"
	case ON_SLEEP:
		return "ON_SLEEP"
	case ON_WAKE:
		return "ON_WAKE"
	}
	return "UNKNOWN"
}

// pairKey identifies two bodies regardless of their order
type pairKey struct {
	bodyA uuid.UUID
	bodyB uuid.UUID
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	a, b := bodyA.ID, bodyB.ID
	if bytes.Compare(b[:], a[:]) < 0 {
		a, b = b, a
	}
	return pairKey{bodyA: a, bodyB: b}
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Contact events. Contacts are recycled once destroyed, so events carry the
// fixtures and a copy of the manifold geometry rather than the contact.
type ContactBeginEvent struct {
	FixtureA *actor.Fixture
	FixtureB *actor.Fixture
	// Normal points from A to B
	Normal mgl64.Vec2
	Points []mgl64.Vec2
}

func (e ContactBeginEvent) Type() EventType { return CONTACT_BEGIN }

type ContactEndEvent struct {
	FixtureA *actor.Fixture
	FixtureB *actor.Fixture
}

func (e ContactEndEvent) Type() EventType { return CONTACT_END }

// Sensor events
type SensorEnterEvent struct {
	Sensor *actor.Fixture
	Other  *actor.Fixture
}

func (e SensorEnterEvent) Type() EventType { return SENSOR_ENTER }

type SensorExitEvent struct {
	Sensor *actor.Fixture
	Other  *actor.Fixture
}

func (e SensorExitEvent) Type() EventType { return SENSOR_EXIT }

// TimeOfImpactEvent reports a bullet clamped at Alpha of the step
type TimeOfImpactEvent struct {
	FixtureA *actor.Fixture
	FixtureB *actor.Fixture
	Alpha    float64
}

func (e TimeOfImpactEvent) Type() EventType { return TIME_OF_IMPACT }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// PreSolveHook runs synchronously for every solid contact update. It may
// disable the contact for the current step; it must not mutate the world.
type PreSolveHook func(c *contact.Contact, oldManifold *manifold.Manifold)

// Events buffers the contact notifications of a step and delivers them to
// the subscribers once the world is unlocked. It is the contact listener of
// its world.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener
	preSolve  []PreSolveHook

	// Event buffer to send at flush
	buffer []Event

	// Number of touching solid contacts per body pair, and the pair of
	// every contact counted in it
	touching         map[pairKey]int
	touchingContacts map[*contact.Contact]pairKey

	sleepStates map[uuid.UUID]bool
}

func NewEvents() Events {
	return Events{
		listeners:   make(map[EventType][]EventListener),
		buffer:      make([]Event, 0, 256),
		touching:         make(map[pairKey]int),
		touchingContacts: make(map[*contact.Contact]pairKey),
		sleepStates:      make(map[uuid.UUID]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// OnPreSolve adds a hook called before the contact would reach a solver
func (e *Events) OnPreSolve(hook PreSolveHook) {
	e.preSolve = append(e.preSolve, hook)
}

// IsTouching reports whether any solid fixtures of the two bodies touch
func (e *Events) IsTouching(bodyA, bodyB *actor.RigidBody) bool {
	return e.touching[makePairKey(bodyA, bodyB)] > 0
}

// BeginContact buffers a CONTACT_BEGIN or SENSOR_ENTER event
func (e *Events) BeginContact(c *contact.Contact) {
	fixtureA, fixtureB := c.FixtureA(), c.FixtureB()

	if c.IsSensor() {
		sensor, other := sensorOf(fixtureA, fixtureB)
		e.buffer = append(e.buffer, SensorEnterEvent{Sensor: sensor, Other: other})
		return
	}

	if _, ok := e.touchingContacts[c]; !ok {
		key := makePairKey(fixtureA.Body, fixtureB.Body)
		e.touchingContacts[c] = key
		e.touching[key]++
	}

	wm := c.WorldManifold()
	points := make([]mgl64.Vec2, c.Manifold().PointCount)
	copy(points, wm.Points[:len(points)])

	e.buffer = append(e.buffer, ContactBeginEvent{
		FixtureA: fixtureA,
		FixtureB: fixtureB,
		Normal:   wm.Normal,
		Points:   points,
	})
}

// EndContact buffers a CONTACT_END or SENSOR_EXIT event
func (e *Events) EndContact(c *contact.Contact) {
	fixtureA, fixtureB := c.FixtureA(), c.FixtureB()

	if c.IsSensor() {
		sensor, other := sensorOf(fixtureA, fixtureB)
		e.buffer = append(e.buffer, SensorExitEvent{Sensor: sensor, Other: other})
		return
	}

	e.untrack(c)
	e.buffer = append(e.buffer, ContactEndEvent{FixtureA: fixtureA, FixtureB: fixtureB})
}

// PreSolve runs the hooks immediately. A hook that empties the manifold
// ends the contact: it stops touching without an EndContact call, so the
// CONTACT_END event is buffered here.
func (e *Events) PreSolve(c *contact.Contact, oldManifold *manifold.Manifold) {
	for _, hook := range e.preSolve {
		hook(c, oldManifold)
	}

	if c.Manifold().PointCount == 0 && e.untrack(c) {
		e.buffer = append(e.buffer, ContactEndEvent{FixtureA: c.FixtureA(), FixtureB: c.FixtureB()})
	}
}

// untrack removes c from the touching counts; it reports false if c was not counted
func (e *Events) untrack(c *contact.Contact) bool {
	key, ok := e.touchingContacts[c]
	if !ok {
		return false
	}
	delete(e.touchingContacts, c)

	if e.touching[key] <= 1 {
		delete(e.touching, key)
	} else {
		e.touching[key]--
	}
	return true
}

func sensorOf(fixtureA, fixtureB *actor.Fixture) (sensor, other *actor.Fixture) {
	if fixtureA.IsSensor {
		return fixtureA, fixtureB
	}
	return fixtureB, fixtureA
}

func (e *Events) emitTimeOfImpact(c *contact.Contact, alpha float64) {
	e.buffer = append(e.buffer, TimeOfImpactEvent{
		FixtureA: c.FixtureA(),
		FixtureB: c.FixtureB(),
		Alpha:    alpha,
	})
}

func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		if body.IsStatic() {
			continue
		}

		trackedState, exists := e.sleepStates[body.ID]
		if !exists {
			e.sleepStates[body.ID] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body.ID] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body.ID] = false
		}
	}
}

// forget drops the tracking state of a destroyed body
func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body.ID)
}

// flush sends all buffered events and clears the buffer. Events buffered by
// the listeners themselves are delivered in the same flush.
func (e *Events) flush() {
	for i := 0; i < len(e.buffer); i++ {
		event := e.buffer[i]
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}

	clear(e.buffer)
	e.buffer = e.buffer[:0]
}

var _ contact.Listener = (*Events)(nil)
