package contact

import (
	"iter"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/settings"
)

// PairSource is the part of the broad phase the manager depends on
type PairSource interface {
	UpdatePairs(callback func(userDataA, userDataB any))
	TestOverlap(proxyIDA, proxyIDB int) bool
}

// Manager owns every contact of a world. Contacts live in an arena and are
// addressed by handle; each body lists its contacts in ContactEdges.
type Manager struct {
	registry   *Registry
	broadPhase PairSource
	listener   Listener
	filter     ContactFilter

	contacts []*Contact
	free     []int
	count    int
}

// NewManager creates a manager. A nil listener or filter falls back to
// NopListener and DefaultFilter.
func NewManager(registry *Registry, broadPhase PairSource, listener Listener, filter ContactFilter) *Manager {
	if listener == nil {
		listener = NopListener{}
	}
	if filter == nil {
		filter = DefaultFilter{}
	}

	return &Manager{
		registry:   registry,
		broadPhase: broadPhase,
		listener:   listener,
		filter:     filter,
		contacts:   make([]*Contact, 0, 64),
	}
}

func (m *Manager) SetListener(listener Listener) {
	if listener == nil {
		listener = NopListener{}
	}
	m.listener = listener
}

func (m *Manager) SetFilter(filter ContactFilter) {
	if filter == nil {
		filter = DefaultFilter{}
	}
	m.filter = filter
}

// FindNewContacts creates contacts for the pairs reported by the broad phase
func (m *Manager) FindNewContacts() {
	m.broadPhase.UpdatePairs(m.AddPair)
}

// AddPair is the broad-phase pair callback. The user data are fixtures.
func (m *Manager) AddPair(userDataA, userDataB any) {
	fixtureA := userDataA.(*actor.Fixture)
	fixtureB := userDataB.(*actor.Fixture)

	bodyA := fixtureA.Body
	bodyB := fixtureB.Body

	// Fixtures of the same body never collide.
	if bodyA == bodyB {
		return
	}

	if m.find(fixtureA, fixtureB) != nil {
		return
	}

	if bodyA.IsStatic() && bodyB.IsStatic() {
		return
	}

	if !m.filter.ShouldCollide(fixtureA, fixtureB) {
		return
	}

	c := m.registry.Create(fixtureA, fixtureB)
	if c == nil {
		return
	}

	m.insert(c)
}

// find looks for an existing contact between the two fixtures, in either order
func (m *Manager) find(fixtureA, fixtureB *actor.Fixture) *Contact {
	bodyA := fixtureA.Body
	bodyB := fixtureB.Body

	// Scan the shorter list.
	edges := bodyB.ContactEdges
	other := bodyA
	if len(bodyA.ContactEdges) < len(edges) {
		edges = bodyA.ContactEdges
		other = bodyB
	}

	for _, edge := range edges {
		if edge.Other != other {
			continue
		}

		c := m.contacts[edge.Contact]
		if (c.fixtureA == fixtureA && c.fixtureB == fixtureB) || (c.fixtureA == fixtureB && c.fixtureB == fixtureA) {
			return c
		}
	}

	return nil
}

func (m *Manager) insert(c *Contact) {
	if n := len(m.free); n > 0 {
		c.handle = m.free[n-1]
		m.free = m.free[:n-1]
		m.contacts[c.handle] = c
	} else {
		c.handle = len(m.contacts)
		m.contacts = append(m.contacts, c)
	}
	m.count++

	bodyA := c.fixtureA.Body
	bodyB := c.fixtureB.Body

	c.slotA = len(bodyA.ContactEdges)
	bodyA.ContactEdges = append(bodyA.ContactEdges, actor.ContactEdge{Contact: c.handle, Other: bodyB})
	c.slotB = len(bodyB.ContactEdges)
	bodyB.ContactEdges = append(bodyB.ContactEdges, actor.ContactEdge{Contact: c.handle, Other: bodyA})

	if c.IsSolid() {
		bodyA.Awake()
		bodyB.Awake()
	}
}

// Destroy notifies the end of a touching contact, wakes the bodies if the
// manifold held points, unlinks the contact from both bodies and releases it.
func (m *Manager) Destroy(c *Contact) {
	settings.Assert(0 <= c.handle && c.handle < len(m.contacts) && m.contacts[c.handle] == c,
		"contact handle %d is not live", c.handle)

	bodyA := c.fixtureA.Body
	bodyB := c.fixtureB.Body

	if c.IsTouching() {
		m.listener.EndContact(c)
	}

	if c.manifold.PointCount > 0 {
		bodyA.Awake()
		bodyB.Awake()
	}

	m.unlink(bodyA, c.slotA)
	m.unlink(bodyB, c.slotB)

	m.contacts[c.handle] = nil
	m.free = append(m.free, c.handle)
	m.count--

	m.registry.Destroy(c)
}

// unlink removes the edge at slot with a swap-and-pop, then repairs the slot
// of the contact whose edge was moved.
func (m *Manager) unlink(body *actor.RigidBody, slot int) {
	last := len(body.ContactEdges) - 1
	settings.Assert(0 <= slot && slot <= last, "contact slot %d out of range", slot)

	if slot != last {
		moved := body.ContactEdges[last]
		body.ContactEdges[slot] = moved

		mc := m.contacts[moved.Contact]
		if mc.fixtureA.Body == body {
			mc.slotA = slot
		} else {
			mc.slotB = slot
		}
	}

	body.ContactEdges[last] = actor.ContactEdge{}
	body.ContactEdges = body.ContactEdges[:last]
}

// DestroyFixture destroys every contact involving the fixture
func (m *Manager) DestroyFixture(fixture *actor.Fixture) {
	body := fixture.Body
	for i := len(body.ContactEdges) - 1; i >= 0; i-- {
		c := m.contacts[body.ContactEdges[i].Contact]
		if c.fixtureA == fixture || c.fixtureB == fixture {
			m.Destroy(c)
		}
	}
}

// DestroyBody destroys every contact of the body
func (m *Manager) DestroyBody(body *actor.RigidBody) {
	for len(body.ContactEdges) > 0 {
		m.Destroy(m.contacts[body.ContactEdges[len(body.ContactEdges)-1].Contact])
	}
}

// Collide updates every contact. Contacts whose fattened boxes stopped
// overlapping are destroyed; contacts between inactive bodies are kept as is.
func (m *Manager) Collide() {
	for handle := 0; handle < len(m.contacts); handle++ {
		c := m.contacts[handle]
		if c == nil {
			continue
		}

		bodyA := c.fixtureA.Body
		bodyB := c.fixtureB.Body
		if !isActive(bodyA) && !isActive(bodyB) {
			continue
		}

		if !m.broadPhase.TestOverlap(c.fixtureA.ProxyID, c.fixtureB.ProxyID) {
			m.Destroy(c)
			continue
		}

		c.Update(m.listener)
	}
}

func isActive(body *actor.RigidBody) bool {
	return !body.IsStatic() && !body.IsSleeping
}

// Get returns the live contact for the handle
func (m *Manager) Get(handle int) *Contact {
	settings.Assert(0 <= handle && handle < len(m.contacts) && m.contacts[handle] != nil,
		"contact handle %d is not live", handle)
	return m.contacts[handle]
}

// Count is the number of live contacts
func (m *Manager) Count() int {
	return m.count
}

// All iterates the live contacts in handle order
func (m *Manager) All() iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		for _, c := range m.contacts {
			if c == nil {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Of iterates the contacts of a body. The body must not gain or lose
// contacts during the iteration.
func (m *Manager) Of(body *actor.RigidBody) iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		for _, edge := range body.ContactEdges {
			if !yield(m.contacts[edge.Contact]) {
				return
			}
		}
	}
}
