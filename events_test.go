package impact

import (
	"testing"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/contact"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFixture(position mgl64.Vec2, shape actor.ShapeInterface) *actor.Fixture {
	body := actor.NewRigidBody(actor.NewTransform(position, 0), actor.BodyTypeDynamic)
	fixture := actor.NewFixture(shape, 1)
	body.AddFixture(fixture)
	return fixture
}

// =============================================================================
// Subscribe and Listeners Tests
// =============================================================================

func TestEvents_Subscribe(t *testing.T) {
	events := NewEvents()
	first := &eventCapture{}
	second := &eventCapture{}

	events.Subscribe(ON_SLEEP, first.capture)
	events.Subscribe(ON_SLEEP, second.capture)
	events.Subscribe(ON_WAKE, second.capture)

	body := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeDynamic)
	events.buffer = append(events.buffer, SleepEvent{Body: body}, WakeEvent{Body: body})
	events.flush()

	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 2)
	assert.Empty(t, events.buffer)

	// Flushing twice does not deliver again.
	events.flush()
	assert.Len(t, first.events, 1)
}

func TestEvents_FlushDeliversEventsBufferedByListeners(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	body := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeDynamic)

	events.Subscribe(ON_SLEEP, func(Event) {
		events.buffer = append(events.buffer, WakeEvent{Body: body})
	})
	events.Subscribe(ON_WAKE, capture.capture)

	events.buffer = append(events.buffer, SleepEvent{Body: body})
	events.flush()

	assert.Len(t, capture.events, 1)
	assert.Empty(t, events.buffer)
}

func TestEvents_ContactNotifications(t *testing.T) {
	tests := []struct {
		name      string
		sensorA   bool
		sensorB   bool
		enterType EventType
		exitType  EventType
	}{
		{"solid", false, false, CONTACT_BEGIN, CONTACT_END},
		{"sensor A", true, false, SENSOR_ENTER, SENSOR_EXIT},
		{"sensor B", false, true, SENSOR_ENTER, SENSOR_EXIT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := NewEvents()
			capture := &eventCapture{}
			for eventType := CONTACT_BEGIN; eventType <= ON_WAKE; eventType++ {
				events.Subscribe(eventType, capture.capture)
			}

			a := newTestFixture(mgl64.Vec2{}, actor.NewCircle(mgl64.Vec2{}, 1))
			b := newTestFixture(mgl64.Vec2{1.5, 0}, actor.NewCircle(mgl64.Vec2{}, 1))
			a.IsSensor = tt.sensorA
			b.IsSensor = tt.sensorB

			c := contact.NewRegistry().Create(a, b)
			require.NotNil(t, c)

			c.Update(&events)
			events.flush()
			require.Len(t, capture.events, 1)
			assert.Equal(t, tt.enterType, capture.events[0].Type())

			b.Body.SetTransform(mgl64.Vec2{5, 0}, 0)
			c.Update(&events)
			events.flush()
			require.Len(t, capture.events, 2)
			assert.Equal(t, tt.exitType, capture.events[1].Type())

			switch e := capture.events[0].(type) {
			case ContactBeginEvent:
				assert.Same(t, a, e.FixtureA)
				assert.InDelta(t, 1.0, e.Normal.X(), 1e-9)
				assert.Len(t, e.Points, 1)
			case SensorEnterEvent:
				assert.True(t, e.Sensor.IsSensor)
				assert.False(t, e.Other.IsSensor)
			default:
				t.Errorf("unexpected event %T", e)
			}
		})
	}
}

func TestEvents_IsTouching(t *testing.T) {
	events := NewEvents()
	registry := contact.NewRegistry()

	a1 := newTestFixture(mgl64.Vec2{}, actor.NewCircle(mgl64.Vec2{}, 1))
	a2 := actor.NewFixture(actor.NewCircle(mgl64.Vec2{0, 0.5}, 1), 1)
	a1.Body.AddFixture(a2)
	b := newTestFixture(mgl64.Vec2{1.5, 0}, actor.NewCircle(mgl64.Vec2{}, 1))

	c1 := registry.Create(a1, b)
	c2 := registry.Create(a2, b)
	c1.Update(&events)
	c2.Update(&events)

	assert.True(t, events.IsTouching(a1.Body, b.Body))
	assert.True(t, events.IsTouching(b.Body, a1.Body), "pair keys ignore the order")

	b.Body.SetTransform(mgl64.Vec2{1.5, 1.5}, 0)
	c1.Update(&events)
	require.False(t, c1.IsTouching())
	require.True(t, c2.IsTouching())
	assert.True(t, events.IsTouching(a1.Body, b.Body), "one fixture pair still touches")

	b.Body.SetTransform(mgl64.Vec2{10, 0}, 0)
	c2.Update(&events)
	assert.False(t, events.IsTouching(a1.Body, b.Body))
	assert.Empty(t, events.touching)
}

func TestEvents_RepeatedNotificationsCountOnce(t *testing.T) {
	events := NewEvents()
	a := newTestFixture(mgl64.Vec2{}, actor.NewCircle(mgl64.Vec2{}, 1))
	b := newTestFixture(mgl64.Vec2{1.5, 0}, actor.NewCircle(mgl64.Vec2{}, 1))
	c := contact.NewRegistry().Create(a, b)
	c.Update(&events)
	require.True(t, c.IsTouching())

	events.BeginContact(c)
	assert.Equal(t, 1, events.touching[makePairKey(a.Body, b.Body)])

	events.EndContact(c)
	events.EndContact(c)
	assert.False(t, events.IsTouching(a.Body, b.Body))
	assert.Empty(t, events.touching)
}

func TestEvents_MakePairKey(t *testing.T) {
	a := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeDynamic)
	b := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeDynamic)

	assert.Equal(t, makePairKey(a, b), makePairKey(b, a))
	assert.NotEqual(t, makePairKey(a, a), makePairKey(a, b))
}

func TestEvents_SleepTracking(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(ON_SLEEP, capture.capture)
	events.Subscribe(ON_WAKE, capture.capture)

	body := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeDynamic)
	static := actor.NewRigidBody(actor.IdentityTransform(), actor.BodyTypeStatic)
	bodies := []*actor.RigidBody{body, static}

	// The first pass only records the states.
	events.processSleepEvents(bodies)
	events.flush()
	assert.Empty(t, capture.events)

	body.Sleep()
	events.processSleepEvents(bodies)
	events.processSleepEvents(bodies)
	events.flush()
	require.Len(t, capture.events, 1)
	assert.Equal(t, ON_SLEEP, capture.events[0].Type())

	body.Awake()
	events.processSleepEvents(bodies)
	events.flush()
	require.Len(t, capture.events, 2)
	assert.Equal(t, ON_WAKE, capture.events[1].Type())

	events.forget(body)
	assert.NotContains(t, events.sleepStates, body.ID)
	assert.NotContains(t, events.sleepStates, static.ID)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "CONTACT_BEGIN", CONTACT_BEGIN.String())
	assert.Equal(t, "ON_WAKE", ON_WAKE.String())
	assert.Equal(t, "UNKNOWN", EventType(200).String())
}
