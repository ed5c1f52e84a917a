package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies move and take part in continuous collision
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// (e.g., ground, walls)
	BodyTypeStatic
)

// ContactEdge links a body to one of its contacts. Contact is a handle into
// the contact arena, Other is the body on the far side of the contact.
type ContactEdge struct {
	Contact int
	Other   *RigidBody
}

// RigidBody represents a rigid body in the collision world
type RigidBody struct {
	ID uuid.UUID

	// Spatial properties
	Transform Transform
	Sweep     Sweep

	LinearVelocity  mgl64.Vec2 // m/s
	AngularVelocity float64    // rad/s

	Mass, InverseMass       float64
	Inertia, InverseInertia float64 // about the center of mass

	BodyType BodyType
	// IsBullet opts the body into continuous collision against other dynamic bodies
	IsBullet bool

	IsSleeping bool
	SleepTimer float64

	Fixtures []*Fixture
	// ContactEdges is maintained by the contact manager; order is not significant
	ContactEdges []ContactEdge

	UserData any
}

// NewRigidBody creates a body at the given transform with no fixtures
func NewRigidBody(transform Transform, bodyType BodyType) *RigidBody {
	rb := &RigidBody{
		ID:        uuid.New(),
		Transform: transform,
		BodyType:  bodyType,
	}

	angle := transform.Angle()
	rb.Sweep = Sweep{
		C0: transform.Position,
		C:  transform.Position,
		A0: angle,
		A:  angle,
	}

	return rb
}

func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

// AddFixture attaches the fixture and refreshes the mass properties
func (rb *RigidBody) AddFixture(fixture *Fixture) {
	fixture.Body = rb
	rb.Fixtures = append(rb.Fixtures, fixture)
	rb.ResetMassData()
}

// RemoveFixture detaches the fixture; it reports false if it was not attached
func (rb *RigidBody) RemoveFixture(fixture *Fixture) bool {
	for i, f := range rb.Fixtures {
		if f == fixture {
			rb.Fixtures = append(rb.Fixtures[:i], rb.Fixtures[i+1:]...)
			fixture.Body = nil
			rb.ResetMassData()
			return true
		}
	}
	return false
}

// ResetMassData accumulates the fixture mass properties and moves the
// center of mass, keeping the body origin in place.
func (rb *RigidBody) ResetMassData() {
	rb.Mass, rb.InverseMass = 0, 0
	rb.Inertia, rb.InverseInertia = 0, 0
	rb.Sweep.LocalCenter = mgl64.Vec2{}

	if rb.BodyType == BodyTypeStatic {
		rb.Sweep.C0 = rb.Transform.Position
		rb.Sweep.C = rb.Transform.Position
		return
	}

	var center mgl64.Vec2
	for _, f := range rb.Fixtures {
		if f.Density == 0 {
			continue
		}
		data := f.Shape.ComputeMass(f.Density)
		rb.Mass += data.Mass
		center = center.Add(data.Center.Mul(data.Mass))
		rb.Inertia += data.Inertia
	}

	if rb.Mass > 0 {
		center = center.Mul(1.0 / rb.Mass)
	} else {
		// Dynamic bodies always carry some mass.
		rb.Mass = 1
	}
	rb.InverseMass = 1.0 / rb.Mass

	if rb.Inertia > 0 {
		rb.Inertia -= rb.Mass * center.Dot(center)
		if rb.Inertia > 0 {
			rb.InverseInertia = 1.0 / rb.Inertia
		}
	}

	rb.Sweep.LocalCenter = center
	rb.Sweep.C = rb.Transform.Apply(center)
	rb.Sweep.C0 = rb.Sweep.C
}

// SetTransform teleports the body; the sweep collapses to the new placement
func (rb *RigidBody) SetTransform(position mgl64.Vec2, angle float64) {
	rb.Transform = NewTransform(position, angle)
	rb.Sweep.C = rb.Transform.Apply(rb.Sweep.LocalCenter)
	rb.Sweep.C0 = rb.Sweep.C
	rb.Sweep.A = angle
	rb.Sweep.A0 = angle
	rb.Sweep.T0 = 0
}

// SynchronizeTransform rebuilds the transform from the end of the sweep
func (rb *RigidBody) SynchronizeTransform() {
	rb.Transform = NewTransform(mgl64.Vec2{}, rb.Sweep.A)
	rb.Transform.Position = rb.Sweep.C.Sub(rb.Transform.Rotate(rb.Sweep.LocalCenter))
}

// Advance clamps the body at time t of its sweep, discarding the rest of the motion
func (rb *RigidBody) Advance(t float64) {
	rb.Sweep.Advance(t)
	rb.Sweep.C = rb.Sweep.C0
	rb.Sweep.A = rb.Sweep.A0
	rb.SynchronizeTransform()
}

// Integrate moves the sweep forward by the current velocities. Forces and
// constraints are the responsibility of the solver.
func (rb *RigidBody) Integrate(dt float64) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	rb.Sweep.C0 = rb.Sweep.C
	rb.Sweep.A0 = rb.Sweep.A
	rb.Sweep.T0 = 0
	rb.Sweep.Normalize()

	rb.Sweep.C = rb.Sweep.C.Add(rb.LinearVelocity.Mul(dt))
	rb.Sweep.A += rb.AngularVelocity * dt

	rb.SynchronizeTransform()
}

// StartTransform is the placement at the start of the current sweep
func (rb *RigidBody) StartTransform() Transform {
	return rb.Sweep.Transform(rb.Sweep.T0)
}

// WorldCenter is the center of mass in world coordinates
func (rb *RigidBody) WorldCenter() mgl64.Vec2 {
	return rb.Sweep.C
}

// TrySleep puts the body to sleep once both speeds stayed under their
// tolerances for timeThreshold seconds.
func (rb *RigidBody) TrySleep(dt, timeThreshold, linearTolerance, angularTolerance float64) {
	if rb.BodyType == BodyTypeStatic {
		return
	}

	if rb.LinearVelocity.Len() < linearTolerance && math.Abs(rb.AngularVelocity) < angularTolerance {
		rb.SleepTimer += dt
		if rb.SleepTimer >= timeThreshold {
			rb.Sleep()
		}
	} else {
		rb.Awake()
	}
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.LinearVelocity = mgl64.Vec2{}
	rb.AngularVelocity = 0
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}
