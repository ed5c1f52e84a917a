package impact

import (
	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/contact"
	"github.com/akmonengine/impact/settings"
	"github.com/akmonengine/impact/toi"
)

// synchronizeFixtures moves the proxies of the awake bodies. The proxy box
// covers the whole sweep so fast bodies still produce their pairs.
func (w *World) synchronizeFixtures() {
	for _, body := range w.bodies {
		if body.IsStatic() || body.IsSleeping {
			continue
		}
		w.synchronizeBody(body)
	}
}

func (w *World) synchronizeBody(body *actor.RigidBody) {
	displacement := body.Transform.Position.Sub(body.StartTransform().Position)

	for _, f := range body.Fixtures {
		if f.ProxyID == actor.NullProxy {
			continue
		}
		w.broadPhase.MoveProxy(f.ProxyID, f.SweptAABB(), displacement)
	}
}

// solveTOI clamps bodies at their earliest time of impact. Each iteration
// finds the fast contact with the smallest TOI, moves both bodies back to
// that time and discards the rest of their motion for the step.
func (w *World) solveTOI() {
	// Inactive bodies stand still at their current placement.
	for _, body := range w.bodies {
		if isActive(body) {
			continue
		}
		body.Sweep.C0 = body.Sweep.C
		body.Sweep.A0 = body.Sweep.A
		body.Sweep.T0 = 0
	}

	for c := range w.contacts.All() {
		c.ClearTOI()
	}

	clamps := 0
	for clamps < w.config.MaxTOIContacts {
		minContact, minAlpha := w.findMinTOI()
		if minContact == nil || 1.0-10.0*settings.Epsilon < minAlpha {
			break
		}

		fixtureA := minContact.FixtureA()
		fixtureB := minContact.FixtureB()
		bodyA := fixtureA.Body
		bodyB := fixtureB.Body

		if isActive(bodyA) {
			bodyA.Advance(minAlpha)
		}
		if isActive(bodyB) {
			bodyB.Advance(minAlpha)
		}

		minContact.Update(&w.Events)
		minContact.ClearTOI()
		clamps++

		// The other contacts of both bodies saw the discarded motion.
		w.invalidateTOI(bodyA)
		w.invalidateTOI(bodyB)

		w.synchronizeBody(bodyA)
		w.synchronizeBody(bodyB)

		w.Events.emitTimeOfImpact(minContact, minAlpha)
		w.logger.Debugf("toi: clamped %v and %v at %.4f", bodyA.ID, bodyB.ID, minAlpha)
	}

	if clamps == w.config.MaxTOIContacts {
		w.logger.Debugf("toi: reached the limit of %d impacts", clamps)
	}
}

// findMinTOI computes and caches the TOI of every fast contact
func (w *World) findMinTOI() (*contact.Contact, float64) {
	var minContact *contact.Contact
	minAlpha := 1.0

	for c := range w.contacts.All() {
		if !c.IsEnabled() || c.IsSensor() || c.IsSlow() {
			continue
		}

		alpha := 1.0
		if c.HasTOI() {
			alpha = c.TOI()
		} else {
			alpha = w.computeTOI(c)
			c.SetTOI(alpha)
		}

		if alpha < minAlpha {
			minContact = c
			minAlpha = alpha
		}
	}

	return minContact, minAlpha
}

// computeTOI rebases both sweeps on the later start time, then converts the
// fraction of the remaining interval into a fraction of the step.
func (w *World) computeTOI(c *contact.Contact) float64 {
	fixtureA := c.FixtureA()
	fixtureB := c.FixtureB()
	bodyA := fixtureA.Body
	bodyB := fixtureB.Body

	if !isActive(bodyA) && !isActive(bodyB) {
		return 1.0
	}

	t0 := max(bodyA.Sweep.T0, bodyB.Sweep.T0)
	if 1.0-t0 <= settings.Epsilon {
		return 1.0
	}

	sweepA := bodyA.Sweep
	sweepB := bodyB.Sweep
	sweepA.Advance(t0)
	sweepB.Advance(t0)

	alpha := toi.Compute(toi.Input{
		ShapeA:    fixtureA.Shape,
		SweepA:    sweepA,
		ShapeB:    fixtureB.Shape,
		SweepB:    sweepB,
		Tolerance: w.config.TOITolerance,
	}, &w.toiStats)

	if 0 < alpha && alpha < 1 {
		return min(t0+(1.0-t0)*alpha, 1.0)
	}
	return 1.0
}

func (w *World) invalidateTOI(body *actor.RigidBody) {
	for c := range w.contacts.Of(body) {
		c.ClearTOI()
	}
}

func isActive(body *actor.RigidBody) bool {
	return !body.IsStatic() && !body.IsSleeping
}
