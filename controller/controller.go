// Package controller holds per-step velocity modifiers applied by the world
// before bodies are advanced.
package controller

import "github.com/akmonengine/impact/actor"

// Controller acts on a set of bodies once per world step
type Controller interface {
	Step(dt float64)
	AddBody(body *actor.RigidBody)
	RemoveBody(body *actor.RigidBody) bool
}

// BodyList is the body bookkeeping shared by controllers
type BodyList struct {
	Bodies []*actor.RigidBody
}

// AddBody registers the body once; adding it again is a no-op
func (l *BodyList) AddBody(body *actor.RigidBody) {
	for _, b := range l.Bodies {
		if b == body {
			return
		}
	}
	l.Bodies = append(l.Bodies, body)
}

// RemoveBody reports false if the body was not registered
func (l *BodyList) RemoveBody(body *actor.RigidBody) bool {
	for i, b := range l.Bodies {
		if b == body {
			l.Bodies = append(l.Bodies[:i], l.Bodies[i+1:]...)
			return true
		}
	}
	return false
}
