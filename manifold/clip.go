package manifold

import (
	"github.com/go-gl/mathgl/mgl64"
)

// clipVertex is a world-space point tagged with the features that produced it
type clipVertex struct {
	v  mgl64.Vec2
	id ID
}

// clipSegmentToLine implements one Sutherland-Hodgman step for a segment.
//
// The clipping plane is {p : dot(normal, p) = offset}; points with
// dot(normal, p) - offset <= 0 are kept. When the segment crosses the plane
// the intersection replaces the outside endpoint, and its id records the
// reference vertex that bounds the plane (vertexIndexA) along with the
// incident face it was cut from.
//
// For two boxes:
//
//	  incident  o-----------o
//	               |     |
//	reference  ----+-----+----
//	           side1     side2
//
// clipping against side1 then side2 leaves the part of the incident edge
// lying over the reference face.
//
// Returns the clipped points and how many are valid (0 to 2).
func clipSegmentToLine(vIn [2]clipVertex, normal mgl64.Vec2, offset float64, vertexIndexA int) ([2]clipVertex, int) {
	var vOut [2]clipVertex
	count := 0

	// Distances of the end points to the line
	distance0 := normal.Dot(vIn[0].v) - offset
	distance1 := normal.Dot(vIn[1].v) - offset

	// Keep the points behind the plane.
	if distance0 <= 0 {
		vOut[count] = vIn[0]
		count++
	}
	if distance1 <= 0 {
		vOut[count] = vIn[1]
		count++
	}

	// The points are on different sides of the plane.
	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		vOut[count].v = vIn[0].v.Add(vIn[1].v.Sub(vIn[0].v).Mul(interp))

		// Vertex A is hitting edge B.
		vOut[count].id = ID{
			IndexA: uint8(vertexIndexA),
			IndexB: vIn[0].id.IndexB,
			TypeA:  FeatureVertex,
			TypeB:  FeatureFace,
		}
		count++
	}

	return vOut, count
}
