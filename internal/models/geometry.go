package models

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityOrientation is the "no rotation" quaternion.
var IdentityOrientation = Quaternion{W: 1}

// Pose is a position plus orientation in the map frame.
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// NewPose returns a pose at (x, y) facing yaw radians.
func NewPose(x, y, yaw float64) Pose {
	return Pose{
		Position:    Point{X: x, Y: y},
		Orientation: Quaternion{Z: math.Sin(yaw / 2), W: math.Cos(yaw / 2)},
	}
}

// PlanarDistance is the Euclidean distance in the XY plane.
func PlanarDistance(a, b Pose) float64 {
	return math.Hypot(b.Position.X-a.Position.X, b.Position.Y-a.Position.Y)
}

// AngularDelta returns the rotation angle in radians between two orientations.
// A zero quaternion is treated as the identity.
func AngularDelta(a, b Quaternion) float64 {
	a, b = a.normalized(), b.normalized()
	dot := math.Abs(a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W)
	if dot > 1 {
		dot = 1
	}
	return 2 * math.Acos(dot)
}

func (q Quaternion) normalized() Quaternion {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityOrientation
	}
	return Quaternion{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}
