// Package frames converts between the simulation convention and the
// robotics convention.
//
//   - simulation: centimetres, left-handed (X forward, Y right, Z up)
//   - robotics:   metres, right-handed (X forward, Y left, Z up)
//
// Every function is pure. Each ROSToSim function is the inverse of its
// SimToROS counterpart up to floating-point rounding.
package frames

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

// Unit scale factors between the two conventions.
const (
	CentimetresPerMetre = 100.0
	MetresPerCentimetre = 0.01
)

// Transform is a rigid transform in either convention.
type Transform struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// ConvertHandedness mirrors the Y axis without changing units.
func ConvertHandedness(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: -v.Y, Z: v.Z}
}

// VectorSimToROS converts a position or linear velocity from cm to m and
// flips handedness.
func VectorSimToROS(v r3.Vec) r3.Vec {
	return r3.Scale(MetresPerCentimetre, ConvertHandedness(v))
}

// VectorROSToSim converts a position or linear velocity from m to cm and
// flips handedness.
func VectorROSToSim(v r3.Vec) r3.Vec {
	return r3.Scale(CentimetresPerMetre, ConvertHandedness(v))
}

// RotationSimToROS converts a rotation expressed as a vector (roll, pitch,
// yaw or an angular velocity) by negating Y and Z.
func RotationSimToROS(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: -v.Y, Z: -v.Z}
}

// RotationROSToSim is the inverse of RotationSimToROS.
func RotationROSToSim(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: -v.Y, Z: -v.Z}
}

// QuatSimToROS converts a quaternion by negating its X and Z vector parts.
func QuatSimToROS(q quat.Number) quat.Number {
	return quat.Number{Real: q.Real, Imag: -q.Imag, Jmag: q.Jmag, Kmag: -q.Kmag}
}

// QuatROSToSim is the inverse of QuatSimToROS.
func QuatROSToSim(q quat.Number) quat.Number {
	return quat.Number{Real: q.Real, Imag: -q.Imag, Jmag: q.Jmag, Kmag: -q.Kmag}
}

// TransformSimToROS converts both the translation and rotation of t.
func TransformSimToROS(t Transform) Transform {
	return Transform{
		Translation: VectorSimToROS(t.Translation),
		Rotation:    QuatSimToROS(t.Rotation),
	}
}

// TransformROSToSim is the inverse of TransformSimToROS.
func TransformROSToSim(t Transform) Transform {
	return Transform{
		Translation: VectorROSToSim(t.Translation),
		Rotation:    QuatROSToSim(t.Rotation),
	}
}

// OdomSimToROS converts the pose and twist of an odometry record.
// Header, child frame and covariance are carried over unchanged.
func OdomSimToROS(in rosmsg.Odometry) rosmsg.Odometry {
	out := in
	out.Pose.Pose.Position = VectorSimToROS(in.Pose.Pose.Position)
	out.Pose.Pose.Orientation = QuatSimToROS(in.Pose.Pose.Orientation)
	out.Twist.Twist.Linear = VectorSimToROS(in.Twist.Twist.Linear)
	out.Twist.Twist.Angular = RotationSimToROS(in.Twist.Twist.Angular)
	return out
}

// OdomROSToSim is the inverse of OdomSimToROS.
func OdomROSToSim(in rosmsg.Odometry) rosmsg.Odometry {
	out := in
	out.Pose.Pose.Position = VectorROSToSim(in.Pose.Pose.Position)
	out.Pose.Pose.Orientation = QuatROSToSim(in.Pose.Pose.Orientation)
	out.Twist.Twist.Linear = VectorROSToSim(in.Twist.Twist.Linear)
	out.Twist.Twist.Angular = RotationROSToSim(in.Twist.Twist.Angular)
	return out
}

// TransformStampedSimToROS builds a TF record for a sim-convention transform.
func TransformStampedSimToROS(header rosmsg.Header, child string, t Transform) rosmsg.TransformStamped {
	ros := TransformSimToROS(t)
	return rosmsg.TransformStamped{
		Header:       header,
		ChildFrameID: child,
		Transform: rosmsg.Transform{
			Translation: ros.Translation,
			Rotation:    ros.Rotation,
		},
	}
}

// SecondsToStamp splits a simulation time in seconds into whole seconds and
// the remaining nanoseconds. Negative or NaN input yields the zero stamp.
func SecondsToStamp(seconds float64) rosmsg.Time {
	if !(seconds > 0) {
		return rosmsg.Time{}
	}
	sec := math.Floor(seconds)
	ns := math.Round((seconds - sec) * 1e9)
	if ns >= 1e9 {
		sec++
		ns -= 1e9
	}
	return rosmsg.Time{Sec: int32(sec), Nanosec: uint32(ns)}
}

// StampToSeconds is the inverse of SecondsToStamp.
func StampToSeconds(t rosmsg.Time) float64 {
	return float64(t.Sec) + float64(t.Nanosec)*1e-9
}

// YawQuat returns the rotation of yaw radians about +Z.
func YawQuat(yaw float64) quat.Number {
	s, c := math.Sincos(yaw / 2)
	return quat.Number{Real: c, Kmag: s}
}

// Yaw extracts the rotation about +Z from a unit quaternion.
func Yaw(q quat.Number) float64 {
	siny := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosy := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	return math.Atan2(siny, cosy)
}

// Identity is the identity rotation.
var Identity = quat.Number{Real: 1}
