// Package rosmsg holds the outbound message records in the robotics
// middleware layout (sensor_msgs/LaserScan, nav_msgs/Odometry,
// geometry_msgs/TransformStamped).
//
// All values in these records use the robotics convention: metres,
// right-handed axes, radians. Conversion from the simulation convention
// lives in package frames.
package rosmsg

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Time is a builtin_interfaces/Time stamp.
type Time struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// Header is a std_msgs/Header.
type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// LaserScan is a single scan from a planar range finder.
// Angles are measured counter-clockwise around +Z with zero along +X.
type LaserScan struct {
	Header         Header    `json:"header"`
	AngleMin       float32   `json:"angle_min"`       // start angle of the scan [rad]
	AngleMax       float32   `json:"angle_max"`       // end angle of the scan [rad]
	AngleIncrement float32   `json:"angle_increment"` // angular distance between measurements [rad]
	TimeIncrement  float32   `json:"time_increment"`  // time between measurements [s]
	ScanTime       float32   `json:"scan_time"`       // time between scans [s]
	RangeMin       float32   `json:"range_min"`       // [m]
	RangeMax       float32   `json:"range_max"`       // [m]
	Ranges         []float32 `json:"ranges"`          // [m]
	Intensities    []float32 `json:"intensities"`     // NaN marks an unknown return
}

// Pose is a position and orientation.
type Pose struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
}

// Twist is a linear and angular velocity pair.
type Twist struct {
	Linear  r3.Vec `json:"linear"`
	Angular r3.Vec `json:"angular"`
}

// Covariance is a row-major 6x6 matrix over (x, y, z, roll, pitch, yaw).
type Covariance [36]float64

// PoseWithCovariance is a pose estimate with its uncertainty.
type PoseWithCovariance struct {
	Pose       Pose       `json:"pose"`
	Covariance Covariance `json:"covariance"`
}

// TwistWithCovariance is a twist estimate with its uncertainty.
type TwistWithCovariance struct {
	Twist      Twist      `json:"twist"`
	Covariance Covariance `json:"covariance"`
}

// Odometry is an estimate of pose and velocity in free space.
// Pose is in Header.FrameID, twist is in ChildFrameID.
type Odometry struct {
	Header       Header              `json:"header"`
	ChildFrameID string              `json:"child_frame_id"`
	Pose         PoseWithCovariance  `json:"pose"`
	Twist        TwistWithCovariance `json:"twist"`
}

// Transform is a translation plus rotation.
type Transform struct {
	Translation r3.Vec      `json:"translation"`
	Rotation    quat.Number `json:"rotation"`
}

// TransformStamped expresses the transform from Header.FrameID to ChildFrameID.
type TransformStamped struct {
	Header       Header    `json:"header"`
	ChildFrameID string    `json:"child_frame_id"`
	Transform    Transform `json:"transform"`
}

// Len returns the number of range samples in the scan.
func (s *LaserScan) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Ranges)
}
