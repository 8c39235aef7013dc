package frames

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

const tol = 1e-9

func assertVecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "X")
	assert.InDelta(t, want.Y, got.Y, tol, "Y")
	assert.InDelta(t, want.Z, got.Z, tol, "Z")
}

func TestVectorSimToROS_UnitAndHandedness(t *testing.T) {
	t.Parallel()

	assertVecNear(t, r3.Vec{X: 0.01}, VectorSimToROS(r3.Vec{X: 1}))
	assertVecNear(t, r3.Vec{Y: -0.01}, VectorSimToROS(r3.Vec{Y: 1}))
	assertVecNear(t, r3.Vec{Z: 0.01}, VectorSimToROS(r3.Vec{Z: 1}))
	assertVecNear(t, r3.Vec{X: 100, Y: -200, Z: 300}, VectorROSToSim(r3.Vec{X: 1, Y: 2, Z: 3}))
}

func TestConvertHandedness(t *testing.T) {
	t.Parallel()
	assert.Equal(t, r3.Vec{X: 1, Y: -2, Z: 3}, ConvertHandedness(r3.Vec{X: 1, Y: 2, Z: 3}))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	vecs := []r3.Vec{
		{},
		{X: 1, Y: 2, Z: 3},
		{X: -123.456, Y: 0.001, Z: 1e6},
		{X: math.Pi, Y: -math.E, Z: 42},
	}
	for _, v := range vecs {
		assertVecNear(t, v, VectorROSToSim(VectorSimToROS(v)))
		assertVecNear(t, v, VectorSimToROS(VectorROSToSim(v)))
		assertVecNear(t, v, RotationROSToSim(RotationSimToROS(v)))
		assertVecNear(t, v, RotationSimToROS(RotationROSToSim(v)))
	}

	quats := []quat.Number{
		Identity,
		YawQuat(0.7),
		{Real: 0.5, Imag: 0.5, Jmag: -0.5, Kmag: 0.5},
	}
	for _, q := range quats {
		assert.Equal(t, q, QuatROSToSim(QuatSimToROS(q)))
		assert.Equal(t, q, QuatSimToROS(QuatROSToSim(q)))

		tr := Transform{Translation: r3.Vec{X: 10, Y: -20, Z: 5}, Rotation: q}
		back := TransformROSToSim(TransformSimToROS(tr))
		assertVecNear(t, tr.Translation, back.Translation)
		assert.Equal(t, tr.Rotation, back.Rotation)
	}
}

func TestQuatSimToROS_NegatesXAndZ(t *testing.T) {
	t.Parallel()

	got := QuatSimToROS(quat.Number{Real: 1, Imag: 2, Jmag: 3, Kmag: 4})
	assert.Equal(t, quat.Number{Real: 1, Imag: -2, Jmag: 3, Kmag: -4}, got)
}

func TestRotationSimToROS_NegatesYAndZ(t *testing.T) {
	t.Parallel()
	assert.Equal(t, r3.Vec{X: 1, Y: -2, Z: -3}, RotationSimToROS(r3.Vec{X: 1, Y: 2, Z: 3}))
}

func TestYawFlipsSignAcrossConventions(t *testing.T) {
	t.Parallel()

	q := YawQuat(0.3)
	assert.InDelta(t, 0.3, Yaw(q), tol)
	assert.InDelta(t, -0.3, Yaw(QuatSimToROS(q)), tol)
}

func TestOdomRoundTrip(t *testing.T) {
	t.Parallel()

	in := rosmsg.Odometry{
		Header:       rosmsg.Header{FrameID: "odom", Stamp: rosmsg.Time{Sec: 3, Nanosec: 5}},
		ChildFrameID: "base_footprint",
		Pose: rosmsg.PoseWithCovariance{
			Pose: rosmsg.Pose{
				Position:    r3.Vec{X: 150, Y: -30, Z: 0},
				Orientation: YawQuat(1.2),
			},
			Covariance: rosmsg.Covariance{0: 0.01, 35: 0.01},
		},
		Twist: rosmsg.TwistWithCovariance{
			Twist: rosmsg.Twist{
				Linear:  r3.Vec{X: 100},
				Angular: r3.Vec{Z: 0.5},
			},
		},
	}

	ros := OdomSimToROS(in)
	assertVecNear(t, r3.Vec{X: 1.5, Y: 0.3}, ros.Pose.Pose.Position)
	assertVecNear(t, r3.Vec{X: 1}, ros.Twist.Twist.Linear)
	assertVecNear(t, r3.Vec{Z: -0.5}, ros.Twist.Twist.Angular)
	assert.Equal(t, in.Header, ros.Header)
	assert.Equal(t, in.Pose.Covariance, ros.Pose.Covariance)

	back := OdomROSToSim(ros)
	if diff := cmp.Diff(in, back, cmpopts.EquateApprox(0, tol)); diff != "" {
		t.Errorf("odometry round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSecondsToStamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want rosmsg.Time
	}{
		{"zero", 0, rosmsg.Time{}},
		{"negative", -1, rosmsg.Time{}},
		{"nan", math.NaN(), rosmsg.Time{}},
		{"whole", 12, rosmsg.Time{Sec: 12}},
		{"fraction", 1.25, rosmsg.Time{Sec: 1, Nanosec: 250000000}},
		{"rounds up", 1.9999999999, rosmsg.Time{Sec: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SecondsToStamp(tt.in))
		})
	}

	assert.InDelta(t, 1.25, StampToSeconds(rosmsg.Time{Sec: 1, Nanosec: 250000000}), tol)
}

func TestTransformStampedSimToROS(t *testing.T) {
	t.Parallel()

	h := rosmsg.Header{FrameID: "map"}
	tf := TransformStampedSimToROS(h, "laser", Transform{
		Translation: r3.Vec{X: 100, Y: 50, Z: 20},
		Rotation:    YawQuat(math.Pi / 2),
	})
	assert.Equal(t, "laser", tf.ChildFrameID)
	assertVecNear(t, r3.Vec{X: 1, Y: -0.5, Z: 0.2}, tf.Transform.Translation)
	assert.InDelta(t, -math.Pi/2, Yaw(tf.Transform.Rotation), tol)
}
