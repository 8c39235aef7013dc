package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

func openTest(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "sim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleScan(sec int32) rosmsg.LaserScan {
	nan := float32(math.NaN())
	return rosmsg.LaserScan{
		Header:         rosmsg.Header{Stamp: rosmsg.Time{Sec: sec, Nanosec: 250}, FrameID: "base_scan"},
		AngleMin:       -1.5,
		AngleMax:       0,
		AngleIncrement: 0.5,
		TimeIncrement:  0.025,
		ScanTime:       0.1,
		RangeMin:       0.2,
		RangeMax:       10,
		Ranges:         []float32{4.9, 0.2, 3.25, 4.9},
		Intensities:    []float32{1000, nan, 6000, 3500.5},
	}
}

func TestRecorder_ScanRoundTrip(t *testing.T) {
	t.Parallel()
	r := openTest(t)
	id := uuid.New()
	require.NoError(t, r.StartSession(id, "flat wall"))

	first, err := r.RecordScan(id, sampleScan(1))
	require.NoError(t, err)
	second, err := r.RecordScan(id, sampleScan(2))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := r.Scans(id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	want := []rosmsg.LaserScan{sampleScan(1), sampleScan(2)}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("scans mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_OdometryRoundTrip(t *testing.T) {
	t.Parallel()
	r := openTest(t)
	id := uuid.New()
	require.NoError(t, r.StartSession(id, ""))

	odom := rosmsg.Odometry{
		Header:       rosmsg.Header{Stamp: rosmsg.Time{Sec: 3, Nanosec: 5}, FrameID: "odom"},
		ChildFrameID: "base_footprint",
		Pose: rosmsg.PoseWithCovariance{
			Pose: rosmsg.Pose{
				Position:    r3.Vec{X: 1, Y: -0.5},
				Orientation: quat.Number{Real: math.Cos(0.25), Kmag: -math.Sin(0.25)},
			},
			Covariance: rosmsg.Covariance{0: 0.01, 7: 0.01, 14: 1e12, 21: 1e12, 28: 1e12, 35: 0.01},
		},
		Twist: rosmsg.TwistWithCovariance{
			Twist: rosmsg.Twist{Linear: r3.Vec{X: 0.3}, Angular: r3.Vec{Z: -0.1}},
		},
	}
	require.NoError(t, r.RecordOdometry(id, odom))

	got, err := r.Odometry(id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, odom, got[0])
}

func TestRecorder_SessionLifecycle(t *testing.T) {
	t.Parallel()
	r := openTest(t)
	r.now = func() time.Time { return time.Unix(100, 0) }

	id := uuid.New()
	require.NoError(t, r.StartSession(id, "demo"))
	_, err := r.RecordScan(id, sampleScan(1))
	require.NoError(t, err)

	s, err := r.Session(id)
	require.NoError(t, err)
	assert.Equal(t, "demo", s.Notes)
	assert.Equal(t, 1, s.Scans)
	assert.Zero(t, s.Odometry)
	assert.Nil(t, s.EndedAt)

	r.now = func() time.Time { return time.Unix(160, 0) }
	require.NoError(t, r.EndSession(id))
	s, err = r.Session(id)
	require.NoError(t, err)
	require.NotNil(t, s.EndedAt)
	assert.Equal(t, time.Minute, s.EndedAt.Sub(s.StartedAt))

	assert.Error(t, r.StartSession(id, "again"), "duplicate session")
}

func TestRecorder_UnknownSession(t *testing.T) {
	t.Parallel()
	r := openTest(t)
	id := uuid.New()

	_, err := r.RecordScan(id, sampleScan(1))
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.ErrorIs(t, r.RecordOdometry(id, rosmsg.Odometry{}), ErrUnknownSession)
	assert.ErrorIs(t, r.EndSession(id), ErrUnknownSession)
	_, err = r.Session(id)
	assert.ErrorIs(t, err, ErrUnknownSession)

	scans, err := r.Scans(id)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestOpen_ReappliesMigrationsIdempotently(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sim.db")
	r, err := Open(path)
	require.NoError(t, err)
	id := uuid.New()
	require.NoError(t, r.StartSession(id, ""))
	require.NoError(t, r.Close())

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Session(id)
	assert.NoError(t, err)
}
