package simclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMockClock_Advance(t *testing.T) {
	c := NewMockClock(epoch)
	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), c.Now())
	assert.Equal(t, 1500*time.Millisecond, c.Since(epoch))
}

func TestMockTicker_FiresOnDeadline(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(100 * time.Millisecond)

	c.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case ts := <-tk.C():
		assert.Equal(t, epoch.Add(100*time.Millisecond), ts)
	default:
		t.Fatal("ticker did not fire")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockTicker_DropsWhenNotDrained(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(10 * time.Millisecond)

	c.Advance(10 * time.Millisecond)
	c.Advance(10 * time.Millisecond)
	require.Len(t, tk.C(), 1)
}

func TestMockClock_NonPositiveTickerPanics(t *testing.T) {
	c := NewMockClock(epoch)
	assert.Panics(t, func() { c.NewTicker(0) })
}

func TestSimTime_Seconds(t *testing.T) {
	c := NewMockClock(epoch)
	st := NewSimTime(c)
	assert.Zero(t, st.Seconds())

	c.Advance(2250 * time.Millisecond)
	assert.InDelta(t, 2.25, st.Seconds(), 1e-12)

	var nilTime *SimTime
	assert.Zero(t, nilTime.Seconds())
}
